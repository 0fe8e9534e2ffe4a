package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postedHash = regexp.MustCompile(`Posted \w+ (u\S+)`)

func TestVersionCommand(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestInvalidConfigFailsEveryCommand(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".condenser")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[conductor]\nbackend = \"carrier-pigeon\"\n"), 0o644))

	_, _, err := executeCLI(t, home, "cravings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conductor.backend must be")
}

func TestCravingsOnEmptyConductor(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 0  groups: 0")
	assert.Contains(t, stdout, "No cravings installed yet.")
}

func TestCravingCreateRequiresTitle(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "craving", "create", "--description", "no title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"title\" not set")
}

func TestCreateCravingPostAndMarkSeen(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	stdout, _, err := executeCLI(t, home, "craving", "create", "--title", "Rain", "--description", "Words about rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Created craving "Rain"`)

	_, _, err = executeCLI(t, home, "post", "association", "Rain", "drops", "on", "a", "tin", "roof")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "post", "offer", "rain", "petrichor", "--explanation", "it smells like rain")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 1  groups: 0")
	assert.Contains(t, stdout, "associations: 1 +1")
	assert.Contains(t, stdout, "offers: 1 +1")

	stdout, _, err = executeCLI(t, home, "craving", "show", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, "drops on a tin roof")
	assert.Contains(t, stdout, "petrichor")
	assert.Contains(t, stdout, "it smells like rain")
	assert.Contains(t, stdout, "Offers 1 1 new")

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "associations: 1")
	assert.NotContains(t, stdout, "associations: 1 +")
	assert.NotContains(t, stdout, "offers: 1 +")
}

func TestCravingShowJSONKeepsNewWhenAsked(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	_, _, err := executeCLI(t, home, "post", "association", "Rain", "drizzle")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "craving", "show", "Rain", "--json", "--keep-new")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var detail struct {
		Title        string `json:"title"`
		New          struct{ Associations int } `json:"new"`
		Associations []struct {
			Text string `json:"text"`
			Mine bool   `json:"mine"`
		} `json:"associations"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &detail))
	assert.Equal(t, "Rain", detail.Title)
	assert.Equal(t, 1, detail.New.Associations)
	require.Len(t, detail.Associations, 1)
	assert.Equal(t, "drizzle", detail.Associations[0].Text)
	assert.True(t, detail.Associations[0].Mine)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "associations: 1 +1")
}

func TestPostRejectsTooLongAssociation(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "craving", "create", "--title", "Haiku", "--max-association-chars", "5")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "post", "association", "Haiku", "much too long")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Association is longer than allowed. Max characters: 5")
}

func TestUnknownCravingIsReported(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))

	_, _, err := executeCLI(t, home, "craving", "show", "Nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell not found")
}

func TestCommentEditAndDeleteReflection(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "post", "reflection", "Rain", "--title", "Monsoon", "the", "season", "of", "waiting")
	require.NoError(t, err)
	reflection := postedHashFrom(t, stdout)

	_, _, err = executeCLI(t, home, "comment", "Rain", reflection, "so true")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "comments", "Rain", reflection)
	require.NoError(t, err)
	assert.Contains(t, stdout, "so true")

	stdout, _, err = executeCLI(t, home, "craving", "show", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Monsoon: the season of waiting")
	assert.Contains(t, stdout, "1 comment")

	stdout, _, err = executeCLI(t, home, "edit", "Rain", reflection, "the", "season", "of", "rain", "--title", "Monsoon II")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Updated u")
	assert.NotContains(t, stdout, reflection)

	_, _, err = executeCLI(t, home, "delete", "Rain", reflection)
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "craving", "show", "Rain")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Monsoon")
}

func TestCommentOnAssociationIsRejected(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "post", "association", "Rain", "drizzle")
	require.NoError(t, err)
	association := postedHashFrom(t, stdout)

	_, _, err = executeCLI(t, home, "comment", "Rain", association, "nice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry type not supported here")
}

func TestResonateAndUndo(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "post", "offer", "Rain", "petrichor")
	require.NoError(t, err)
	offer := postedHashFrom(t, stdout)

	_, _, err = executeCLI(t, home, "resonate", "Rain", offer)
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "craving", "show", "Rain", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"resonators": 1`)
	assert.Contains(t, stdout, `"i_resonated": true`)

	_, _, err = executeCLI(t, home, "resonate", "Rain", offer, "--undo")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "craving", "show", "Rain", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"resonators": 0`)
}

func TestGroupShareAndJoinAcrossAgents(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "group", "create", "--name", "Poets", "--description", "We write", "--rules", "be kind")
	require.NoError(t, err)
	invite := inviteFrom(t, stdout)

	_, _, err = executeCLI(t, home, "craving", "share", "Rain", "--group", "Poets")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "group", "show", "Poets")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rules: be kind")
	assert.Contains(t, stdout, "Rain [joined]")

	t.Setenv("CONDENSER_CONDUCTOR_AGENT", "bob")

	_, _, err = executeCLI(t, home, "group", "join", invite)
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 0  groups: 1")
	assert.Contains(t, stdout, "Rain via Poets")

	_, _, err = executeCLI(t, home, "group", "join", invite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group already installed")

	stdout, _, err = executeCLI(t, home, "craving", "join", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Joined craving "Rain"`)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 1  groups: 1")
	assert.Contains(t, stdout, "shared in Poets")
	assert.NotContains(t, stdout, "Available from your groups")
}

func TestDisableAndEnableCraving(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	_, _, err := executeCLI(t, home, "craving", "disable", "Rain")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 0")
	assert.Contains(t, stdout, "disabled: Rain")

	_, _, err = executeCLI(t, home, "craving", "enable", "Rain")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cravings: 1")
	assert.NotContains(t, stdout, "disabled:")
}

func TestSettingsSetAndShow(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "settings", "show", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, "offers        os:off systray:on  in-app:on")

	_, _, err = executeCLI(t, home, "settings", "set", "Rain", "--kind", "offers", "--os", "--systray=false")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "settings", "show", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, "offers        os:on  systray:off in-app:on")

	_, _, err = executeCLI(t, home, "settings", "disable", "Rain")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "settings", "show", "Rain", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"systray": false`)
	assert.NotContains(t, stdout, `"systray": true`)
}

func TestSettingsSetRejectsUnknownKind(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	_, _, err := executeCLI(t, home, "settings", "set", "Rain", "--kind", "anecdotes", "--os")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection kind")
}

func TestLedgerShowAndClear(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	_, _, err := executeCLI(t, home, "post", "association", "Rain", "drizzle")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "craving", "show", "Rain")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "ledger", "show", "Rain")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"association_count": 1`)

	_, _, err = executeCLI(t, home, "ledger", "clear", "Rain")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "cravings")
	require.NoError(t, err)
	assert.Contains(t, stdout, "associations: 1 +1")
}

func TestWatchOnceNotifiesAboutOthersActivity(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home))
	createCraving(t, home, "Rain")

	stdout, _, err := executeCLI(t, home, "group", "create", "--name", "Poets")
	require.NoError(t, err)
	invite := inviteFrom(t, stdout)
	_, _, err = executeCLI(t, home, "craving", "share", "Rain", "--group", "Poets")
	require.NoError(t, err)

	// The first pass only records baselines.
	stdout, _, err = executeCLI(t, home, "watch", "--once")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(stdout))

	t.Setenv("CONDENSER_CONDUCTOR_AGENT", "bob")
	_, _, err = executeCLI(t, home, "group", "join", invite)
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "craving", "join", "Rain")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "post", "offer", "Rain", "petrichor")
	require.NoError(t, err)

	t.Setenv("CONDENSER_CONDUCTOR_AGENT", "alice")
	stdout, _, err = executeCLI(t, home, "watch", "--once")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rain 1 new offer")

	stdout, _, err = executeCLI(t, home, "watch", "--once")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(stdout))
}

func createCraving(t *testing.T, home string, title string) {
	t.Helper()

	_, _, err := executeCLI(t, home, "craving", "create", "--title", title)
	require.NoError(t, err)
}

func postedHashFrom(t *testing.T, stdout string) string {
	t.Helper()

	match := postedHash.FindStringSubmatch(stdout)
	require.Len(t, match, 2, "no hash in %q", stdout)
	return match[1]
}

func inviteFrom(t *testing.T, stdout string) string {
	t.Helper()

	for _, line := range strings.Split(stdout, "\n") {
		if invite, ok := strings.CutPrefix(line, "invite: "); ok {
			return strings.TrimSpace(invite)
		}
	}
	t.Fatalf("no invite in %q", stdout)
	return ""
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfigFixture points condenser at the in-memory conductor under home.
func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".condenser")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	config := `[conductor]
backend = "memory"
agent = "alice"

[lobby]
join_grace = "0s"

[logging]
level = "error"
`

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o644)
}

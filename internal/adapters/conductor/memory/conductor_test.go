package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func intPtr(v int) *int {
	return &v
}

func cravingProps() domain.CravingDnaProperties {
	return domain.CravingDnaProperties{Title: "Rain", Description: "Words about rain"}
}

func cloneCraving(t *testing.T, c *Conductor, props domain.CravingDnaProperties) domain.CellID {
	t.Helper()

	cell, err := c.CreateCloneCell(context.Background(), domain.CreateCloneCellRequest{
		RoleName: domain.RoleCraving,
		Modifiers: domain.CloneModifiers{
			NetworkSeed: "seed-1",
			Properties:  props,
			OriginTime:  1_700_000_000_000_000,
		},
		Name: props.Title,
	})
	require.NoError(t, err)
	return cell.CellID
}

func call[T any](t *testing.T, c *Conductor, cell domain.CellID, zome string, fn string, payload any) T {
	t.Helper()

	var out T
	err := c.CallZome(context.Background(), domain.ZomeCall{CellID: cell, ZomeName: zome, FnName: fn, Payload: payload}, &out)
	require.NoError(t, err, fn)
	return out
}

func callErr(c *Conductor, cell domain.CellID, zome string, fn string, payload any) error {
	return c.CallZome(context.Background(), domain.ZomeCall{CellID: cell, ZomeName: zome, FnName: fn, Payload: payload}, nil)
}

func TestCloneCellLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	alice := NewNetwork().Conductor("condenser", "alice")

	cell := cloneCraving(t, alice, cravingProps())

	info, err := alice.AppInfo(ctx)
	require.NoError(t, err)
	cells := info.ClonedCells(domain.RoleCraving)
	require.Len(t, cells, 1)
	assert.Equal(t, "craving.0", cells[0].CloneID)
	assert.True(t, cells[0].Enabled)
	assert.Equal(t, "Rain", cells[0].Name)

	_, err = alice.CreateCloneCell(ctx, domain.CreateCloneCellRequest{
		RoleName:  domain.RoleCraving,
		Modifiers: domain.CloneModifiers{NetworkSeed: "seed-1", Properties: cravingProps(), OriginTime: 1_700_000_000_000_000},
	})
	require.Error(t, err, "the same dna cannot be cloned twice by one agent")

	require.NoError(t, alice.DisableCloneCell(ctx, cell))
	info, err = alice.AppInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.ClonedCells(domain.RoleCraving)[0].Enabled)

	err = callErr(alice, cell, domain.ZomeCraving, "get_all_associations", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell disabled")

	enabled, err := alice.EnableCloneCell(ctx, cell)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
}

func TestSameRecipeYieldsSameDnaForEveryAgent(t *testing.T) {
	t.Parallel()

	network := NewNetwork()
	aliceCell := cloneCraving(t, network.Conductor("condenser", "alice"), cravingProps())
	bobCell := cloneCraving(t, network.Conductor("condenser", "bob"), cravingProps())

	assert.True(t, aliceCell.DnaHash.Equal(bobCell.DnaHash))
	assert.False(t, aliceCell.AgentPubKey.Equal(bobCell.AgentPubKey))

	other := cravingProps()
	other.Title = "Snow"
	otherCell := cloneCraving(t, network.Conductor("condenser", "carol"), other)
	assert.False(t, aliceCell.DnaHash.Equal(otherCell.DnaHash))
}

func TestAssociationsAreDeduplicatedByEntry(t *testing.T) {
	t.Parallel()

	network := NewNetwork()
	alice := network.Conductor("condenser", "alice")
	bob := network.Conductor("condenser", "bob")
	aliceCell := cloneCraving(t, alice, cravingProps())
	bobCell := cloneCraving(t, bob, cravingProps())

	first := call[domain.Record](t, alice, aliceCell, domain.ZomeCraving, "create_association", domain.Association{Association: "petrichor"})
	second := call[domain.Record](t, bob, bobCell, domain.ZomeCraving, "create_association", domain.Association{Association: "petrichor"})
	call[domain.Record](t, bob, bobCell, domain.ZomeCraving, "create_association", domain.Association{Association: "puddle"})

	assert.True(t, first.Action.EntryHash.Equal(second.Action.EntryHash))
	assert.False(t, first.ActionHash.Equal(second.ActionHash))

	all := call[[]domain.Record](t, alice, aliceCell, domain.ZomeCraving, "get_all_associations", nil)
	require.Len(t, all, 2)
	assert.True(t, all[0].ActionHash.Equal(first.ActionHash), "the earliest action stands for the entry")

	actions := call[[]domain.Record](t, alice, aliceCell, domain.ZomeCraving, "get_all_association_actions", nil)
	assert.Len(t, actions, 3)

	byEntry := call[*domain.Record](t, alice, aliceCell, domain.ZomeCraving, "get_association", first.Action.EntryHash)
	require.NotNil(t, byEntry)
	decoded, err := domain.DecodeEntry[domain.Association](*byEntry)
	require.NoError(t, err)
	assert.Equal(t, "petrichor", decoded.Association)
}

func TestUpdateChainResolvesToLatestRevision(t *testing.T) {
	t.Parallel()

	alice := NewNetwork().Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())

	original := call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_reflection", domain.Reflection{Title: "On rain", Reflection: "first"})
	v2 := call[domain.Record](t, alice, cell, domain.ZomeCraving, "update_reflection", domain.UpdateReflectionInput{
		OriginalReflectionHash: original.ActionHash,
		PreviousReflectionHash: original.ActionHash,
		UpdatedReflection:      domain.Reflection{Title: "On rain", Reflection: "second"},
	})
	call[domain.Record](t, alice, cell, domain.ZomeCraving, "update_reflection", domain.UpdateReflectionInput{
		OriginalReflectionHash: original.ActionHash,
		PreviousReflectionHash: v2.ActionHash,
		UpdatedReflection:      domain.Reflection{Title: "On rain", Reflection: "third"},
	})

	latest := call[*domain.Record](t, alice, cell, domain.ZomeCraving, "get_reflection", original.ActionHash)
	require.NotNil(t, latest)
	reflection, err := domain.DecodeEntry[domain.Reflection](*latest)
	require.NoError(t, err)
	assert.Equal(t, "third", reflection.Reflection)
	assert.Equal(t, domain.ActionUpdate, latest.Action.Type)

	all := call[[]domain.Record](t, alice, cell, domain.ZomeCraving, "get_all_reflections", nil)
	assert.Len(t, all, 1, "updates are not listed as new reflections")
}

func TestDeletedRecordsDisappear(t *testing.T) {
	t.Parallel()

	alice := NewNetwork().Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())

	record := call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_reflection", domain.Reflection{Title: "t", Reflection: "r"})
	deleteHash := call[domain.ActionHash](t, alice, cell, domain.ZomeCraving, "delete_reflection", record.ActionHash)
	assert.NotEmpty(t, deleteHash)

	got := call[*domain.Record](t, alice, cell, domain.ZomeCraving, "get_reflection", record.ActionHash)
	assert.Nil(t, got)
	assert.Empty(t, call[[]domain.Record](t, alice, cell, domain.ZomeCraving, "get_all_reflections", nil))
}

func TestResonatorsAreIdempotentPerAgent(t *testing.T) {
	t.Parallel()

	network := NewNetwork()
	alice := network.Conductor("condenser", "alice")
	bob := network.Conductor("condenser", "bob")
	aliceCell := cloneCraving(t, alice, cravingProps())
	bobCell := cloneCraving(t, bob, cravingProps())

	record := call[domain.Record](t, alice, aliceCell, domain.ZomeCraving, "create_association", domain.Association{Association: "drizzle"})
	entry := record.Action.EntryHash

	require.NoError(t, callErr(alice, aliceCell, domain.ZomeCraving, "add_resonator_for_entry", entry))
	require.NoError(t, callErr(alice, aliceCell, domain.ZomeCraving, "add_resonator_for_entry", entry))
	require.NoError(t, callErr(bob, bobCell, domain.ZomeCraving, "add_resonator_for_entry", entry))

	resonators := call[[]domain.AgentPubKey](t, alice, aliceCell, domain.ZomeCraving, "get_resonators_for_entry", entry)
	require.Len(t, resonators, 2)
	assert.True(t, resonators[0].Equal(alice.MyPubKey()))
	assert.True(t, resonators[1].Equal(bob.MyPubKey()))

	require.NoError(t, callErr(alice, aliceCell, domain.ZomeCraving, "remove_resonator_for_entry", entry))
	resonators = call[[]domain.AgentPubKey](t, bob, bobCell, domain.ZomeCraving, "get_resonators_for_entry", entry)
	require.Len(t, resonators, 1)
	assert.True(t, resonators[0].Equal(bob.MyPubKey()))
}

func TestSecondObserverSeesDataAfterPropagationDelay(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	network := NewNetwork(WithClock(clock.Now), WithPropagationDelay(time.Second))
	alice := network.Conductor("condenser", "alice")
	bob := network.Conductor("condenser", "bob")
	aliceCell := cloneCraving(t, alice, cravingProps())
	bobCell := cloneCraving(t, bob, cravingProps())

	call[domain.Record](t, alice, aliceCell, domain.ZomeCraving, "create_offer", domain.Offer{Offer: "umbrella"})

	assert.Len(t, call[[]domain.Record](t, alice, aliceCell, domain.ZomeCraving, "get_all_offers", nil), 1, "authors see their own data at once")
	assert.Empty(t, call[[]domain.Record](t, bob, bobCell, domain.ZomeCraving, "get_all_offers", nil))

	clock.Advance(1500 * time.Millisecond)
	assert.Len(t, call[[]domain.Record](t, bob, bobCell, domain.ZomeCraving, "get_all_offers", nil), 1)
}

func TestValidationUsesCravingLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		props   domain.CravingDnaProperties
		fn      string
		payload any
		message string
	}{
		{
			name:    "association default limit",
			props:   cravingProps(),
			fn:      "create_association",
			payload: domain.Association{Association: strings.Repeat("a", 71)},
			message: "Association is longer than allowed. Max characters: 70 (default value)",
		},
		{
			name:    "association custom limit",
			props:   domain.CravingDnaProperties{Title: "Short", MaxAssociationChars: intPtr(5)},
			fn:      "create_association",
			payload: domain.Association{Association: "sixsix"},
			message: "Association is longer than allowed. Max characters: 5",
		},
		{
			name:    "offer custom limit",
			props:   domain.CravingDnaProperties{Title: "Offers", MaxOfferChars: intPtr(3)},
			fn:      "create_offer",
			payload: domain.Offer{Offer: "four"},
			message: "Offer is longer than allowed. Max characters: 3",
		},
		{
			name:    "reflection title",
			props:   cravingProps(),
			fn:      "create_reflection",
			payload: domain.Reflection{Title: strings.Repeat("t", 81), Reflection: "ok"},
			message: "Reflection title is longer than allowed. Max characters: 80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			alice := NewNetwork().Conductor("condenser", "alice")
			cell := cloneCraving(t, alice, tt.props)

			err := callErr(alice, cell, domain.ZomeCraving, tt.fn, tt.payload)
			require.Error(t, err)

			var remote *domain.ConductorError
			require.True(t, errors.As(err, &remote))
			assert.Equal(t, domain.ConductorErrorRibosome, remote.Type)
			assert.Contains(t, remote.Message, tt.message)
		})
	}
}

func TestCommentsListForTheirParent(t *testing.T) {
	t.Parallel()

	alice := NewNetwork().Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())

	reflection := call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_reflection", domain.Reflection{Title: "t", Reflection: "r"})
	other := call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_reflection", domain.Reflection{Title: "u", Reflection: "s"})

	for _, text := range []string{"one", "two"} {
		call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_comment_on_reflection", domain.CommentOnReflection{ReflectionHash: reflection.ActionHash, Comment: text})
	}

	comments := call[[]domain.Record](t, alice, cell, domain.ZomeCraving, "get_comment_on_reflections_for_reflection", reflection.ActionHash)
	assert.Len(t, comments, 2)
	assert.Empty(t, call[[]domain.Record](t, alice, cell, domain.ZomeCraving, "get_comment_on_reflections_for_reflection", other.ActionHash))

	err := callErr(alice, cell, domain.ZomeCraving, "create_comment_on_offer", domain.CommentOnOffer{OfferHash: reflection.ActionHash, Comment: "wrong parent"})
	require.Error(t, err)
}

func TestLobbyInfoIsASingleton(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	alice := NewNetwork().Conductor("condenser", "alice")
	lobby, err := alice.CreateCloneCell(ctx, domain.LobbyCloneRequest("Weather people", "lobby-seed"))
	require.NoError(t, err)
	cell := lobby.CellID

	err = callErr(alice, cell, domain.ZomeLobby, "get_lobby_info", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "There is no link pointing to the lobby info yet.")

	created := call[domain.Record](t, alice, cell, domain.ZomeLobby, "create_lobby_info", domain.LobbyInfo{Description: "hello", NetworkSeed: "lobby-seed"})

	err = callErr(alice, cell, domain.ZomeLobby, "create_lobby_info", domain.LobbyInfo{Description: "again"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only one link is allowed.")

	call[domain.Record](t, alice, cell, domain.ZomeLobby, "update_lobby_info", domain.UpdateLobbyInfoInput{
		OriginalLobbyInfoHash: created.ActionHash,
		PreviousLobbyInfoHash: created.ActionHash,
		UpdatedLobbyInfo:      domain.LobbyInfo{Description: "hello again", NetworkSeed: "lobby-seed"},
	})

	latest := call[*domain.Record](t, alice, cell, domain.ZomeLobby, "get_lobby_info", nil)
	require.NotNil(t, latest)
	info, err := domain.DecodeEntry[domain.LobbyInfo](*latest)
	require.NoError(t, err)
	assert.Equal(t, "hello again", info.Description)

	assert.Equal(t, "Weather people", call[string](t, alice, cell, domain.ZomeLobby, "get_lobby_name", nil))
}

func TestDnaRecipesRejectExactDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	alice := NewNetwork().Conductor("condenser", "alice")
	lobby, err := alice.CreateCloneCell(ctx, domain.LobbyCloneRequest("Weather people", "lobby-seed"))
	require.NoError(t, err)

	seed := "seed-1"
	recipe := domain.DnaRecipe{Title: "Rain", NetworkSeed: &seed, Properties: cravingProps()}

	call[domain.Record](t, alice, lobby.CellID, domain.ZomeLobby, "create_dna_recipe", recipe)
	err = callErr(alice, lobby.CellID, domain.ZomeLobby, "create_dna_recipe", recipe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "An entry for this DnaRecipe exists already.")

	assert.Len(t, call[[]domain.Record](t, alice, lobby.CellID, domain.ZomeLobby, "get_all_craving_recipes", nil), 1)
}

func TestSignalsReachOnlyTheAuthor(t *testing.T) {
	t.Parallel()

	network := NewNetwork()
	alice := network.Conductor("condenser", "alice")
	bob := network.Conductor("condenser", "bob")
	aliceCell := cloneCraving(t, alice, cravingProps())
	cloneCraving(t, bob, cravingProps())

	var (
		mu        sync.Mutex
		aliceSeen []domain.EntrySignal
		bobSeen   int
	)
	unsubscribe := alice.OnSignal(func(sig domain.AppSignal) {
		decoded, err := domain.DecodeEntrySignal(sig)
		require.NoError(t, err)
		mu.Lock()
		aliceSeen = append(aliceSeen, decoded)
		mu.Unlock()
	})
	bob.OnSignal(func(domain.AppSignal) {
		mu.Lock()
		bobSeen++
		mu.Unlock()
	})

	call[domain.Record](t, alice, aliceCell, domain.ZomeCraving, "create_association", domain.Association{Association: "mist"})

	mu.Lock()
	require.Len(t, aliceSeen, 2)
	assert.True(t, aliceSeen[0].IsEntryCreated(domain.EntryTypeAssociation))
	assert.Equal(t, domain.SignalLinkCreated, aliceSeen[1].Type)
	assert.Equal(t, "AllAssociations", aliceSeen[1].LinkType)
	assert.Zero(t, bobSeen)
	mu.Unlock()

	unsubscribe()
	call[domain.Record](t, alice, aliceCell, domain.ZomeCraving, "create_association", domain.Association{Association: "fog"})
	mu.Lock()
	assert.Len(t, aliceSeen, 2)
	mu.Unlock()
}

func TestCallsFailAfterClose(t *testing.T) {
	t.Parallel()

	alice := NewNetwork().Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())
	require.NoError(t, alice.Close())

	err := callErr(alice, cell, domain.ZomeCraving, "get_all_associations", nil)
	assert.ErrorIs(t, err, domain.ErrConductorUnreachable)
}

func TestInjectedFailures(t *testing.T) {
	t.Parallel()

	alice := NewNetwork().Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())
	boom := errors.New("boom")

	alice.FailCalls(cell.DnaHash, "get_all_offers", boom)
	assert.ErrorIs(t, callErr(alice, cell, domain.ZomeCraving, "get_all_offers", nil), boom)

	alice.FailCalls(cell.DnaHash, "get_all_offers", nil)
	assert.NoError(t, callErr(alice, cell, domain.ZomeCraving, "get_all_offers", nil))
}

func TestSaveAndLoadNetwork(t *testing.T) {
	t.Parallel()

	network := NewNetwork()
	alice := network.Conductor("condenser", "alice")
	cell := cloneCraving(t, alice, cravingProps())
	call[domain.Record](t, alice, cell, domain.ZomeCraving, "create_association", domain.Association{Association: "cloud"})

	raw, err := network.Save()
	require.NoError(t, err)

	restored, err := LoadNetwork(raw)
	require.NoError(t, err)
	again := restored.Conductor("condenser", "alice")

	info, err := again.AppInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, info.ClonedCells(domain.RoleCraving), 1)
	assert.Len(t, call[[]domain.Record](t, again, cell, domain.ZomeCraving, "get_all_associations", nil), 1)
}

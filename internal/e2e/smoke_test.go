package e2e

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postedHash = regexp.MustCompile(`Posted \w+ (u\S+)`)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	stdout, stderr, err := runCondenser(t, binaryPath, home, nil, "craving", "create", "--title", "Rain")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `Created craving "Rain"`)

	stdout, stderr, err = runCondenser(t, binaryPath, home, nil, "post", "offer", "Rain", "petrichor")
	require.NoError(t, err, "stderr: %s", stderr)
	require.Regexp(t, postedHash, stdout)

	stdout, stderr, err = runCondenser(t, binaryPath, home, nil, "cravings")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "offers: 1 +1")

	_, err = os.Stat(filepath.Join(home, ".condenser", "network.msgpack"))
	assert.NoError(t, err)
}

func TestConductorServeOverWebsocket(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	addr := freeAddr(t)
	server := exec.Command(binaryPath, "conductor", "serve", "--addr", addr)
	server.Env = append(os.Environ(), "HOME="+home)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		_ = server.Process.Signal(os.Interrupt)
		_ = server.Wait()
	})

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 10*time.Second, 50*time.Millisecond, "conductor did not start")

	env := []string{
		"CONDENSER_CONDUCTOR_BACKEND=websocket",
		"CONDENSER_CONDUCTOR_URL=ws://" + addr,
	}

	stdout, stderr, err := runCondenser(t, binaryPath, home, env, "craving", "create", "--title", "Fog")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, `Created craving "Fog"`)

	_, stderr, err = runCondenser(t, binaryPath, home, env, "post", "association", "Fog", "grey", "harbour")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runCondenser(t, binaryPath, home, env, "craving", "show", "Fog")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "grey harbour")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "condenser-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/condenser")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build condenser binary: %s", string(output))
	return binaryPath
}

func runCondenser(t *testing.T, binaryPath, home string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(append(os.Environ(), "HOME="+home), env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

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

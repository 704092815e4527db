package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	for _, name := range []string{"First", "Second"} {
		_, stderr, err := runEA(t, binaryPath, home, "account", "add", "--name", name, "--session", "cookie-"+name)
		require.NoError(t, err, "stderr: %s", stderr)
	}

	stdout, stderr, err := runEA(t, binaryPath, home, "account", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "1. First (1) ready")
	assert.Contains(t, stdout, "2. Second (2) ready")

	stdout, stderr, err = runEA(t, binaryPath, home, "submit", "--kind", "comment", "--amount", "all", "--target", "post-1", "--user", "alice")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Finished: 2/2 comments sent to post-1.")
	assert.Contains(t, stderr, "dry run action")

	_, stderr, err = runEA(t, binaryPath, home, "submit", "--kind", "comment", "--amount", "1", "--target", "post-2", "--user", "alice")
	require.Error(t, err)
	assert.Contains(t, stderr, "you are on cooldown")

	// Accounts that already commented on post-1 are not picked again.
	_, stderr, err = runEA(t, binaryPath, home, "submit", "--kind", "comment", "--amount", "1", "--target", "post-1", "--user", "bob")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")

	_, stderr, err = runEA(t, binaryPath, home, "status", "--server", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, stderr, "reach ea server")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "ea-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ea")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build ea binary: %s", string(output))
	return binaryPath
}

func runEA(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"EA_REQUEST_STEP_DELAY=0s",
		"EA_TRANSPORT_BASE_URL=",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

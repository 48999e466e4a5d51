package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	unlock, err := client.Lock()
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, ".metabind.lock")
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	unlock()

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_LockTimeout(t *testing.T) {
	client := NewClient(t.TempDir(), "x.lock", nil)
	client.LockTimeout = 30 * time.Millisecond

	unlock, err := client.Lock()
	require.NoError(t, err)
	defer unlock()

	_, err = client.Lock()
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestClient_InitCommitLog(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	require.NoError(t, client.Init())
	assert.True(t, client.IsRepo())
	require.NoError(t, client.EnsureIdentity("test", "test@localhost"))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.md"), []byte("hi\n"), 0o644))
	status, err := client.Status("a.md")
	require.NoError(t, err)
	assert.Contains(t, status, "a.md")

	require.NoError(t, client.Add("a.md"))
	require.NoError(t, client.Commit("add a"))

	log, err := client.Log("a.md", 5)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Contains(t, log[0], "add a")
}

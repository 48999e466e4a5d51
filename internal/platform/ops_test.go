package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/internal/platform"
	"github.com/aretw0/metabind/pkg/adapters/fs"
	"github.com/aretw0/metabind/pkg/adapters/memory"
	"github.com/aretw0/metabind/pkg/adapters/sqlite"
	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/git"
)

func TestInit(t *testing.T) {
	t.Run("FS AutoInit Creates Directory", func(t *testing.T) {
		sitePath := filepath.Join(t.TempDir(), "site")

		store, err := platform.Init(sitePath, platform.WithAutoInit(true), platform.WithForceTemp(true))
		require.NoError(t, err)

		fsStore, ok := store.(*fs.Store)
		require.True(t, ok, "expected fs store, got %T", store)
		assert.Equal(t, sitePath, fsStore.Path)

		info, err := os.Stat(filepath.Join(sitePath, "posts"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("FS Fails if Directory Missing", func(t *testing.T) {
		sitePath := filepath.Join(t.TempDir(), "missing")
		_, err := platform.Init(sitePath, platform.WithAutoInit(false), platform.WithMustExist(true), platform.WithForceTemp(true))
		assert.Error(t, err)
	})

	t.Run("FS Detects Versioning", func(t *testing.T) {
		if !git.IsInstalled() {
			t.Skip("git not installed")
		}
		sitePath := t.TempDir()
		require.NoError(t, git.NewClient(sitePath, "", nil).Init())

		store, err := platform.Init(sitePath, platform.WithForceTemp(true))
		require.NoError(t, err)
		state := store.(*fs.Store).State().(fs.StoreState)
		assert.True(t, state.Versioned)
	})

	t.Run("SQLite", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "site.db")
		store, err := platform.Init(dbPath, platform.WithAdapter(platform.AdapterSQLite), platform.WithForceTemp(true))
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*sqlite.Store)
		require.True(t, ok)
		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("Memory ReadOnly", func(t *testing.T) {
		store, err := platform.Init("", platform.WithAdapter(platform.AdapterMemory), platform.WithReadOnly(true))
		require.NoError(t, err)
		assert.ErrorIs(t, store.SetMeta(context.Background(), "1", "k", "v"), core.ErrReadOnly)
	})

	t.Run("Injected Store Wins", func(t *testing.T) {
		injected := memory.New()
		store, err := platform.Init("ignored", platform.WithStore(injected), platform.WithAdapter("nope"))
		require.NoError(t, err)
		assert.Same(t, injected, store)
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Init("", platform.WithAdapter("nope"))
		assert.Error(t, err)
	})
}

func TestResolveSitePath(t *testing.T) {
	assert.Equal(t, "site", platform.ResolveSitePath("site", false))
	assert.Equal(t, ".", platform.ResolveSitePath("", false))

	inTemp := filepath.Join(os.TempDir(), "already-here")
	assert.Equal(t, inTemp, platform.ResolveSitePath(inTemp, true))

	assert.Equal(t, filepath.Join(os.TempDir(), "metabind-dev", "site"), platform.ResolveSitePath("./site", true))
	assert.Equal(t, filepath.Join(os.TempDir(), "metabind-dev", "default"), platform.ResolveSitePath(".", true))
}

func TestIsDevRun(t *testing.T) {
	assert.True(t, platform.IsDevRun(), "tests run from a .test binary")
}

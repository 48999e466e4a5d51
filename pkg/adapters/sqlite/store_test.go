package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/adapters/sqlite"
	"github.com/aretw0/metabind/pkg/core"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store := sqlite.New(sqlite.Config{Path: path})
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMeta_KeepsTypes(t *testing.T) {
	store := openStore(t, sqlite.MemoryPath)
	ctx := context.Background()

	require.NoError(t, store.SetMeta(ctx, "1", "author", "Jane Doe"))
	require.NoError(t, store.SetMeta(ctx, "1", "featured", true))
	require.NoError(t, store.SetMeta(ctx, "1", "author", "Frank Herbert"))

	v, ok, err := store.GetMeta(ctx, "1", "author")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Frank Herbert", v)

	all, err := store.Meta(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, core.Metadata{"author": "Frank Herbert", "featured": true}, all)

	_, ok, err = store.GetMeta(ctx, "2", "author")
	require.NoError(t, err)
	assert.False(t, ok, "meta is per post")
}

func TestPlacements(t *testing.T) {
	store := openStore(t, sqlite.MemoryPath)
	ctx := context.Background()

	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "1"}))
	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "b", Type: "demo/y", PostID: "1"}))
	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "c", Type: "demo/x", PostID: "2"}))

	list, err := store.Instances(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"a", "b"}, []string{list[0].ID, list[1].ID})

	// Re-placing keeps the position.
	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/z", PostID: "1"}))
	list, err = store.Instances(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "demo/z", list[0].Type)

	assert.Error(t, store.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "2"}))
}

func TestAttributes(t *testing.T) {
	store := openStore(t, sqlite.MemoryPath)
	ctx := context.Background()
	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "1"}))

	_, ok, err := store.GetAttribute(ctx, "a", "authorName")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetAttribute(ctx, "a", "authorName", "Ann"))
	require.NoError(t, store.SetAttribute(ctx, "a", "data.align", true))

	v, ok, err := store.GetAttribute(ctx, "a", "authorName")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ann", v)

	v, _, err = store.GetAttribute(ctx, "a", "data.align")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	assert.ErrorIs(t, store.SetAttribute(ctx, "missing", "k", "v"), core.ErrNotFound)
}

func TestRemove(t *testing.T) {
	store := openStore(t, sqlite.MemoryPath)
	ctx := context.Background()
	require.NoError(t, store.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "1"}))
	require.NoError(t, store.SetAttribute(ctx, "a", "k", "v"))

	require.NoError(t, store.Remove(ctx, "a"))
	_, _, err := store.GetAttribute(ctx, "a", "k")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, store.Remove(ctx, "a"), core.ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "site.db")
	ctx := context.Background()

	first := sqlite.New(sqlite.Config{Path: path})
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, first.SetMeta(ctx, "1", "k", "v"))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	v, ok, err := second.GetMeta(ctx, "1", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.db")
	openStore(t, path)

	ro := sqlite.New(sqlite.Config{Path: path, ReadOnly: true})
	require.NoError(t, ro.Initialize(context.Background()))
	defer ro.Close()
	assert.ErrorIs(t, ro.SetMeta(context.Background(), "1", "k", "v"), core.ErrReadOnly)
}

func TestNotInitialized(t *testing.T) {
	store := sqlite.New(sqlite.Config{})
	_, _, err := store.GetMeta(context.Background(), "1", "k")
	assert.Error(t, err)
}

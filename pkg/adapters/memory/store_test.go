package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/adapters/memory"
	"github.com/aretw0/metabind/pkg/core"
)

func TestStore_Meta(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, ok, err := s.GetMeta(ctx, "1", "title")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta(ctx, "1", "title", "Dune"))
	v, ok, err := s.GetMeta(ctx, "1", "title")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dune", v)

	all, err := s.Meta(ctx, "1")
	require.NoError(t, err)
	all["title"] = "changed"
	v, _, _ = s.GetMeta(ctx, "1", "title")
	assert.Equal(t, "Dune", v, "Meta returns a copy")
}

func TestStore_Placements(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, s.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "1"}))
	require.NoError(t, s.Place(ctx, core.BlockInstance{ID: "b", Type: "demo/x", PostID: "1"}))
	require.NoError(t, s.SetAttribute(ctx, "a", "authorName", "Ann"))

	insts, err := s.Instances(ctx, "1")
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "a", insts[0].ID)
	assert.Equal(t, "Ann", insts[0].Attributes["authorName"])

	err = s.Place(ctx, core.BlockInstance{ID: "a", Type: "demo/x", PostID: "2"})
	assert.Error(t, err, "an instance cannot move to another post")

	require.NoError(t, s.Remove(ctx, "a"))
	_, _, err = s.GetAttribute(ctx, "a", "authorName")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, "a"), core.ErrNotFound)

	insts, _ = s.Instances(ctx, "1")
	require.Len(t, insts, 1)
	assert.Equal(t, "b", insts[0].ID)
}

func TestStore_ReadOnly(t *testing.T) {
	s := memory.NewReadOnly()
	ctx := context.Background()

	assert.ErrorIs(t, s.SetMeta(ctx, "1", "k", "v"), core.ErrReadOnly)
	assert.ErrorIs(t, s.Place(ctx, core.BlockInstance{ID: "a", PostID: "1"}), core.ErrReadOnly)
	assert.Equal(t, memory.StoreState{ReadOnly: true}, s.State())
}

func TestStore_Concurrent(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Place(ctx, core.BlockInstance{ID: "a", PostID: "1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetMeta(ctx, "1", "count", i)
			_ = s.SetAttribute(ctx, "a", "count", i)
			_, _, _ = s.GetAttribute(ctx, "a", "count")
		}(i)
	}
	wg.Wait()

	_, ok, err := s.GetAttribute(ctx, "a", "count")
	require.NoError(t, err)
	assert.True(t, ok)
}

package persist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/adapters/memory"
	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/persist"
	"github.com/aretw0/metabind/pkg/schema"
)

// failingStore wraps a memory store and fails every write once armed.
type failingStore struct {
	*memory.Store
	fail bool
}

var errUnreachable = errors.New("storage unreachable")

func (f *failingStore) SetMeta(ctx context.Context, postID, key string, value any) error {
	if f.fail {
		return errUnreachable
	}
	return f.Store.SetMeta(ctx, postID, key, value)
}

func (f *failingStore) SetAttribute(ctx context.Context, id, key string, value any) error {
	if f.fail {
		return errUnreachable
	}
	return f.Store.SetAttribute(ctx, id, key, value)
}

func setup(t *testing.T) (*persist.Router, *failingStore) {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, schema.RegisterBuiltin(reg))
	reg.Seal()

	store := &failingStore{Store: memory.New()}
	ctx := context.Background()
	for _, inst := range []core.BlockInstance{
		{ID: "a", Type: schema.TestimonialBlock, PostID: "p1"},
		{ID: "b", Type: schema.TestimonialBlock, PostID: "p1"},
		{ID: "c", Type: schema.TestimonialBlock, PostID: "p2"},
	} {
		require.NoError(t, store.Place(ctx, inst))
	}
	return persist.NewRouter(reg, store, nil), store
}

func TestAttributeRoundTrip(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()
	a := core.Scope{PostID: "p1", InstanceID: "a"}

	require.NoError(t, r.Set(ctx, schema.TestimonialBlock, a, "authorName", "Jane Doe"))
	v, err := r.Get(ctx, schema.TestimonialBlock, a, "authorName")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", v)

	// Attribute values stay on their own placement.
	v, err = r.Get(ctx, schema.TestimonialBlock, core.Scope{PostID: "p1", InstanceID: "b"}, "authorName")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	// The post ID is ignored for attribute resolution.
	v, err = r.Get(ctx, schema.TestimonialBlock, core.Scope{PostID: "other", InstanceID: "a"}, "authorName")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", v)
}

func TestMetaSharedAcrossInstances(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, schema.TestimonialBlock, core.Scope{PostID: "p1", InstanceID: "a"}, "testimonial", "Loved it"))

	v, err := r.Get(ctx, schema.TestimonialBlock, core.Scope{PostID: "p1", InstanceID: "b"}, "testimonial")
	require.NoError(t, err)
	assert.Equal(t, "Loved it", v)

	v, err = r.Get(ctx, schema.TestimonialBlock, core.Scope{PostID: "p2", InstanceID: "c"}, "testimonial")
	require.NoError(t, err)
	assert.Equal(t, "", v, "meta must not leak across posts")
}

func TestAbsentValueIsDefault(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, schema.RegisterBuiltin(reg))
	store := memory.New()
	require.NoError(t, store.Place(context.Background(), core.BlockInstance{ID: "x", Type: schema.ParagraphBlock, PostID: "p"}))
	r := persist.NewRouter(reg, store, nil)

	v, err := r.Get(context.Background(), schema.ParagraphBlock, core.Scope{PostID: "p", InstanceID: "x"}, "align")
	require.NoError(t, err)
	assert.Equal(t, "none", v)
}

func TestSet_TypeMismatch(t *testing.T) {
	r, _ := setup(t)
	err := r.Set(context.Background(), schema.TestimonialBlock, core.Scope{PostID: "p1", InstanceID: "a"}, "authorName", 42)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestSet_PersistenceErrorKeepsPriorValue(t *testing.T) {
	r, store := setup(t)
	ctx := context.Background()
	scope := core.Scope{PostID: "p1", InstanceID: "a"}

	require.NoError(t, r.Set(ctx, schema.TestimonialBlock, scope, "testimonial", "first"))

	store.fail = true
	err := r.Set(ctx, schema.TestimonialBlock, scope, "testimonial", "second")

	var perr *core.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "set", perr.Op)
	assert.ErrorIs(t, err, errUnreachable)

	store.fail = false
	v, err := r.Get(ctx, schema.TestimonialBlock, scope, "testimonial")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestSet_SanitizesMeta(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()
	scope := core.Scope{PostID: "p1", InstanceID: "a"}

	require.NoError(t, r.Set(ctx, schema.TestimonialBlock, scope, "testimonial", `<em>Wow</em><script>x()</script>`))
	v, err := r.Get(ctx, schema.TestimonialBlock, scope, "testimonial")
	require.NoError(t, err)
	assert.Equal(t, "<em>Wow</em>", v)
}

func TestSubscribe_SharingSemantics(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	adapter, err := r.Adapter(schema.TestimonialBlock, "testimonial")
	require.NoError(t, err)

	var seenByB []any
	cancel := adapter.Subscribe(core.Scope{PostID: "p1", InstanceID: "b"}, func(v any) { seenByB = append(seenByB, v) })

	var seenByC []any
	adapter.Subscribe(core.Scope{PostID: "p2", InstanceID: "c"}, func(v any) { seenByC = append(seenByC, v) })

	require.NoError(t, adapter.Set(ctx, core.Scope{PostID: "p1", InstanceID: "a"}, "one"))
	assert.Equal(t, []any{"one"}, seenByB)
	assert.Empty(t, seenByC)

	cancel()
	require.NoError(t, adapter.Set(ctx, core.Scope{PostID: "p1", InstanceID: "a"}, "two"))
	assert.Equal(t, []any{"one"}, seenByB)
}

func TestSubscribe_NoNotificationOnFailure(t *testing.T) {
	r, store := setup(t)
	adapter, err := r.Adapter(schema.TestimonialBlock, "authorName")
	require.NoError(t, err)

	calls := 0
	scope := core.Scope{PostID: "p1", InstanceID: "a"}
	adapter.Subscribe(scope, func(any) { calls++ })

	store.fail = true
	assert.Error(t, adapter.Set(context.Background(), scope, "x"))
	assert.Zero(t, calls)
}

func TestFollow_RepublishesExternalChanges(t *testing.T) {
	r, store := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter, err := r.Adapter(schema.TestimonialBlock, "testimonial")
	require.NoError(t, err)

	got := make(chan any, 1)
	adapter.Subscribe(core.Scope{PostID: "p1"}, func(v any) { got <- v })

	// Simulate a write made by another process directly in the store.
	require.NoError(t, store.Store.SetMeta(ctx, "p1", "testimonial", "external"))

	events := make(chan core.Event, 1)
	events <- core.Event{Type: core.EventModify, PostID: "p1"}
	close(events)
	r.Follow(ctx, events)

	assert.Equal(t, "external", <-got)
}

func TestFollow_RemovedAttributeResetsToDefault(t *testing.T) {
	r, store := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := core.Scope{PostID: "p1", InstanceID: "a"}
	require.NoError(t, r.Set(ctx, schema.TestimonialBlock, a, "authorName", "Ann"))

	adapter, err := r.Adapter(schema.TestimonialBlock, "authorName")
	require.NoError(t, err)
	got := make(chan any, 1)
	adapter.Subscribe(a, func(v any) { got <- v })

	// Another process rewrites the placement without the attribute.
	require.NoError(t, store.Store.Place(ctx, core.BlockInstance{ID: "a", Type: schema.TestimonialBlock, PostID: "p1"}))

	events := make(chan core.Event, 1)
	events <- core.Event{Type: core.EventModify, PostID: "p1", InstanceID: "a"}
	close(events)
	r.Follow(ctx, events)

	assert.Nil(t, <-got)
	v, err := r.Get(ctx, schema.TestimonialBlock, a, "authorName")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestInvalidScope(t *testing.T) {
	r, _ := setup(t)
	_, err := r.Get(context.Background(), schema.TestimonialBlock, core.Scope{PostID: "p1"}, "authorName")
	assert.ErrorIs(t, err, core.ErrInvalidScope)

	_, err = r.Get(context.Background(), schema.TestimonialBlock, core.Scope{InstanceID: "a"}, "testimonial")
	assert.ErrorIs(t, err, core.ErrInvalidScope)
}

package core

import "context"

// MetaStore persists post meta: one key-value table per post, shared by every
// block placement on that post.
type MetaStore interface {
	// GetMeta returns the stored value and whether the key exists.
	GetMeta(ctx context.Context, postID, key string) (any, bool, error)

	// SetMeta stores a value. The write is visible to the next GetMeta.
	SetMeta(ctx context.Context, postID, key string, value any) error

	// Meta returns a copy of all meta stored for a post.
	Meta(ctx context.Context, postID string) (Metadata, error)
}

// AttributeStore persists block placements and their attribute values.
type AttributeStore interface {
	// Place records a new block placement. Placing an existing ID replaces its type and attributes.
	Place(ctx context.Context, inst BlockInstance) error

	// Instance returns one placement by ID.
	Instance(ctx context.Context, id string) (BlockInstance, error)

	// Instances returns the placements of a post in placement order.
	Instances(ctx context.Context, postID string) ([]BlockInstance, error)

	// Remove destroys a placement together with its attribute values.
	Remove(ctx context.Context, id string) error

	// GetAttribute returns the stored attribute and whether it exists.
	GetAttribute(ctx context.Context, instanceID, key string) (any, bool, error)

	// SetAttribute stores an attribute value on an existing placement.
	SetAttribute(ctx context.Context, instanceID, key string, value any) error
}

// Store is the full storage contract implemented by every adapter.
type Store interface {
	MetaStore
	AttributeStore

	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Watchable is implemented by stores that can report changes made outside this process.
type Watchable interface {
	// Watch emits events for posts whose ID matches the glob pattern until ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

type contextKey string

// ChangeReasonKey is the context key for passing revision messages to versioned stores.
const ChangeReasonKey contextKey = "change_reason"

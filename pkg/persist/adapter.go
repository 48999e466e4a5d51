// Package persist routes field reads and writes to the storage target declared
// by the field schema and notifies observers of every successful write.
package persist

import (
	"context"
	"fmt"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/sanitize"
)

// Adapter reads and writes one field.
type Adapter interface {
	// Field returns the schema of the adapted field.
	Field() core.FieldSchema

	// Get returns the current value, or the field's zero value when nothing is stored.
	Get(ctx context.Context, scope core.Scope) (any, error)

	// Set stores value. It is visible to the next Get with the same resolution key.
	Set(ctx context.Context, scope core.Scope, value any) error

	// Subscribe calls fn after every change visible from scope.
	Subscribe(scope core.Scope, fn Listener) (cancel func())
}

type attributeAdapter struct {
	field core.FieldSchema
	store core.AttributeStore
	hub   *Hub
}

// NewAttributeAdapter adapts a field stored on one block placement.
// Only scope.InstanceID is used for resolution.
func NewAttributeAdapter(field core.FieldSchema, store core.AttributeStore, hub *Hub) Adapter {
	return &attributeAdapter{field: field, store: store, hub: hub}
}

func (a *attributeAdapter) Field() core.FieldSchema { return a.field }

func (a *attributeAdapter) Get(ctx context.Context, scope core.Scope) (any, error) {
	if scope.InstanceID == "" {
		return nil, fmt.Errorf("%w: attribute %q needs an instance ID", core.ErrInvalidScope, a.field.Key)
	}
	v, ok, err := a.store.GetAttribute(ctx, scope.InstanceID, a.field.Key)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Key: a.field.Key, Err: err}
	}
	if !ok {
		return a.field.ZeroValue(), nil
	}
	return a.field.Coerce(v)
}

func (a *attributeAdapter) Set(ctx context.Context, scope core.Scope, value any) error {
	if scope.InstanceID == "" {
		return fmt.Errorf("%w: attribute %q needs an instance ID", core.ErrInvalidScope, a.field.Key)
	}
	if err := a.field.Check(value); err != nil {
		return err
	}
	if err := a.store.SetAttribute(ctx, scope.InstanceID, a.field.Key, value); err != nil {
		return &core.PersistenceError{Op: "set", Key: a.field.Key, Err: err}
	}
	a.hub.Publish(attributeKey(scope.InstanceID, a.field.Key), value)
	return nil
}

func (a *attributeAdapter) Subscribe(scope core.Scope, fn Listener) func() {
	return a.hub.Subscribe(attributeKey(scope.InstanceID, a.field.Key), fn)
}

type metaAdapter struct {
	field core.FieldSchema
	store core.MetaStore
	hub   *Hub
}

// NewMetaAdapter adapts a field stored in the post meta table.
// Only scope.PostID is used for resolution, so every placement on a post shares it.
func NewMetaAdapter(field core.FieldSchema, store core.MetaStore, hub *Hub) Adapter {
	return &metaAdapter{field: field, store: store, hub: hub}
}

func (m *metaAdapter) Field() core.FieldSchema { return m.field }

func (m *metaAdapter) Get(ctx context.Context, scope core.Scope) (any, error) {
	if scope.PostID == "" {
		return nil, fmt.Errorf("%w: meta %q needs a post ID", core.ErrInvalidScope, m.field.Key)
	}
	v, ok, err := m.store.GetMeta(ctx, scope.PostID, m.field.Key)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Key: m.field.Key, Err: err}
	}
	if !ok {
		return m.field.ZeroValue(), nil
	}
	return m.field.Coerce(v)
}

func (m *metaAdapter) Set(ctx context.Context, scope core.Scope, value any) error {
	if scope.PostID == "" {
		return fmt.Errorf("%w: meta %q needs a post ID", core.ErrInvalidScope, m.field.Key)
	}
	if err := m.field.Check(value); err != nil {
		return err
	}
	value = sanitize.Apply(m.field.Sanitize, value)
	if err := m.store.SetMeta(ctx, scope.PostID, m.field.Key, value); err != nil {
		return &core.PersistenceError{Op: "set", Key: m.field.Key, Err: err}
	}
	m.hub.Publish(metaKey(scope.PostID, m.field.Key), value)
	return nil
}

func (m *metaAdapter) Subscribe(scope core.Scope, fn Listener) func() {
	return m.hub.Subscribe(metaKey(scope.PostID, m.field.Key), fn)
}

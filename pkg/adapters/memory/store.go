// Package memory is an in-process store, used as the default backend and in tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/metabind/pkg/core"
)

// Store keeps post meta and block placements in maps.
type Store struct {
	mu        sync.RWMutex
	meta      map[string]core.Metadata
	instances map[string]core.BlockInstance
	order     map[string][]string // post ID -> instance IDs in placement order
	readOnly  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		meta:      make(map[string]core.Metadata),
		instances: make(map[string]core.BlockInstance),
		order:     make(map[string][]string),
	}
}

// NewReadOnly creates a store that rejects every write.
func NewReadOnly() *Store {
	s := New()
	s.readOnly = true
	return s
}

func (s *Store) Initialize(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) GetMeta(ctx context.Context, postID, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[postID][key]
	return v, ok, nil
}

func (s *Store) SetMeta(ctx context.Context, postID, key string, value any) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta[postID] == nil {
		s.meta[postID] = make(core.Metadata)
	}
	s.meta[postID][key] = value
	return nil
}

func (s *Store) Meta(ctx context.Context, postID string) (core.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.Metadata, len(s.meta[postID]))
	maps.Copy(out, s.meta[postID])
	return out, nil
}

func (s *Store) Place(ctx context.Context, inst core.BlockInstance) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	if inst.ID == "" || inst.PostID == "" {
		return fmt.Errorf("%w: placement needs an ID and a post ID", core.ErrInvalidScope)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.instances[inst.ID]; ok && prev.PostID != inst.PostID {
		return fmt.Errorf("instance %s already placed on post %s", inst.ID, prev.PostID)
	}
	if _, ok := s.instances[inst.ID]; !ok {
		s.order[inst.PostID] = append(s.order[inst.PostID], inst.ID)
	}
	inst.Attributes = copyMeta(inst.Attributes)
	s.instances[inst.ID] = inst
	return nil
}

func (s *Store) Instance(ctx context.Context, id string) (core.BlockInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return core.BlockInstance{}, fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
	}
	inst.Attributes = copyMeta(inst.Attributes)
	return inst, nil
}

func (s *Store) Instances(ctx context.Context, postID string) ([]core.BlockInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BlockInstance, 0, len(s.order[postID]))
	for _, id := range s.order[postID] {
		inst := s.instances[id]
		inst.Attributes = copyMeta(inst.Attributes)
		out = append(out, inst)
	}
	return out, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
	}
	delete(s.instances, id)
	s.order[inst.PostID] = slices.DeleteFunc(s.order[inst.PostID], func(v string) bool { return v == id })
	return nil
}

func (s *Store) GetAttribute(ctx context.Context, instanceID, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return nil, false, fmt.Errorf("instance %s: %w", instanceID, core.ErrNotFound)
	}
	v, ok := inst.Attributes[key]
	return v, ok, nil
}

func (s *Store) SetAttribute(ctx context.Context, instanceID, key string, value any) error {
	if s.readOnly {
		return core.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok {
		return fmt.Errorf("instance %s: %w", instanceID, core.ErrNotFound)
	}
	if inst.Attributes == nil {
		inst.Attributes = make(core.Metadata)
	}
	inst.Attributes[key] = value
	s.instances[instanceID] = inst
	return nil
}

func copyMeta(m core.Metadata) core.Metadata {
	out := make(core.Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Posts     int  `json:"posts"`
	Instances int  `json:"instances"`
	ReadOnly  bool `json:"read_only"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{Posts: len(s.meta), Instances: len(s.instances), ReadOnly: s.readOnly}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "memory-store" }

var (
	_ core.Store                   = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)

// Package schema declares which fields each block type edits and where they are stored.
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/metabind/pkg/core"
)

// Block is the definition of one block type.
type Block struct {
	Name     string             `yaml:"name" json:"name"`
	Title    string             `yaml:"title,omitempty" json:"title,omitempty"`
	Renderer string             `yaml:"renderer,omitempty" json:"renderer,omitempty"`
	Fields   []core.FieldSchema `yaml:"fields" json:"fields"`
}

// Field returns the field declared under key.
func (b Block) Field(key string) (core.FieldSchema, bool) {
	for _, f := range b.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return core.FieldSchema{}, false
}

// Registry holds block definitions. It accepts registrations until sealed and
// is read-only afterwards.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]Block
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]Block)}
}

// Register declares the fields of a block type.
func (r *Registry) Register(blockType string, fields ...core.FieldSchema) error {
	return r.RegisterBlock(Block{Name: blockType, Fields: fields})
}

// RegisterBlock declares a full block definition.
func (r *Registry) RegisterBlock(b Block) error {
	if b.Name == "" {
		return fmt.Errorf("block type cannot be empty")
	}

	seen := make(map[string]bool, len(b.Fields))
	for _, f := range b.Fields {
		if seen[f.Key] {
			return &core.DuplicateKeyError{BlockType: b.Name, Key: f.Key}
		}
		seen[f.Key] = true
		if err := f.Validate(); err != nil {
			return fmt.Errorf("block %q: %w", b.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return core.ErrRegistrySealed
	}
	if _, exists := r.blocks[b.Name]; exists {
		return fmt.Errorf("block type %q already registered", b.Name)
	}

	b.Fields = append([]core.FieldSchema(nil), b.Fields...)
	r.blocks[b.Name] = b
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Lookup returns the fields of a block type in declared order.
func (r *Registry) Lookup(blockType string) ([]core.FieldSchema, error) {
	b, err := r.Block(blockType)
	if err != nil {
		return nil, err
	}
	return b.Fields, nil
}

// Block returns the full definition of a block type. The returned fields are a copy.
func (r *Registry) Block(blockType string) (Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blocks[blockType]
	if !ok {
		return Block{}, fmt.Errorf("%w: %s", core.ErrUnknownBlockType, blockType)
	}
	b.Fields = append([]core.FieldSchema(nil), b.Fields...)
	return b, nil
}

// Field returns one field of a block type.
func (r *Registry) Field(blockType, key string) (core.FieldSchema, error) {
	b, err := r.Block(blockType)
	if err != nil {
		return core.FieldSchema{}, err
	}
	f, ok := b.Field(key)
	if !ok {
		return core.FieldSchema{}, fmt.Errorf("%w: %s.%s", core.ErrUnknownField, blockType, key)
	}
	return f, nil
}

// Types returns the registered block types sorted by name.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.blocks))
	for name := range r.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

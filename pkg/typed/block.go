// Package typed gives a struct view over the fields of one block type.
// Field keys map to struct fields through their json tags:
//
//	type Book struct {
//		Title  string `json:"_meta_fields_book_title,omitempty"`
//		Author string `json:"_meta_fields_book_author,omitempty"`
//	}
//
// Values are converted with a JSON round trip, so any struct the standard
// encoder understands works.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/metabind/pkg/core"
)

// Fields reads and writes single fields. persist.Router implements it.
type Fields interface {
	Get(ctx context.Context, blockType string, scope core.Scope, key string) (any, error)
	Set(ctx context.Context, blockType string, scope core.Scope, key string, value any) error
}

// Schema lists the fields of a block type. schema.Registry implements it.
type Schema interface {
	Lookup(blockType string) ([]core.FieldSchema, error)
}

// Model is a typed view of one block placement.
type Model[T any] struct {
	BlockType string
	Scope     core.Scope
	Data      T
	Saver     Saver[T]
}

// Saver persists a model.
type Saver[T any] interface {
	Save(ctx context.Context, m *Model[T]) error
}

// Save persists the model through the saver it was loaded with.
func (m *Model[T]) Save(ctx context.Context) error {
	if m.Saver == nil {
		return fmt.Errorf("model is detached (missing Saver)")
	}
	return m.Saver.Save(ctx, m)
}

// Block binds T to one block type.
type Block[T any] struct {
	blockType string
	schema    Schema
	fields    Fields
}

// NewBlock creates a typed accessor for blockType.
func NewBlock[T any](blockType string, schema Schema, fields Fields) *Block[T] {
	return &Block[T]{blockType: blockType, schema: schema, fields: fields}
}

// Get reads every field of the placement at scope into a T.
func (b *Block[T]) Get(ctx context.Context, scope core.Scope) (*Model[T], error) {
	defs, err := b.schema.Lookup(b.blockType)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(defs))
	for _, f := range defs {
		v, err := b.fields.Get(ctx, b.blockType, scope, f.Key)
		if err != nil {
			return nil, err
		}
		values[f.Key] = v
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("field marshal failed: %w", err)
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal to target type failed: %w", err)
	}

	return &Model[T]{BlockType: b.blockType, Scope: scope, Data: data, Saver: b}, nil
}

// Save writes each field present in m.Data, in schema order. Fields are
// written one by one; a failure stops the save and leaves earlier writes in place.
func (b *Block[T]) Save(ctx context.Context, m *Model[T]) error {
	if m.Saver == nil {
		m.Saver = b
	}

	raw, err := json.Marshal(m.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("failed to convert typed data to map: %w", err)
	}

	defs, err := b.schema.Lookup(b.blockType)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(defs))
	for _, f := range defs {
		known[f.Key] = true
	}
	for key := range values {
		if !known[key] {
			return fmt.Errorf("%w: %s has no field %q", core.ErrUnknownField, b.blockType, key)
		}
	}

	for _, f := range defs {
		v, ok := values[f.Key]
		if !ok {
			continue
		}
		if err := b.fields.Set(ctx, b.blockType, m.Scope, f.Key, v); err != nil {
			return err
		}
	}
	return nil
}

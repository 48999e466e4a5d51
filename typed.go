package metabind

import (
	"github.com/aretw0/metabind/pkg/typed"
)

// Model is a typed view of one block placement.
type Model[T any] = typed.Model[T]

// TypedBlock reads and writes the fields of one block type as a struct.
type TypedBlock[T any] = typed.Block[T]

// NewTyped creates a typed accessor for blockType on an opened site.
// T maps field keys through json tags.
func NewTyped[T any](site *Site, blockType string) *TypedBlock[T] {
	return typed.NewBlock[T](blockType, site.Registry, site.Router)
}

package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := schema.NewRegistry()
	err := reg.Register("demo/block",
		core.FieldSchema{Key: "title", Storage: core.StorageMeta, Type: core.TypeText},
		core.FieldSchema{Key: "flag", Storage: core.StorageAttribute, Type: core.TypeBoolean},
	)
	require.NoError(t, err)

	fields, err := reg.Lookup("demo/block")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Key)
	assert.Equal(t, "flag", fields[1].Key)

	// Returned slices are copies.
	fields[0].Key = "mutated"
	again, _ := reg.Lookup("demo/block")
	assert.Equal(t, "title", again[0].Key)
}

func TestRegistry_DuplicateKey(t *testing.T) {
	reg := schema.NewRegistry()
	err := reg.Register("demo/block",
		core.FieldSchema{Key: "title", Storage: core.StorageMeta, Type: core.TypeText},
		core.FieldSchema{Key: "title", Storage: core.StorageAttribute, Type: core.TypeText},
	)

	var dup *core.DuplicateKeyError
	require.True(t, errors.As(err, &dup), "expected DuplicateKeyError, got %v", err)
	assert.Equal(t, "demo/block", dup.BlockType)
	assert.Equal(t, "title", dup.Key)

	_, err = reg.Lookup("demo/block")
	assert.ErrorIs(t, err, core.ErrUnknownBlockType)
}

func TestRegistry_SameKeyAcrossTypes(t *testing.T) {
	reg := schema.NewRegistry()
	f := core.FieldSchema{Key: "title", Storage: core.StorageMeta, Type: core.TypeText}
	require.NoError(t, reg.Register("a/one", f))
	require.NoError(t, reg.Register("a/two", f))
	assert.Equal(t, []string{"a/one", "a/two"}, reg.Types())
}

func TestRegistry_Rejects(t *testing.T) {
	t.Run("Unknown storage", func(t *testing.T) {
		reg := schema.NewRegistry()
		err := reg.Register("x/y", core.FieldSchema{Key: "k", Storage: "cookie", Type: core.TypeText})
		assert.Error(t, err)
	})

	t.Run("Default of wrong type", func(t *testing.T) {
		reg := schema.NewRegistry()
		err := reg.Register("x/y", core.FieldSchema{Key: "k", Storage: core.StorageAttribute, Type: core.TypeBoolean, Default: "yes"})
		assert.ErrorIs(t, err, core.ErrTypeMismatch)
	})

	t.Run("Re-registration", func(t *testing.T) {
		reg := schema.NewRegistry()
		require.NoError(t, reg.Register("x/y"))
		assert.Error(t, reg.Register("x/y"))
	})

	t.Run("Sealed", func(t *testing.T) {
		reg := schema.NewRegistry()
		reg.Seal()
		assert.ErrorIs(t, reg.Register("x/y"), core.ErrRegistrySealed)
	})
}

func TestRegistry_Field(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, schema.RegisterBuiltin(reg))

	f, err := reg.Field(schema.TestimonialBlock, "authorURL")
	require.NoError(t, err)
	assert.Equal(t, core.StorageAttribute, f.Storage)
	assert.Equal(t, core.TypeURL, f.Type)

	_, err = reg.Field(schema.TestimonialBlock, "nope")
	assert.ErrorIs(t, err, core.ErrUnknownField)
}

func TestLoad(t *testing.T) {
	src := `
blocks:
  - name: demo/book
    renderer: list
    fields:
      - key: title
        label: Title
        storage: meta
        type: text
        role: title
      - key: published
        storage: attribute
        type: boolean
        default: true
`
	reg := schema.NewRegistry()
	require.NoError(t, schema.Load(strings.NewReader(src), reg))

	b, err := reg.Block("demo/book")
	require.NoError(t, err)
	assert.Equal(t, "list", b.Renderer)
	require.Len(t, b.Fields, 2)
	assert.Equal(t, core.RoleTitle, b.Fields[0].Role)
	assert.Equal(t, true, b.Fields[1].Default)
}

func TestLoad_DuplicateKey(t *testing.T) {
	src := `
blocks:
  - name: demo/book
    fields:
      - {key: a, storage: meta, type: text}
      - {key: a, storage: meta, type: date}
`
	var dup *core.DuplicateKeyError
	err := schema.Load(strings.NewReader(src), schema.NewRegistry())
	assert.True(t, errors.As(err, &dup))
}

func TestLoad_UnknownProperty(t *testing.T) {
	src := `
blocks:
  - name: demo/book
    colour: red
`
	assert.Error(t, schema.Load(strings.NewReader(src), schema.NewRegistry()))
}

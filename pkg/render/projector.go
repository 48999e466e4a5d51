// Package render projects persisted field values into the markup a block shows
// to visitors. Projectors read final values through the field accessors only.
package render

import (
	"context"
	"html/template"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/sanitize"
	"github.com/aretw0/metabind/pkg/schema"
)

// Reader reads the persisted value of one field.
type Reader interface {
	Get(ctx context.Context, blockType string, scope core.Scope, key string) (any, error)
}

// TitleFunc supplies the host title of a post, used when no title field is set.
type TitleFunc func(ctx context.Context, postID string) string

// Env is what a projector needs at render time.
type Env struct {
	Reader Reader
	Title  TitleFunc
	Warn   func(msg string, args ...any)
}

// Projector renders one block placement.
type Projector interface {
	Project(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error)
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error)

func (f ProjectorFunc) Project(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error) {
	return f(ctx, env, block, scope)
}

// WrapperClass is the class name a block's wrapper element carries.
func WrapperClass(blockType string) string {
	name := strings.TrimPrefix(blockType, "core/")
	return "wp-block-" + strings.ReplaceAll(name, "/", "-")
}

// text reads a field as a string. Missing or non-string values read as "".
func text(ctx context.Context, env Env, block schema.Block, scope core.Scope, key string) (string, error) {
	v, err := env.Reader.Get(ctx, block.Name, scope, key)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// richHTML marks rich text as safe markup after reducing it to permitted HTML.
func richHTML(s string) template.HTML {
	return template.HTML(sanitize.HTML(s))
}

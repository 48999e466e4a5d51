package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

// Renderer picks the projector named by a block definition and runs it.
type Renderer struct {
	registry   *schema.Registry
	reader     Reader
	blocks     core.AttributeStore
	title      TitleFunc
	logger     *slog.Logger
	projectors map[string]Projector
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle sets the host fallback title source.
func WithTitle(fn TitleFunc) Option {
	return func(r *Renderer) { r.title = fn }
}

// WithLogger sets the logger used for skipped fields.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProjector registers a projector under name.
func WithProjector(name string, p Projector) Option {
	return func(r *Renderer) { r.projectors[name] = p }
}

// NewRenderer creates a renderer with the list, quote and paragraph projectors.
// Blocks whose definition names no renderer use "list".
func NewRenderer(registry *schema.Registry, reader Reader, blocks core.AttributeStore, opts ...Option) *Renderer {
	r := &Renderer{
		registry: registry,
		reader:   reader,
		blocks:   blocks,
		logger:   slog.New(slog.DiscardHandler),
		projectors: map[string]Projector{
			"list":      ListProjector{},
			"quote":     DefaultQuote,
			"paragraph": DefaultParagraph,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Project renders one block type for scope.
func (r *Renderer) Project(ctx context.Context, blockType string, scope core.Scope) (string, error) {
	block, err := r.registry.Block(blockType)
	if err != nil {
		return "", err
	}

	name := block.Renderer
	if name == "" {
		name = "list"
	}
	p, ok := r.projectors[name]
	if !ok {
		return "", fmt.Errorf("block %s: unknown renderer %q", blockType, name)
	}

	env := Env{
		Reader: r.reader,
		Title:  r.title,
		Warn: func(msg string, args ...any) {
			r.logger.Warn(msg, args...)
		},
	}
	return p.Project(ctx, env, block, scope)
}

// Block renders one placement.
func (r *Renderer) Block(ctx context.Context, inst core.BlockInstance) (string, error) {
	return r.Project(ctx, inst.Type, inst.Scope())
}

// Post renders every placement of a post in order.
// A placement that fails to render is logged and left out.
func (r *Renderer) Post(ctx context.Context, postID string) (string, error) {
	instances, err := r.blocks.Instances(ctx, postID)
	if err != nil {
		return "", &core.PersistenceError{Op: "list", Key: postID, Err: err}
	}

	var b strings.Builder
	for _, inst := range instances {
		out, err := r.Block(ctx, inst)
		if err != nil {
			r.logger.Warn("block render failed", "post", postID, "instance", inst.ID, "type", inst.Type, "error", err)
			continue
		}
		b.WriteString(out)
		b.WriteString("\n")
	}
	return b.String(), nil
}

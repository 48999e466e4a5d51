package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/metabind/pkg/binding"
	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/persist"
	"github.com/aretw0/metabind/pkg/render"
	"github.com/aretw0/metabind/pkg/schema"
)

// TitleKey is the post meta key the default title source reads.
const TitleKey = "title"

// Site wires the registry, storage, binding and rendering of one site.
type Site struct {
	Service  *core.Service
	Registry *schema.Registry
	Router   *persist.Router
	Binder   *binding.Binder
	Renderer *render.Renderer
	logger   *slog.Logger
}

// New opens a site.
//
//	site, err := platform.New("./site", platform.WithAutoInit(true))
func New(uri string, opts ...Option) (*Site, error) {
	o := parseOptions(opts)

	reg, err := buildRegistry(o)
	if err != nil {
		return nil, err
	}

	store, err := initStore(uri, o)
	if err != nil {
		return nil, err
	}

	bufSize, _ := o.config["event_buffer"].(int)
	svc := core.NewService(store, o.logger, bufSize)
	router := persist.NewRouter(reg, store, o.logger)

	title := o.title
	if title == nil {
		title = metaTitle(store, o.logger)
	}

	return &Site{
		Service:  svc,
		Registry: reg,
		Router:   router,
		Binder:   binding.NewBinder(router, o.logger),
		Renderer: render.NewRenderer(reg, router, store, render.WithTitle(title), render.WithLogger(o.logger)),
		logger:   o.logger,
	}, nil
}

func buildRegistry(o *options) (*schema.Registry, error) {
	reg := o.registry
	if reg == nil {
		reg = schema.NewRegistry()
		if err := schema.RegisterBuiltin(reg); err != nil {
			return nil, err
		}
	}
	for _, path := range o.schemaFiles {
		if err := schema.LoadFile(path, reg); err != nil {
			return nil, fmt.Errorf("schema %s: %w", path, err)
		}
	}
	reg.Seal()
	return reg, nil
}

// metaTitle reads the post title from post meta, falling back to the post ID.
func metaTitle(store core.MetaStore, logger *slog.Logger) render.TitleFunc {
	return func(ctx context.Context, postID string) string {
		v, ok, err := store.GetMeta(ctx, postID, TitleKey)
		if err != nil {
			logger.Debug("title lookup failed", "post", postID, "error", err)
		}
		if s, _ := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
		return postID
	}
}

// Follow keeps bound controls in step with changes made outside this process.
// It returns once watching has started; watching ends with ctx.
func (s *Site) Follow(ctx context.Context, pattern string) error {
	events, err := s.Service.Watch(ctx, pattern)
	if err != nil {
		return err
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		s.Router.Follow(ctx, events)
		return nil
	})
	return nil
}

// Close releases the storage backend.
func (s *Site) Close() error {
	if err := s.Service.Store().Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

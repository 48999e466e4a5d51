package persist

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

// Router hands out field adapters bound to the storage target each field declares.
type Router struct {
	registry *schema.Registry
	store    core.Store
	hub      *Hub
	logger   *slog.Logger
}

// NewRouter creates a router over store. A nil logger discards output.
func NewRouter(registry *schema.Registry, store core.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		registry: registry,
		store:    store,
		hub:      NewHub(),
		logger:   logger,
	}
}

// Hub exposes the notification hub shared by every adapter of this router.
func (r *Router) Hub() *Hub {
	return r.hub
}

// Adapter returns the adapter for one field of a block type.
func (r *Router) Adapter(blockType, key string) (Adapter, error) {
	f, err := r.registry.Field(blockType, key)
	if err != nil {
		return nil, err
	}
	return r.adapterFor(f), nil
}

func (r *Router) adapterFor(f core.FieldSchema) Adapter {
	if f.Storage == core.StorageMeta {
		return NewMetaAdapter(f, r.store, r.hub)
	}
	return NewAttributeAdapter(f, r.store, r.hub)
}

// Adapters returns one adapter per field of a block type in schema order.
func (r *Router) Adapters(blockType string) ([]Adapter, error) {
	fields, err := r.registry.Lookup(blockType)
	if err != nil {
		return nil, err
	}
	out := make([]Adapter, 0, len(fields))
	for _, f := range fields {
		out = append(out, r.adapterFor(f))
	}
	return out, nil
}

// Get reads one field.
func (r *Router) Get(ctx context.Context, blockType string, scope core.Scope, key string) (any, error) {
	a, err := r.Adapter(blockType, key)
	if err != nil {
		return nil, err
	}
	return a.Get(ctx, scope)
}

// Set writes one field.
func (r *Router) Set(ctx context.Context, blockType string, scope core.Scope, key string, value any) error {
	a, err := r.Adapter(blockType, key)
	if err != nil {
		return err
	}
	if err := a.Set(ctx, scope, value); err != nil {
		r.logger.Warn("field write failed", "block", blockType, "scope", scope.String(), "key", key, "error", err)
		return err
	}
	r.logger.Debug("field written", "block", blockType, "scope", scope.String(), "key", key)
	return nil
}

// Follow republishes values changed outside this process (e.g. another editor
// writing the same vault) to local subscribers until events is closed or ctx is done.
func (r *Router) Follow(ctx context.Context, events <-chan core.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			r.refresh(ctx, e)
		}
	}
}

func (r *Router) refresh(ctx context.Context, e core.Event) {
	if e.Type == core.EventDelete && e.InstanceID != "" {
		return
	}

	if e.InstanceID != "" {
		for _, key := range r.hub.Keys("attr:" + e.InstanceID + "/") {
			field := strings.TrimPrefix(key, "attr:"+e.InstanceID+"/")
			v, ok, err := r.store.GetAttribute(ctx, e.InstanceID, field)
			if err != nil {
				r.logger.Debug("refresh read failed", "instance", e.InstanceID, "key", field, "error", err)
				continue
			}
			if !ok {
				v = nil
			}
			r.hub.Publish(key, v)
		}
		return
	}

	for _, key := range r.hub.Keys("meta:" + e.PostID + "/") {
		field := strings.TrimPrefix(key, "meta:"+e.PostID+"/")
		if e.Key != "" && e.Key != field {
			continue
		}
		v, ok, err := r.store.GetMeta(ctx, e.PostID, field)
		if err != nil {
			r.logger.Debug("refresh read failed", "post", e.PostID, "key", field, "error", err)
			continue
		}
		if !ok {
			v = nil
		}
		r.hub.Publish(key, v)
	}
}

package binding

import (
	"context"
	"log/slog"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/persist"
)

// Binder builds forms for block placements.
type Binder struct {
	router *persist.Router
	logger *slog.Logger
}

// NewBinder creates a binder over router.
func NewBinder(router *persist.Router, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Binder{router: router, logger: logger}
}

// Form is the set of controls editing one block placement, in schema order.
type Form struct {
	BlockType string
	Scope     core.Scope
	Controls  []*Control
}

// Bind creates one control per field of blockType for scope.
func (b *Binder) Bind(ctx context.Context, blockType string, scope core.Scope) (*Form, error) {
	adapters, err := b.router.Adapters(blockType)
	if err != nil {
		return nil, err
	}

	form := &Form{BlockType: blockType, Scope: scope}
	for _, a := range adapters {
		c, err := newControl(ctx, a, scope)
		if err != nil {
			form.Close()
			return nil, err
		}
		form.Controls = append(form.Controls, c)
	}
	b.logger.Debug("form bound", "block", blockType, "scope", scope.String(), "controls", len(form.Controls))
	return form, nil
}

// Control returns the control bound to key, or nil.
func (f *Form) Control(key string) *Control {
	for _, c := range f.Controls {
		if c.Key() == key {
			return c
		}
	}
	return nil
}

// Values returns the displayed value of every control.
func (f *Form) Values() core.Metadata {
	out := make(core.Metadata, len(f.Controls))
	for _, c := range f.Controls {
		out[c.Key()] = c.Value()
	}
	return out
}

// Close cancels every control's subscription.
func (f *Form) Close() {
	for _, c := range f.Controls {
		c.Close()
	}
}

// Package binding wires schema fields to editor controls. Each control displays
// the value read through its persistence adapter and writes every change back
// immediately.
package binding

import (
	"context"
	"sync"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/persist"
)

// Kind names the widget a host editor should draw for a control.
type Kind string

const (
	KindTextControl Kind = "TextControl"
	KindRichText    Kind = "RichText"
	KindDatePicker  Kind = "DatePicker"
	KindToggle      Kind = "ToggleControl"
	KindURLInput    Kind = "URLInput"
)

// KindFor maps a value type to its control kind.
func KindFor(t core.ValueType) Kind {
	switch t {
	case core.TypeRichText:
		return KindRichText
	case core.TypeDate:
		return KindDatePicker
	case core.TypeBoolean:
		return KindToggle
	case core.TypeURL:
		return KindURLInput
	}
	return KindTextControl
}

// Normalize applies the per-type rules for values coming out of a widget:
// nil becomes the field default, or false for booleans and "" for everything else.
func Normalize(f core.FieldSchema, v any) any {
	if v == nil {
		return f.ZeroValue()
	}
	return v
}

// Control is one controlled input.
type Control struct {
	field   core.FieldSchema
	kind    Kind
	scope   core.Scope
	adapter persist.Adapter

	mu       sync.Mutex
	value    any
	dirty    bool
	err      error
	onRender func(*Control)
	cancel   func()
}

func newControl(ctx context.Context, a persist.Adapter, scope core.Scope) (*Control, error) {
	c := &Control{
		field:   a.Field(),
		kind:    KindFor(a.Field().Type),
		scope:   scope,
		adapter: a,
	}
	v, err := a.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	c.value = v
	c.cancel = a.Subscribe(scope, c.receive)
	return c, nil
}

// Field returns the schema of the bound field.
func (c *Control) Field() core.FieldSchema { return c.field }

// Key is shorthand for Field().Key.
func (c *Control) Key() string { return c.field.Key }

// Label is the text shown next to the control.
func (c *Control) Label() string {
	if c.field.Label != "" {
		return c.field.Label
	}
	return c.field.Key
}

// Kind returns the widget kind.
func (c *Control) Kind() Kind { return c.kind }

// Value returns the value currently displayed.
func (c *Control) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Dirty reports whether the last change could not be persisted.
func (c *Control) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Err returns the error of the last failed change, if any.
func (c *Control) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OnRender registers a hook called whenever the displayed value changes.
func (c *Control) OnRender(fn func(*Control)) {
	c.mu.Lock()
	c.onRender = fn
	c.mu.Unlock()
}

// Change handles a widget change event: normalize, then write through the adapter.
// A failed write leaves the control dirty and displaying the last persisted value.
func (c *Control) Change(ctx context.Context, v any) error {
	if err := c.adapter.Set(ctx, c.scope, Normalize(c.field, v)); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.err = err
		c.mu.Unlock()
		return err
	}
	c.mu.Lock()
	c.dirty = false
	c.err = nil
	c.mu.Unlock()
	return nil
}

// Toggle flips a boolean control.
func (c *Control) Toggle(ctx context.Context) error {
	b, _ := c.Value().(bool)
	return c.Change(ctx, !b)
}

func (c *Control) receive(v any) {
	if coerced, err := c.field.Coerce(v); err == nil {
		v = coerced
	}
	c.mu.Lock()
	c.value = v
	hook := c.onRender
	c.mu.Unlock()

	if hook != nil {
		hook(c)
	}
}

// Close stops following change notifications.
func (c *Control) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Package core holds the domain model shared by the schema registry, the
// persistence adapters, the editor bindings and the render projectors.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metadata represents the flexible key-value pairs stored for a post or a block placement.
type Metadata map[string]any

// StorageTarget tells where a field value lives.
type StorageTarget string

const (
	// StorageAttribute values are serialized with one block placement.
	StorageAttribute StorageTarget = "attribute"
	// StorageMeta values live in the post's meta table and are shared by every placement on the post.
	StorageMeta StorageTarget = "meta"
)

// ValueType is the declared runtime type of a field.
type ValueType string

const (
	TypeText     ValueType = "text"
	TypeRichText ValueType = "richtext"
	TypeDate     ValueType = "date"
	TypeBoolean  ValueType = "boolean"
	TypeURL      ValueType = "url"
)

// FieldRole marks fields with a special meaning for projectors.
type FieldRole string

const (
	RoleNone FieldRole = ""
	// RoleTitle fields override the fallback title instead of producing a list line.
	RoleTitle FieldRole = "title"
)

// SanitizeMode selects the host sanitizer applied before a meta value is stored.
type SanitizeMode string

const (
	SanitizeNone SanitizeMode = ""
	SanitizeText SanitizeMode = "text"
	SanitizeHTML SanitizeMode = "html"
)

// FieldSchema declares one editable field of a block type.
type FieldSchema struct {
	Key      string        `yaml:"key" json:"key"`
	Label    string        `yaml:"label,omitempty" json:"label,omitempty"`
	Storage  StorageTarget `yaml:"storage" json:"storage"`
	Type     ValueType     `yaml:"type" json:"type"`
	Default  any           `yaml:"default,omitempty" json:"default,omitempty"`
	Role     FieldRole     `yaml:"role,omitempty" json:"role,omitempty"`
	Sanitize SanitizeMode  `yaml:"sanitize,omitempty" json:"sanitize,omitempty"`
}

// ZeroValue is the value a field holds when nothing was stored.
func (f FieldSchema) ZeroValue() any {
	if f.Default != nil {
		return f.Default
	}
	if f.Type == TypeBoolean {
		return false
	}
	return ""
}

// Check verifies that v matches the declared value type.
func (f FieldSchema) Check(v any) error {
	switch f.Type {
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: field %q expects boolean, got %T", ErrTypeMismatch, f.Key, v)
		}
	default:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: field %q expects string, got %T", ErrTypeMismatch, f.Key, v)
		}
	}
	return nil
}

// Coerce converts a raw value read from storage or typed by a user into the
// declared runtime type. nil becomes the zero value.
func (f FieldSchema) Coerce(v any) (any, error) {
	if v == nil {
		return f.ZeroValue(), nil
	}
	if f.Type == TypeBoolean {
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if strings.TrimSpace(t) == "" {
				return false, nil
			}
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %q is not a boolean", ErrTypeMismatch, f.Key, t)
			}
			return b, nil
		case int:
			return t != 0, nil
		case int64:
			return t != 0, nil
		case float64:
			return t != 0, nil
		}
		return nil, fmt.Errorf("%w: field %q expects boolean, got %T", ErrTypeMismatch, f.Key, v)
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case bool, int, int64, float64:
		return fmt.Sprint(t), nil
	}
	return nil, fmt.Errorf("%w: field %q expects string, got %T", ErrTypeMismatch, f.Key, v)
}

// Validate checks the declaration itself.
func (f FieldSchema) Validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return fmt.Errorf("field key cannot be empty")
	}
	switch f.Storage {
	case StorageAttribute, StorageMeta:
	default:
		return fmt.Errorf("field %q: unknown storage %q", f.Key, f.Storage)
	}
	switch f.Type {
	case TypeText, TypeRichText, TypeDate, TypeBoolean, TypeURL:
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Key, f.Type)
	}
	switch f.Role {
	case RoleNone, RoleTitle:
	default:
		return fmt.Errorf("field %q: unknown role %q", f.Key, f.Role)
	}
	switch f.Sanitize {
	case SanitizeNone, SanitizeText, SanitizeHTML:
	default:
		return fmt.Errorf("field %q: unknown sanitizer %q", f.Key, f.Sanitize)
	}
	if f.Default != nil {
		if err := f.Check(f.Default); err != nil {
			return fmt.Errorf("field %q default: %w", f.Key, err)
		}
	}
	return nil
}

// IsEmpty reports whether a stored value counts as absent for rendering.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	}
	return false
}

// Scope carries the identity of the post and block placement a call is made for.
// Attribute fields resolve by InstanceID only, meta fields by PostID only.
type Scope struct {
	PostID     string
	InstanceID string
}

func (s Scope) String() string {
	return s.PostID + "#" + s.InstanceID
}

// BlockInstance is one placement of a block type inside a post's content.
type BlockInstance struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	PostID     string   `json:"post_id"`
	Attributes Metadata `json:"attributes,omitempty"`
}

// Scope returns the scope addressing this placement.
func (b BlockInstance) Scope() Scope {
	return Scope{PostID: b.PostID, InstanceID: b.ID}
}

// EventType represents the type of change in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change observed in a store.
// InstanceID is empty for post-level (meta) changes.
type Event struct {
	Type       EventType
	PostID     string
	InstanceID string
	Key        string
	Timestamp  int64 // Unix timestamp
}

func (e Event) String() string {
	target := e.PostID
	if e.InstanceID != "" {
		target += "#" + e.InstanceID
	}
	if e.Key != "" {
		target += "/" + e.Key
	}
	return fmt.Sprintf("%s %s @%s", e.Type, target, time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339))
}

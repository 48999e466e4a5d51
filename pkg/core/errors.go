package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrReadOnly         = errors.New("store is in read-only mode")
	ErrNotFound         = errors.New("not found")
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrUnknownField     = errors.New("unknown field")
	ErrTypeMismatch     = errors.New("value type mismatch")
	ErrRegistrySealed   = errors.New("schema registry is sealed")
	ErrInvalidScope     = errors.New("invalid scope")
)

// DuplicateKeyError is returned when two fields of one block type share a key.
type DuplicateKeyError struct {
	BlockType string
	Key       string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate field key %q in block type %q", e.Key, e.BlockType)
}

// PersistenceError wraps a storage failure. The previously stored value stays authoritative.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DateFormatError is returned when a date-valued field cannot be parsed.
type DateFormatError struct {
	Key   string
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("field %q: malformed date %q", e.Key, e.Value)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

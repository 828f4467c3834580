package store

import (
	"errors"
	"fmt"
)

// Standard state-store error types that all implementations should use.
var (
	// ErrNotFound indicates the requested key does not exist for the
	// execution (never written, or tombstoned). A legitimate outcome on
	// reads, distinct from a backend failure.
	ErrNotFound = errors.New("state not found")

	// ErrUnavailable indicates the backing store could not be reached or
	// failed mid-operation. Safe for the caller to retry.
	ErrUnavailable = errors.New("state store unavailable")
)

// StateError wraps store errors with the operation and key context.
type StateError struct {
	Op  string // Operation being performed (e.g. "GetVariable")
	Key string // Namespaced store key
	Err error  // Underlying error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

func (e *StateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStateError creates a new state error with context.
func NewStateError(op, key string, err error) *StateError {
	return &StateError{Op: op, Key: key, Err: err}
}

// IsNotFound checks if an error indicates an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable checks if an error indicates a backend failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

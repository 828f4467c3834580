package services

import (
	"github.com/runcept/runcept/pkg/store"
	"github.com/runcept/runcept/pkg/tools"
)

// Re-exported sentinels so handlers need only this package for taxonomy
// checks.
var (
	ErrNotFound      = store.ErrNotFound
	ErrUnavailable   = store.ErrUnavailable
	ErrInvalidAction = tools.ErrInvalidAction
)

// IsNotFound reports whether err means no value is stored for the
// requested key.
func IsNotFound(err error) bool {
	return store.IsNotFound(err)
}

// IsUnavailable reports whether err means a backing service could not be
// reached. Covers both the state store and the tool subsystem.
func IsUnavailable(err error) bool {
	return store.IsUnavailable(err) || tools.IsUnavailable(err)
}

// IsInvalidAction reports whether err means the tool action config was
// rejected before or by the tool subsystem.
func IsInvalidAction(err error) bool {
	return tools.IsInvalidAction(err)
}

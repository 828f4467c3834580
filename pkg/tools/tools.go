// Package tools forwards validated tool-action requests to the external
// tool-execution subsystem and normalizes its replies. The runtime never
// implements per-tool logic; it is a thin, validating pass-through so
// scripts can trigger integrations without holding credentials.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/runcept/runcept/pkg/models"
)

var (
	// ErrInvalidAction indicates a malformed tool-action request. Detected
	// before any network call is made.
	ErrInvalidAction = errors.New("invalid tool action")

	// ErrUnavailable indicates the tool-execution subsystem could not be
	// reached or answered with a server error.
	ErrUnavailable = errors.New("tool subsystem unavailable")
)

// IsInvalidAction checks if an error indicates a malformed request.
func IsInvalidAction(err error) bool {
	return errors.Is(err, ErrInvalidAction)
}

// IsUnavailable checks if an error indicates a subsystem failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Executor is the forwarding contract. Execute may cause real external
// effects (a message is sent, an email goes out); it is never retried by
// the service itself.
type Executor interface {
	Execute(ctx context.Context, executionID, userID string, config models.ToolActionConfig) (*models.ToolActionResult, error)
	Close() error
}

// Validate rejects requests that must never reach the subsystem: empty
// tool or action names. A nil params map is treated as an empty object.
func Validate(config models.ToolActionConfig) error {
	if config.Tool == "" {
		return fmt.Errorf("%w: tool is required", ErrInvalidAction)
	}

	if config.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidAction)
	}

	return nil
}

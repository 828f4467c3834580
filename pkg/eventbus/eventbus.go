// Package eventbus publishes runtime audit events for the orchestrator.
// The runtime is publish-only: consuming the stream is the orchestrator's
// side of the contract.
package eventbus

import (
	"context"

	"github.com/runcept/runcept/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// Publisher emits audit events. Implementations must be safe for
// concurrent use; callers treat failures as non-fatal (an audit gap never
// fails a script request).
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
	Close() error
}

// Noop discards events. Used when no bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, Event) error {
	return nil
}

func (Noop) Close() error {
	return nil
}

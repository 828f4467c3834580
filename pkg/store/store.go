// Package store provides the execution state store abstraction: input,
// output, variables, condition and context, all namespaced by execution ID.
package store

import (
	"context"

	"github.com/runcept/runcept/pkg/models"
)

// Store is the access contract for execution-scoped state. Every operation
// is keyed by (kind, executionID, key?); no operation is valid without an
// execution ID, which the web layer always takes from verified claims.
//
// Writes are last-write-wins and atomic per key. Reads distinguish
// ErrNotFound (key absent, a legitimate outcome) from ErrUnavailable
// (backend down, safe to retry).
type Store interface {
	GetInput(ctx context.Context, executionID string) (*models.InputData, error)
	SetInput(ctx context.Context, executionID string, data any) error

	GetOutput(ctx context.Context, executionID string) (*models.OutputData, error)
	SetOutput(ctx context.Context, executionID string, data any) error

	GetVariable(ctx context.Context, executionID, key string) (*models.Variable, error)
	SetVariable(ctx context.Context, executionID, key string, value any) error

	GetCondition(ctx context.Context, executionID string) (*models.ConditionResult, error)
	SetCondition(ctx context.Context, executionID string, result bool) error

	GetContext(ctx context.Context, executionID string) (*models.ExecutionContext, error)
	SetContext(ctx context.Context, executionID string, execContext *models.ExecutionContext) error

	HealthCheck(ctx context.Context) error
	Close() error
}

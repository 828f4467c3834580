// Package models defines the core domain models for the runtime execution
// context service: token claims, execution metadata, execution-scoped state
// and the tool-action request/response pair.
package models

import "time"

// Claims are the verified, immutable fields decoded from a signed execution
// token. Issued by the orchestrator; this service only ever reads them.
type Claims struct {
	JobID       string    `json:"jobId"`
	ExecutionID string    `json:"executionId"`
	UserID      string    `json:"userId"`
	EventID     string    `json:"eventId"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ExecutionContext is the read-only metadata about the event that triggered
// an execution. Written by the orchestrator before the script starts.
type ExecutionContext struct {
	ExecutionID string         `json:"executionId"`
	EventID     string         `json:"eventId"`
	EventName   string         `json:"eventName"`
	EventType   string         `json:"eventType"`
	UserID      string         `json:"userId"`
	StartTime   time.Time      `json:"startTime"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Variable is a named value scoped to exactly one execution. A nil Value is
// the deletion tombstone; readers treat tombstoned keys as absent.
type Variable struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Type      string    `json:"type,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Deleted reports whether the variable is a tombstone.
func (v *Variable) Deleted() bool {
	return v.Value == nil
}

// InputData is the payload the orchestrator seeds before the script runs.
type InputData struct {
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// OutputData is the payload the script reports back. Overwritable,
// last-write-wins.
type OutputData struct {
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ConditionResult is the boolean branch decision consumed by the
// orchestrator after the script completes.
type ConditionResult struct {
	Result    bool      `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolActionConfig names an operation on a third-party integration, invoked
// generically by tool name + action name + parameters. Not persisted.
type ToolActionConfig struct {
	Tool   string         `json:"tool"   validate:"required"`
	Action string         `json:"action" validate:"required"`
	Params map[string]any `json:"params"`
}

// ToolActionResult is the normalized reply from the tool-execution
// subsystem.
type ToolActionResult struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

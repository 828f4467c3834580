// Package web provides the HTTP surface sandboxed scripts call: request
// and response types, authentication and rate-limit middleware, and the
// execution-scoped handlers.
package web

// Response is the uniform envelope for every endpoint. Success responses
// carry Data; failures carry the machine-readable Error code plus a
// human-readable Message.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// SetOutputRequest is the body for POST /executions/:id/output. Data may
// be any JSON value, including null.
type SetOutputRequest struct {
	Data any `json:"data"`
}

// SetVariableRequest is the body for PUT /executions/:id/variables/:key.
// A null value deletes the variable.
type SetVariableRequest struct {
	Value any `json:"value"`
}

// SetConditionRequest is the body for POST /executions/:id/condition.
// Condition is a pointer so a missing field is distinguishable from false.
type SetConditionRequest struct {
	Condition *bool `json:"condition" validate:"required"`
}

// ExecuteToolActionRequest is the body for POST /tool-actions/execute.
type ExecuteToolActionRequest struct {
	Tool   string         `json:"tool"   validate:"required,min=1"`
	Action string         `json:"action" validate:"required,min=1"`
	Params map[string]any `json:"params"`
}

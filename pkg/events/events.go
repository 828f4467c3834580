// Package events defines the audit events the runtime emits for the
// orchestrator: every state access and tool-action invocation performed on
// behalf of a sandboxed script.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all runtime audit events.
const Topic = "runcept.runtime.audit"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InputReadEvent          EventType = "runtime.input.read"
	OutputWrittenEvent      EventType = "runtime.output.written"
	VariableReadEvent       EventType = "runtime.variable.read"
	VariableWrittenEvent    EventType = "runtime.variable.written"
	ConditionSetEvent       EventType = "runtime.condition.set"
	ContextReadEvent        EventType = "runtime.context.read"
	ToolActionExecutedEvent EventType = "runtime.toolaction.executed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	UserID      string    `json:"user_id,omitempty"`
}

func NewBaseEvent(eventType EventType, executionID, userID string) BaseEvent {
	return BaseEvent{
		ID:          newEventID(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		UserID:      userID,
	}
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

type InputRead struct {
	BaseEvent
}

func (e InputRead) GetType() EventType {
	return InputReadEvent
}

type OutputWritten struct {
	BaseEvent
}

func (e OutputWritten) GetType() EventType {
	return OutputWrittenEvent
}

type VariableRead struct {
	BaseEvent

	Key string `json:"variable_key"`
}

func (e VariableRead) GetType() EventType {
	return VariableReadEvent
}

type VariableWritten struct {
	BaseEvent

	Key     string `json:"variable_key"`
	Deleted bool   `json:"deleted,omitempty"`
}

func (e VariableWritten) GetType() EventType {
	return VariableWrittenEvent
}

type ConditionSet struct {
	BaseEvent

	Result bool `json:"result"`
}

func (e ConditionSet) GetType() EventType {
	return ConditionSetEvent
}

type ContextRead struct {
	BaseEvent
}

func (e ContextRead) GetType() EventType {
	return ContextReadEvent
}

type ToolActionExecuted struct {
	BaseEvent

	Tool    string `json:"tool"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
}

func (e ToolActionExecuted) GetType() EventType {
	return ToolActionExecutedEvent
}

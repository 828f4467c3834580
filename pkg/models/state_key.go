package models

// StateKind is the namespace segment that separates the different kinds of
// execution-scoped state in the backing store.
type StateKind string

const (
	StateKindInput     StateKind = "input"
	StateKindOutput    StateKind = "output"
	StateKindVariable  StateKind = "variable"
	StateKindCondition StateKind = "condition"
	StateKindContext   StateKind = "context"
)

// StateKey identifies one piece of execution-scoped state. Every store
// operation is keyed by (kind, executionID, key?): the execution ID is
// always part of the key, so two executions can never collide even when
// they pick the same variable name.
type StateKey struct {
	Kind        StateKind
	ExecutionID string
	Key         string
}

// String renders the namespaced store key.
func (k StateKey) String() string {
	s := string(k.Kind) + ":" + k.ExecutionID
	if k.Key != "" {
		s += ":" + k.Key
	}

	return s
}

// VariableKey builds the state key for a named variable of an execution.
func VariableKey(executionID, key string) StateKey {
	return StateKey{Kind: StateKindVariable, ExecutionID: executionID, Key: key}
}

// ExecutionKey builds the state key for per-execution singletons such as
// input, output, condition and context.
func ExecutionKey(kind StateKind, executionID string) StateKey {
	return StateKey{Kind: kind, ExecutionID: executionID}
}

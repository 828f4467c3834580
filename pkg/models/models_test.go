package models_test

import (
	"testing"

	"github.com/runcept/runcept/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestStateKey_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      models.StateKey
		expected string
	}{
		{
			name:     "variable key includes the variable name",
			key:      models.VariableKey("exec-1", "counter"),
			expected: "variable:exec-1:counter",
		},
		{
			name:     "singleton key has no trailing segment",
			key:      models.ExecutionKey(models.StateKindInput, "exec-1"),
			expected: "input:exec-1",
		},
		{
			name:     "output key",
			key:      models.ExecutionKey(models.StateKindOutput, "exec-9"),
			expected: "output:exec-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.key.String())
		})
	}
}

func TestStateKey_NamespaceIsolation(t *testing.T) {
	t.Parallel()

	// Same variable name under two executions must never map to the same
	// store key.
	a := models.VariableKey("exec-a", "counter")
	b := models.VariableKey("exec-b", "counter")
	assert.NotEqual(t, a.String(), b.String())
}

func TestVariable_Deleted(t *testing.T) {
	t.Parallel()

	v := &models.Variable{Key: "k", Value: 5}
	assert.False(t, v.Deleted())

	tombstone := &models.Variable{Key: "k", Value: nil}
	assert.True(t, tombstone.Deleted())
}

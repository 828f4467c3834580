package tools_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/runcept/runcept/pkg/models"
	"github.com/runcept/runcept/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  models.ToolActionConfig
		wantErr bool
	}{
		{
			name:   "valid config",
			config: models.ToolActionConfig{Tool: "slack", Action: "send_message", Params: map[string]any{"channel": "#ops"}},
		},
		{
			name:   "nil params is allowed",
			config: models.ToolActionConfig{Tool: "slack", Action: "send_message"},
		},
		{
			name:    "empty tool",
			config:  models.ToolActionConfig{Action: "send_message"},
			wantErr: true,
		},
		{
			name:    "empty action",
			config:  models.ToolActionConfig{Tool: "slack"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tools.Validate(tt.config)
			if tt.wantErr {
				assert.True(t, tools.IsInvalidAction(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Execute(t *testing.T) {
	t.Parallel()

	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/tools/execute", r.URL.Path)
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.ToolActionResult{
			Success:  true,
			Data:     map[string]any{"messageId": "m-1"},
			Metadata: map[string]any{"durationMs": float64(42)},
		})
	}))
	defer server.Close()

	client := tools.NewClient(tools.Config{URL: server.URL, Token: "service-token"}, slog.Default())

	result, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{
		Tool:   "slack",
		Action: "send_message",
		Params: map[string]any{"channel": "#ops", "text": "hi"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, map[string]any{"messageId": "m-1"}, result.Data)

	// Identity comes from claims, not from the script.
	assert.Equal(t, "exec-1", received["executionId"])
	assert.Equal(t, "user-1", received["userId"])
	assert.Equal(t, "slack", received["tool"])
}

func TestClient_Execute_InvalidNeverContactsSubsystem(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := tools.NewClient(tools.Config{URL: server.URL}, slog.Default())

	_, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Action: "send_message"})
	assert.True(t, tools.IsInvalidAction(err))

	_, err = client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Tool: "slack"})
	assert.True(t, tools.IsInvalidAction(err))

	assert.Zero(t, calls.Load())
}

func TestClient_Execute_SubsystemFailures(t *testing.T) {
	t.Parallel()

	t.Run("server error maps to unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := tools.NewClient(tools.Config{URL: server.URL}, slog.Default())

		_, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Tool: "slack", Action: "send_message"})
		assert.True(t, tools.IsUnavailable(err))
	})

	t.Run("rejection maps to invalid action", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		client := tools.NewClient(tools.Config{URL: server.URL}, slog.Default())

		_, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Tool: "slack", Action: "send_message"})
		assert.True(t, tools.IsInvalidAction(err))
	})

	t.Run("unreachable subsystem maps to unavailable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		client := tools.NewClient(tools.Config{URL: server.URL}, slog.Default())

		_, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Tool: "slack", Action: "send_message"})
		assert.True(t, tools.IsUnavailable(err))
	})

	t.Run("tool-level failure is a normalized result", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(models.ToolActionResult{Success: false, Error: "channel not found"})
		}))
		defer server.Close()

		client := tools.NewClient(tools.Config{URL: server.URL}, slog.Default())

		result, err := client.Execute(context.Background(), "exec-1", "user-1", models.ToolActionConfig{Tool: "slack", Action: "send_message"})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "channel not found", result.Error)
	})
}

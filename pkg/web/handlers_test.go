package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	backend "github.com/redis/go-redis/v9"
	"github.com/runcept/runcept/pkg/auth"
	"github.com/runcept/runcept/pkg/eventbus"
	"github.com/runcept/runcept/pkg/ratelimit"
	"github.com/runcept/runcept/pkg/services"
	"github.com/runcept/runcept/pkg/store"
	"github.com/runcept/runcept/pkg/tools"
	"github.com/runcept/runcept/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, executionID string) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jobId":       "job-1",
		"executionId": executionID,
		"userId":      "user-1",
		"eventId":     "event-1",
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

// setupTestApp wires the full middleware chain and routes the way the
// server command does.
func setupTestApp(t *testing.T, toolsURL string, perMinute int) (*fiber.App, store.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	stateStore := store.NewRedisFromClient(client, store.RedisConfig{})

	executor := tools.NewClient(tools.Config{URL: toolsURL}, slog.Default())
	runtime := services.NewRuntime(stateStore, executor, eventbus.Noop{}, slog.Default())

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewRuntimeHandlers(runtime, validate)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	authMiddleware := web.NewAuthMiddleware(auth.NewVerifier(testSecret), slog.Default())
	limitMiddleware := web.NewRateLimitMiddleware(ratelimit.NewLocal(perMinute), slog.Default())

	e := app.Group("/executions", authMiddleware, limitMiddleware)
	e.Get("/:id/input", handlers.GetInput)
	e.Post("/:id/output", handlers.SetOutput)
	e.Get("/:id/context", handlers.GetContext)
	e.Post("/:id/condition", handlers.SetCondition)
	e.Get("/:id/variables/:key", handlers.GetVariable)
	e.Put("/:id/variables/:key", handlers.SetVariable)

	ta := app.Group("/tool-actions", authMiddleware, limitMiddleware)
	ta.Post("/execute", handlers.ExecuteToolAction)

	return app, stateStore
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, web.Response) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var envelope web.Response

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &envelope))
	}

	return resp, envelope
}

func TestHandlers_InputOutput(t *testing.T) {
	t.Parallel()

	app, stateStore := setupTestApp(t, "", 100)
	token := signToken(t, "exec-1")

	resp, envelope := doRequest(t, app, http.MethodGet, "/executions/exec-1/input", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, web.CodeNotFound, envelope.Error)

	require.NoError(t, stateStore.SetInput(t.Context(), "exec-1", map[string]any{"rows": float64(3)}))

	resp, envelope = doRequest(t, app, http.MethodGet, "/executions/exec-1/input", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
	assert.Equal(t, map[string]any{"rows": float64(3)}, envelope.Data)

	resp, envelope = doRequest(t, app, http.MethodPost, "/executions/exec-1/output", token,
		web.SetOutputRequest{Data: map[string]any{"ok": true}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, envelope.Success)

	output, err := stateStore.GetOutput(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, output.Data)
}

func TestHandlers_ExecutionIDMismatch(t *testing.T) {
	t.Parallel()

	app, stateStore := setupTestApp(t, "", 100)

	// The other execution's data exists; the response must still be 403,
	// not 404.
	require.NoError(t, stateStore.SetInput(t.Context(), "exec-other", map[string]any{"x": float64(1)}))

	token := signToken(t, "exec-1")

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/executions/exec-other/input", nil},
		{http.MethodPost, "/executions/exec-other/output", web.SetOutputRequest{Data: "x"}},
		{http.MethodGet, "/executions/exec-other/context", nil},
		{http.MethodPost, "/executions/exec-other/condition", web.SetConditionRequest{Condition: boolPtr(true)}},
		{http.MethodGet, "/executions/exec-other/variables/k", nil},
		{http.MethodPut, "/executions/exec-other/variables/k", web.SetVariableRequest{Value: "v"}},
	}

	for _, route := range routes {
		resp, envelope := doRequest(t, app, route.method, route.path, token, route.body)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", route.method, route.path)
		assert.Equal(t, web.CodeUnauthorized, envelope.Error)
	}
}

func TestHandlers_Variables(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, "", 100)
	token := signToken(t, "exec-1")

	resp, _ := doRequest(t, app, http.MethodPut, "/executions/exec-1/variables/counter", token,
		web.SetVariableRequest{Value: float64(42)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope := doRequest(t, app, http.MethodGet, "/executions/exec-1/variables/counter", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"key": "counter", "value": float64(42)}, envelope.Data)

	// Null value is the deletion convention.
	resp, _ = doRequest(t, app, http.MethodPut, "/executions/exec-1/variables/counter", token,
		web.SetVariableRequest{Value: nil})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = doRequest(t, app, http.MethodGet, "/executions/exec-1/variables/counter", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, web.CodeNotFound, envelope.Error)
}

func TestHandlers_Condition(t *testing.T) {
	t.Parallel()

	app, stateStore := setupTestApp(t, "", 100)
	token := signToken(t, "exec-1")

	resp, envelope := doRequest(t, app, http.MethodPost, "/executions/exec-1/condition", token,
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, web.CodeInvalidRequest, envelope.Error)

	resp, _ = doRequest(t, app, http.MethodPost, "/executions/exec-1/condition", token,
		web.SetConditionRequest{Condition: boolPtr(false)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	condition, err := stateStore.GetCondition(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.False(t, condition.Result)
}

func TestHandlers_ExecuteToolAction(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "exec-1", req["executionId"])
		assert.Equal(t, "user-1", req["userId"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":"sent"}`))
	}))
	defer server.Close()

	app, _ := setupTestApp(t, server.URL, 100)
	token := signToken(t, "exec-1")

	resp, envelope := doRequest(t, app, http.MethodPost, "/tool-actions/execute", token,
		web.ExecuteToolActionRequest{Tool: "slack", Action: "send_message", Params: map[string]any{"channel": "#ops"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)

	result, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sent", result["data"])
}

func TestHandlers_ExecuteToolAction_Invalid(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, "", 100)
	token := signToken(t, "exec-1")

	tests := []struct {
		name string
		body web.ExecuteToolActionRequest
	}{
		{"missing tool", web.ExecuteToolActionRequest{Action: "send_message"}},
		{"missing action", web.ExecuteToolActionRequest{Tool: "slack"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, envelope := doRequest(t, app, http.MethodPost, "/tool-actions/execute", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, web.CodeInvalidRequest, envelope.Error)
		})
	}
}

func TestHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t, "", 100)

	// No token needed.
	resp, _ := doRequest(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func boolPtr(b bool) *bool {
	return &b
}

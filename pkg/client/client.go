// Package client is the Go reference SDK for the runtime API. It defines
// the wire contract every script SDK follows: bearer-token auth, the
// response envelope, the error taxonomy and the retry policy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/runcept/runcept/pkg/models"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultToolTimeout = 65 * time.Second
)

type Config struct {
	// BaseURL of the runtime service, e.g. http://runtime:8090.
	BaseURL string
	// Token is the signed execution token injected into the sandbox.
	Token string
	// Timeout bounds each state operation attempt. Defaults to 10s.
	Timeout time.Duration
	// ToolTimeout bounds tool actions, which run remote side effects and
	// need headroom. Defaults to 65s.
	ToolTimeout time.Duration
	// Retry controls backoff; zero value means DefaultRetryPolicy.
	Retry RetryPolicy
}

type Client struct {
	baseURL     string
	token       string
	executionID string
	timeout     time.Duration
	toolTimeout time.Duration
	retry       RetryPolicy
	httpClient  *http.Client
}

// New builds a client from the injected token. The execution ID is read
// from the token claims without verifying the signature: the sandbox has
// no secret, verification is the server's job.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}

	if config.Token == "" {
		return nil, errors.New("client: execution token is required")
	}

	executionID, err := executionIDFromToken(config.Token)
	if err != nil {
		return nil, err
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	if config.ToolTimeout <= 0 {
		config.ToolTimeout = defaultToolTimeout
	}

	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryPolicy()
	}

	return &Client{
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		token:       config.Token,
		executionID: executionID,
		timeout:     config.Timeout,
		toolTimeout: config.ToolTimeout,
		retry:       config.Retry,
		httpClient:  &http.Client{},
	}, nil
}

// ExecutionID returns the execution this client acts for.
func (c *Client) ExecutionID() string {
	return c.executionID
}

// GetInput returns the input payload the orchestrator seeded for this
// execution.
func (c *Client) GetInput(ctx context.Context) (any, error) {
	var data any
	if err := c.call(ctx, http.MethodGet, c.executionPath("input"), nil, &data); err != nil {
		return nil, err
	}

	return data, nil
}

// SetOutput stores the script's result. Last write wins.
func (c *Client) SetOutput(ctx context.Context, data any) error {
	body := map[string]any{"data": data}

	return c.call(ctx, http.MethodPost, c.executionPath("output"), body, nil)
}

// GetVariable returns one execution-scoped variable.
func (c *Client) GetVariable(ctx context.Context, key string) (any, error) {
	var data struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}

	if err := c.call(ctx, http.MethodGet, c.variablePath(key), nil, &data); err != nil {
		return nil, err
	}

	return data.Value, nil
}

// SetVariable writes one execution-scoped variable.
func (c *Client) SetVariable(ctx context.Context, key string, value any) error {
	body := map[string]any{"value": value}

	return c.call(ctx, http.MethodPut, c.variablePath(key), body, nil)
}

// DeleteVariable removes a variable. Subsequent reads report NotFound.
func (c *Client) DeleteVariable(ctx context.Context, key string) error {
	return c.SetVariable(ctx, key, nil)
}

// SetCondition records the boolean branch decision.
func (c *Client) SetCondition(ctx context.Context, result bool) error {
	body := map[string]any{"condition": result}

	return c.call(ctx, http.MethodPost, c.executionPath("condition"), body, nil)
}

// GetContext returns the event metadata for this execution.
func (c *Client) GetContext(ctx context.Context) (*models.ExecutionContext, error) {
	var execContext models.ExecutionContext
	if err := c.call(ctx, http.MethodGet, c.executionPath("context"), nil, &execContext); err != nil {
		return nil, err
	}

	return &execContext, nil
}

// ExecuteToolAction forwards a tool action. Never auto-retried after a
// timeout: the action may have run, and repeating it would double the
// side effect. Callers get ErrToolTimeout and decide.
func (c *Client) ExecuteToolAction(ctx context.Context, config models.ToolActionConfig) (*models.ToolActionResult, error) {
	var result models.ToolActionResult

	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/tool-actions/execute",
		body:        config,
		out:         &result,
		timeout:     c.toolTimeout,
		sideEffects: true,
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) executionPath(suffix string) string {
	return "/executions/" + c.executionID + "/" + suffix
}

func (c *Client) variablePath(key string) string {
	return "/executions/" + c.executionID + "/variables/" + key
}

// call runs one idempotent state operation with the full retry policy.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, request{
		method:  method,
		path:    path,
		body:    body,
		out:     out,
		timeout: c.timeout,
	})
}

type request struct {
	method  string
	path    string
	body    any
	out     any
	timeout time.Duration
	// sideEffects restricts retries to responses that prove the request
	// never ran (429). Timeouts map to ErrToolTimeout.
	sideEffects bool
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, req request) error {
	var payload []byte

	if req.body != nil {
		var err error

		payload, err = json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
	}

	var lastErr error

	for attempt := range c.retry.MaxAttempts {
		if attempt > 0 {
			retryAfter := retryAfterOf(lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retry.delay(attempt-1, retryAfter)):
			}
		}

		err := c.attempt(ctx, req, payload)
		if err == nil {
			return nil
		}

		lastErr = err

		if !c.retryable(req, err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) attempt(ctx context.Context, req request, payload []byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if req.sideEffects && isTimeout(err) {
			return fmt.Errorf("%w: %s %s", ErrToolTimeout, req.method, req.path)
		}

		return fmt.Errorf("client: %s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    "internal_error",
			Message: "undecodable response from runtime",
		}
	}

	if !env.Success {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Code:    env.Error,
			Message: env.Message,
		}

		if seconds, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil {
			return &retryAfterError{APIError: apiErr, after: time.Duration(seconds) * time.Second}
		}

		return apiErr
	}

	if req.out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, req.out); err != nil {
			return fmt.Errorf("client: decode response data: %w", err)
		}
	}

	return nil
}

// retryable classifies one failed attempt. State operations retry on
// timeouts, 429 and 5xx. Side-effecting requests retry on 429 only.
func (c *Client) retryable(req request, err error) bool {
	var apiErr *APIError

	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return true
		}

		return !req.sideEffects && apiErr.Status >= 500
	}

	if req.sideEffects {
		return false
	}

	return isTimeout(err)
}

type retryAfterError struct {
	*APIError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error {
	return e.APIError
}

func retryAfterOf(err error) time.Duration {
	var rae *retryAfterError
	if errors.As(err, &rae) {
		return rae.after
	}

	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func executionIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("client: parse execution token: %w", err)
	}

	executionID, _ := claims["executionId"].(string)
	if executionID == "" {
		return "", errors.New("client: execution token has no executionId claim")
	}

	return executionID, nil
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/runcept/runcept/pkg/models"
)

const defaultTimeout = 60 * time.Second

// Config holds the connection settings for the tool-execution subsystem.
type Config struct {
	URL     string
	Token   string        // service-to-service bearer token
	Timeout time.Duration // tool actions may call slow third-party APIs
}

// Client forwards tool actions over HTTP. One request per action, no
// retries: the subsystem call may have real side effects.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "tools"),
	}
}

// executeRequest is the wire shape sent to the subsystem. The execution and
// user identity always come from verified claims, never from the script.
type executeRequest struct {
	ExecutionID string         `json:"executionId"`
	UserID      string         `json:"userId"`
	Tool        string         `json:"tool"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params"`
}

func (c *Client) Execute(ctx context.Context, executionID, userID string, config models.ToolActionConfig) (*models.ToolActionResult, error) {
	if err := Validate(config); err != nil {
		return nil, err
	}

	params := config.Params
	if params == nil {
		params = map[string]any{}
	}

	payload, err := json.Marshal(executeRequest{
		ExecutionID: executionID,
		UserID:      userID,
		Tool:        config.Tool,
		Action:      config.Action,
		Params:      params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+"/internal/tools/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build tool action request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "Tool subsystem returned server error",
			"status", resp.StatusCode, "tool", config.Tool, "action", config.Action)

		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: subsystem rejected request with status %d", ErrInvalidAction, resp.StatusCode)
	}

	var result models.ToolActionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrUnavailable, err)
	}

	return &result, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

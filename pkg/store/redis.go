package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/runcept/runcept/pkg/models"
)

const defaultKeyPrefix = "runcept:"

// RedisConfig holds connection settings for the Redis/Valkey-backed store.
type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	TTL       time.Duration // expiry for execution state, 0 = no expiry
	OpTimeout time.Duration // per-operation deadline cap
	KeyPrefix string
}

// Redis implements Store on a Redis (or Valkey) server. Values are JSON
// encoded and written with single-key SET, so each write is atomic per key
// and last-write-wins.
type Redis struct {
	client    redis.UniversalClient
	ttl       time.Duration
	opTimeout time.Duration
	prefix    string
}

// NewRedis connects and pings the server before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	// Valkey URLs share the redis scheme semantics.
	url := cfg.URL
	if strings.HasPrefix(url, "valkey://") {
		url = "redis://" + strings.TrimPrefix(url, "valkey://")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store URL: %w", err)
	}

	if cfg.Password != "" {
		opt.Password = cfg.Password
	}

	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to state store: %w", err)
	}

	return newRedis(client, cfg), nil
}

// NewRedisFromClient wraps an existing client, mainly for tests.
func NewRedisFromClient(client redis.UniversalClient, cfg RedisConfig) *Redis {
	return newRedis(client, cfg)
}

func newRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	opTimeout := cfg.OpTimeout
	if opTimeout == 0 {
		opTimeout = 3 * time.Second
	}

	return &Redis{
		client:    client,
		ttl:       cfg.TTL,
		opTimeout: opTimeout,
		prefix:    prefix,
	}
}

// Client exposes the underlying connection so other components, like the
// shared rate limiter, can reuse it.
func (s *Redis) Client() redis.UniversalClient {
	return s.client
}

func (s *Redis) key(k models.StateKey) string {
	return s.prefix + k.String()
}

// get reads and decodes one key into dst. Returns ErrNotFound on absent
// keys and ErrUnavailable on transport failures.
func (s *Redis) get(ctx context.Context, op string, k models.StateKey, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(k)).Result()
	if err == redis.Nil {
		return NewStateError(op, k.String(), ErrNotFound)
	}

	if err != nil {
		return NewStateError(op, k.String(), fmt.Errorf("%w: %w", ErrUnavailable, err))
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return NewStateError(op, k.String(), fmt.Errorf("corrupt state: %w", err))
	}

	return nil
}

// set encodes and writes one key. A single SET keeps each write atomic.
func (s *Redis) set(ctx context.Context, op string, k models.StateKey, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return NewStateError(op, k.String(), fmt.Errorf("failed to marshal state: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(k), data, s.ttl).Err(); err != nil {
		return NewStateError(op, k.String(), fmt.Errorf("%w: %w", ErrUnavailable, err))
	}

	return nil
}

func (s *Redis) GetInput(ctx context.Context, executionID string) (*models.InputData, error) {
	var input models.InputData
	if err := s.get(ctx, "GetInput", models.ExecutionKey(models.StateKindInput, executionID), &input); err != nil {
		return nil, err
	}

	return &input, nil
}

func (s *Redis) SetInput(ctx context.Context, executionID string, data any) error {
	input := &models.InputData{Data: data, Timestamp: time.Now().UTC()}

	return s.set(ctx, "SetInput", models.ExecutionKey(models.StateKindInput, executionID), input)
}

func (s *Redis) GetOutput(ctx context.Context, executionID string) (*models.OutputData, error) {
	var output models.OutputData
	if err := s.get(ctx, "GetOutput", models.ExecutionKey(models.StateKindOutput, executionID), &output); err != nil {
		return nil, err
	}

	return &output, nil
}

func (s *Redis) SetOutput(ctx context.Context, executionID string, data any) error {
	output := &models.OutputData{Data: data, Timestamp: time.Now().UTC()}

	return s.set(ctx, "SetOutput", models.ExecutionKey(models.StateKindOutput, executionID), output)
}

func (s *Redis) GetVariable(ctx context.Context, executionID, key string) (*models.Variable, error) {
	stateKey := models.VariableKey(executionID, key)

	var variable models.Variable
	if err := s.get(ctx, "GetVariable", stateKey, &variable); err != nil {
		return nil, err
	}

	// Deleted variables keep a tombstone in the store; readers see them as
	// absent, never as the prior value.
	if variable.Deleted() {
		return nil, NewStateError("GetVariable", stateKey.String(), ErrNotFound)
	}

	return &variable, nil
}

func (s *Redis) SetVariable(ctx context.Context, executionID, key string, value any) error {
	variable := &models.Variable{
		Key:       key,
		Value:     value,
		Type:      valueType(value),
		UpdatedAt: time.Now().UTC(),
	}

	return s.set(ctx, "SetVariable", models.VariableKey(executionID, key), variable)
}

func (s *Redis) GetCondition(ctx context.Context, executionID string) (*models.ConditionResult, error) {
	var condition models.ConditionResult
	if err := s.get(ctx, "GetCondition", models.ExecutionKey(models.StateKindCondition, executionID), &condition); err != nil {
		return nil, err
	}

	return &condition, nil
}

func (s *Redis) SetCondition(ctx context.Context, executionID string, result bool) error {
	condition := &models.ConditionResult{Result: result, Timestamp: time.Now().UTC()}

	return s.set(ctx, "SetCondition", models.ExecutionKey(models.StateKindCondition, executionID), condition)
}

func (s *Redis) GetContext(ctx context.Context, executionID string) (*models.ExecutionContext, error) {
	var execContext models.ExecutionContext
	if err := s.get(ctx, "GetContext", models.ExecutionKey(models.StateKindContext, executionID), &execContext); err != nil {
		return nil, err
	}

	return &execContext, nil
}

func (s *Redis) SetContext(ctx context.Context, executionID string, execContext *models.ExecutionContext) error {
	return s.set(ctx, "SetContext", models.ExecutionKey(models.StateKindContext, executionID), execContext)
}

func (s *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func valueType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int32, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "object"
	}
}

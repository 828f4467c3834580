package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/runcept/runcept/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_AllowUntilBurstExhausted(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLocal(5)
	ctx := context.Background()

	for i := range 5 {
		result, err := limiter.Allow(ctx, "exec-1")
		require.NoError(t, err)
		assert.Truef(t, result.Allowed, "request %d within the limit must pass", i+1)
	}

	result, err := limiter.Allow(ctx, "exec-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Positive(t, result.RetryAfter)
}

func TestLocal_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.NewLocal(2)
	ctx := context.Background()

	for range 2 {
		_, err := limiter.Allow(ctx, "exec-noisy")
		require.NoError(t, err)
	}

	blocked, err := limiter.Allow(ctx, "exec-noisy")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	// An unrelated execution is unaffected by the noisy neighbour.
	other, err := limiter.Allow(ctx, "exec-quiet")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRedis_FixedWindow(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	limiter := ratelimit.NewRedis(client, 3)
	ctx := context.Background()

	for i := range 3 {
		result, err := limiter.Allow(ctx, "exec-1")
		require.NoError(t, err)
		assert.Truef(t, result.Allowed, "request %d within the limit must pass", i+1)
		assert.Equal(t, 3-(i+1), result.Remaining)
	}

	result, err := limiter.Allow(ctx, "exec-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Positive(t, result.RetryAfter)
	assert.LessOrEqual(t, result.RetryAfter, time.Minute)

	// Window rollover recovers the key.
	mr.FastForward(time.Minute + time.Second)

	result, err = limiter.Allow(ctx, "exec-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedis_UnavailableBackendSurfacesError(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	limiter := ratelimit.NewRedis(client, 3)

	mr.Close()

	_, err := limiter.Allow(context.Background(), "exec-1")
	assert.Error(t, err)
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "runcept:ratelimit:"

// Redis is a fixed-window limiter sharing counters across instances through
// the same store that backs execution state. Counting windows need no
// stronger atomicity than INCR plus a first-write EXPIRE.
type Redis struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

// NewRedis builds a shared limiter allowing perMinute requests per key.
func NewRedis(client redis.UniversalClient, perMinute int) *Redis {
	return &Redis{
		client: client,
		limit:  perMinute,
		window: time.Minute,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := redisKeyPrefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// Refreshing the expiry on every hit keeps the key from surviving an
	// instance crash between INCR and EXPIRE.
	pipe.ExpireNX(ctx, redisKey, r.window)
	ttl := pipe.TTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := int(incr.Val())
	if count > r.limit {
		retryAfter := ttl.Val()
		if retryAfter <= 0 {
			retryAfter = r.window
		}

		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: r.limit - count}, nil
}

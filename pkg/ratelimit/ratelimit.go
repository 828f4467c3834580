// Package ratelimit throttles per-execution request rates in front of all
// authenticated routes. One runaway script cannot starve others and cannot
// be starved by unrelated executions, because the caller key is the
// execution ID.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of one rate-limit check. RetryAfter is only
// meaningful when Allowed is false; it feeds the Retry-After header so SDK
// backoff behaves deterministically.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is the throttle contract: bounded memory, O(1) per check. The
// Local implementation needs no coordination; Redis shares counters across
// instances through atomic increments.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

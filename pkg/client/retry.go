package client

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy controls backoff for transient failures: request timeouts,
// 429 and 5xx responses. Other 4xx responses are never retried.
type RetryPolicy struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the random fraction added to each delay, 0..1.
	Jitter float64
}

// DefaultRetryPolicy matches the documented SDK behaviour: three attempts
// with exponential backoff from 500ms, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

// delay returns how long to wait before the given retry (attempt is
// zero-based, counting completed tries). A server-provided Retry-After
// takes precedence over the computed backoff.
func (p RetryPolicy) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}

	delay := p.BaseDelay << attempt
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}

	return delay
}

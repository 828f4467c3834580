package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds limiter memory. Executions are short-lived, so a
// full reset on overflow is acceptable; it only briefly widens the limit.
const maxTrackedKeys = 10000

// Local is an in-process token-bucket limiter keyed by caller. Suitable for
// single-instance deployments; use Redis when scaled out.
type Local struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocal builds a limiter allowing perMinute requests per key, with a
// burst of the same size.
func NewLocal(perMinute int) *Local {
	return &Local{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (l *Local) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}

		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return Result{Allowed: false, RetryAfter: time.Minute}, nil
	}

	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()

		return Result{Allowed: false, RetryAfter: delay}, nil
	}

	return Result{Allowed: true, Remaining: int(limiter.Tokens())}, nil
}

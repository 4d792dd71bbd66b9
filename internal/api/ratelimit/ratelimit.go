// Package ratelimit implements fixed-window request limiting keyed by client
// address. Window accounting lives behind a Store interface so the limiter
// can run on an in-process map or a shared Redis instance.
package ratelimit

import (
	"context"
	"time"
)

// Store tracks request counts per key within fixed windows.
type Store interface {
	// Incr increments the counter for key in its current window, creating
	// a fresh window when none exists or the previous one expired. It
	// returns the count after the increment and the time remaining until
	// the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)

	// Close releases any resources held by the store.
	Close() error
}

// Result describes the outcome of a limit check for one request.
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter applies a fixed-window limit using a Store.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter allowing limit requests per window.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{
		store:  store,
		limit:  int64(limit),
		window: window,
	}
}

// Allow records a request for key and reports whether it is within the
// limit. Store failures fail open: an unreachable backend must not take the
// API down with it.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	count, reset, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:    count <= l.limit,
		Limit:      l.limit,
		Remaining:  remaining,
		RetryAfter: reset,
	}
}

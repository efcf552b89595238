// Package ratelimit implements sliding-window admission control.
//
// The window is interpolated over the current and previous minute buckets:
// effective = cur + prev * (1 - elapsed/60s). Counter storage is pluggable
// so single-replica deployments can stay on Postgres while multi-replica
// ones share counters through Redis.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// WindowStore persists per-(key, minute) counters.
type WindowStore interface {
	WindowCounts(ctx context.Context, apiKeyID string, cur, prev time.Time) (curCount, prevCount int, err error)
	Increment(ctx context.Context, apiKeyID string, windowStart time.Time) error
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Duration
}

type Limiter interface {
	Check(ctx context.Context, apiKeyID string, limitPerMinute int) (Decision, error)
}

type WindowLimiter struct {
	store WindowStore
	now   func() time.Time
}

func NewWindowLimiter(store WindowStore) *WindowLimiter {
	return &WindowLimiter{store: store, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (l *WindowLimiter) WithClock(now func() time.Time) *WindowLimiter {
	l.now = now
	return l
}

// Check admits or rejects one request and, on admission, atomically
// increments the current window's counter.
func (l *WindowLimiter) Check(ctx context.Context, apiKeyID string, limitPerMinute int) (Decision, error) {
	now := l.now().UTC()
	curStart := now.Truncate(time.Minute)
	prevStart := curStart.Add(-time.Minute)
	reset := curStart.Add(time.Minute).Sub(now)

	curCount, prevCount, err := l.store.WindowCounts(ctx, apiKeyID, curStart, prevStart)
	if err != nil {
		return Decision{}, err
	}

	elapsed := now.Sub(curStart).Seconds()
	effective := float64(curCount) + float64(prevCount)*(1-elapsed/60)

	if effective >= float64(limitPerMinute) {
		return Decision{
			Allowed:    false,
			Limit:      limitPerMinute,
			Remaining:  0,
			RetryAfter: reset,
			Reset:      reset,
		}, nil
	}

	if err := l.store.Increment(ctx, apiKeyID, curStart); err != nil {
		return Decision{}, err
	}

	remaining := int(math.Ceil(float64(limitPerMinute) - effective - 1))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     limitPerMinute,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}

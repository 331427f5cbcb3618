// Package ratelimit spaces outbound calls to the transcoding job service.
//
// The service throttles by request rate rather than by concurrency, so every
// submission and status query waits on the same limiter.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter allows one call per delay, with no burst beyond a single call.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter that admits one call every delay. A zero delay disables limiting.
func New(delay time.Duration) *Limiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Backoff suspends the caller for d after the service signalled throttling.
func (l *Limiter) Backoff(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

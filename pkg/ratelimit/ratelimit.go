// Package ratelimit wraps golang.org/x/time/rate with the sliding-window
// configuration the poller uses: N calls per period, shared across all
// callers of a Limiter.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/blogwatch/backend/pkg/errors"
)

// Limiter gates outbound feed calls. The zero value is unusable; construct
// with New.
type Limiter struct {
	inner *rate.Limiter
}

// New returns a limiter that admits calls requests per period, with a burst
// equal to calls so a quiet limiter can absorb a full window at once.
func New(calls int, period time.Duration) *Limiter {
	if calls <= 0 {
		calls = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	perSecond := float64(calls) / period.Seconds()
	return &Limiter{inner: rate.NewLimiter(rate.Limit(perSecond), calls)}
}

// Acquire blocks until a slot is available or ctx is done. Callers treat a
// returned error as a rate-limit condition, not a transport failure.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.inner.Wait(ctx); err != nil {
		return errors.Wrap(errors.CodeRateLimit, err, "rate limit wait aborted")
	}
	return nil
}

// Allow reports whether a slot is available right now without blocking.
func (l *Limiter) Allow() bool {
	return l.inner.Allow()
}

// Package ratelimit provides a token-bucket rate limiter backed by
// golang.org/x/time/rate, used to gate worker-process spawns so a burst of
// cache misses cannot fork-bomb the host.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that decides whether a subprocess
// spawn may proceed.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps spawns per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a single spawn may proceed immediately.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a spawn token is available or ctx is done. Callers run
// it under the same deadline as the spawned process, so the wait is bounded
// by the worker timeout.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

package collector

import (
	"context"
	"time"
)

// DefaultBackoff is the delay schedule between failed attempts. Only the
// first len(Backoff)-1 entries are slept when all attempts fail.
var DefaultBackoff = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// Retrier runs an operation up to len(Backoff) times.
type Retrier struct {
	Backoff []time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier using DefaultBackoff and real sleeps.
func NewRetrier() *Retrier {
	return &Retrier{Backoff: DefaultBackoff, Sleep: Sleep}
}

// Attempts is the maximum number of tries.
func (r *Retrier) Attempts() int {
	if len(r.Backoff) == 0 {
		return 1
	}
	return len(r.Backoff)
}

// Do calls fn with attempt numbers starting at 1. Every error is retried
// the same way; the last one is returned unchanged.
func Do[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	attempts := r.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, r.Backoff[attempt-1]); serr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

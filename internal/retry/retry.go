// Package retry runs an operation repeatedly with exponential backoff.
package retry

import (
	"context"
	"log"
	"math"
	"time"
)

// Options controls the backoff schedule. Zero values fall back to
// 3 attempts, a 1s base delay and a factor of 2.
type Options struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
	// MaxDelay caps a single wait; 0 means uncapped.
	MaxDelay time.Duration
	// ShouldRetry decides whether an error is worth another attempt.
	// Nil retries every error.
	ShouldRetry func(error) bool
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = 2
	}
	return o
}

// DelayFor returns the wait after the given 1-based failed attempt.
func (o Options) DelayFor(attempt int) time.Duration {
	o = o.withDefaults()
	d := time.Duration(float64(o.Delay) * math.Pow(o.Backoff, float64(attempt-1)))
	if o.MaxDelay > 0 && d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, the attempts run out, ShouldRetry rejects
// the error, or ctx is done. The last error is returned unchanged.
func Do[T any](ctx context.Context, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts || (opts.ShouldRetry != nil && !opts.ShouldRetry(err)) {
			return zero, lastErr
		}

		wait := opts.DelayFor(attempt)
		log.Printf("retry: attempt %d/%d failed, waiting %s: %v", attempt, opts.MaxAttempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

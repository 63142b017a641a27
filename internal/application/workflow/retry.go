package workflow

import (
	"context"
	"math/rand"
	"time"

	"github.com/dkrause/garnishflow/internal/application/port"
)

// RetryPolicy bounds and shapes retries of transient collaborator failures.
// Permanent failures are never retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	UseJitter       bool
}

// DefaultRetryPolicy returns the default collaborator retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     10 * time.Second,
		UseJitter:       true,
	}
}

// backoff computes the delay before the given attempt (1-based) using capped
// exponential backoff with optional full jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.InitialInterval
	if base <= 0 {
		base = time.Millisecond // prevent hot looping
	}

	for i := 1; i < attempt; i++ {
		multiplier := p.Multiplier
		if multiplier < 1.0 {
			multiplier = 1.0
		}
		base = time.Duration(float64(base) * multiplier)
		if base > p.MaxInterval {
			base = p.MaxInterval
			break
		}
	}

	if p.UseJitter {
		// Full jitter: random between 0 and the calculated backoff.
		jitterMs := rand.Int63n(base.Milliseconds() + 1)
		return time.Duration(jitterMs) * time.Millisecond
	}

	return base
}

// do runs fn, retrying transient failures up to MaxAttempts with backoff.
// Returns the last error once attempts are exhausted or a permanent failure
// is observed.
func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !port.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(attempt)):
		}
	}

	return lastErr
}

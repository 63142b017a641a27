package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrause/garnishflow/internal/application/port"
)

func testPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     4 * time.Millisecond,
	}
}

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy(3).do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(3).do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return port.TransientError("bankcore", "balance", fmt.Errorf("upstream 503"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ExhaustsTransient(t *testing.T) {
	calls := 0
	transient := port.TransientError("bankcore", "balance", fmt.Errorf("upstream 503"))
	err := testPolicy(3).do(context.Background(), func(context.Context) error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	permanent := port.PermanentError("payments", "trigger", fmt.Errorf("account blocked"))
	err := testPolicy(5).do(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "permanent failures must not be retried")
}

func TestRetryPolicy_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxAttempts: 10, InitialInterval: 50 * time.Millisecond, Multiplier: 1.0, MaxInterval: 50 * time.Millisecond}
	err := policy.do(ctx, func(context.Context) error {
		calls++
		cancel()
		return port.TransientError("bankcore", "freeze", fmt.Errorf("timeout"))
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     time.Second,
	}

	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.backoff(3))
	assert.Equal(t, 800*time.Millisecond, p.backoff(4))
	assert.Equal(t, time.Second, p.backoff(5))
	assert.Equal(t, time.Second, p.backoff(10))
}

func TestRetryPolicy_JitterStaysWithinBackoff(t *testing.T) {
	p := RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		Multiplier:      2.0,
		MaxInterval:     time.Second,
		UseJitter:       true,
	}

	for i := 0; i < 50; i++ {
		d := p.backoff(3)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 400*time.Millisecond)
	}
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, port.IsTransient(port.TransientError("x", "y", errors.New("z"))))
	assert.False(t, port.IsTransient(port.PermanentError("x", "y", errors.New("z"))))
	assert.True(t, port.IsTransient(context.DeadlineExceeded))
	assert.False(t, port.IsTransient(errors.New("plain")))
	assert.False(t, port.IsTransient(nil))
}

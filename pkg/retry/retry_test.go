package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt, nil), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2, nil)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestErrorTypeBackoff(t *testing.T) {
	etb := NewErrorTypeBackoff(time.Second, time.Minute, 2, 30*time.Second)
	etb.Network = &ConstantBackoff{Delay: 1 * time.Millisecond}
	etb.ServerError = &ConstantBackoff{Delay: 2 * time.Millisecond}
	etb.RateLimit = &ConstantBackoff{Delay: 3 * time.Millisecond}
	etb.Default = &ConstantBackoff{Delay: 4 * time.Millisecond}

	assert.Equal(t, 1*time.Millisecond, etb.NextDelay(1, &errs.Error{Type: errs.ErrorTypeNetwork}))
	assert.Equal(t, 2*time.Millisecond, etb.NextDelay(1, &errs.Error{Type: errs.ErrorTypeServerError}))
	assert.Equal(t, 3*time.Millisecond, etb.NextDelay(1, &errs.Error{Type: errs.ErrorTypeRateLimit}))
	assert.Equal(t, 4*time.Millisecond, etb.NextDelay(1, errors.New("plain")))

	retryAfter := &errs.Error{Type: errs.ErrorTypeRateLimit, RetryAfter: 7 * time.Second}
	assert.Equal(t, 7*time.Second, etb.NextDelay(1, retryAfter))
}

func fastPolicy(attempts int) *Policy {
	return &Policy{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "reset"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	cause := &errs.Error{Type: errs.ErrorTypeServerError, Code: 502}
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		attempts++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "max retry attempts (3)")
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []error{
		&errs.Error{Type: errs.ErrorTypeAuth, Code: 401},
		&errs.Error{Type: errs.ErrorTypeNotFound, Code: 404},
		errors.New("untyped"),
		context.Canceled,
	}

	for _, cause := range tests {
		attempts := 0
		err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
			attempts++
			return cause
		})
		assert.Equal(t, cause, err)
		assert.Equal(t, 1, attempts)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Policy{
		MaxAttempts: 10,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Logger:      logger.NewNopLogger(),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			cancel()
		},
	}

	attempts := 0
	err := Do(ctx, p, func(ctx context.Context) error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeNetwork}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &errs.Error{Type: errs.ErrorTypeRateLimit, Code: 429}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Retry

	p := FromConfig(cfg, nil)
	assert.Equal(t, cfg.MaxAttempts, p.MaxAttempts)
	assert.NotNil(t, p.Logger)

	cfg.Enabled = false
	assert.Equal(t, 1, FromConfig(cfg, nil).MaxAttempts)
}

func TestWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Wait(context.Background(), time.Millisecond))
}

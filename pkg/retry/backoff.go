package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "igosint/pkg/errors"
)

// BackoffStrategy decides how long to wait before the next attempt.
// attempt counts from 1 for the first retry; err is the failure being retried.
type BackoffStrategy interface {
	NextDelay(attempt int, err error) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor adds randomness in [-f, +f] of the delay (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// ConstantBackoff waits the same delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrorTypeBackoff picks a strategy by the error type of the failure.
// A server-provided RetryAfter on a rate limit error wins over the strategy.
type ErrorTypeBackoff struct {
	Network     BackoffStrategy
	RateLimit   BackoffStrategy
	ServerError BackoffStrategy
	Default     BackoffStrategy
}

// NewErrorTypeBackoff creates an error-type backoff rooted at base.
// rateLimit is the starting delay for rate limit errors.
func NewErrorTypeBackoff(base, max time.Duration, multiplier float64, rateLimit time.Duration) *ErrorTypeBackoff {
	return &ErrorTypeBackoff{
		Network: &ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     max,
			Multiplier:   multiplier,
			JitterFactor: 0.2,
		},
		RateLimit: &ExponentialBackoff{
			BaseDelay:    rateLimit,
			MaxDelay:     5 * time.Minute,
			Multiplier:   1.5,
			JitterFactor: 0.3,
		},
		ServerError: &ExponentialBackoff{
			BaseDelay:    5 * base,
			MaxDelay:     max,
			Multiplier:   multiplier,
			JitterFactor: 0.1,
		},
		Default: &ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     max,
			Multiplier:   multiplier,
			JitterFactor: 0.1,
		},
	}
}

// NextDelay dispatches to the strategy matching err
func (etb *ErrorTypeBackoff) NextDelay(attempt int, err error) time.Duration {
	var apiErr *errs.Error
	if asAPIError(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return etb.strategyFor(errs.TypeOf(err)).NextDelay(attempt, err)
}

func (etb *ErrorTypeBackoff) strategyFor(t errs.ErrorType) BackoffStrategy {
	switch t {
	case errs.ErrorTypeNetwork:
		return etb.Network
	case errs.ErrorTypeRateLimit:
		return etb.RateLimit
	case errs.ErrorTypeServerError:
		return etb.ServerError
	default:
		return etb.Default
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/logger"
)

// Operation is a function that might need retrying
type Operation func(ctx context.Context) error

// OperationWithResult is an Operation that returns a value
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Policy controls how an operation is retried
type Policy struct {
	// MaxAttempts is the total number of attempts; 0 or 1 means no retries
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf reports whether a failure should be retried
	RetryIf func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultPolicy returns a three-attempt policy with error-type backoff
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		Backoff:     NewErrorTypeBackoff(time.Second, 60*time.Second, 2.0, 30*time.Second),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	}
}

// FromConfig builds a Policy from the retry section of the configuration
func FromConfig(cfg config.RetryConfig, log logger.Logger) *Policy {
	if log == nil {
		log = logger.NewNopLogger()
	}
	attempts := cfg.MaxAttempts
	if !cfg.Enabled {
		attempts = 1
	}
	return &Policy{
		MaxAttempts: attempts,
		Backoff:     NewErrorTypeBackoff(cfg.InitialBackoff, cfg.MaxBackoff, cfg.Multiplier, cfg.RateLimitBackoff),
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries typed errors whose type is retryable. Context
// errors and untyped errors are not retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if asAPIError(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

func asAPIError(err error, target **errs.Error) bool {
	return err != nil && errors.As(err, target)
}

// Do runs op until it succeeds, fails permanently, runs out of attempts,
// or ctx is cancelled
func Do(ctx context.Context, p *Policy, op Operation) error {
	if p == nil {
		p = DefaultPolicy()
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}
		if attempt >= maxAttempts {
			if maxAttempts > 1 {
				log.WarnWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts": attempt,
					"error":    err.Error(),
				})
				return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, err)
			}
			return err
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff.NextDelay(attempt, err)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		if errs.TypeOf(err) == errs.ErrorTypeRateLimit {
			logger.LogRateLimit(log, "", delay)
		} else {
			log.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": maxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](ctx context.Context, p *Policy, op OperationWithResult[T]) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

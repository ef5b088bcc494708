package httpdl

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds the per-fragment retry policy.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// retryWithBackoff executes fn with exponential backoff until it succeeds,
// shouldRetry rejects the error, attempts are exhausted, or ctx ends.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			break
		}
		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// isTransient decides whether a fragment fetch error is worth retrying.
// Context errors mean the caller is done with us; everything else, including
// HTTP status errors, gets the full retry budget.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

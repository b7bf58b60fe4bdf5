// Package llm - retry.go provides a data-driven retry policy for rate-limited
// provider calls. The policy is a plain value so it can be tested without
// network access and tuned per deployment.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy describes how rate-limited calls are retried.
// Attempt n (zero-based) sleeps BaseDelay * Multiplier^n before retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the standard policy: up to 3 attempts with
// exponential backoff starting at 2 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2.0,
	}
}

// Delay returns the backoff before retry attempt n (zero-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// RateLimitError marks a provider response as rate-limited so the retry loop
// can distinguish it from hard failures, which are never retried.
type RateLimitError struct {
	Provider Provider
	Cause    error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Cause)
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// IsRateLimit reports whether err is (or wraps) a rate-limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// withRetry runs fn under the policy, sleeping between rate-limited attempts.
// Non-rate-limit errors are returned immediately.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() (string, error)) (string, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(policy.Delay(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRateLimit(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}

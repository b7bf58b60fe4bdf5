package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2.0}

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{"first retry", 0, 2 * time.Second},
		{"second retry", 1, 4 * time.Second},
		{"third retry", 2, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.Delay(tt.attempt))
		})
	}
}

func TestIsRateLimit(t *testing.T) {
	rl := &RateLimitError{Provider: ProviderGemini, Cause: errors.New("429")}

	assert.True(t, IsRateLimit(rl))
	assert.True(t, IsRateLimit(fmt.Errorf("wrapped: %w", rl)))
	assert.False(t, IsRateLimit(errors.New("plain error")))
	assert.False(t, IsRateLimit(nil))
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastPolicy(), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesRateLimit(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastPolicy(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &RateLimitError{Provider: ProviderOpenAI, Cause: errors.New("429")}
		}
		return "eventually", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "eventually", result)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_HardErrorNotRetried(t *testing.T) {
	calls := 0
	hardErr := errors.New("500 internal")
	_, err := withRetry(context.Background(), fastPolicy(), func() (string, error) {
		calls++
		return "", hardErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, hardErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastPolicy(), func() (string, error) {
		calls++
		return "", &RateLimitError{Provider: ProviderAnthropic, Cause: errors.New("429")}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "exhausted 3 attempts")
	assert.True(t, IsRateLimit(err))
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2.0}
	_, err := withRetry(ctx, policy, func() (string, error) {
		calls++
		return "", &RateLimitError{Provider: ProviderGemini, Cause: errors.New("429")}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2.0}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackauth/mlflow-secrets-auth/internal/autherr"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.BackoffFactor)
	assert.Equal(t, 0.25, cfg.JitterFactor)
}

func TestConfig_GetMaxRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		expected int
	}{
		{"nil config", nil, 3},
		{"zero value", &Config{MaxRetries: 0}, 3},
		{"negative value", &Config{MaxRetries: -1}, 3},
		{"custom value", &Config{MaxRetries: 5}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.GetMaxRetries())
		})
	}
}

func TestConfig_GetInitialBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		expected time.Duration
	}{
		{"nil config", nil, 500 * time.Millisecond},
		{"zero value", &Config{InitialBackoff: 0}, 500 * time.Millisecond},
		{"custom value", &Config{InitialBackoff: 1 * time.Second}, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.GetInitialBackoff())
		})
	}
}

func TestConfig_GetMaxBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		expected time.Duration
	}{
		{"nil config", nil, 10 * time.Second},
		{"zero value", &Config{MaxBackoff: 0}, 10 * time.Second},
		{"custom value", &Config{MaxBackoff: 1 * time.Minute}, 1 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.GetMaxBackoff())
		})
	}
}

func TestConfig_GetBackoffFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		expected float64
	}{
		{"nil config", nil, 2.0},
		{"zero value", &Config{BackoffFactor: 0}, 2.0},
		{"negative value", &Config{BackoffFactor: -1}, 2.0},
		{"custom value", &Config{BackoffFactor: 3.0}, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.GetBackoffFactor())
		})
	}
}

func TestConfig_GetJitterFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      *Config
		expected float64
	}{
		{"nil config", nil, 0.25},
		{"zero value", &Config{JitterFactor: 0}, 0.25},
		{"negative value", &Config{JitterFactor: -0.5}, 0.25},
		{"custom value", &Config{JitterFactor: 0.5}, 0.5},
		{"capped at 1.0", &Config{JitterFactor: 1.5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.cfg.GetJitterFactor())
		})
	}
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestDo_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestDo_AllRetriesFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	expectedErr := errors.New("persistent error")
	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		return expectedErr
	}, nil)

	assert.ErrorIs(t, err, expectedErr)
	assert.ErrorContains(t, err, "all 3 attempts failed")
	assert.Equal(t, 3, callCount) // Initial + 2 retries
}

func TestDo_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:     5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		return errors.New("error")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_ContextCanceledBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callCount := 0
	err := Do(ctx, DefaultConfig(), func() error {
		callCount++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, callCount)
}

func TestDo_ShouldRetryFunc(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		if callCount == 1 {
			return retryableErr
		}
		return nonRetryableErr
	}, &Options{
		ShouldRetry: func(err error) bool {
			return errors.Is(err, retryableErr)
		},
	})

	assert.ErrorIs(t, err, nonRetryableErr)
	assert.Equal(t, 2, callCount) // First call + one retry
}

func TestDo_AuthErrorShortCircuits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Second, // would be noticed if slept
		MaxBackoff:     20 * time.Second,
	}

	authErr := autherr.New(autherr.ErrAuthentication, "vault", "login", nil)

	callCount := 0
	start := time.Now()
	err := Do(ctx, cfg, func() error {
		callCount++
		return authErr
	}, &Options{ShouldRetry: autherr.IsRetryable})

	require.ErrorIs(t, err, autherr.ErrAuthentication)
	assert.Equal(t, 1, callCount)
	assert.Less(t, time.Since(start), 1*time.Second)
}

func TestDo_OnRetryCallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	retryAttempts := []int{}
	err := Do(ctx, cfg, func() error {
		return errors.New("error")
	}, &Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			retryAttempts = append(retryAttempts, attempt)
		},
	})

	assert.Error(t, err)
	assert.Equal(t, []int{1, 2}, retryAttempts)
}

func TestDo_NilConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	callCount := 0
	err := Do(ctx, nil, func() error {
		callCount++
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestCalculateBackoff_ExactDelays(t *testing.T) {
	t.Parallel()

	// base 1s, factor 2, no jitter: the delays slept before attempts
	// 2, 3, and 4 are exactly 1s, 2s, 4s.
	initialBackoff := 1 * time.Second
	maxBackoff := 10 * time.Second

	assert.Equal(t, 1*time.Second, CalculateBackoff(0, initialBackoff, maxBackoff, 2.0, 0))
	assert.Equal(t, 2*time.Second, CalculateBackoff(1, initialBackoff, maxBackoff, 2.0, 0))
	assert.Equal(t, 4*time.Second, CalculateBackoff(2, initialBackoff, maxBackoff, 2.0, 0))
}

func TestCalculateBackoff_CappedAtMax(t *testing.T) {
	t.Parallel()

	backoff := CalculateBackoff(10, 1*time.Second, 10*time.Second, 2.0, 0)

	assert.Equal(t, 10*time.Second, backoff)
}

func TestCalculateBackoff_CustomFactor(t *testing.T) {
	t.Parallel()

	initialBackoff := 100 * time.Millisecond
	maxBackoff := 10 * time.Second

	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, initialBackoff, maxBackoff, 3.0, 0))
	assert.Equal(t, 300*time.Millisecond, CalculateBackoff(1, initialBackoff, maxBackoff, 3.0, 0))
	assert.Equal(t, 900*time.Millisecond, CalculateBackoff(2, initialBackoff, maxBackoff, 3.0, 0))
}

func TestCalculateBackoff_JitterBounds(t *testing.T) {
	t.Parallel()

	initialBackoff := 100 * time.Millisecond
	maxBackoff := 10 * time.Second
	jitterFactor := 0.25

	for range 100 {
		backoff := CalculateBackoff(1, initialBackoff, maxBackoff, 2.0, jitterFactor)

		// pure exponential is 200ms; jitter adds up to 25% on top
		assert.GreaterOrEqual(t, backoff, 200*time.Millisecond)
		assert.LessOrEqual(t, backoff, 250*time.Millisecond)
	}
}

func TestCalculateBackoff_JitterAppliedAfterCap(t *testing.T) {
	t.Parallel()

	// The exponential component is capped first, so the jittered delay
	// may exceed MaxBackoff by up to the jitter share but no more.
	maxBackoff := 1 * time.Second

	for range 100 {
		backoff := CalculateBackoff(10, 1*time.Second, maxBackoff, 2.0, 0.5)

		assert.GreaterOrEqual(t, backoff, 1*time.Second)
		assert.LessOrEqual(t, backoff, 1500*time.Millisecond)
	}
}

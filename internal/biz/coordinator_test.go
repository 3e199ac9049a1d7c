package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"

	"ContentGuard/internal/conf"
)

func newTestCoordinator() *Coordinator {
	logger := log.NewStdLogger(os.Stdout)
	co := NewCoordinator(NewResilienceContext(nil, logger), logger)
	co.sleep = func(context.Context, time.Duration) error { return nil }
	return co
}

func noSleep(opts RetryOptions) RetryOptions {
	opts.Sleep = func(context.Context, time.Duration) error { return nil }
	return opts
}

func TestSafeOperation_FallbackPrecedence(t *testing.T) {
	co := newTestCoordinator()
	boom := errors.New("cms down")

	t.Run("failing operation with fallback returns fallback", func(t *testing.T) {
		got, err := SafeOperation(context.Background(), co, SafeCall[string]{
			Name:      "fetchPosts",
			Component: "content",
			Operation: func(ctx context.Context) (string, error) { return "", boom },
			Fallback:  func() string { return "fallback" },
			Retry:     noSleep(RetryOptions{MaxRetries: 2}),
		})
		require.NoError(t, err)
		assert.Equal(t, "fallback", got)
	})

	t.Run("failing operation without fallback re-raises original error", func(t *testing.T) {
		_, err := SafeOperation(context.Background(), co, SafeCall[string]{
			Name:      "fetchPosts",
			Component: "content",
			Operation: func(ctx context.Context) (string, error) { return "", boom },
			Retry:     noSleep(RetryOptions{MaxRetries: 2}),
		})
		assert.Equal(t, boom, err)
	})
}

func TestSafeOperation_SuccessSkipsFallback(t *testing.T) {
	co := newTestCoordinator()
	got, err := SafeOperation(context.Background(), co, SafeCall[string]{
		Name:      "fetchPosts",
		Component: "content",
		Operation: func(ctx context.Context) (string, error) { return "live", nil },
		Fallback:  func() string { return "fallback" },
	})
	require.NoError(t, err)
	assert.Equal(t, "live", got)
}

func TestSafeOperation_RetriesBeforeFallback(t *testing.T) {
	co := newTestCoordinator()
	attempts := 0
	got, err := SafeOperation(context.Background(), co, SafeCall[string]{
		Name:      "fetchPosts",
		Component: "content",
		Operation: func(ctx context.Context) (string, error) {
			attempts++
			return "", errors.New("transient")
		},
		Fallback: func() string { return "fallback" },
		Retry:    noSleep(RetryOptions{MaxRetries: 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 4, attempts, "all retries are spent before falling back")
}

func TestSafeOperation_ReportsToErrorBoundary(t *testing.T) {
	co := newTestCoordinator()
	_, _ = SafeOperation(context.Background(), co, SafeCall[int]{
		Name:      "fetchPosts",
		Component: "content",
		Operation: func(ctx context.Context) (int, error) { return 0, errors.New("boom") },
		Retry:     noSleep(RetryOptions{MaxRetries: -1}),
	})
	assert.Equal(t, 1, co.Resilience().Boundary.ErrorCount())
}

func TestSafeOperation_BreakerWiredThrough(t *testing.T) {
	co := newTestCoordinator()
	b := co.Resilience().Breaker(BreakerFetchPosts)

	// Exhaust the breaker with non-retryable failures.
	for i := 0; i < 5; i++ {
		_, _ = SafeOperation(context.Background(), co, SafeCall[int]{
			Name:      BreakerFetchPosts,
			Component: "content",
			Operation: func(ctx context.Context) (int, error) { return 0, errors.New("boom") },
			Breaker:   b,
			Retry:     noSleep(RetryOptions{MaxRetries: -1}),
		})
	}

	executed := false
	got, err := SafeOperation(context.Background(), co, SafeCall[int]{
		Name:      BreakerFetchPosts,
		Component: "content",
		Operation: func(ctx context.Context) (int, error) {
			executed = true
			return 1, nil
		},
		Fallback: func() int { return -1 },
		Breaker:  b,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, got, "open breaker serves the fallback")
	assert.False(t, executed)
}

func TestSafeOperation_ConfiguredRetryDefaults(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)
	rc := NewResilienceContext(&conf.Resilience{
		Retry: &conf.Resilience_Retry{
			MaxRetries:        1,
			InitialDelay:      durationpb.New(5 * time.Second),
			BackoffMultiplier: 2,
			MaxDelay:          durationpb.New(10 * time.Second),
		},
	}, logger)
	co := NewCoordinator(rc, logger)
	var slept []time.Duration
	co.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	attempts := 0
	_, err := SafeOperation(context.Background(), co, SafeCall[int]{
		Name:      "fetchPosts",
		Component: "content",
		Operation: func(ctx context.Context) (int, error) {
			attempts++
			return 0, errors.New("transient")
		},
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts, "operator-configured max_retries applies")
	assert.Equal(t, []time.Duration{5 * time.Second}, slept)
}

package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmserrors "ContentGuard/pkg/errors"
)

// fakeSleep records requested delays without actually sleeping.
func fakeSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestWithRetry_BackoffSchedule(t *testing.T) {
	var slept []time.Duration
	attempts := 0
	boom := errors.New("boom")

	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, boom
	}, RetryOptions{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          10 * time.Second,
		Sleep:             fakeSleep(&slept),
	})

	require.Error(t, err)
	assert.Equal(t, boom, err, "exhaustion returns the last error unchanged")
	assert.Equal(t, 4, attempts, "maxRetries=3 means 4 total attempts")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestWithRetry_ZeroOptionsRetryByDefault(t *testing.T) {
	var slept []time.Duration
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("transient")
	}, RetryOptions{Sleep: fakeSleep(&slept)})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestWithRetry_NegativeDisablesRetries(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("transient")
	}, RetryOptions{MaxRetries: -1, Sleep: fakeSleep(new([]time.Duration))})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_DelayCappedAtMax(t *testing.T) {
	var slept []time.Duration
	_, _ = WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}, RetryOptions{
		MaxRetries:        5,
		InitialDelay:      time.Second,
		BackoffMultiplier: 3,
		MaxDelay:          5 * time.Second,
		Sleep:             fakeSleep(&slept),
	})

	require.Len(t, slept, 5)
	assert.Equal(t, time.Second, slept[0])
	assert.Equal(t, 3*time.Second, slept[1])
	for _, d := range slept[2:] {
		assert.Equal(t, 5*time.Second, d)
	}
}

func TestWithRetry_SuccessStopsImmediately(t *testing.T) {
	var slept []time.Duration
	attempts := 0
	got, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "ok", nil
	}, RetryOptions{MaxRetries: 3, Sleep: fakeSleep(&slept)})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, slept)
}

func TestWithRetry_EventualSuccess(t *testing.T) {
	var slept []time.Duration
	attempts := 0
	got, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "recovered", nil
	}, RetryOptions{MaxRetries: 3, Sleep: fakeSleep(&slept)})

	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, attempts)
	assert.Len(t, slept, 2)
}

func TestWithRetry_NonRetryableStopsEarly(t *testing.T) {
	attempts := 0
	authErr := cmserrors.NewCMSError("fetchPosts", 401, errors.New("unauthorized"))

	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, authErr
	}, RetryOptions{MaxRetries: 3, Sleep: fakeSleep(new([]time.Duration))})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "auth errors are not retried")
	assert.ErrorAs(t, err, new(*cmserrors.CMSError))
}

func TestWithRetry_OnRetryObserver(t *testing.T) {
	var observed []int
	_, _ = WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}, RetryOptions{
		MaxRetries: 2,
		Sleep:      fakeSleep(new([]time.Duration)),
		OnRetry:    func(attempt int, err error) { observed = append(observed, attempt) },
	})

	assert.Equal(t, []int{1, 2}, observed)
}

func TestWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}, RetryOptions{
		MaxRetries: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_CustomShouldRetry(t *testing.T) {
	attempts := 0
	_, _ = WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("do not retry this")
	}, RetryOptions{
		MaxRetries:  3,
		ShouldRetry: func(err error) bool { return false },
		Sleep:       fakeSleep(new([]time.Duration)),
	})

	assert.Equal(t, 1, attempts)
}

package biz

import (
	"context"
	"math"
	"time"

	"ContentGuard/internal/conf"
	cmserrors "ContentGuard/pkg/errors"
)

// RetryOptions configures one WithRetry call. Zero values fall back to the
// package defaults, so callers only set what they need.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times. Zero means the default;
	// a negative value disables retries.
	MaxRetries int
	// InitialDelay is the base backoff delay before the first retry.
	InitialDelay time.Duration
	// BackoffMultiplier scales the delay on each successive retry.
	BackoffMultiplier float64
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// ShouldRetry decides whether an error is worth retrying. Nil means
	// retry transient errors per the structured classification.
	ShouldRetry func(error) bool
	// OnRetry observes each retry decision. It cannot veto the retry.
	OnRetry func(attempt int, err error)
	// Sleep overrides the backoff sleep. Tests use this to avoid real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	defaultMaxRetries        = 3
	defaultInitialDelay      = time.Second
	defaultBackoffMultiplier = 2.0
	defaultMaxDelay          = 10 * time.Second
)

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetries
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaultInitialDelay
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = defaultBackoffMultiplier
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = cmserrors.Retryable
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// merge fills unset fields from base, so operator-tuned defaults apply
// wherever a call site does not override them. A negative MaxRetries still
// means no retries.
func (o RetryOptions) merge(base RetryOptions) RetryOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = base.MaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = base.InitialDelay
	}
	if o.BackoffMultiplier < 1 {
		o.BackoffMultiplier = base.BackoffMultiplier
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = base.MaxDelay
	}
	return o
}

// retryOptionsFromConf maps the bootstrap resilience.retry block onto
// RetryOptions. Missing or zero fields keep the package defaults.
func retryOptionsFromConf(c *conf.Resilience) RetryOptions {
	var opts RetryOptions
	if c == nil || c.Retry == nil {
		return opts
	}
	r := c.Retry
	if r.MaxRetries > 0 {
		opts.MaxRetries = int(r.MaxRetries)
	}
	if r.InitialDelay != nil && r.InitialDelay.AsDuration() > 0 {
		opts.InitialDelay = r.InitialDelay.AsDuration()
	}
	if r.BackoffMultiplier >= 1 {
		opts.BackoffMultiplier = r.BackoffMultiplier
	}
	if r.MaxDelay != nil && r.MaxDelay.AsDuration() > 0 {
		opts.MaxDelay = r.MaxDelay.AsDuration()
	}
	return opts
}

// backoffDelay computes the delay before retry number attempt (0-based).
func (o RetryOptions) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(attempt)))
	if d > o.MaxDelay || d <= 0 {
		d = o.MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithRetry runs operation with exponential backoff. On exhaustion or a
// non-retryable error it returns the last error unchanged so callers can
// still classify it. Context cancellation aborts the backoff sleep and
// returns ctx.Err().
func WithRetry[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= opts.MaxRetries || !opts.ShouldRetry(err) {
			return zero, lastErr
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, err)
		}
		if err := opts.Sleep(ctx, opts.backoffDelay(attempt)); err != nil {
			return zero, err
		}
	}
}

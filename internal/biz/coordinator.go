package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// Coordinator is the single choke point for CMS-facing calls. Every read and
// write goes through SafeOperation so retry, circuit breaking, fallback and
// error reporting apply uniformly.
type Coordinator struct {
	resilience *ResilienceContext
	logger     *log.Helper

	// sleep overrides the backoff sleep for every coordinated call.
	// Tests set it to skip real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates the operation coordinator.
func NewCoordinator(rc *ResilienceContext, logger log.Logger) *Coordinator {
	return &Coordinator{
		resilience: rc,
		logger:     log.NewHelper(logger),
	}
}

// Resilience exposes the breaker registry for admin tooling.
func (c *Coordinator) Resilience() *ResilienceContext { return c.resilience }

// SafeCall describes one coordinated operation.
type SafeCall[T any] struct {
	// Name is the logical operation name, usually a breaker registry name.
	Name string
	// Component identifies the calling subsystem for error reporting.
	Component string
	// Operation performs the underlying call.
	Operation func(ctx context.Context) (T, error)
	// Fallback supplies a substitute result when the operation cannot
	// complete. Nil means errors propagate to the caller.
	Fallback func() T
	// Breaker guards the call. Nil means retry-only.
	Breaker *CircuitBreaker
	// Retry tunes the backoff wrapper. Zero values use the defaults.
	Retry RetryOptions
}

// SafeOperation runs call.Operation retried and circuit-broken as
// configured. On exhaustion the error is reported to the error boundary,
// then the fallback value is returned if present, otherwise the original
// error is re-raised unchanged.
func SafeOperation[T any](ctx context.Context, co *Coordinator, call SafeCall[T]) (T, error) {
	retry := call.Retry.merge(co.resilience.retryDefaults)
	if retry.Sleep == nil {
		retry.Sleep = co.sleep
	}
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error) {
			co.logger.Warnw(
				"msg", "retrying operation",
				"type", "retry",
				"operation", call.Name,
				"component", call.Component,
				"attempt", attempt,
				"error", err.Error(),
			)
		}
	}

	wrapped := func(ctx context.Context) (T, error) {
		return WithRetry(ctx, call.Operation, retry)
	}

	var result T
	var err error
	if call.Breaker != nil {
		result, err = ExecuteWithBreaker(ctx, call.Breaker, wrapped, call.Fallback)
	} else {
		result, err = wrapped(ctx)
	}
	if err == nil {
		return result, nil
	}

	co.resilience.Boundary.HandleError(err, call.Component, call.Name)
	if call.Fallback != nil {
		co.logger.Warnw(
			"msg", "serving fallback content",
			"type", "fallback",
			"operation", call.Name,
			"component", call.Component,
		)
		return call.Fallback(), nil
	}
	var zero T
	return zero, err
}

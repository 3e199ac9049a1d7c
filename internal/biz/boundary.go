package biz

import (
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	// boundaryWindow is the rolling window for counting errors.
	boundaryWindow = 5 * time.Minute
	// boundaryThreshold is the error count that flips fallback mode on.
	boundaryThreshold = 10
)

// ErrorBoundary counts escaped errors process-wide and flips a fallback-mode
// flag after sustained failure. Callers consult IsFallbackMode to prefer
// cached or placeholder content over live CMS calls.
type ErrorBoundary struct {
	logger *log.Helper

	mu           sync.Mutex
	errorCount   int
	lastReset    time.Time
	fallbackMode bool

	now func() time.Time
}

// NewErrorBoundary creates a boundary with a zeroed counter.
func NewErrorBoundary(logger log.Logger) *ErrorBoundary {
	return &ErrorBoundary{
		logger:    log.NewHelper(logger),
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// HandleError records one escaped error with its origin. The counter resets
// itself when the rolling window has elapsed, so only sustained failure
// within the window triggers fallback mode.
func (eb *ErrorBoundary) HandleError(err error, component, operation string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	now := eb.now()
	if now.Sub(eb.lastReset) > boundaryWindow {
		eb.errorCount = 0
		eb.lastReset = now
	}
	eb.errorCount++

	eb.logger.Errorw(
		"msg", "operation error escaped to boundary",
		"type", "error_count",
		"component", component,
		"operation", operation,
		"error", err.Error(),
		"error_count", eb.errorCount,
		"window_start", eb.lastReset.Format(time.RFC3339),
	)

	if eb.errorCount >= boundaryThreshold && !eb.fallbackMode {
		eb.fallbackMode = true
		eb.logger.Warnw(
			"msg", "entering fallback mode after sustained failures",
			"type", "fallback",
			"error_count", eb.errorCount,
		)
	}
}

// IsFallbackMode reports whether the system should prefer fallback content.
func (eb *ErrorBoundary) IsFallbackMode() bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.fallbackMode
}

// ErrorCount returns the current windowed error count.
func (eb *ErrorBoundary) ErrorCount() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.errorCount
}

// ResetErrorCount clears the counter and leaves fallback mode. Invoked by
// recovery tooling once the underlying dependency is healthy again.
func (eb *ErrorBoundary) ResetErrorCount() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	wasFallback := eb.fallbackMode
	eb.errorCount = 0
	eb.lastReset = eb.now()
	eb.fallbackMode = false
	if wasFallback {
		eb.logger.Infow(
			"msg", "fallback mode cleared",
			"type", "fallback",
		)
	}
}

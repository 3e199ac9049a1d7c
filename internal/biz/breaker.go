package biz

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/conf"
	"ContentGuard/internal/model"
	cmserrors "ContentGuard/pkg/errors"
)

// BreakerConfig tunes one circuit breaker instance.
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

const (
	defaultFailureThreshold = 5
	defaultRecoveryTimeout  = 60 * time.Second
	defaultSuccessThreshold = 2
)

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = defaultRecoveryTimeout
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = defaultSuccessThreshold
	}
	return c
}

// breakerConfigFromConf converts the bootstrap defaults into a BreakerConfig.
func breakerConfigFromConf(c *conf.Resilience_Breaker) BreakerConfig {
	if c == nil {
		return BreakerConfig{}.withDefaults()
	}
	cfg := BreakerConfig{
		FailureThreshold: int(c.FailureThreshold),
		SuccessThreshold: int(c.SuccessThreshold),
	}
	if c.RecoveryTimeout != nil {
		cfg.RecoveryTimeout = c.RecoveryTimeout.AsDuration()
	}
	return cfg.withDefaults()
}

// CircuitBreaker is a mutex-guarded three-state breaker guarding one named
// external operation. Closed executes normally, Open rejects without
// executing, HalfOpen allows probe calls with a single-strike failure rule.
type CircuitBreaker struct {
	name   string
	cfg    BreakerConfig
	logger *log.Helper

	mu              sync.Mutex
	state           model.CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time

	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	avgResponseMs  float64
	lastResetTime  time.Time

	// now is swappable so tests can drive the recovery timeout.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker in the Closed state.
func NewCircuitBreaker(name string, cfg BreakerConfig, logger log.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:          name,
		cfg:           cfg.withDefaults(),
		logger:        log.NewHelper(logger),
		state:         model.CircuitClosed,
		lastResetTime: time.Now(),
		now:           time.Now,
	}
}

// Name returns the breaker's registry name.
func (b *CircuitBreaker) Name() string { return b.name }

// Allow reports whether a call may proceed, performing the Open->HalfOpen
// transition when the recovery timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case model.CircuitClosed, model.CircuitHalfOpen:
		return true
	case model.CircuitOpen:
		if b.now().Sub(b.lastFailureTime) > b.cfg.RecoveryTimeout {
			b.transitionTo(model.CircuitHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful call and its latency.
func (b *CircuitBreaker) RecordSuccess(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordMetrics(latency, true)
	b.lastSuccessTime = b.now()

	switch b.state {
	case model.CircuitClosed:
		b.failureCount = 0
	case model.CircuitHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.transitionTo(model.CircuitClosed)
		}
	}
}

// RecordFailure records a failed call and its latency. In HalfOpen a single
// failure reopens the circuit immediately.
func (b *CircuitBreaker) RecordFailure(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordMetrics(latency, false)
	b.lastFailureTime = b.now()

	switch b.state {
	case model.CircuitClosed:
		b.failureCount++
		b.successCount = 0
		if b.failureCount >= b.cfg.FailureThreshold {
			b.transitionTo(model.CircuitOpen)
		}
	case model.CircuitHalfOpen:
		b.transitionTo(model.CircuitOpen)
	}
}

// State returns the current state without side effects.
func (b *CircuitBreaker) State() model.CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to Closed with all counters zeroed.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(model.CircuitClosed)
	b.lastResetTime = b.now()
}

// ForceState overrides the state. Used by admin tooling only.
func (b *CircuitBreaker) ForceState(s model.CircuitBreakerState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(s)
}

// Snapshot returns a point-in-time view for diagnostics and the admin API.
func (b *CircuitBreaker) Snapshot() model.BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.BreakerSnapshot{
		Name:            b.name,
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
		LastSuccessTime: b.lastSuccessTime,
		Metrics: model.BreakerMetrics{
			TotalRequests:       b.totalRequests,
			TotalFailures:       b.totalFailures,
			TotalSuccesses:      b.totalSuccesses,
			AverageResponseTime: b.avgResponseMs,
			LastResetTime:       b.lastResetTime,
		},
	}
}

// transitionTo mutates state and counters. Callers hold b.mu.
func (b *CircuitBreaker) transitionTo(s model.CircuitBreakerState) {
	if b.state == s && s != model.CircuitClosed {
		return
	}
	from := b.state
	b.state = s
	switch s {
	case model.CircuitClosed:
		b.failureCount = 0
		b.successCount = 0
	case model.CircuitHalfOpen:
		b.successCount = 0
	}
	if from != s {
		b.logger.Warnw(
			"msg", "circuit breaker transition",
			"type", "breaker",
			"breaker", b.name,
			"from", string(from),
			"to", string(s),
			"failure_count", b.failureCount,
		)
	}
}

// recordMetrics updates cumulative call statistics. Callers hold b.mu.
// The running average only samples executed calls, so totalRequests cannot
// be its divisor once rejections are counted too.
func (b *CircuitBreaker) recordMetrics(latency time.Duration, success bool) {
	b.totalRequests++
	if success {
		b.totalSuccesses++
	} else {
		b.totalFailures++
	}
	ms := float64(latency.Milliseconds())
	n := float64(b.totalSuccesses + b.totalFailures)
	b.avgResponseMs = (b.avgResponseMs*(n-1) + ms) / n
}

// RecordRejection counts a call refused by the open circuit. Rejected calls
// never execute, so they carry no latency sample.
func (b *CircuitBreaker) RecordRejection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalRequests++
}

// ExecuteWithBreaker runs operation under the breaker. When the circuit is
// open the fallback result is returned if supplied, otherwise a circuit-open
// error. Every call counts toward totalRequests, rejected ones included;
// latency is recorded only for executed calls.
func ExecuteWithBreaker[T any](ctx context.Context, b *CircuitBreaker, operation func(ctx context.Context) (T, error), fallback func() T) (T, error) {
	if !b.Allow() {
		b.RecordRejection()
		if fallback != nil {
			return fallback(), nil
		}
		var zero T
		return zero, cmserrors.NewCircuitOpenError(b.name)
	}

	start := time.Now()
	result, err := operation(ctx)
	latency := time.Since(start)
	if err != nil {
		b.RecordFailure(latency)
		var zero T
		return zero, err
	}
	b.RecordSuccess(latency)
	return result, nil
}

// Breaker registry names. Other packages call these breakers through the
// ResilienceContext rather than importing globals.
const (
	BreakerFetchPosts       = "fetchPosts"
	BreakerFetchSinglePost  = "fetchSinglePost"
	BreakerFetchCategories  = "fetchCategories"
	BreakerFetchCourses     = "fetchCourses"
	BreakerCTARouting       = "ctaRouting"
	BreakerSanityConnection = "sanityConnection"
	BreakerAdminOperations  = "adminOperations"
)

// ResilienceContext holds the named breaker registry and the shared error
// boundary. It is constructed once and injected, replacing process-wide
// singletons so tests can run in parallel with isolated state.
type ResilienceContext struct {
	breakers map[string]*CircuitBreaker
	Boundary *ErrorBoundary

	// retryDefaults carries the operator-tuned resilience.retry block.
	// SafeOperation merges it under any per-call overrides.
	retryDefaults RetryOptions
}

// NewResilienceContext builds the fixed registry of named breakers from the
// bootstrap defaults. Admin-facing breakers tolerate fewer failures and
// recover faster than the read paths.
func NewResilienceContext(c *conf.Resilience, logger log.Logger) *ResilienceContext {
	base := breakerConfigFromConf(breakerConf(c))

	adminCfg := base
	adminCfg.FailureThreshold = 3
	adminCfg.RecoveryTimeout = 30 * time.Second

	connCfg := base
	connCfg.FailureThreshold = 10

	rc := &ResilienceContext{
		breakers:      make(map[string]*CircuitBreaker),
		Boundary:      NewErrorBoundary(logger),
		retryDefaults: retryOptionsFromConf(c),
	}
	for _, spec := range []struct {
		name string
		cfg  BreakerConfig
	}{
		{BreakerFetchPosts, base},
		{BreakerFetchSinglePost, base},
		{BreakerFetchCategories, base},
		{BreakerFetchCourses, base},
		{BreakerCTARouting, base},
		{BreakerSanityConnection, connCfg},
		{BreakerAdminOperations, adminCfg},
	} {
		rc.breakers[spec.name] = NewCircuitBreaker(spec.name, spec.cfg, logger)
	}
	return rc
}

func breakerConf(c *conf.Resilience) *conf.Resilience_Breaker {
	if c == nil {
		return nil
	}
	return c.Breaker
}

// Breaker returns the named breaker, or nil for unknown names.
func (rc *ResilienceContext) Breaker(name string) *CircuitBreaker {
	return rc.breakers[name]
}

// Snapshots returns a snapshot of every registered breaker, ordered by name.
func (rc *ResilienceContext) Snapshots() []model.BreakerSnapshot {
	names := []string{
		BreakerFetchPosts, BreakerFetchSinglePost, BreakerFetchCategories,
		BreakerFetchCourses, BreakerCTARouting, BreakerSanityConnection,
		BreakerAdminOperations,
	}
	snaps := make([]model.BreakerSnapshot, 0, len(names))
	for _, n := range names {
		if b, ok := rc.breakers[n]; ok {
			snaps = append(snaps, b.Snapshot())
		}
	}
	return snaps
}

// ResetAll forces every breaker back to Closed. Used by recovery tooling.
func (rc *ResilienceContext) ResetAll() {
	for _, b := range rc.breakers {
		b.Reset()
	}
}

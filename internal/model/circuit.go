// Package model contains domain models shared across layers.
package model

import "time"

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState string

const (
	// CircuitClosed means operations execute normally.
	CircuitClosed CircuitBreakerState = "CLOSED"
	// CircuitOpen means calls are rejected without executing the operation.
	CircuitOpen CircuitBreakerState = "OPEN"
	// CircuitHalfOpen means a trial call is allowed to probe recovery.
	CircuitHalfOpen CircuitBreakerState = "HALF_OPEN"
)

// BreakerMetrics holds cumulative per-breaker call statistics.
type BreakerMetrics struct {
	TotalRequests       int64     `json:"totalRequests"`
	TotalFailures       int64     `json:"totalFailures"`
	TotalSuccesses      int64     `json:"totalSuccesses"`
	AverageResponseTime float64   `json:"averageResponseTimeMs"`
	LastResetTime       time.Time `json:"lastResetTime"`
}

// BreakerSnapshot is a point-in-time view of one named breaker, exposed by
// the admin API and diagnostics.
type BreakerSnapshot struct {
	Name            string              `json:"name"`
	State           CircuitBreakerState `json:"state"`
	FailureCount    int                 `json:"failureCount"`
	SuccessCount    int                 `json:"successCount"`
	LastFailureTime time.Time           `json:"lastFailureTime,omitzero"`
	LastSuccessTime time.Time           `json:"lastSuccessTime,omitzero"`
	Metrics         BreakerMetrics      `json:"metrics"`
}

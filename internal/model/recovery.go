package model

import "time"

// OperationType identifies what a recovery operation does.
type OperationType string

const (
	OpRetryFailed  OperationType = "retry_failed"
	OpRetryQueued  OperationType = "retry_queued"
	OpBulkRetry    OperationType = "bulk_retry"
	OpQueueCleanup OperationType = "queue_cleanup"
	OpDiagnostic   OperationType = "diagnostic"
)

// OperationStatus is the lifecycle state of a recovery operation.
type OperationStatus string

const (
	OpPending   OperationStatus = "pending"
	OpRunning   OperationStatus = "running"
	OpCompleted OperationStatus = "completed"
	OpFailed    OperationStatus = "failed"
	OpCancelled OperationStatus = "cancelled"
)

// Terminal reports whether the status will never change again.
func (s OperationStatus) Terminal() bool {
	switch s {
	case OpCompleted, OpFailed, OpCancelled:
		return true
	}
	return false
}

// OperationProgress tracks batch execution counters. Processed counts every
// item attempted, so Processed == Successful + Failed at all times.
type OperationProgress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Percentage returns completion as 0-100. A zero-item operation is 100%.
func (p OperationProgress) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// RetryResult is the outcome of one item inside a recovery operation.
type RetryResult struct {
	Identifier string `json:"identifier"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// OperationMetadata carries who started an operation and why.
type OperationMetadata struct {
	InitiatedBy string            `json:"initiatedBy"`
	Reason      string            `json:"reason,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// RecoveryOperation is the full record of one admin-initiated recovery run.
type RecoveryOperation struct {
	ID        string            `json:"id"`
	Type      OperationType     `json:"type"`
	Status    OperationStatus   `json:"status"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime,omitzero"`
	Progress  OperationProgress `json:"progress"`
	Results   []RetryResult     `json:"results,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  OperationMetadata `json:"metadata"`
}

// ComponentHealth grades one subsystem in a diagnostic report.
type ComponentHealth string

const (
	HealthHealthy  ComponentHealth = "healthy"
	HealthDegraded ComponentHealth = "degraded"
	HealthCritical ComponentHealth = "critical"
)

// IssueSeverity ranks a diagnostic finding.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// DiagnosticIssue is a single finding produced by a diagnostic run.
type DiagnosticIssue struct {
	Severity     IssueSeverity `json:"severity"`
	Component    string        `json:"component"`
	Description  string        `json:"description"`
	SuggestedFix string        `json:"suggestedFix,omitempty"`
	AutoFixable  bool          `json:"autoFixable"`
}

// DiagnosticResult is a full system health report.
type DiagnosticResult struct {
	Timestamp       time.Time                  `json:"timestamp"`
	Overall         ComponentHealth            `json:"overall"`
	Components      map[string]ComponentHealth `json:"components"`
	Issues          []DiagnosticIssue          `json:"issues"`
	Breakers        []BreakerSnapshot          `json:"breakers"`
	QueueDepth      int                        `json:"queueDepth"`
	Recommendations []string                   `json:"recommendations,omitempty"`
}

// AutoFixReport records the outcome of one auto-fix pass.
type AutoFixReport struct {
	Attempted int      `json:"attempted"`
	Fixed     int      `json:"fixed"`
	Actions   []string `json:"actions,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
}

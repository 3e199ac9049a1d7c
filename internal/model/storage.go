package model

import "time"

// Audit actions recorded for deletion attempts.
const (
	AuditActionDeletionSuccess = "deletion_success"
	AuditActionDeletionFailed  = "deletion_failed"
	AuditActionDeletionQueued  = "deletion_queued"
)

// AuditLogEntry is one row of the deletion audit trail.
type AuditLogEntry struct {
	ID           int64
	Action       string
	DocumentID   string
	AdminID      string
	ErrorMessage string
	DurationMs   int64
	CreatedAt    time.Time
}

// AuditLogQuery filters the audit trail. Zero times mean unbounded.
type AuditLogQuery struct {
	Action    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// QueuedDeletion is one entry in the offline deletion queue.
type QueuedDeletion struct {
	DocumentID string    `json:"documentId"`
	QueuedAt   time.Time `json:"queuedAt"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	Failed     bool      `json:"failed"`
}

// QueueStats summarizes the offline deletion queue.
type QueueStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// DeletionHealth is the monitoring collaborator's view of deletion traffic.
type DeletionHealth struct {
	Overall             ComponentHealth `json:"overall"`
	ErrorRate           float64         `json:"errorRate"`
	AverageResponseTime float64         `json:"averageResponseTimeMs"`
}

package biz

import (
	"context"
	"time"

	"ContentGuard/internal/model"
)

// CMSRepo is the data-layer contract for the headless CMS. Implementations
// wrap the Sanity HTTP client plus the content cache.
type CMSRepo interface {
	FetchPosts(ctx context.Context) ([]model.PostPreview, error)
	FetchPost(ctx context.Context, slug string) (*model.Post, error)
	FetchCategories(ctx context.Context) ([]model.Category, error)
	FetchCourses(ctx context.Context) ([]model.Course, error)

	CreateDocument(ctx context.Context, docType string, fields map[string]any) (string, error)
	PatchDocument(ctx context.Context, id string, set map[string]any) error
	DeleteDocument(ctx context.Context, id string) error

	// Ping performs a cheap connectivity probe against the CMS API.
	Ping(ctx context.Context) error
}

// AuditLogRepo persists and queries the deletion audit trail.
type AuditLogRepo interface {
	LogDeletion(ctx context.Context, entry model.AuditLogEntry) error
	GetAuditLogs(ctx context.Context, q model.AuditLogQuery) ([]model.AuditLogEntry, error)
	// Healthy reports whether the audit store is reachable.
	Healthy(ctx context.Context) error
}

// OfflineQueueRepo stores deletions attempted while the CMS was unreachable.
type OfflineQueueRepo interface {
	Enqueue(ctx context.Context, d model.QueuedDeletion) error
	GetAllQueuedDeletions(ctx context.Context) ([]model.QueuedDeletion, error)
	MarkFailed(ctx context.Context, documentID string, lastError string) error
	Remove(ctx context.Context, documentID string) error
	GetQueueStats(ctx context.Context) (model.QueueStats, error)
	ClearFailedDeletions(ctx context.Context) (int, error)
	ClearAllDeletions(ctx context.Context) (int, error)
}

// MonitoringRepo tracks deletion outcomes and reports aggregate health.
type MonitoringRepo interface {
	RecordDeletion(ctx context.Context, success bool, duration time.Duration)
	GetDeletionHealthStatus(ctx context.Context) (model.DeletionHealth, error)
}

package service

import (
	"context"
	"fmt"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/biz"
	"ContentGuard/internal/model"
	pkglog "ContentGuard/pkg/log"
	"ContentGuard/pkg/metadata"
)

// RecoveryService exposes the admin recovery and diagnostics endpoints.
type RecoveryService struct {
	manager   *biz.RecoveryManager
	deletions *biz.DeletionUsecase
	logger    *log.Helper
}

// NewRecoveryService creates a new RecoveryService instance.
func NewRecoveryService(manager *biz.RecoveryManager, deletions *biz.DeletionUsecase, logger log.Logger) *RecoveryService {
	return &RecoveryService{
		manager:   manager,
		deletions: deletions,
		logger:    log.NewHelper(logger),
	}
}

// RetryFailedRequest selects failed deletions from the audit trail.
type RetryFailedRequest struct {
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	BatchSize int      `json:"batchSize,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// BulkRetryRequest names documents to retry explicitly.
type BulkRetryRequest struct {
	DocumentIDs []string `json:"documentIds"`
	BatchSize   int      `json:"batchSize,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RetryQueuedRequest replays the offline queue.
type RetryQueuedRequest struct {
	BatchSize int      `json:"batchSize,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// CleanupQueueRequest clears queue entries.
type CleanupQueueRequest struct {
	FailedOnly bool   `json:"failedOnly"`
	Reason     string `json:"reason,omitempty"`
}

// OperationReply acknowledges an accepted background operation.
type OperationReply struct {
	OperationID string `json:"operationId"`
	Status      string `json:"status"`
}

// CleanupReply reports a synchronous queue cleanup.
type CleanupReply struct {
	Removed int `json:"removed"`
}

// OperationsReply lists recovery operations.
type OperationsReply struct {
	Active  []model.RecoveryOperation `json:"active"`
	History []model.RecoveryOperation `json:"history"`
}

// DiagnosticsReply bundles a diagnostic run with an optional auto-fix pass.
type DiagnosticsReply struct {
	Diagnostics model.DiagnosticResult `json:"diagnostics"`
	AutoFix     *model.AutoFixReport   `json:"autoFix,omitempty"`
}

// HealthReply is the admin health overview.
type HealthReply struct {
	Breakers []model.BreakerSnapshot `json:"breakers"`
	Queue    model.QueueStats        `json:"queue"`
	Deletion model.DeletionHealth    `json:"deletion"`
}

// AuditLogsRequest filters the deletion audit trail.
type AuditLogsRequest struct {
	Action    string `json:"action,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// AuditLogsReply lists audit entries.
type AuditLogsReply struct {
	Entries []model.AuditLogEntry `json:"entries"`
}

// RetryFailedDeletions starts a background retry of deletions that failed
// within the requested date range.
func (s *RecoveryService) RetryFailedDeletions(ctx context.Context, req *RetryFailedRequest) (*OperationReply, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := validateMetadata(ctx, req.Reason, req.Tags); err != nil {
		return nil, err
	}
	opts := biz.RecoveryOptions{BatchSize: req.BatchSize, Tags: req.Tags}
	opID, err := s.manager.RetryFailedDeletions(ctx, start, end, opts, pkglog.GetAdminID(ctx), req.Reason)
	if err != nil {
		return nil, err
	}
	return &OperationReply{OperationID: opID, Status: string(model.OpRunning)}, nil
}

// RetryQueuedDeletions starts a background replay of the offline queue.
func (s *RecoveryService) RetryQueuedDeletions(ctx context.Context, req *RetryQueuedRequest) (*OperationReply, error) {
	if err := validateMetadata(ctx, req.Reason, req.Tags); err != nil {
		return nil, err
	}
	opts := biz.RecoveryOptions{BatchSize: req.BatchSize, Tags: req.Tags}
	opID, err := s.manager.RetryQueuedDeletions(ctx, opts, pkglog.GetAdminID(ctx), req.Reason)
	if err != nil {
		return nil, err
	}
	return &OperationReply{OperationID: opID, Status: string(model.OpRunning)}, nil
}

// BulkRetryDeletions starts a background retry of explicitly named documents.
func (s *RecoveryService) BulkRetryDeletions(ctx context.Context, req *BulkRetryRequest) (*OperationReply, error) {
	if err := validateMetadata(ctx, req.Reason, req.Tags); err != nil {
		return nil, err
	}
	opts := biz.RecoveryOptions{BatchSize: req.BatchSize, Tags: req.Tags}
	opID, err := s.manager.BulkRetryDeletions(ctx, req.DocumentIDs, opts, pkglog.GetAdminID(ctx), req.Reason)
	if err != nil {
		return nil, err
	}
	return &OperationReply{OperationID: opID, Status: string(model.OpRunning)}, nil
}

// CleanupOfflineQueue synchronously clears queue entries.
func (s *RecoveryService) CleanupOfflineQueue(ctx context.Context, req *CleanupQueueRequest) (*CleanupReply, error) {
	removed, err := s.manager.CleanupOfflineQueue(ctx, biz.RecoveryOptions{FailedOnly: req.FailedOnly}, pkglog.GetAdminID(ctx), req.Reason)
	if err != nil {
		return nil, err
	}
	return &CleanupReply{Removed: removed}, nil
}

// GetOperation returns one recovery operation by id.
func (s *RecoveryService) GetOperation(ctx context.Context, opID string) (*model.RecoveryOperation, error) {
	op, ok := s.manager.GetStatus(opID)
	if !ok {
		return nil, fmt.Errorf("recovery operation %s not found", opID)
	}
	return &op, nil
}

// CancelOperation requests cancellation of a running operation.
func (s *RecoveryService) CancelOperation(ctx context.Context, opID string) (*OperationReply, error) {
	if err := s.manager.Cancel(opID); err != nil {
		return nil, err
	}
	return &OperationReply{OperationID: opID, Status: string(model.OpCancelled)}, nil
}

// ListOperations returns active and historical recovery operations.
func (s *RecoveryService) ListOperations(ctx context.Context) (*OperationsReply, error) {
	return &OperationsReply{
		Active:  s.manager.ListActive(),
		History: s.manager.ListHistory(),
	}, nil
}

// RunDiagnostics runs the system health checks, optionally applying
// automatic fixes to issues that support them.
func (s *RecoveryService) RunDiagnostics(ctx context.Context, autoFix bool) (*DiagnosticsReply, error) {
	adminID := pkglog.GetAdminID(ctx)
	diag, err := s.manager.RunDiagnostics(ctx, adminID)
	if err != nil {
		return nil, err
	}
	reply := &DiagnosticsReply{Diagnostics: diag}
	if autoFix {
		report, err := s.manager.AutoFixIssues(ctx, diag, adminID)
		if err != nil {
			return nil, err
		}
		reply.AutoFix = &report
	}
	return reply, nil
}

// GetHealth returns the breaker, queue and deletion health overview.
func (s *RecoveryService) GetHealth(ctx context.Context) (*HealthReply, error) {
	reply := &HealthReply{
		Breakers: s.manager.Resilience().Snapshots(),
	}
	if stats, err := s.deletions.QueueStats(ctx); err == nil {
		reply.Queue = stats
	}
	if health, err := s.manager.DeletionHealth(ctx); err == nil {
		reply.Deletion = health
	}
	return reply, nil
}

// ResetBreakers forces every circuit breaker back to closed.
func (s *RecoveryService) ResetBreakers(ctx context.Context) (*OperationReply, error) {
	s.manager.Resilience().ResetAll()
	s.logger.Warnw("msg", "all circuit breakers reset by admin",
		"type", "breaker",
		"admin_id", pkglog.GetAdminID(ctx))
	return &OperationReply{Status: "breakers_reset"}, nil
}

// GetAuditLogs queries the deletion audit trail.
func (s *RecoveryService) GetAuditLogs(ctx context.Context, req *AuditLogsRequest) (*AuditLogsReply, error) {
	q := model.AuditLogQuery{Action: req.Action, Limit: req.Limit}
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate: %w", err)
		}
		q.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate: %w", err)
		}
		q.EndDate = t
	}
	entries, err := s.deletions.GetAuditLogs(ctx, q)
	if err != nil {
		return nil, err
	}
	return &AuditLogsReply{Entries: entries}, nil
}

// validateMetadata rejects oversized reasons and malformed tags before an
// operation is registered, so bad input never reaches the history store.
func validateMetadata(ctx context.Context, reason string, tags []string) error {
	meta := metadata.OperationMetadata{
		InitiatedBy: pkglog.GetAdminID(ctx),
		Reason:      reason,
		Tags:        tags,
	}
	if err := meta.Validate(); err != nil {
		return kerrors.BadRequest("INVALID_METADATA", err.Error())
	}
	return nil
}

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate precedes startDate")
	}
	return start, end, nil
}

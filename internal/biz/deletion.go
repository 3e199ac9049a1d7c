package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"ContentGuard/internal/model"
	cmserrors "ContentGuard/pkg/errors"
)

// DeletionUsecase performs document deletions against the CMS with audit
// logging and offline queueing. Failed deletions land in the audit trail and
// on the offline queue so recovery tooling can replay them later.
type DeletionUsecase struct {
	repo       CMSRepo
	audit      AuditLogRepo
	queue      OfflineQueueRepo
	monitoring MonitoringRepo
	co         *Coordinator
	logger     *log.Helper
}

// NewDeletionUsecase creates the deletion use case.
func NewDeletionUsecase(repo CMSRepo, audit AuditLogRepo, queue OfflineQueueRepo, monitoring MonitoringRepo, co *Coordinator, logger log.Logger) *DeletionUsecase {
	return &DeletionUsecase{
		repo:       repo,
		audit:      audit,
		queue:      queue,
		monitoring: monitoring,
		co:         co,
		logger:     log.NewHelper(logger),
	}
}

// DeleteDocument deletes one CMS document under the admin breaker. On
// failure the attempt is audited and, for availability failures, queued for
// offline replay. The caller still sees the error.
func (uc *DeletionUsecase) DeleteDocument(ctx context.Context, documentID, adminID string) error {
	start := time.Now()
	_, err := SafeOperation(ctx, uc.co, SafeCall[struct{}]{
		Name:      BreakerAdminOperations,
		Component: "deletion",
		Operation: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, uc.repo.DeleteDocument(ctx, documentID)
		},
		Breaker: uc.co.Resilience().Breaker(BreakerAdminOperations),
	})
	duration := time.Since(start)
	uc.monitoring.RecordDeletion(ctx, err == nil, duration)

	entry := model.AuditLogEntry{
		DocumentID: documentID,
		AdminID:    adminID,
		DurationMs: duration.Milliseconds(),
	}
	if err == nil {
		entry.Action = model.AuditActionDeletionSuccess
		uc.logAudit(ctx, entry)
		return nil
	}

	entry.Action = model.AuditActionDeletionFailed
	entry.ErrorMessage = err.Error()
	uc.logAudit(ctx, entry)

	if shouldQueueOffline(err) {
		qd := model.QueuedDeletion{
			DocumentID: documentID,
			QueuedAt:   time.Now(),
			Attempts:   1,
			LastError:  err.Error(),
		}
		if qErr := uc.queue.Enqueue(ctx, qd); qErr != nil {
			uc.logger.Errorw(
				"msg", "failed to queue offline deletion",
				"type", "queue",
				"document_id", documentID,
				"error", qErr.Error(),
			)
		} else {
			entry.Action = model.AuditActionDeletionQueued
			entry.ErrorMessage = ""
			uc.logAudit(ctx, entry)
		}
	}
	return err
}

// RetryDeletion replays one previously failed deletion. It is the unit of
// work the recovery batch driver fans out. Success removes the identifier
// from the offline queue.
func (uc *DeletionUsecase) RetryDeletion(ctx context.Context, documentID string) error {
	start := time.Now()
	err := uc.repo.DeleteDocument(ctx, documentID)
	duration := time.Since(start)
	uc.monitoring.RecordDeletion(ctx, err == nil, duration)

	entry := model.AuditLogEntry{
		DocumentID: documentID,
		AdminID:    "recovery",
		DurationMs: duration.Milliseconds(),
	}
	if err != nil && isNotFound(err) {
		// Already gone. Treat as recovered so the queue drains.
		err = nil
	}
	if err != nil {
		entry.Action = model.AuditActionDeletionFailed
		entry.ErrorMessage = err.Error()
		uc.logAudit(ctx, entry)
		if mErr := uc.queue.MarkFailed(ctx, documentID, err.Error()); mErr != nil {
			uc.logger.Warnw("msg", "failed to mark queued deletion", "type", "queue", "document_id", documentID, "error", mErr.Error())
		}
		return err
	}

	entry.Action = model.AuditActionDeletionSuccess
	uc.logAudit(ctx, entry)
	if rErr := uc.queue.Remove(ctx, documentID); rErr != nil {
		uc.logger.Warnw("msg", "failed to dequeue recovered deletion", "type", "queue", "document_id", documentID, "error", rErr.Error())
	}
	return nil
}

// GetAuditLogs exposes the deletion audit trail for admin review.
func (uc *DeletionUsecase) GetAuditLogs(ctx context.Context, q model.AuditLogQuery) ([]model.AuditLogEntry, error) {
	return uc.audit.GetAuditLogs(ctx, q)
}

// QueueStats reports the offline queue totals.
func (uc *DeletionUsecase) QueueStats(ctx context.Context) (model.QueueStats, error) {
	return uc.queue.GetQueueStats(ctx)
}

func (uc *DeletionUsecase) logAudit(ctx context.Context, entry model.AuditLogEntry) {
	if err := uc.audit.LogDeletion(ctx, entry); err != nil {
		uc.logger.Errorw(
			"msg", "audit write failed",
			"type", "audit",
			"action", entry.Action,
			"document_id", entry.DocumentID,
			"error", err.Error(),
		)
	}
}

// shouldQueueOffline reports whether a failed deletion is worth replaying
// later. Validation and auth failures will fail identically on replay.
func shouldQueueOffline(err error) bool {
	switch cmserrors.Kind(err) {
	case cmserrors.KindAuth, cmserrors.KindValidation, cmserrors.KindNotFound:
		return false
	}
	return true
}

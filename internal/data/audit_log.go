package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"ContentGuard/internal/model"
	dberrors "ContentGuard/pkg/errors"
)

// DeletionAuditLog is the GORM model for the deletion_audit_logs table.
type DeletionAuditLog struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	Action       string    `gorm:"column:action;type:varchar(50);not null;index"`
	DocumentID   string    `gorm:"column:document_id;type:varchar(128);not null;index"`
	AdminID      string    `gorm:"column:admin_id;type:varchar(64);not null;default:''"`
	ErrorMessage string    `gorm:"column:error_message;type:text"`
	DurationMs   int64     `gorm:"column:duration_ms;default:0;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (DeletionAuditLog) TableName() string {
	return "deletion_audit_logs"
}

// AuditLogRepoImpl implements biz.AuditLogRepo. Writes go through a buffered
// channel so a slow database never blocks a deletion call.
type AuditLogRepoImpl struct {
	db      *gorm.DB
	logChan chan *DeletionAuditLog
	done    chan struct{}
	logger  *log.Helper
}

// NewAuditLogRepo creates the audit repository with its async writer. The
// returned cleanup drains pending rows, so it must run before the database
// connection is closed.
func NewAuditLogRepo(db *gorm.DB, logger log.Logger) (*AuditLogRepoImpl, func()) {
	r := &AuditLogRepoImpl{
		db:      db,
		logChan: make(chan *DeletionAuditLog, 1000),
		done:    make(chan struct{}),
		logger:  log.NewHelper(logger),
	}

	go r.start()

	return r, r.Close
}

// Close stops accepting writes, drains pending rows and waits for the
// writer goroutine to exit.
func (r *AuditLogRepoImpl) Close() {
	close(r.logChan)
	<-r.done
}

// start drains the write channel.
func (r *AuditLogRepoImpl) start() {
	defer close(r.done)
	for row := range r.logChan {
		ctx := context.Background()
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			classified := dberrors.ClassifyDBError(err)
			r.logger.Errorw("msg", "failed to write audit log",
				"type", "audit",
				"action", row.Action,
				"document_id", row.DocumentID,
				"db_error", classified.Message,
				"error", err.Error())
		} else {
			r.logger.Debugw("msg", "audit log written",
				"type", "audit",
				"action", row.Action,
				"document_id", row.DocumentID)
		}
	}
}

// LogDeletion queues one audit row for async persistence. The row is dropped
// with a warning when the channel is full.
func (r *AuditLogRepoImpl) LogDeletion(ctx context.Context, entry model.AuditLogEntry) error {
	row := &DeletionAuditLog{
		Action:       entry.Action,
		DocumentID:   entry.DocumentID,
		AdminID:      entry.AdminID,
		ErrorMessage: entry.ErrorMessage,
		DurationMs:   entry.DurationMs,
	}

	select {
	case r.logChan <- row:
		return nil
	default:
		r.logger.Warnw("msg", "audit log channel full, dropping entry",
			"type", "audit",
			"action", entry.Action,
			"document_id", entry.DocumentID)
		return nil
	}
}

// GetAuditLogs queries the audit trail with the given filters, newest first.
func (r *AuditLogRepoImpl) GetAuditLogs(ctx context.Context, q model.AuditLogQuery) ([]model.AuditLogEntry, error) {
	db := r.db.WithContext(ctx).Model(&DeletionAuditLog{})
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if !q.StartDate.IsZero() {
		db = db.Where("created_at >= ?", q.StartDate)
	}
	if !q.EndDate.IsZero() {
		db = db.Where("created_at <= ?", q.EndDate)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	var rows []DeletionAuditLog
	if err := db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]model.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.AuditLogEntry{
			ID:           row.ID,
			Action:       row.Action,
			DocumentID:   row.DocumentID,
			AdminID:      row.AdminID,
			ErrorMessage: row.ErrorMessage,
			DurationMs:   row.DurationMs,
			CreatedAt:    row.CreatedAt,
		})
	}
	return entries, nil
}

// Healthy reports whether the audit store is reachable.
func (r *AuditLogRepoImpl) Healthy(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

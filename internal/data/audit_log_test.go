package data

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ContentGuard/internal/model"
)

func setupAuditTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB.Close()
	}

	return gormDB, mock, cleanup
}

func TestAuditLog_LogDeletionWritesAsync(t *testing.T) {
	gormDB, mock, cleanup := setupAuditTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `deletion_audit_logs`")).
		WithArgs(model.AuditActionDeletionSuccess, "doc-1", "admin-7", "", int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repo, closeRepo := NewAuditLogRepo(gormDB, log.DefaultLogger)

	err := repo.LogDeletion(context.Background(), model.AuditLogEntry{
		Action:     model.AuditActionDeletionSuccess,
		DocumentID: "doc-1",
		AdminID:    "admin-7",
		DurationMs: 42,
	})
	require.NoError(t, err)

	// The cleanup drains the channel, so the INSERT has happened by now.
	closeRepo()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_WriteFailureDoesNotSurface(t *testing.T) {
	gormDB, mock, cleanup := setupAuditTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `deletion_audit_logs`")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	repo, closeRepo := NewAuditLogRepo(gormDB, log.DefaultLogger)

	err := repo.LogDeletion(context.Background(), model.AuditLogEntry{
		Action:     model.AuditActionDeletionFailed,
		DocumentID: "doc-2",
	})
	require.NoError(t, err)

	closeRepo()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_GetAuditLogs(t *testing.T) {
	gormDB, mock, cleanup := setupAuditTestDB(t)
	defer cleanup()

	repo, closeRepo := NewAuditLogRepo(gormDB, log.DefaultLogger)
	defer closeRepo()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "action", "document_id", "admin_id", "error_message", "duration_ms", "created_at"}).
		AddRow(2, model.AuditActionDeletionFailed, "doc-9", "admin-1", "503 from CMS", 1200, now).
		AddRow(1, model.AuditActionDeletionFailed, "doc-8", "admin-1", "timeout", 900, now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `deletion_audit_logs` WHERE action = ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs(model.AuditActionDeletionFailed, 50).
		WillReturnRows(rows)

	entries, err := repo.GetAuditLogs(context.Background(), model.AuditLogQuery{
		Action: model.AuditActionDeletionFailed,
		Limit:  50,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "doc-9", entries[0].DocumentID)
	assert.Equal(t, "503 from CMS", entries[0].ErrorMessage)
	assert.Equal(t, int64(900), entries[1].DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_GetAuditLogsDateRange(t *testing.T) {
	gormDB, mock, cleanup := setupAuditTestDB(t)
	defer cleanup()

	repo, closeRepo := NewAuditLogRepo(gormDB, log.DefaultLogger)
	defer closeRepo()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `deletion_audit_logs` WHERE created_at >= ? AND created_at <= ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs(start, end, 1000).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "document_id", "admin_id", "error_message", "duration_ms", "created_at"}))

	entries, err := repo.GetAuditLogs(context.Background(), model.AuditLogQuery{
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_Healthy(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	repo, closeRepo := NewAuditLogRepo(gormDB, log.DefaultLogger)
	defer closeRepo()

	mock.ExpectPing()
	assert.NoError(t, repo.Healthy(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

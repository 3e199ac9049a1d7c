package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DatabaseErrorType represents the type of database error.
type DatabaseErrorType int

const (
	// DBErrorUnknown represents an unknown database error.
	DBErrorUnknown DatabaseErrorType = iota
	// DBErrorDuplicateKey represents a duplicate key constraint violation (MySQL 1062).
	DBErrorDuplicateKey
	// DBErrorInvalidJSON represents an invalid JSON column value (MySQL 3140-3143).
	DBErrorInvalidJSON
	// DBErrorDataTooLong represents a data too long error (MySQL 1406).
	DBErrorDataTooLong
	// DBErrorNotFound represents a record not found error.
	DBErrorNotFound
	// DBErrorDeadlock represents a deadlock error (MySQL 1213).
	DBErrorDeadlock
	// DBErrorConnection represents a database connection error.
	DBErrorConnection
	// DBErrorInvalidValue represents an invalid or truncated value.
	DBErrorInvalidValue
)

// DatabaseError wraps a database error with classification information.
type DatabaseError struct {
	Type         DatabaseErrorType
	OriginalErr  error
	MySQLErrCode uint16
	Message      string
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.MySQLErrCode > 0 {
		return fmt.Sprintf("%s (MySQL error %d): %v", e.Message, e.MySQLErrCode, e.OriginalErr)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyDBError classifies a database error into a specific error type.
// The audit log repository uses it to decide whether a failed write is worth
// requeueing (deadlocks, connection errors) or is a data problem that will
// never succeed (invalid JSON details, oversized columns).
func ClassifyDBError(err error) *DatabaseError {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DatabaseError{
			Type:        DBErrorNotFound,
			OriginalErr: err,
			Message:     "record not found",
		}
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQLError(mysqlErr)
	}

	if isConnectionError(err.Error()) {
		return &DatabaseError{
			Type:        DBErrorConnection,
			OriginalErr: err,
			Message:     "database connection error",
		}
	}

	return &DatabaseError{
		Type:        DBErrorUnknown,
		OriginalErr: err,
		Message:     "unknown database error",
	}
}

// classifyMySQLError classifies a MySQL-specific error by error number.
func classifyMySQLError(err *mysql.MySQLError) *DatabaseError {
	switch err.Number {
	case 1062: // ER_DUP_ENTRY
		return &DatabaseError{
			Type:         DBErrorDuplicateKey,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "duplicate key constraint violation",
		}
	case 3140, 3141, 3142, 3143: // invalid JSON text/path/size/type
		return &DatabaseError{
			Type:         DBErrorInvalidJSON,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "invalid JSON data",
		}
	case 1406: // ER_DATA_TOO_LONG
		return &DatabaseError{
			Type:         DBErrorDataTooLong,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "data too long for column",
		}
	case 1213: // ER_LOCK_DEADLOCK
		return &DatabaseError{
			Type:         DBErrorDeadlock,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "deadlock detected",
		}
	case 1048, 1265, 1366: // null/truncated/wrong value
		return &DatabaseError{
			Type:         DBErrorInvalidValue,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "invalid or truncated value",
		}
	default:
		return &DatabaseError{
			Type:         DBErrorUnknown,
			OriginalErr:  err,
			MySQLErrCode: err.Number,
			Message:      "MySQL error",
		}
	}
}

// isConnectionError detects connection-level failures by common driver messages.
func isConnectionError(msg string) bool {
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"invalid connection",
		"bad connection",
		"i/o timeout",
		"no such host",
	}
	lower := strings.ToLower(msg)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

package errors

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyDBError_GORMRecordNotFound(t *testing.T) {
	dbErr := ClassifyDBError(gorm.ErrRecordNotFound)

	assert.NotNil(t, dbErr)
	assert.Equal(t, DBErrorNotFound, dbErr.Type)
	assert.True(t, errors.Is(dbErr.OriginalErr, gorm.ErrRecordNotFound))
}

func TestClassifyDBError_MySQLDuplicateKey(t *testing.T) {
	mysqlErr := &mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'post-abc123' for key 'document_id'",
	}

	dbErr := ClassifyDBError(mysqlErr)

	assert.Equal(t, DBErrorDuplicateKey, dbErr.Type)
	assert.Equal(t, uint16(1062), dbErr.MySQLErrCode)
	assert.Contains(t, dbErr.Error(), "MySQL error 1062")
}

func TestClassifyDBError_MySQLCodes(t *testing.T) {
	tests := []struct {
		name     string
		errCode  uint16
		expected DatabaseErrorType
	}{
		{name: "invalid JSON text (3140)", errCode: 3140, expected: DBErrorInvalidJSON},
		{name: "invalid JSON path (3141)", errCode: 3141, expected: DBErrorInvalidJSON},
		{name: "data too long (1406)", errCode: 1406, expected: DBErrorDataTooLong},
		{name: "deadlock (1213)", errCode: 1213, expected: DBErrorDeadlock},
		{name: "bad null (1048)", errCode: 1048, expected: DBErrorInvalidValue},
		{name: "truncated value (1366)", errCode: 1366, expected: DBErrorInvalidValue},
		{name: "unmapped code (9999)", errCode: 9999, expected: DBErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbErr := ClassifyDBError(&mysql.MySQLError{Number: tt.errCode, Message: "boom"})
			assert.Equal(t, tt.expected, dbErr.Type)
		})
	}
}

func TestClassifyDBError_ConnectionError(t *testing.T) {
	dbErr := ClassifyDBError(errors.New("dial tcp 127.0.0.1:3306: connection refused"))
	assert.Equal(t, DBErrorConnection, dbErr.Type)
}

func TestClassifyDBError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyDBError(nil))
}

func TestClassifyDBError_Unknown(t *testing.T) {
	dbErr := ClassifyDBError(errors.New("some gorm problem"))
	assert.Equal(t, DBErrorUnknown, dbErr.Type)
	assert.NotEmpty(t, dbErr.Error())
}

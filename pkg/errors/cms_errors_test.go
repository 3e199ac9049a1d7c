package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCMSError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		expected  CMSErrorKind
		retryable bool
	}{
		{name: "500 is server", status: 500, expected: KindServer, retryable: true},
		{name: "503 is server", status: 503, expected: KindServer, retryable: true},
		{name: "429 is rate limit", status: 429, expected: KindRateLimit, retryable: true},
		{name: "401 is auth", status: 401, expected: KindAuth, retryable: false},
		{name: "403 is auth", status: 403, expected: KindAuth, retryable: false},
		{name: "404 is not found", status: 404, expected: KindNotFound, retryable: false},
		{name: "400 is validation", status: 400, expected: KindValidation, retryable: false},
		{name: "422 is validation", status: 422, expected: KindValidation, retryable: false},
		{name: "418 is unknown", status: 418, expected: KindUnknown, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCMSError("fetchPosts", tt.status, fmt.Errorf("upstream returned %d", tt.status))
			assert.Equal(t, tt.expected, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, Retryable(err))
		})
	}
}

func TestNewCMSNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewCMSNetworkError("deleteDocument", cause)

	assert.Equal(t, KindNetwork, err.Kind)
	assert.Zero(t, err.StatusCode)
	assert.True(t, Retryable(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "deleteDocument")
}

func TestRetryable_WrappedError(t *testing.T) {
	inner := NewCMSError("fetchSinglePost", 404, errors.New("document missing"))
	wrapped := fmt.Errorf("loading post: %w", inner)

	assert.False(t, Retryable(wrapped))
	assert.Equal(t, KindNotFound, Kind(wrapped))
}

func TestRetryable_UnclassifiedDefaultsToRetry(t *testing.T) {
	assert.True(t, Retryable(errors.New("something odd")))
	assert.False(t, Retryable(nil))
}

func TestCircuitOpenKindIsNotRetryable(t *testing.T) {
	err := &CMSError{Kind: KindCircuitOpen, Operation: "fetchPosts", OriginalErr: errors.New("circuit open")}
	assert.False(t, Retryable(err))
	assert.Equal(t, "circuit_open", err.Kind.String())
}

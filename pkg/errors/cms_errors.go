// Package errors provides error classification utilities for ContentGuard.
// It classifies CMS (Sanity) API errors and database errors into structured
// kinds so that retry policy decisions never depend on message substrings.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// CMSErrorKind represents the classified kind of a CMS API error.
type CMSErrorKind int

const (
	// KindUnknown represents an unclassified CMS error.
	KindUnknown CMSErrorKind = iota
	// KindNetwork represents a transport-level failure (DNS, timeout, reset).
	KindNetwork
	// KindServer represents an upstream 5xx response.
	KindServer
	// KindRateLimit represents an upstream 429 response.
	KindRateLimit
	// KindAuth represents a 401/403 response.
	KindAuth
	// KindValidation represents a 400/422 response (malformed query or document).
	KindValidation
	// KindNotFound represents a 404 response (document or dataset missing).
	KindNotFound
	// KindCircuitOpen represents a call rejected locally by an open circuit breaker.
	KindCircuitOpen
)

// String returns a human-readable kind name.
func (k CMSErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// CMSError wraps a CMS API error with classification information.
type CMSError struct {
	Kind        CMSErrorKind
	StatusCode  int    // HTTP status code, 0 for transport errors
	Operation   string // logical operation name (e.g. "fetchPosts", "deleteDocument")
	OriginalErr error
	Message     string
}

// Error implements the error interface.
func (e *CMSError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("cms %s failed (%s, status %d): %v", e.Operation, e.Kind, e.StatusCode, e.OriginalErr)
	}
	return fmt.Sprintf("cms %s failed (%s): %v", e.Operation, e.Kind, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *CMSError) Unwrap() error {
	return e.OriginalErr
}

// NewCMSError builds a classified CMSError from an HTTP status code.
func NewCMSError(operation string, statusCode int, err error) *CMSError {
	return &CMSError{
		Kind:        classifyStatusCode(statusCode),
		StatusCode:  statusCode,
		Operation:   operation,
		OriginalErr: err,
		Message:     fmt.Sprintf("status %d", statusCode),
	}
}

// NewCMSNetworkError builds a CMSError for a transport-level failure
// (no HTTP response received).
func NewCMSNetworkError(operation string, err error) *CMSError {
	return &CMSError{
		Kind:        KindNetwork,
		Operation:   operation,
		OriginalErr: err,
		Message:     "network error",
	}
}

// NewCircuitOpenError builds the synthetic error returned when a breaker
// rejects a call without executing it.
func NewCircuitOpenError(operation string) *CMSError {
	return &CMSError{
		Kind:        KindCircuitOpen,
		Operation:   operation,
		OriginalErr: errors.New("circuit breaker is open"),
		Message:     "circuit open",
	}
}

// IsCircuitOpen reports whether the error chain contains a circuit-open
// rejection.
func IsCircuitOpen(err error) bool {
	return Kind(err) == KindCircuitOpen
}

// classifyStatusCode maps an HTTP status code to a CMSErrorKind.
func classifyStatusCode(status int) CMSErrorKind {
	switch {
	case status == 429:
		return KindRateLimit
	case status >= 500:
		return KindServer
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status == 400 || status == 422:
		return KindValidation
	default:
		return KindUnknown
	}
}

// Retryable reports whether the error is transient and worth retrying.
// Network errors, 5xx and 429 are retryable; auth, validation and not-found
// errors are surfaced immediately. Unclassified errors are treated as
// retryable so that conservative callers keep the legacy retry-everything
// behavior for errors this package has never seen.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var cmsErr *CMSError
	if errors.As(err, &cmsErr) {
		switch cmsErr.Kind {
		case KindNetwork, KindServer, KindRateLimit:
			return true
		case KindAuth, KindValidation, KindNotFound, KindCircuitOpen:
			return false
		default:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return true
}

// Kind extracts the CMSErrorKind from an error chain, or KindUnknown.
func Kind(err error) CMSErrorKind {
	var cmsErr *CMSError
	if errors.As(err, &cmsErr) {
		return cmsErr.Kind
	}
	return KindUnknown
}

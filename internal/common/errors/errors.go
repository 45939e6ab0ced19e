// Package errors provides the standardized error type shared by the HTTP layer,
// the submission store and the notification channels.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody  ErrorCode = "INVALID_REQUEST_BODY"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrCodeSubmissionNotFound  ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrCodeRateLimiterFailed   ErrorCode = "RATE_LIMITER_FAILED"
	ErrCodeEncryptionFailed    ErrorCode = "ENCRYPTION_FAILED"
	ErrCodeSearchIndexFailed   ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeNotificationDropped ErrorCode = "NOTIFICATION_DROPPED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDatabaseUpdateFailed     ErrorCode = "DATABASE_UPDATE_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"

	ErrCodeEmailSendFailed ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeCRMSyncFailed   ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeSMSSendFailed   ErrorCode = "SMS_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func NewInvalidRequestBodyError(err error) *StandardError {
	return newError(ErrCodeInvalidRequestBody, "Request body must be a JSON object", err, false)
}

// NewRateLimitedError carries the retry hint in seconds.
func NewRateLimitedError(retryAfter time.Duration) *StandardError {
	seconds := int((retryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return newError(ErrCodeRateLimited, "Rate limit exceeded. Please try again later.", nil, true).
		WithMetadata("retry_after", seconds)
}

func NewSubmissionNotFoundError(id string) *StandardError {
	return newError(ErrCodeSubmissionNotFound, "Submission not found", nil, false).
		WithMetadata("submission_id", id)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternalError, "Unexpected error", err, false)
}

func NewRateLimiterFailedError(err error) *StandardError {
	return newError(ErrCodeRateLimiterFailed, "Rate limiter backend failed", err, true)
}

func NewEncryptionFailedError(err error) *StandardError {
	return newError(ErrCodeEncryptionFailed, "Field encryption failed", err, false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", err, true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Failed to store submission", err, true)
}

func NewDatabaseUpdateFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseUpdateFailed, "Failed to update submission", err, true)
}

func NewDatabaseQueryFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed", err, true)
}

// NewEmailSendFailedError marks whether another attempt may succeed.
func NewEmailSendFailedError(err error, retryable bool) *StandardError {
	return newError(ErrCodeEmailSendFailed, "Email delivery failed", err, retryable)
}

func NewCRMSyncFailedError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeCRMSyncFailed, fmt.Sprintf("CRM %s failed", operation), err, retryable).
		WithMetadata("operation", operation)
}

func NewSMSSendFailedError(err error) *StandardError {
	return newError(ErrCodeSMSSendFailed, "SMS alert failed", err, true)
}

func NewSearchIndexFailedError(err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search indexing failed", err, true)
}

func NewNotificationDroppedError(submissionID string) *StandardError {
	return newError(ErrCodeNotificationDropped, "Notification queue is full", nil, false).
		WithMetadata("submission_id", submissionID)
}

// ==========================
// 3. Utility Functions
// ==========================

// HTTPStatus maps an error code to the response status used by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidRequestBody:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeSubmissionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether err is a StandardError that allows another attempt.
// Errors that are not StandardErrors are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}

// IsRetryableHTTPStatus reports whether an upstream HTTP status is worth retrying.
func IsRetryableHTTPStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// AsStandard extracts a StandardError from the chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "EMAIL"), strings.Contains(codeStr, "SMS"), strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "RATE"):
		return "RATE_LIMIT"
	case strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

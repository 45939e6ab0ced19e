// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"
)

// ErrorHandler turns any error raised while serving a request into a JSON response.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// FieldErrorer is implemented by errors that carry a per-field message map.
type FieldErrorer interface {
	error
	FieldErrors() map[string]string
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Code        ErrorCode         `json:"code"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	RetryAfter  int               `json:"retry_after,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle writes err to w using the status implied by its code.
func (h *ErrorHandler) Handle(w http.ResponseWriter, requestID string, err error) {
	var fieldErr FieldErrorer
	if stderrors.As(err, &fieldErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:       "Validation failed",
			Code:        ErrCodeValidationFailed,
			FieldErrors: fieldErr.FieldErrors(),
			RequestID:   requestID,
		})
		return
	}

	stdErr := h.normalizeError(err)
	status := HTTPStatus(stdErr.Code)
	resp := ErrorResponse{
		Error:     stdErr.Message,
		Code:      stdErr.Code,
		RequestID: requestID,
	}

	if stdErr.Code == ErrCodeRateLimited {
		if seconds, ok := stdErr.Metadata["retry_after"].(int); ok {
			resp.RetryAfter = seconds
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	h.logError(requestID, status, stdErr)
	WriteJSON(w, status, resp)
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Internal server error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(requestID string, status int, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"requestId":     requestID,
		"status":        status,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields)
		return
	}
	h.logger.Warn("Request rejected", fields)
}

// Respond writes v like WriteJSON and logs when v could not be encoded.
func (h *ErrorHandler) Respond(w http.ResponseWriter, requestID string, status int, v interface{}) {
	if err := WriteJSON(w, status, v); err != nil && h.logger != nil {
		h.logger.Error("Response encoding failed", map[string]interface{}{
			"requestId": requestID,
			"status":    status,
			"error":     err.Error(),
		})
	}
}

var encodeFailureBody = []byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}` + "\n")

// WriteJSON encodes v with the given status. The body is marshalled before the
// header is written, so a value that cannot be encoded becomes a 500 and the
// marshal error is returned.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailureBody)
		return err
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}

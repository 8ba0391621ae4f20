// Package errors provides standardized error handling for the scorecard service.
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
	ErrCodeCaptureFailed      ErrorCode = "CAPTURE_FAILED"
	ErrCodeInvalidCapture     ErrorCode = "INVALID_CAPTURE"
	ErrCodeCaptureTooLarge    ErrorCode = "CAPTURE_TOO_LARGE"
	ErrCodeAnalysisFailed     ErrorCode = "ANALYSIS_FAILED"
	ErrCodeAnalysisTimeout    ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeResultDecodeFailed ErrorCode = "RESULT_DECODE_FAILED"

	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionBusy       ErrorCode = "SESSION_BUSY"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrCodeLeadValidationFailed ErrorCode = "LEAD_VALIDATION_FAILED"
	ErrCodeSubmissionFailed     ErrorCode = "SUBMISSION_FAILED"
	ErrCodeNotificationFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// User facing messages shown on the error screen.
const (
	MsgCameraUnavailable = "Unable to access camera. Please check permissions."
	MsgAnalysisFailed    = "Failed to analyze the menu. Please check the image quality and try again."
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after attaching a metadata key.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCaptureFailedError reports that the camera could not be acquired.
func NewCaptureFailedError(err error) *StandardError {
	return newError(ErrCodeCaptureFailed, MsgCameraUnavailable, err, false)
}

// NewInvalidCaptureError reports an unusable upload or camera frame.
func NewInvalidCaptureError(details string) *StandardError {
	e := newError(ErrCodeInvalidCapture, "Unsupported or empty menu file", nil, false)
	e.Details = details
	return e
}

func NewCaptureTooLargeError(limit int64) *StandardError {
	e := newError(ErrCodeCaptureTooLarge, "Menu file is too large", nil, false)
	e.Details = fmt.Sprintf("limit: %d bytes", limit)
	return e
}

// NewAnalysisFailedError wraps any failure of the model call. The message is
// the one shown to the end user; the cause stays in Details for operators.
func NewAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisFailed, MsgAnalysisFailed, err, true)
}

func NewAnalysisTimeoutError(err error) *StandardError {
	return newError(ErrCodeAnalysisTimeout, MsgAnalysisFailed, err, true)
}

func NewResultDecodeFailedError(err error) *StandardError {
	return newError(ErrCodeResultDecodeFailed, MsgAnalysisFailed, err, true)
}

func NewSessionNotFoundError(id string) *StandardError {
	e := newError(ErrCodeSessionNotFound, "Session not found", nil, false)
	e.Details = fmt.Sprintf("sessionId: %s", id)
	return e
}

func NewSessionBusyError(state string) *StandardError {
	e := newError(ErrCodeSessionBusy, "Session is busy", nil, true)
	e.Details = fmt.Sprintf("state: %s", state)
	return e
}

func NewInvalidTransitionError(action, state string) *StandardError {
	e := newError(ErrCodeInvalidTransition, "Action not allowed in current state", nil, false)
	e.Details = fmt.Sprintf("action: %s, state: %s", action, state)
	return e
}

func NewLeadValidationFailedError(details string) *StandardError {
	e := newError(ErrCodeLeadValidationFailed, "Lead form validation failed", nil, false)
	e.Details = details
	return e
}

func NewSubmissionFailedError(sink string, err error) *StandardError {
	e := newError(ErrCodeSubmissionFailed, "Lead submission failed", err, true)
	e.Details = fmt.Sprintf("sink: %s, error: %v", sink, err)
	return e
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := newError(ErrCodeNotificationFailed, "Notification delivery failed", err, true)
	e.Details = fmt.Sprintf("type: %s, error: %v", notificationType, err)
	return e
}

func NewRateLimitedError(retryAfter time.Duration) *StandardError {
	e := newError(ErrCodeRateLimited, "Too many requests", nil, true)
	e.Details = fmt.Sprintf("retryAfter: %s", retryAfter)
	return e.WithMetadata("retryAfterSeconds", int(retryAfter.Seconds()+0.5))
}

func NewInvalidInputError(details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Invalid request", nil, false)
	e.Details = details
	return e
}

func NewExternalServiceError(service string, err error) *StandardError {
	e := newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err, true)
	return e
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// HTTPStatus maps an error code to the response status the API uses.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidCapture, ErrCodeInvalidInput, ErrCodeLeadValidationFailed:
		return http.StatusBadRequest
	case ErrCodeCaptureTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeSessionBusy, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeCaptureFailed:
		return http.StatusForbidden
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAnalysisFailed, ErrCodeResultDecodeFailed, ErrCodeSubmissionFailed:
		return http.StatusBadGateway
	case ErrCodeAnalysisTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is worth retrying by the caller.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeAnalysisFailed, ErrCodeAnalysisTimeout, ErrCodeResultDecodeFailed,
		ErrCodeSubmissionFailed, ErrCodeNotificationFailed, ErrCodeRateLimited, ErrCodeSessionBusy:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CAPTURE"):
		return "CAPTURE"
	case strings.Contains(codeStr, "ANALYSIS") || strings.Contains(codeStr, "DECODE"):
		return "AI"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "TRANSITION"):
		return "SESSION"
	case strings.Contains(codeStr, "LEAD") || strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "NOTIFICATION"):
		return "LEADS"
	case strings.Contains(codeStr, "RATE"):
		return "THROTTLING"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and repositories MUST use these constants
// instead of hardcoded strings; the prefix determines the HTTP status.
const (
	// Validation (422): the reading never reaches the engine.
	ErrCodeValidationInvalidJSON  ErrorCode = "validation_invalid_json"
	ErrCodeValidationFailed       ErrorCode = "validation_failed"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationOutOfRange   ErrorCode = "validation_out_of_range"

	// Not Found (404)
	ErrCodeNotFoundReading ErrorCode = "not_found_reading"
	ErrCodeNotFoundState   ErrorCode = "not_found_state"

	// Conflict (409)
	ErrCodeConflictConcurrent ErrorCode = "conflict_concurrent_modification"

	// State store (503): transient unavailability is never treated as
	// "no prior state" -- that would silently reset hysteresis.
	ErrCodeStateStoreUnavailable ErrorCode = "state_store_unavailable"
	ErrCodeStateStoreWrite       ErrorCode = "state_store_write_failed"

	// Upstream (502)
	ErrCodeUpstreamClassifier ErrorCode = "upstream_classifier_unavailable"

	// Internal (500)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
//
// Note: validation errors map to 422 Unprocessable Entity, not 400 -- the
// body is syntactically valid JSON but semantically unusable as a reading.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusUnprocessableEntity // 422
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "state_store_"):
		return http.StatusServiceUnavailable // 503
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the
// platform. All domain and handler errors should be expressed as AppError to
// enable consistent error formatting, HTTP status mapping, and error chain
// support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged
// in, leaving the original untouched.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"safewave/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (1 MB).
const maxRequestBodySize = 1 << 20 // 1 MB

// APIResponse is the standard envelope for all successful API responses.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
}

// APIErrorResponse is the standard envelope for all error API responses.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned to clients.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON writes a JSON response with the given status code and data.
// It sets the Content-Type header, marshals the data, and writes the response.
// If marshalling fails, it falls back to a 500 error response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fallback := APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "failed to marshal response",
				RequestID: types.GetRequestID(r.Context()),
			},
		}
		// Best-effort write; if this also fails, there is nothing more we can do.
		_ = json.NewEncoder(w).Encode(fallback)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes an error response to the client. It inspects the error chain:
//   - If the error is (or wraps) a *types.AppError, it uses its Code to determine
//     the HTTP status and writes a structured APIErrorResponse.
//   - If the error is a generic (non-AppError) error, it returns a 500 Internal
//     Server Error with the code "internal_unexpected_error".
//
// Internal error details (wrapped errors) are never exposed to the client.
// The original error message from generic errors is also not exposed to prevent
// information leakage; a safe default message is used instead.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	requestID := types.GetRequestID(r.Context())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		resp := APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(appErr.Code),
				Message:   appErr.Message,
				Details:   appErr.Details,
				RequestID: requestID,
			},
		}
		JSON(w, r, status, resp)
		return
	}

	// Generic error: return 500 without leaking internal details.
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		},
	}
	JSON(w, r, http.StatusInternalServerError, resp)
}

// DecodeJSON reads the request body into dst, enforcing:
//   - A maximum body size of 1 MB to prevent abuse.
//   - DisallowUnknownFields to enforce strict JSON contracts.
//
// It returns a *types.AppError with code "validation_invalid_json" on:
//   - JSON syntax errors
//   - Unknown fields in the request body
//   - Body exceeding the size limit
//   - Empty body
//   - Body containing more than one JSON value
//
// On success, it returns nil.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	// Enforce max body size. Pass w to MaxBytesReader so that further writes
	// to the body after the limit is hit trigger the appropriate error.
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}

	// Ensure the body contains only a single JSON value.
	if dec.More() {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must contain a single JSON object",
			nil,
		)
	}

	return nil
}

// mapDecodeError translates a json.Decoder error into a structured AppError.
func mapDecodeError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must not exceed 1MB",
			err,
		)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"malformed JSON in request body",
			err,
		)
	}

	var unmarshalTypeErr *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeErr) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidJSON,
			"invalid value for field",
			err,
			map[string]any{
				"field":    unmarshalTypeErr.Field,
				"expected": unmarshalTypeErr.Type.String(),
			},
		)
	}

	// Unknown field errors come from DisallowUnknownFields; the stdlib does
	// not expose a typed error for them.
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "),
			err,
		)
	}

	if errors.Is(err, io.EOF) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must not be empty",
			err,
		)
	}

	return types.NewAppError(
		types.ErrCodeValidationInvalidJSON,
		"invalid JSON in request body",
		err,
	)
}

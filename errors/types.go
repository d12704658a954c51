package errors

import (
	"fmt"
	"net/http"
)

// Fixed client-facing details. Clients and tests match on these strings.
const (
	DetailEmptyInput         = "Request input cannot be empty"
	DetailInvalidBody        = "Invalid request body"
	DetailEmptyPrompt        = "Prompt must not be empty."
	DetailModelUnavailable   = "Model server unavailable"
	DetailInternal           = "Internal server error"
	upstreamDetailFormat     = "Upstream model error: %s"
	backendDetailFormat      = "Error from %s backend: %s"
	notImplementedDetailBase = "backend not implemented"
)

// NewError creates a NanocodeError with full control over its fields.
//
// Example:
//
//	err := NewError(InternalError, "encode failed", 500, "req_123", nil, encErr)
func NewError(errType ErrorType, detail string, code int, requestID string, details map[string]interface{}, err error) *NanocodeError {
	return &NanocodeError{
		Type:      errType,
		Detail:    detail,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError reports a request that decoded but failed validation.
// It maps to 422 Unprocessable Entity.
//
// Example:
//
//	err := NewValidationError("req_123", DetailEmptyInput, map[string]interface{}{
//	    "field": "input",
//	})
func NewValidationError(requestID, detail string, validationDetails map[string]interface{}) *NanocodeError {
	return &NanocodeError{
		Type:      ValidationError,
		Detail:    detail,
		Code:      http.StatusUnprocessableEntity,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewBadRequestError reports a request the server refuses outright (400).
func NewBadRequestError(requestID, detail string) *NanocodeError {
	return &NanocodeError{
		Type:      BadRequestError,
		Detail:    detail,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
	}
}

// NewUpstreamError reports a non-2xx reply from the model server. The
// upstream status code is embedded in the detail and kept in Details.
func NewUpstreamError(requestID string, upstreamStatus int, err error) *NanocodeError {
	return &NanocodeError{
		Type:      UpstreamError,
		Detail:    fmt.Sprintf(upstreamDetailFormat, fmt.Sprint(upstreamStatus)),
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		Details: map[string]interface{}{
			"upstream_status": upstreamStatus,
		},
		err: err,
	}
}

// NewInvalidUpstreamResponseError reports a 2xx reply whose body could not
// be used.
func NewInvalidUpstreamResponseError(requestID string, err error) *NanocodeError {
	return &NanocodeError{
		Type:      UpstreamError,
		Detail:    fmt.Sprintf(upstreamDetailFormat, "invalid response body"),
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewUnavailableError reports that the model server could not be reached:
// connection refused, DNS failure, timeout or an open circuit breaker.
func NewUnavailableError(requestID string, err error) *NanocodeError {
	return &NanocodeError{
		Type:      UnavailableError,
		Detail:    DetailModelUnavailable,
		Code:      http.StatusServiceUnavailable,
		RequestID: requestID,
		err:       err,
	}
}

// NewBackendError reports a failure raised by a generation backend. The
// cause's text is embedded in the detail.
//
// Example:
//
//	err := NewBackendError("req_123", "OpenAI", providerErr)
//	// detail: "Error from OpenAI backend: <providerErr>"
func NewBackendError(requestID, backend string, err error) *NanocodeError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &NanocodeError{
		Type:      BackendError,
		Detail:    fmt.Sprintf(backendDetailFormat, backend, msg),
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewNotImplementedError reports a placeholder backend. When err is nil a
// generic detail is used.
func NewNotImplementedError(requestID string, err error) *NanocodeError {
	detail := notImplementedDetailBase
	if err != nil {
		detail = err.Error()
	}
	return &NanocodeError{
		Type:      NotImplementedError,
		Detail:    detail,
		Code:      http.StatusNotImplemented,
		RequestID: requestID,
		err:       err,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(requestID string, retryAfter int) *NanocodeError {
	return &NanocodeError{
		Type:      RateLimitError,
		Detail:    "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewNotFoundError is used for unknown routes.
func NewNotFoundError(requestID, path string) *NanocodeError {
	return &NanocodeError{
		Type:      NotFoundError,
		Detail:    "Not Found",
		Code:      http.StatusNotFound,
		RequestID: requestID,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// NewInternalError creates an internal server error. The cause is kept for
// logging and never serialized.
func NewInternalError(requestID string, err error) *NanocodeError {
	return &NanocodeError{
		Type:      InternalError,
		Detail:    DetailInternal,
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

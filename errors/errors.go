// Package errors provides the error envelope shared by the nanocode API
// service and the model server. It includes structured error types, JSON
// response formatting, request ID tracking, and integrated logging with
// Uber's zap logger.
//
// Every error that reaches a client is a *NanocodeError. The human readable
// message is serialized under "detail", which is what clients of both
// services match on:
//
//	errors.WriteError(w, errors.NewUnavailableError(requestID, err))
//	// 503 {"type":"upstream_unavailable","detail":"Model server unavailable",...}
//
// Leaf packages keep returning plain Go errors; handlers translate them into
// one of the constructors in types.go at the HTTP boundary.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the package-level logger. It starts as a production
// logger and is replaced at startup via SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger replaces DefaultLogger. A nil logger is ignored.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes an error for clients and metrics.
type ErrorType string

const (
	// ValidationError is a request that parsed but failed validation (422).
	ValidationError ErrorType = "validation_error"

	// BadRequestError is a malformed or unacceptable request (400).
	BadRequestError ErrorType = "bad_request"

	// UpstreamError is a non-2xx reply from the model server (502).
	UpstreamError ErrorType = "upstream_error"

	// UnavailableError is a transport failure or timeout talking to the
	// model server (503).
	UnavailableError ErrorType = "upstream_unavailable"

	// BackendError is a failure raised by a generation backend (502).
	BackendError ErrorType = "backend_error"

	// NotImplementedError is returned by placeholder backends (501).
	NotImplementedError ErrorType = "not_implemented"

	// RateLimitError is returned when a client exceeds its request budget.
	RateLimitError ErrorType = "rate_limit_error"

	// NotFoundError represents unknown routes.
	NotFoundError ErrorType = "not_found"

	// InternalError represents unexpected internal server errors.
	InternalError ErrorType = "internal_error"
)

// NanocodeError is the error type written to HTTP clients. The HTTP status
// and the wrapped cause never leave the process.
type NanocodeError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Detail is the human-readable error description
	Detail string `json:"detail"`

	// Code is the HTTP status code
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	err error
}

// Error implements the error interface.
func (e *NanocodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Detail, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Detail)
}

// Unwrap returns the underlying error.
func (e *NanocodeError) Unwrap() error {
	return e.err
}

// Is matches on Type only, so errors.Is(err, &NanocodeError{Type: UpstreamError})
// works regardless of detail or request ID.
func (e *NanocodeError) Is(target error) bool {
	t, ok := target.(*NanocodeError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError writes err as a JSON response with its status code.
func WriteError(w http.ResponseWriter, err *NanocodeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Warn("failed to encode error response",
			zap.Error(encErr),
			zap.String("request_id", err.RequestID),
		)
	}
}

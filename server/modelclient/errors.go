package modelclient

import (
	"errors"
	"fmt"
)

// ErrInvalidResponse is returned when the model server answers 2xx with a
// body that is not a JSON object.
var ErrInvalidResponse = errors.New("invalid response body")

// UpstreamError is a non-2xx reply from the model server.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model server returned status %d", e.StatusCode)
}

// UnavailableError means the model server could not be reached or did not
// answer in time. An open circuit breaker is reported the same way.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("model server unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

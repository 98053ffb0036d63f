package contracts

import (
	"errors"
	"fmt"
)

// Error kinds shared by the provider, orchestrator, service and HTTP layers
var (
	// ErrBadRequest is a caller or configuration error. Not retryable.
	ErrBadRequest = errors.New("bad request")

	// ErrRateLimited means the upstream quota is exhausted
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream is any other non-2xx upstream response
	ErrUpstream = errors.New("upstream error")
)

// UpstreamError carries the upstream status and body of a failed call.
// It unwraps to one of the error kinds above.
type UpstreamError struct {
	Kind       error
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: HTTP %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

// BadRequestf builds a validation error of kind ErrBadRequest
func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// Package apperr defines the error kinds shared by adapters, pipelines and
// the HTTP layer. Errors are wrapped with fmt.Errorf so that both the kind
// and the originating cause can be matched with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks caller-supplied data that fails a precondition.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks a transport failure reaching an external service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout marks an external call that exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamRejected marks an external service answering with an error status.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrMalformedUpstreamResponse marks a successful response whose content
	// could not be parsed into the expected shape.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")

	// ErrStorageFailure marks an artifact that could not be written.
	ErrStorageFailure = errors.New("storage failure")

	// ErrNotImplemented marks an operation with no defined behavior.
	ErrNotImplemented = errors.New("not implemented")
)

// Wrap attaches kind to cause. The result matches both with errors.Is.
func Wrap(kind error, cause error, msg string) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Invalid returns an ErrInvalidInput carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Malformed returns an ErrMalformedUpstreamResponse carrying a formatted reason.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedUpstreamResponse, fmt.Sprintf(format, args...))
}

// Retryable reports whether err is a transient upstream failure. Malformed
// responses point at a prompt or schema defect and are never retried.
func Retryable(err error) bool {
	if errors.Is(err, ErrMalformedUpstreamResponse) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamTimeout)
}

// Kind returns the short name of the first kind err matches, or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMalformedUpstreamResponse):
		return "malformed_upstream_response"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	default:
		return "internal"
	}
}

// HTTPStatus maps err to the status code reported to API callers.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrUpstreamUnavailable, cause, "calling completion API")

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "calling completion API")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", Wrap(ErrUpstreamUnavailable, nil, "x"), true},
		{"timeout", Wrap(ErrUpstreamTimeout, nil, "x"), true},
		{"rejected", Wrap(ErrUpstreamRejected, nil, "x"), false},
		{"malformed", Malformed("not json"), false},
		{"invalid", Invalid("empty"), false},
		{"plain", errors.New("boom"), false},
		{"malformed wrapping unavailable", fmt.Errorf("%w: %w", ErrMalformedUpstreamResponse, ErrUpstreamUnavailable), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("max_results must be positive")))
	assert.Equal(t, http.StatusNotImplemented, HTTPStatus(ErrNotImplemented))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Malformed("bad tables")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Wrap(ErrStorageFailure, nil, "disk full")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "malformed_upstream_response", Kind(Malformed("x")))
	assert.Equal(t, "upstream_timeout", Kind(Wrap(ErrUpstreamTimeout, nil, "x")))
	assert.Equal(t, "internal", Kind(errors.New("x")))
}

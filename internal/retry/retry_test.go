package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindshear/mindshear-api/internal/apperr"
)

var fast = Policy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fast, "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", apperr.Wrap(apperr.ErrUpstreamUnavailable, errors.New("reset"), "x")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxTries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, "test", func(context.Context) (int, error) {
		calls++
		return 0, apperr.Wrap(apperr.ErrUpstreamTimeout, nil, "slow")
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamTimeout)
	assert.Equal(t, 3, calls)
}

func TestDoNeverRetriesMalformed(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, "test", func(context.Context) (int, error) {
		calls++
		return 0, apperr.Malformed("not json")
	})
	assert.ErrorIs(t, err, apperr.ErrMalformedUpstreamResponse)
	assert.Equal(t, 1, calls)
}

func TestDoNeverRetriesRejected(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, "test", func(context.Context) (int, error) {
		calls++
		return 0, apperr.Wrap(apperr.ErrUpstreamRejected, nil, "401")
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamRejected)
	assert.Equal(t, 1, calls)
}

func TestDoSingleTryPolicy(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxTries: 1}, "test", func(context.Context) (int, error) {
		calls++
		return 0, apperr.Wrap(apperr.ErrUpstreamUnavailable, nil, "down")
	})
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fast, "test", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, apperr.Wrap(apperr.ErrUpstreamUnavailable, nil, "down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

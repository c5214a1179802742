package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mindshear/mindshear-api/internal/apperr"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "upstream_rejected", Outcome(apperr.Wrap(apperr.ErrUpstreamRejected, errors.New("418"), "x")))
}

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamCalls.WithLabelValues("metrics-test", "ok"))
	ObserveUpstream("metrics-test", time.Now(), nil)
	after := testutil.ToFloat64(UpstreamCalls.WithLabelValues("metrics-test", "ok"))
	assert.Equal(t, before+1, after)
}

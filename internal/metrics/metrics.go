// Package metrics provides Prometheus metrics for the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mindshear/mindshear-api/internal/apperr"
)

var (
	// UpstreamCalls counts outbound adapter calls by outcome.
	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindshear",
			Name:      "upstream_calls_total",
			Help:      "Total number of calls to external services",
		},
		[]string{"service", "outcome"},
	)

	// UpstreamDuration measures outbound adapter call duration.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindshear",
			Name:      "upstream_call_duration_seconds",
			Help:      "Duration of calls to external services in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	// PipelineRuns counts pipeline invocations by final outcome.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindshear",
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline invocations",
		},
		[]string{"pipeline", "outcome"},
	)

	// StageDuration measures pipeline stage duration.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindshear",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pipeline", "stage"},
	)

	// ImageCandidates counts image cue evaluations by result.
	ImageCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindshear",
			Name:      "image_candidates_total",
			Help:      "Total number of image cue evaluations",
		},
		[]string{"result"},
	)
)

// Outcome labels err as "ok" or by its error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Kind(err)
}

// ObserveUpstream records one outbound call that started at start.
func ObserveUpstream(service string, start time.Time, err error) {
	UpstreamCalls.WithLabelValues(service, Outcome(err)).Inc()
	UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal counts sessions by terminal status.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemoscan_sessions_total",
		Help: "Analysis sessions by terminal status.",
	}, []string{"status"})

	// ModalityResults counts per-modality outcomes.
	ModalityResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemoscan_modality_results_total",
		Help: "Modality results by modality and source.",
	}, []string{"modality", "source"})

	// InferenceCalls counts gateway calls by outcome kind ("ok" or the
	// error kind).
	InferenceCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hemoscan_inference_calls_total",
		Help: "Inference gateway calls by outcome.",
	}, []string{"task", "outcome"})

	// SessionDuration observes wall time from dispatch to terminal state.
	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hemoscan_session_duration_seconds",
		Help:    "Session processing duration.",
		Buckets: prometheus.DefBuckets,
	})

	// InterviewsAbandoned counts interviews expired by the sweep.
	InterviewsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hemoscan_interviews_abandoned_total",
		Help: "Interviews marked abandoned by the inactivity sweep.",
	})
)

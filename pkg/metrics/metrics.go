// Package metrics exposes Prometheus instrumentation for the query
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration observes wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schoolgrid",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each query pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// Clarifications counts runs that stopped to ask the user a
	// follow-up question.
	Clarifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "pipeline",
		Name:      "clarifications_total",
		Help:      "Pipeline runs that paused for user clarification.",
	})

	// ExecutionRetries counts execute attempts beyond the first.
	ExecutionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "pipeline",
		Name:      "execution_retries_total",
		Help:      "SQL regeneration retries after execution failures.",
	})

	// ValidationFailures counts terminal validation errors.
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "pipeline",
		Name:      "validation_failures_total",
		Help:      "Generated statements rejected by the evaluator.",
	})

	// QueriesTotal counts pipeline runs by terminal outcome.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolgrid",
		Subsystem: "pipeline",
		Name:      "queries_total",
		Help:      "Pipeline runs by outcome.",
	}, []string{"outcome"})
)

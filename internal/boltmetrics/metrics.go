// Package boltmetrics exposes the runner's Prometheus instrumentation.
//
// The teacher wraps a ComponentRegistry helper (x/publisher/metrics.go) that
// was not present in the retrieved pack (no source defines it), so this
// package registers directly against prometheus/client_golang, which the
// teacher already depends on, using the same struct-of-named-metrics shape.
package boltmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram the runner reports.
type Metrics struct {
	JobsStarted    prometheus.Counter
	JobsSucceeded  prometheus.Counter
	JobsFailed     *prometheus.CounterVec
	StageRetries   *prometheus.CounterVec
	StageTimeouts  *prometheus.CounterVec
	StageCancels   *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	APIPanics      prometheus.Counter
}

// New constructs Metrics and registers them against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "jobs_started_total",
			Help:      "Total number of jobs submitted to run_async.",
		}),
		JobsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "jobs_succeeded_total",
			Help:      "Total number of jobs that completed successfully.",
		}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that failed, by error kind.",
		}, []string{"kind"}),
		StageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "stage_retries_total",
			Help:      "Total number of stage attempt retries, by stage.",
		}, []string{"stage"}),
		StageTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "stage_timeouts_total",
			Help:      "Total number of stage attempts that timed out, by stage.",
		}, []string{"stage"}),
		StageCancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "stage_cancels_total",
			Help:      "Total number of cancel_current_stage calls issued, by stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bolt",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of a completed stage attempt, by stage.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"stage"}),
		APIPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bolt",
			Name:      "api_panics_total",
			Help:      "Total number of panics recovered by the operational HTTP API.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.JobsStarted, m.JobsSucceeded, m.JobsFailed,
			m.StageRetries, m.StageTimeouts, m.StageCancels, m.StageDuration,
			m.APIPanics,
		)
	}
	return m
}

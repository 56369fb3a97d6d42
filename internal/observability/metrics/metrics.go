// Package metrics exposes prometheus instruments for the lifecycle sweeps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velo",
		Subsystem: "scheduler",
		Name:      "sweep_runs_total",
		Help:      "Completed sweep executions per sweep kind.",
	}, []string{"sweep"})

	sweepErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velo",
		Subsystem: "scheduler",
		Name:      "sweep_errors_total",
		Help:      "Sweep executions that returned an error.",
	}, []string{"sweep"})

	sweepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velo",
		Subsystem: "scheduler",
		Name:      "sweep_transitions_total",
		Help:      "Subscription state transitions applied by sweeps.",
	}, []string{"sweep"})

	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "velo",
		Subsystem: "scheduler",
		Name:      "sweep_duration_seconds",
		Help:      "Wall time of one sweep execution.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sweep"})
)

// ObserveSweep records the outcome of one sweep execution.
func ObserveSweep(sweep string, transitions int, duration time.Duration, err error) {
	sweepRuns.WithLabelValues(sweep).Inc()
	sweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	if err != nil {
		sweepErrors.WithLabelValues(sweep).Inc()
		return
	}
	sweepTransitions.WithLabelValues(sweep).Add(float64(transitions))
}

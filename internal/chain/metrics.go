// Package chain metrics for run and step observability.
package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsStarted counts chain runs by chain name.
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chaind",
			Subsystem: "chain",
			Name:      "runs_started_total",
			Help:      "Total chain runs started, labeled by chain name",
		},
		[]string{"chain"},
	)

	// runsCompleted counts finished runs by terminal status.
	runsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chaind",
			Subsystem: "chain",
			Name:      "runs_completed_total",
			Help:      "Total chain runs finished, labeled by chain name and stop reason",
		},
		[]string{"chain", "status"},
	)

	// runDuration tracks wall-clock duration of whole chain runs.
	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chaind",
			Subsystem: "chain",
			Name:      "run_duration_seconds",
			Help:      "Duration of chain runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// stepDuration tracks per-step harness execution time.
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chaind",
			Subsystem: "chain",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual step executions in seconds, labeled by task and status",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"task", "status"},
	)
)

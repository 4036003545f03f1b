// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package tasks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for task metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
)

// Completed counts finished tasks by name and outcome.
var Completed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashlock_tasks_completed_total",
		Help: "Total number of asynchronous tasks run to completion",
	},
	[]string{"task", "outcome"},
)

// Dropped counts tasks rejected by Submit.
var Dropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashlock_tasks_dropped_total",
		Help: "Total number of asynchronous tasks dropped before running",
	},
	[]string{"task", "reason"},
)

// Duration observes task run time.
var Duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hashlock_task_duration_seconds",
		Help:    "Asynchronous task duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"task"},
)

// RegisterMetrics registers task pool metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Completed, Dropped, Duration)
}

func recordTask(name, outcome string, d time.Duration) {
	Completed.WithLabelValues(name, outcome).Inc()
	Duration.WithLabelValues(name).Observe(d.Seconds())
}

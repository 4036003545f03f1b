// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// Decision labels.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

// Decisions counts admission decisions per bucket.
// Use RegisterMetrics to register this with a Prometheus registry.
var Decisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashlock_ratelimit_decisions_total",
		Help: "Total number of rate limit admission decisions",
	},
	[]string{"bucket", "decision"},
)

// BackendFallbacks counts decisions served from memory because Redis failed.
var BackendFallbacks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "hashlock_ratelimit_backend_fallbacks_total",
		Help: "Total number of times the Redis backend failed and memory was used",
	},
)

var trackedKeys = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "hashlock_ratelimit_tracked_keys",
		Help: "Number of keys held by the in-memory limiter after the last sweep",
	},
)

// RegisterMetrics registers ratelimit metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Decisions)
	reg.MustRegister(BackendFallbacks)
	reg.MustRegister(trackedKeys)
}

func recordDecision(bucket string, allowed bool) {
	decision := DecisionDenied
	if allowed {
		decision = DecisionAllowed
	}
	Decisions.WithLabelValues(bucket, decision).Inc()
}

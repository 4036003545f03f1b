// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Requests counts HTTP requests by method, matched route and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashlock_http_requests_total",
		Help: "Total number of HTTP requests served by the auth gateway",
	},
	[]string{"method", "route", "status"},
)

// RequestDuration observes request latency.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hashlock_http_request_duration_seconds",
		Help:    "Auth gateway request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// RateLimited counts requests rejected by the admission gate.
var RateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashlock_http_rate_limited_total",
		Help: "Total number of requests rejected with 429",
	},
	[]string{"bucket"},
)

// RegisterMetrics registers gateway metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
	reg.MustRegister(RequestDuration)
	reg.MustRegister(RateLimited)
}

// RecordRequest records one served request.
func RecordRequest(method, route string, status int, d time.Duration) {
	Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

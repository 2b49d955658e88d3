// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for reconciliation metrics.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusSuperseded = "superseded"
)

// Passes is the counter for reconciliation passes.
// Use RegisterMetrics to register this with a Prometheus registry.
var Passes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lodestar_reconciliation_passes_total",
		Help: "Total number of reconciliation passes by status",
	},
	[]string{"status"},
)

// PassDuration is the histogram for reconciliation pass duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var PassDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "lodestar_reconciliation_pass_duration_seconds",
		Help:    "Reconciliation pass duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// HostStarts is the counter for host start attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var HostStarts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lodestar_host_starts_total",
		Help: "Total number of host start attempts by host and status",
	},
	[]string{"host", "status"},
)

// TrackedPlugins is the gauge of currently tracked plugin entries.
// Use RegisterMetrics to register this with a Prometheus registry.
var TrackedPlugins = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "lodestar_tracked_plugins",
		Help: "Number of plugin entries currently tracked",
	},
)

// RegisterMetrics registers reconciler metrics with the given Prometheus
// registry. Call at startup to make metrics available on /metrics.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Passes)
	reg.MustRegister(PassDuration)
	reg.MustRegister(HostStarts)
	reg.MustRegister(TrackedPlugins)
}

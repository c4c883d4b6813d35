// Package metrics provides Prometheus metrics for the configurator service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal tracks handled requests by route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks request latency by route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "configurator",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// ReconciliationsTotal tracks product-tool reconciliations by outcome
	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "product_tools",
			Name:      "reconciliations_total",
			Help:      "Total number of product tool reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	// BindingChangesTotal tracks bindings created, removed and overwritten
	BindingChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "product_tools",
			Name:      "binding_changes_total",
			Help:      "Total number of product tool bindings changed by action",
		},
		[]string{"action"},
	)

	// EntryOperationsTotal tracks config entry operations by result
	EntryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "config_entries",
			Name:      "operations_total",
			Help:      "Total number of config entry operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// PreviewCacheRequestsTotal tracks preview cache hits and misses
	PreviewCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "preview_cache",
			Name:      "requests_total",
			Help:      "Total number of preview cache lookups by result",
		},
		[]string{"result"},
	)

	// OrphansSweptTotal tracks rows removed by the orphan sweeper
	OrphansSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "configurator",
			Subsystem: "sweeper",
			Name:      "orphans_removed_total",
			Help:      "Total number of orphaned bindings and entries removed",
		},
	)

	// PreviewSubscribers tracks open live preview connections
	PreviewSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "configurator",
			Subsystem: "preview",
			Name:      "subscribers",
			Help:      "Number of open live preview connections",
		},
	)
)

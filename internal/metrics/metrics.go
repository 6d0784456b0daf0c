// Package metrics defines Prometheus metrics for the marketplace client and
// the mock API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "amc"

// Client metrics.
var (
	ClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Total marketplace API calls by method and status.",
	}, []string{"method", "status"})

	ClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Duration of marketplace API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	SessionExpiriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expiries_total",
		Help:      "Total authorization failures that ended the session.",
	})
)

// Aggregation metrics.
var (
	ListingPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_pages_fetched_total",
		Help:      "Total my-listings pages fetched during aggregation.",
	})

	AggregationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregation_failures_total",
		Help:      "Total my-listings aggregations stopped by an error.",
	})
)

// Favorites metrics.
var (
	FavoritesResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "favorites_resolved_total",
		Help:      "Total favorite listings hydrated successfully.",
	})

	FavoritesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "favorites_dropped_total",
		Help:      "Total favorite listings dropped because their fetch failed.",
	})
)

// Mock API server metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mock_http_request_duration_seconds",
		Help:      "Duration of mock API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mock_http_requests_total",
		Help:      "Total number of mock API requests.",
	}, []string{"method", "path", "status"})
)

// HealthzUp is 1 while the mock API answers its health check.
var HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "mock_healthz_up",
	Help:      "Whether the last mock API health check succeeded (1) or not (0).",
})

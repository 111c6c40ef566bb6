// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longform_catalog_requests_total",
			Help: "Catalog API calls by operation and outcome (ok, error, rejected).",
		},
		[]string{"op", "outcome"},
	)

	CatalogLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "longform_catalog_request_duration_seconds",
			Help:    "Catalog API call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "longform_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longform_recommendations_total",
			Help: "Recommendation requests by mode (anonymous, personalized).",
		},
		[]string{"mode"},
	)

	RecommendationSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "longform_recommendation_result_size",
			Help:    "Videos returned per recommendation request before filtering.",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 50},
		},
	)

	ChannelFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longform_recommendation_channel_failures_total",
			Help: "Per-channel candidate fetches that failed and were skipped.",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longform_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	SearchLogDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longform_search_log_dropped_total",
			Help: "Search queries dropped because the write-behind queue was full.",
		},
	)

	SearchLogFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longform_search_log_flushed_total",
			Help: "Search queries flushed to the repository by outcome.",
		},
		[]string{"outcome"},
	)
)

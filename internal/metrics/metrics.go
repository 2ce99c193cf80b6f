// Package metrics provides Prometheus metrics for the card resolver service.
// Scrape these at /metrics for dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolver_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Resolution Metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_resolutions_total",
			Help: "Resolution outcomes by strategy",
		},
		[]string{"strategy", "outcome"}, // strategy: "exact", "name_number", "number_only", "none"
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolver_resolution_duration_seconds",
			Help:    "Time taken to resolve a card",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	ExactCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_exact_cache_hits_total",
			Help: "Exact-lookup results served from the in-process cache",
		},
	)

	// Catalog Metrics
	CatalogCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolver_catalog_cards_total",
			Help: "Number of card records in the local catalog",
		},
	)

	CatalogImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_catalog_imports_total",
			Help: "Bulk catalog imports by result",
		},
		[]string{"result"}, // "success" or "failed"
	)

	CatalogImportedCards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolver_catalog_imported_cards_total",
			Help: "Total card records written by bulk imports",
		},
	)
)

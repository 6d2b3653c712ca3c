// Package metrics holds the Prometheus collectors shared by the pipeline and the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lookanalyst"

var (
	// ExtractionsTotal counts extraction attempts by the strategy that matched ("none" on failure)
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of page image extractions by winning strategy.",
		},
		[]string{"strategy"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of outbound fetches.",
		},
		[]string{"kind", "outcome"}, // outcome: success, failure
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to first byte of outbound fetches.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	ProxyFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_fallbacks_total",
			Help:      "Total number of proxy fallback attempts after a 403.",
		},
		[]string{"family", "outcome"},
	)

	// StagedImages is the number of staged images not yet released
	StagedImages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_images",
			Help:      "Current number of images held in transient storage.",
		},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of model analyses.",
		},
		[]string{"outcome"}, // outcome: garments, empty, failure
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

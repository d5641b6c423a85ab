package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream and result-mapping Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appsearch",
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to upstream search services",
		},
		[]string{"operation", "status"}, // status: "ok" / "error" / HTTP code
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appsearch",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream search request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	RecordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appsearch",
			Name:      "records_skipped_total",
			Help:      "Search hits dropped while mapping to records",
		},
		[]string{"reason"}, // "unresolved" / "missing" / "forbidden"
	)

	SuggestionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appsearch",
			Name:      "suggestion_cache_total",
			Help:      "Spelling suggestion cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers upstream and mapping metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(RecordsSkippedTotal)
	prometheus.MustRegister(SuggestionCacheTotal)
	searchMetricsRegistered = true
}

// ObserveUpstream records one upstream call.
func ObserveUpstream(operation, status string, started time.Time) {
	UpstreamRequestsTotal.WithLabelValues(operation, status).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

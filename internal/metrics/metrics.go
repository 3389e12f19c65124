// Package metrics holds the prometheus instruments for cache, upstream and scoring activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache operation outcomes.
const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeStale   = "stale"
	OutcomeCorrupt = "corrupt"
	OutcomeOK      = "ok"
	OutcomeError   = "error"
)

// Upstream call outcomes.
const (
	OutcomeNotFound    = "not_found"
	OutcomeTransient   = "transient"
	OutcomeBreakerOpen = "breaker_open"
)

var (
	// CacheOperations counts every cache call by operation, category and outcome.
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewise_cache_operations_total",
			Help: "Cache store operations by operation, category and outcome",
		},
		[]string{"operation", "category", "outcome"},
	)

	CacheSweptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placewise_cache_swept_entries_total",
			Help: "Cache entries removed by sweeps",
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewise_upstream_requests_total",
			Help: "Upstream collaborator calls by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placewise_upstream_request_duration_seconds",
			Help:    "Duration of upstream collaborator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "placewise_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	RankingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewise_ranking_runs_total",
			Help: "Ranking passes by persona",
		},
		[]string{"persona"},
	)

	AreasProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewise_areas_processed_total",
			Help: "Areas seen by the engine by persona and result (scored or filtered)",
		},
		[]string{"persona", "result"},
	)

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "placewise_ranking_duration_seconds",
			Help:    "Duration of a full ranking pass including enrichment",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placewise_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "status"},
	)
)

// RecordCache increments the cache counter.
func RecordCache(operation, category, outcome string) {
	CacheOperations.WithLabelValues(operation, category, outcome).Inc()
}

// RecordUpstream increments the upstream counter and observes the call duration.
func RecordUpstream(category, outcome string, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(category, outcome).Inc()
	UpstreamDuration.WithLabelValues(category).Observe(elapsed.Seconds())
}

// RecordRanking records one engine pass.
func RecordRanking(persona string, scored, filtered int, elapsed time.Duration) {
	RankingRuns.WithLabelValues(persona).Inc()
	AreasProcessed.WithLabelValues(persona, "scored").Add(float64(scored))
	AreasProcessed.WithLabelValues(persona, "filtered").Add(float64(filtered))
	RankingDuration.Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteToTextfile dumps the default registry in the node-exporter textfile format.
func WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

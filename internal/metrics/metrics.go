// Package metrics defines Prometheus instrumentation for the matching and
// orchestration pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Core pipeline metrics. Registered explicitly from main (no init()).
var (
	MatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "match_total",
			Help:      "Matcher outcomes by winning tier",
		},
		[]string{"tier"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voicecore",
			Name:      "match_duration_seconds",
			Help:      "Matcher lookup duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"tier"},
	)

	CacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "response_cache_ops_total",
			Help:      "Response cache operations",
		},
		[]string{"op"}, // "hit" / "miss" / "insert" / "merge" / "evict"
	)

	TrackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "track_total",
			Help:      "Generation track terminal states",
		},
		[]string{"track", "status"},
	)

	TrackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voicecore",
			Name:      "track_duration_seconds",
			Help:      "Generation track duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"track"},
	)

	EmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "emissions_total",
			Help:      "Events forwarded to the transport, by intent",
		},
		[]string{"intent"},
	)

	DedupDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "dedup_dropped_total",
			Help:      "Events dropped because their intent was already emitted for the turn",
		},
	)

	ClipsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "clips_indexed_total",
			Help:      "Auto-indexer outcomes",
		},
		[]string{"result"}, // "published" / "duplicate" / "invalid"
	)
)

// Embedding provider metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voicecore",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "embedding_errors_total",
			Help:      "Embedding provider errors by kind",
		},
		[]string{"provider", "model", "kind"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicecore",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registered bool

// Register registers all pipeline metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(MatchTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(CacheOpsTotal)
	prometheus.MustRegister(TrackTotal)
	prometheus.MustRegister(TrackDuration)
	prometheus.MustRegister(EmissionsTotal)
	prometheus.MustRegister(DedupDroppedTotal)
	prometheus.MustRegister(ClipsIndexedTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	registered = true
}

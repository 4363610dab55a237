// Package metrics exposes the engine's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts balance reads served from a cached snapshot.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_balance_cache_hits_total",
		Help: "Balance summary reads served from the snapshot cache",
	})

	// CacheMisses counts balance reads that triggered a recomputation.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_balance_cache_misses_total",
		Help: "Balance summary reads that recomputed the netting graph",
	})

	// Invalidations counts cache invalidations, labeled by what changed.
	Invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_cache_invalidations_total",
		Help: "Snapshot cache invalidations by trigger",
	}, []string{"trigger"})

	// DegradedSummaries counts summaries that excluded payments because a
	// conversion rate was unavailable.
	DegradedSummaries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_degraded_summaries_total",
		Help: "Balance summaries marked degraded by missing conversion rates",
	})

	// SplitSumMismatches counts payments whose splits do not sum to the
	// payment amount within tolerance.
	SplitSumMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_split_sum_mismatches_total",
		Help: "Payments detected with splits diverging from the payment amount",
	})

	// RecomputeDuration observes full netting graph recomputation latency.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_recompute_duration_seconds",
		Help:    "Latency of full netting graph recomputations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "gsa"
)

var (
	loadDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// Refresh controller metrics
	RefreshCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_cycles_total",
		Help:      "Count of settled entity load cycles.",
	}, []string{"view", "outcome"})

	RefreshCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_cycle_duration_seconds",
		Help:      "Time from entering Loading until every loader of the cycle settled.",
		Buckets:   loadDurationBuckets,
	}, []string{"view"})

	RefreshForcedReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_forced_reloads_total",
		Help:      "Count of immediate reloads scheduled because a loader returned stale cached data.",
	}, []string{"view"})

	RefreshLoaderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_loader_failures_total",
		Help:      "Count of failed loader invocations.",
	}, []string{"view", "loader"})

	LiveViews = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_views",
		Help:      "Number of mounted live detail views.",
	}, []string{"entity_type"})

	// Cache metrics
	CacheReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_reads_total",
		Help:      "Count of data-access reads by cache result (hit, miss, dirty).",
	}, []string{"entity_type", "result"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Count of mutations that marked cached entries dirty.",
	}, []string{"entity_type"})

	// HTTP metrics
	ListRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_renders_total",
		Help:      "Count of entity list renders by kind (page, partial).",
	}, []string{"entity_type", "kind"})
)

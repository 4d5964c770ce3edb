package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal counts round-cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_cache_hits_total",
		Help: "Total number of cache hits",
	})

	// CacheMissesTotal counts round-cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// CacheSetsTotal counts cache writes.
	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictpool_cache_sets_total",
		Help: "Total number of cache sets",
	})
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollingbatch_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollingbatch_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheSize tracks the encoded bytes currently stored by layer.
	// Set and Delete adjust it; Stats and Purge reset it from Redis.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rollingbatch_cache_size_bytes",
			Help: "Encoded bytes stored in the response cache",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollingbatch_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "stats", "purge"
	)
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Exact cache hits by operation",
	}, []string{"op"})

	cacheFuzzyHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "cache",
		Name:      "fuzzy_hits_total",
		Help:      "Requests served from a similar cached query",
	}, []string{"op"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache misses by operation",
	}, []string{"op"})

	cacheSets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "cache",
		Name:      "sets_total",
		Help:      "Entries written by tier",
	}, []string{"tier"})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xppkb",
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Backend failures and timeouts, treated as misses",
	}, []string{"backend", "call"})
)

/*
Package metrics exposes a cache.Stats envelope as Prometheus collectors.

Unlike a typical application's metrics package, this one never reaches for
the global promauto registry: a process may run several cache partitions
(and tests construct many short-lived caches), so every Collector owns its
own vectors and must be registered into a caller-supplied
prometheus.Registerer explicitly. This mirrors the injected-Metrics-adapter
shape shown by the pack's shardcache example rather than a singleton
service's /metrics package.
*/
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/promptvault/cache"
)

const namespace = "promptvault_cache"

// Collector is a set of per-partition-labeled Prometheus vectors fed by
// repeated calls to Observe. cache.Stats counters are already cumulative,
// so Observe tracks the last-seen totals per partition and adds only the
// delta -- a Prometheus Counter only supports Add, never Set.
type Collector struct {
	requests            *prometheus.CounterVec
	hits                *prometheus.CounterVec
	misses              *prometheus.CounterVec
	sets                *prometheus.CounterVec
	deletes             *prometheus.CounterVec
	evictions           *prometheus.CounterVec
	compressions        *prometheus.CounterVec
	decompressions      *prometheus.CounterVec
	cleanups            *prometheus.CounterVec
	memoryOptimizations *prometheus.CounterVec
	bytesResident       *prometheus.GaugeVec
	hitRate             *prometheus.GaugeVec

	mu   sync.Mutex
	last map[string]cache.Stats
}

// New builds a Collector and registers all of its vectors into reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with any other
// Collector's metric names; pass prometheus.DefaultRegisterer in a
// long-lived process that wants these scraped at /metrics.
func New(reg prometheus.Registerer) *Collector {
	labels := []string{"partition", "algorithm"}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_total", Help: "Total cache requests.",
		}, labels),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "hits_total", Help: "Total cache hits.",
		}, labels),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "misses_total", Help: "Total cache misses.",
		}, labels),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sets_total", Help: "Total Set calls.",
		}, labels),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deletes_total", Help: "Total Delete calls.",
		}, labels),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total", Help: "Total capacity evictions.",
		}, labels),
		compressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "compressions_total", Help: "Total L3 compressions.",
		}, labels),
		decompressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decompressions_total", Help: "Total L3 decompressions.",
		}, labels),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cleanups_total", Help: "Total janitor cleanup passes.",
		}, labels),
		memoryOptimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "memory_optimizations_total", Help: "Total memory-pressure eviction passes.",
		}, labels),
		bytesResident: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bytes_resident", Help: "Estimated resident bytes.",
		}, labels),
		hitRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hit_rate", Help: "Hits / (hits+misses) as of the last Observe.",
		}, labels),
		last: make(map[string]cache.Stats),
	}

	for _, coll := range []prometheus.Collector{
		c.requests, c.hits, c.misses, c.sets, c.deletes, c.evictions,
		c.compressions, c.decompressions, c.cleanups, c.memoryOptimizations,
		c.bytesResident, c.hitRate,
	} {
		reg.MustRegister(coll)
	}

	return c
}

// Observe records partition's latest cumulative Stats snapshot, adding
// only the delta against the previous Observe call for the same
// partition name.
func (c *Collector) Observe(partition string, s cache.Stats) {
	c.mu.Lock()
	prev := c.last[partition]
	c.last[partition] = s
	c.mu.Unlock()

	labels := prometheus.Labels{"partition": partition, "algorithm": s.Algorithm}

	c.requests.With(labels).Add(delta(s.Requests, prev.Requests))
	c.hits.With(labels).Add(delta(s.Hits, prev.Hits))
	c.misses.With(labels).Add(delta(s.Misses, prev.Misses))
	c.sets.With(labels).Add(delta(s.Sets, prev.Sets))
	c.deletes.With(labels).Add(delta(s.Deletes, prev.Deletes))
	c.evictions.With(labels).Add(delta(s.Evictions, prev.Evictions))
	c.compressions.With(labels).Add(delta(s.Compressions, prev.Compressions))
	c.decompressions.With(labels).Add(delta(s.Decompressions, prev.Decompressions))
	c.cleanups.With(labels).Add(delta(s.Cleanups, prev.Cleanups))
	c.memoryOptimizations.With(labels).Add(delta(s.MemoryOptimizations, prev.MemoryOptimizations))
	c.bytesResident.With(labels).Set(float64(s.BytesResident))
	c.hitRate.With(labels).Set(s.HitRate())
}

// delta returns cur-prev as a non-negative float64, clamped to 0 if the
// source counter somehow went backwards (a cleared/reset cache).
func delta(cur, prev uint64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur - prev)
}

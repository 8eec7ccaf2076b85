package multitier

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/promptvault/cache"
	"github.com/promptvault/cache/lru"
)

/*
MultiTierCache orchestrates three tiers by access temperature:

  - L1 (hot): uncompressed, small, long TTL
  - L2 (warm): uncompressed, medium
  - L3 (cold): compressed via CompressedStore, largest, longest TTL

L1 and L2 are each a lru.SingleCache -- reusing the same approximate-LRU
engine as the single-tier cache, generalized here with an eviction
callback so a capacity eviction migrates the entry down a tier (with TTL
capped at the destination tier's default) instead of discarding it. L3 is
a CompressedStore (compressed_store.go).

Migrations never run while holding l1's or l2's lock: the eviction
callback only snapshots the evicted key/entry into a pending queue; the
heavy step (L2 Set, or L3 compression) runs after the triggering Set call
returns, so no tier lock is ever held across compression or a downstream
Set.
*/
type MultiTierCache struct {
	mu sync.Mutex // guards stats; temps and each tier have their own locks

	l1, l2 *lru.SingleCache
	l3     *CompressedStore

	temps *temperatureTable

	hotThreshold  atomic.Int32 // adjustable live by facade.AutoTuner, so not a plain int
	warmThreshold int
	l1TTL, l2TTL, l3TTL time.Duration

	clock cache.Clock

	stats cache.Stats

	pendingMu sync.Mutex
	pendingL2 []demotion
	pendingL3 []demotion

	l1Requests atomic.Uint64
	l1Hits     atomic.Uint64
}

type demotion struct {
	key   string
	entry cache.Entry
}

// Config configures a MultiTierCache. New gives a zero Clock,
// TemperatureWindow, TemperatureTableSize, HotThreshold or WarmThreshold a
// default; a zero L1MaxSize or L2MaxSize leaves that tier unbounded and a
// zero TTL means no expiry. L3MaxSize is not used: L3 is unbounded and
// never evicts for capacity.
type Config struct {
	L1MaxSize, L2MaxSize, L3MaxSize int
	L1TTL, L2TTL, L3TTL             time.Duration
	HotThreshold, WarmThreshold     int
	CompressionThreshold            int
	Compressor                      cache.Compressor
	Clock                           cache.Clock
	TemperatureWindow               time.Duration
	TemperatureTableSize            int
}

func New(cfg Config) *MultiTierCache {
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}
	if cfg.TemperatureWindow <= 0 {
		cfg.TemperatureWindow = time.Minute
	}
	if cfg.TemperatureTableSize <= 0 {
		cfg.TemperatureTableSize = 10000
	}
	if cfg.HotThreshold <= 0 {
		cfg.HotThreshold = 5
	}
	if cfg.WarmThreshold <= 0 {
		cfg.WarmThreshold = 2
	}

	m := &MultiTierCache{
		warmThreshold: cfg.WarmThreshold,
		l1TTL:         cfg.L1TTL,
		l2TTL:         cfg.L2TTL,
		l3TTL:         cfg.L3TTL,
		clock:         cfg.Clock,
		temps:         newTemperatureTable(cfg.TemperatureTableSize, cfg.TemperatureWindow),
	}
	m.hotThreshold.Store(int32(cfg.HotThreshold))

	m.l1 = lru.New(
		lru.WithMaxSize(cfg.L1MaxSize),
		lru.WithClock(cfg.Clock),
		lru.WithEvictionCallback(m.onL1Evict),
	)
	m.l2 = lru.New(
		lru.WithMaxSize(cfg.L2MaxSize),
		lru.WithClock(cfg.Clock),
		lru.WithEvictionCallback(m.onL2Evict),
	)
	m.l3 = NewCompressedStore(cfg.Compressor, cfg.CompressionThreshold, cfg.Clock)

	return m
}

func (m *MultiTierCache) onL1Evict(key string, entry cache.Entry) {
	m.pendingMu.Lock()
	m.pendingL2 = append(m.pendingL2, demotion{key: key, entry: entry})
	m.pendingMu.Unlock()
}

func (m *MultiTierCache) onL2Evict(key string, entry cache.Entry) {
	m.pendingMu.Lock()
	m.pendingL3 = append(m.pendingL3, demotion{key: key, entry: entry})
	m.pendingMu.Unlock()
}

// drainDemotions performs any pending L1->L2 and L2->L3 migrations queued
// by eviction callbacks during the most recent Set/promotion. Called after
// releasing every tier lock.
func (m *MultiTierCache) drainDemotions() {
	m.pendingMu.Lock()
	l2Work := m.pendingL2
	l3Work := m.pendingL3
	m.pendingL2 = nil
	m.pendingL3 = nil
	m.pendingMu.Unlock()

	now := m.clock.Now()
	for _, d := range l2Work {
		if !d.entry.ExpiresAt.IsZero() && !d.entry.ExpiresAt.After(now) {
			continue // already expired, don't resurrect it one tier down
		}
		ttl := m.l2TTL
		if remaining := d.entry.ExpiresAt.Sub(now); !d.entry.ExpiresAt.IsZero() && remaining < ttl {
			ttl = remaining
		}
		m.l2.Set(d.key, d.entry.Value, ttl)
	}
	for _, d := range l3Work {
		if !d.entry.ExpiresAt.IsZero() && !d.entry.ExpiresAt.After(now) {
			continue
		}
		ttl := m.l3TTL
		if remaining := d.entry.ExpiresAt.Sub(now); !d.entry.ExpiresAt.IsZero() && remaining < ttl {
			ttl = remaining
		}
		m.storeToL3(d.key, d.entry.Value, ttl)
	}
}

func (m *MultiTierCache) storeToL3(key string, value any, ttl time.Duration) {
	raw, kind, err := serialize(value)
	if err != nil {
		return
	}
	payload := append([]byte{byte(kind)}, raw...)
	if _, err := m.l3.Put(key, payload, ttl); err == nil {
		m.mu.Lock()
		m.stats.Evictions++
		m.mu.Unlock()
	}
}

// Get probes L1 -> L2 -> L3 in order, promoting on hit.
func (m *MultiTierCache) Get(key string) (any, bool) {
	m.mu.Lock()
	m.stats.Requests++
	m.mu.Unlock()

	now := m.clock.Now()

	m.l1Requests.Add(1)
	if v, ok := m.l1.Get(key); ok {
		m.l1Hits.Add(1)
		m.temps.recordAccess(key, now, int(m.hotThreshold.Load()), m.warmThreshold)
		m.hit()
		return v, true
	}

	if v, ok := m.l2.Get(key); ok {
		temp := m.temps.recordAccess(key, now, int(m.hotThreshold.Load()), m.warmThreshold)
		m.hit()
		if temp == Hot {
			m.l2.Delete(key)
			m.l1.Set(key, v, m.l1TTL)
			m.drainDemotions()
		}
		return v, true
	}

	if raw, ok := m.l3.Get(key); ok {
		if len(raw) == 0 {
			m.miss()
			return nil, false
		}
		value, err := deserialize(raw[1:], valueKind(raw[0]))
		if err != nil {
			m.miss()
			return nil, false
		}
		temp := m.temps.recordAccess(key, now, int(m.hotThreshold.Load()), m.warmThreshold)
		m.hit()
		switch temp {
		case Hot:
			m.l3.Delete(key)
			m.l1.Set(key, value, m.l1TTL)
			m.drainDemotions()
		case Warm:
			m.l3.Delete(key)
			m.l2.Set(key, value, m.l2TTL)
			m.drainDemotions()
		}
		return value, true
	}

	m.temps.recordAccess(key, now, int(m.hotThreshold.Load()), m.warmThreshold)
	m.miss()
	return nil, false
}

// Set stores value under key in the tier matching its current temperature
// classification (cold if unknown).
func (m *MultiTierCache) Set(key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	m.mu.Lock()
	m.stats.Sets++
	m.mu.Unlock()

	temp := m.temps.classification(key, int(m.hotThreshold.Load()), m.warmThreshold)

	effTTL := ttl
	switch temp {
	case Hot:
		if effTTL <= 0 {
			effTTL = m.l1TTL
		}
		m.l1.Set(key, value, effTTL)
	case Warm:
		if effTTL <= 0 {
			effTTL = m.l2TTL
		}
		m.l2.Set(key, value, effTTL)
	default:
		if effTTL <= 0 {
			effTTL = m.l3TTL
		}
		m.storeToL3(key, value, effTTL)
	}
	m.drainDemotions()
	return true
}

func (m *MultiTierCache) Has(key string) bool {
	if m.l1.Has(key) || m.l2.Has(key) {
		return true
	}
	_, ok := m.l3.Get(key)
	return ok
}

func (m *MultiTierCache) Delete(key string) bool {
	d1 := m.l1.Delete(key)
	d2 := m.l2.Delete(key)
	d3 := m.l3.Delete(key)
	if d1 || d2 || d3 {
		m.mu.Lock()
		m.stats.Deletes++
		m.mu.Unlock()
		return true
	}
	return false
}

func (m *MultiTierCache) Clear() int {
	n := m.l1.Clear() + m.l2.Clear() + m.l3.Clear()
	return n
}

func (m *MultiTierCache) hit() {
	m.mu.Lock()
	m.stats.Hits++
	m.mu.Unlock()
}

func (m *MultiTierCache) miss() {
	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
}

// DetailedStats reports per-tier sizes alongside the aggregate envelope.
type DetailedStats struct {
	Overall          cache.Stats
	L1Size, L2Size   int
	L3Size           int
	TemperatureTable int
	Compressions     uint64
	Decompressions   uint64
	CompressionRatio float64 // compressions / all Sets
}

func (m *MultiTierCache) Stats() cache.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Algorithm = "multitier"
	comp, decomp, _ := m.l3.Counters()
	s.Compressions = comp
	s.Decompressions = decomp
	return s
}

func (m *MultiTierCache) DetailedStats() DetailedStats {
	comp, decomp, _ := m.l3.Counters()
	overall := m.Stats()
	ratio := 0.0
	if overall.Sets > 0 {
		ratio = float64(comp) / float64(overall.Sets)
	}
	return DetailedStats{
		Overall:          overall,
		L1Size:           len(m.l1.Keys()),
		L2Size:           len(m.l2.Keys()),
		L3Size:           m.l3.Len(),
		TemperatureTable: m.temps.size(),
		Compressions:     comp,
		Decompressions:   decomp,
		CompressionRatio: ratio,
	}
}

// L1HitRate reports the fraction of Get calls satisfied directly from L1.
// It is cumulative; neither Stats nor DetailedStats resets it. Read by
// facade.AutoTuner to decide whether hot_threshold should come down.
func (m *MultiTierCache) L1HitRate() float64 {
	reqs := m.l1Requests.Load()
	if reqs == 0 {
		return 0
	}
	return float64(m.l1Hits.Load()) / float64(reqs)
}

// L1Requests reports how many Get calls have been attempted against L1
// (i.e. total Get calls on the tier), so a caller can distinguish "0% L1
// hit rate" from "L1 has never been probed" before acting on L1HitRate.
func (m *MultiTierCache) L1Requests() uint64 { return m.l1Requests.Load() }

// HotThreshold returns the current live hot_threshold value.
func (m *MultiTierCache) HotThreshold() int { return int(m.hotThreshold.Load()) }

// SetHotThreshold adjusts the live hot_threshold value, floored at 2 per
// the documented auto-tune rule.
func (m *MultiTierCache) SetHotThreshold(n int) {
	if n < 2 {
		n = 2
	}
	m.hotThreshold.Store(int32(n))
}

// SetCompressionThreshold adjusts the cold-tier's compress-above-this-size
// threshold live.
func (m *MultiTierCache) SetCompressionThreshold(bytes int) {
	m.l3.SetThreshold(bytes)
}

func (m *MultiTierCache) Destroy() {
	m.l1.Destroy()
	m.l2.Destroy()
}

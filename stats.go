package cache

/*
Stats is the statistics envelope exposed per cache instance:

	requests, hits, misses, sets, deletes, evictions, compressions,
	decompressions, cleanups, memory_optimizations, bytes_resident, hit_rate

Every concrete cache (SingleCache, LFUCache, ARCCache, MultiTierCache)
accumulates these under its own mutex and returns a value-copy snapshot
from Stats().
*/
type Stats struct {
	Partition           string
	Algorithm           string
	Requests            uint64
	Hits                uint64
	Misses              uint64
	Sets                uint64
	Deletes             uint64
	Evictions           uint64
	Compressions        uint64
	Decompressions      uint64
	Cleanups            uint64
	MemoryOptimizations uint64
	BytesResident       int64
}

// HitRate returns hits / (hits + misses), or 0 when there have been no
// requests yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Add returns the field-wise sum of s and o, used by partition.Registry to
// aggregate stats across partitions.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Requests:            s.Requests + o.Requests,
		Hits:                s.Hits + o.Hits,
		Misses:              s.Misses + o.Misses,
		Sets:                s.Sets + o.Sets,
		Deletes:             s.Deletes + o.Deletes,
		Evictions:           s.Evictions + o.Evictions,
		Compressions:        s.Compressions + o.Compressions,
		Decompressions:      s.Decompressions + o.Decompressions,
		Cleanups:            s.Cleanups + o.Cleanups,
		MemoryOptimizations: s.MemoryOptimizations + o.MemoryOptimizations,
		BytesResident:       s.BytesResident + o.BytesResident,
	}
}

package multitier

import (
	"bytes"
	"sync"
	"time"

	"github.com/promptvault/cache"
)

/*
CompressedStore is the cold-tier substrate: a byte-only store whose writes
are always compressed above a configured threshold, and whose reads always
decompress. Entries smaller than the threshold are stored raw behind a
one-byte format tag, so small values never pay compression overhead for no
benefit.
*/
type CompressedStore struct {
	mu         sync.Mutex
	data       map[string]storedBytes
	ttl        map[string]time.Time
	compressor cache.Compressor
	threshold  int
	clock      cache.Clock

	compressions   uint64
	decompressions uint64
	failures       uint64
}

const (
	formatRaw byte = iota
	formatCompressed
)

type storedBytes struct {
	format byte
	bytes  []byte
}

func NewCompressedStore(compressor cache.Compressor, threshold int, clock cache.Clock) *CompressedStore {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &CompressedStore{
		data:       make(map[string]storedBytes),
		ttl:        make(map[string]time.Time),
		compressor: compressor,
		threshold:  threshold,
		clock:      clock,
	}
}

// Put compresses (when over threshold) and stores data under key, honoring
// its own TTL map independent of any list-based ordering. Returns the
// number of bytes actually stored (post-compression). Compression itself
// runs with the lock released: only the threshold/compressor snapshot and
// the final map install are guarded, so one key's compression never blocks
// another key's concurrent Put/Get.
func (s *CompressedStore) Put(key string, data []byte, ttl time.Duration) (int, error) {
	s.mu.Lock()
	threshold := s.threshold
	compressor := s.compressor
	s.mu.Unlock()

	var sb storedBytes
	compressedThisCall := false
	if len(data) >= threshold && compressor != nil {
		compressed, err := compressor.Compress(data)
		if err != nil {
			s.mu.Lock()
			s.failures++
			s.mu.Unlock()
			return 0, cache.ErrCompressionFailure
		}
		sb = storedBytes{format: formatCompressed, bytes: compressed}
		compressedThisCall = true
	} else {
		sb = storedBytes{format: formatRaw, bytes: data}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = sb
	if ttl > 0 {
		s.ttl[key] = s.clock.Now().Add(ttl)
	} else {
		delete(s.ttl, key)
	}
	if compressedThisCall {
		s.compressions++
	}
	return len(sb.bytes), nil
}

// Get decompresses (when needed) and returns the bytes stored under key.
// Decompression runs with the lock released; the pre- and post-decompress
// map access are each guarded separately, with a same-bytes check before
// evicting a failed entry so a concurrent overwrite of key isn't clobbered.
func (s *CompressedStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	if exp, ok := s.ttl[key]; ok && s.clock.Now().After(exp) {
		delete(s.data, key)
		delete(s.ttl, key)
		s.mu.Unlock()
		return nil, false
	}
	sb, ok := s.data[key]
	compressor := s.compressor
	s.mu.Unlock()

	if !ok {
		return nil, false
	}
	if sb.format == formatRaw {
		return sb.bytes, true
	}

	out, err := compressor.Decompress(sb.bytes)
	if err != nil {
		// CompressionFailure: the affected entry is treated as absent.
		s.mu.Lock()
		if cur, ok := s.data[key]; ok && bytes.Equal(cur.bytes, sb.bytes) {
			delete(s.data, key)
			delete(s.ttl, key)
		}
		s.failures++
		s.mu.Unlock()
		return nil, false
	}

	s.mu.Lock()
	s.decompressions++
	s.mu.Unlock()
	return out, true
}

func (s *CompressedStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	delete(s.ttl, key)
	return ok
}

func (s *CompressedStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *CompressedStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data)
	s.data = make(map[string]storedBytes)
	s.ttl = make(map[string]time.Time)
	return n
}

// Counters returns (compressions, decompressions, failures) for stats
// aggregation by MultiTierCache.
func (s *CompressedStore) Counters() (uint64, uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compressions, s.decompressions, s.failures
}

// SetThreshold adjusts the byte threshold above which Put compresses,
// letting facade.AutoTuner lower it when the observed compression ratio
// is too low to be worth the per-write overhead.
func (s *CompressedStore) SetThreshold(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = bytes
}

/*
Package adaptive implements Multi, a cache front-end that measures the hit
rate and responsiveness of several candidate eviction algorithms and
switches the active one when a challenger clearly outperforms the
incumbent.
*/
package adaptive

import (
	"time"

	"github.com/promptvault/cache"
)

// Algorithm is the common shape every candidate cache satisfies:
// lru.SingleCache, lfu.LFUCache, and arc.ARCCache all implement it without
// modification.
type Algorithm interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration) bool
	Has(key string) bool
	Delete(key string) bool
	Clear() int
	Stats() cache.Stats
}

// KeyLister is implemented by algorithms that can enumerate their resident
// keys. Multi does not call it: every candidate already receives every
// write, so a switch only changes which candidate serves reads and no keys
// are migrated. Not every Algorithm needs to support it.
type KeyLister interface {
	Keys() []string
}

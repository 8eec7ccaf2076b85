/*
Package lfu implements LFUCache: frequency-keyed eviction with an
oldest-last-accessed tiebreak.

Frequencies are tracked with a frequency-bucket structure
(map[int]*list.List) plus a running minFreq, giving O(1) eviction instead
of an O(n) scan for the least-frequently-used key.
*/
package lfu

import (
	"container/list"
	"sync"
	"time"

	"github.com/promptvault/cache"
)

type node struct {
	key   string
	entry *cache.Entry
	freq  int
}

// LFUCache is the frequency-bucketed, TTL-aware LFU cache.
type LFUCache struct {
	mu       sync.Mutex
	maxSize  int
	entries  map[string]*list.Element
	buckets  map[int]*list.List
	minFreq  int
	clock    cache.Clock
	stats    cache.Stats
}

type Option func(*LFUCache)

func WithMaxSize(n int) Option { return func(c *LFUCache) { c.maxSize = n } }
func WithClock(clk cache.Clock) Option { return func(c *LFUCache) { c.clock = clk } }

func New(opts ...Option) *LFUCache {
	c := &LFUCache{
		maxSize: 1000,
		entries: make(map[string]*list.Element),
		buckets: make(map[int]*list.List),
		clock:   cache.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key, incrementing its frequency counter.
// The counter increments only on Get, never on Set.
func (c *LFUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Requests++

	elem, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	n := elem.Value.(*node)
	now := c.clock.Now()
	if n.entry.Expired(now) {
		c.removeElement(elem)
		c.stats.Misses++
		return nil, false
	}

	n.entry.Touch(now)
	c.incrementFrequency(elem)
	c.stats.Hits++
	return n.entry.Value, true
}

// Set inserts or updates key without touching its frequency counter.
func (c *LFUCache) Set(key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.stats.Sets++

	if elem, ok := c.entries[key]; ok {
		n := elem.Value.(*node)
		n.entry.Value = value
		n.entry.CreatedAt = now
		if ttl > 0 {
			n.entry.ExpiresAt = now.Add(ttl)
		} else {
			n.entry.ExpiresAt = time.Time{}
		}
		return true
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evict()
	}

	entry := cache.NewEntry(value, now, ttl)
	n := &node{key: key, entry: entry, freq: 1}
	bucket := c.bucketFor(1)
	elem := bucket.PushBack(n)
	c.entries[key] = elem
	c.minFreq = 1
	return true
}

func (c *LFUCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	n := elem.Value.(*node)
	if n.entry.Expired(c.clock.Now()) {
		c.removeElement(elem)
		return false
	}
	return true
}

func (c *LFUCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.stats.Deletes++
	return true
}

func (c *LFUCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.buckets = make(map[int]*list.List)
	c.minFreq = 0
	return n
}

func (c *LFUCache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Algorithm = "lfu"
	return s
}

// Keys returns a snapshot of all resident keys, satisfying
// adaptive.KeyLister.
func (c *LFUCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// incrementFrequency moves an element from its current frequency bucket to
// the next one, advancing minFreq if the vacated bucket becomes both empty
// and the minimum. Caller holds the lock.
func (c *LFUCache) incrementFrequency(elem *list.Element) {
	n := elem.Value.(*node)
	oldFreq := n.freq
	oldBucket := c.buckets[oldFreq]
	oldBucket.Remove(elem)
	if oldBucket.Len() == 0 {
		delete(c.buckets, oldFreq)
		if c.minFreq == oldFreq {
			c.minFreq++
		}
	}

	n.freq++
	newBucket := c.bucketFor(n.freq)
	newElem := newBucket.PushBack(n)
	c.entries[n.key] = newElem
}

// evict removes the entry with the smallest frequency, ties broken by
// oldest last_accessed -- the front of the minFreq bucket, since entries
// are always appended at the back, so the oldest-accessed member of the
// bucket is always at the front.
func (c *LFUCache) evict() {
	bucket, ok := c.buckets[c.minFreq]
	if !ok || bucket.Len() == 0 {
		return
	}
	elem := bucket.Front()
	bucket.Remove(elem)
	if bucket.Len() == 0 {
		delete(c.buckets, c.minFreq)
	}
	n := elem.Value.(*node)
	delete(c.entries, n.key)
	c.stats.Evictions++
}

func (c *LFUCache) removeElement(elem *list.Element) {
	n := elem.Value.(*node)
	bucket := c.buckets[n.freq]
	bucket.Remove(elem)
	if bucket.Len() == 0 {
		delete(c.buckets, n.freq)
	}
	delete(c.entries, n.key)
}

func (c *LFUCache) bucketFor(freq int) *list.List {
	b, ok := c.buckets[freq]
	if !ok {
		b = list.New()
		c.buckets[freq] = b
	}
	return b
}

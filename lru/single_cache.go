/*
Package lru implements SingleCache, an approximate-LRU, TTL-aware,
memory-pressure-evicting single-tier cache.

ARCHITECTURAL OVERVIEW

SingleCache combines a hash map for O(1) lookup with a container/list
doubly linked list for LRU ordering. A key's position is refreshed by
moving its list element to the front on both Set and Get, so repeated
access always resurrects a key's recency.

CONCURRENCY MODEL

A single sync.RWMutex guards all internal state. Every public method that
can touch LRU order, expire an entry, or mutate stats takes the exclusive
lock -- "approximate" here describes the eviction policy's precision, not
relaxed locking.
*/
package lru

import (
	"container/list"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/promptvault/cache"
)

type node struct {
	key   string
	entry *cache.Entry
}

// SingleCache is the approximate-LRU, TTL-aware single-tier cache.
type SingleCache struct {
	data map[string]*list.Element
	ord  *list.List

	mu sync.RWMutex

	maxSize         int
	memoryThreshold float64
	bytesPerEntry   int // estimated average entry footprint, for optimize_memory
	cleanupInterval time.Duration

	clock    cache.Clock
	stats    cache.Stats
	stopChan chan struct{}
	stopped  bool

	onEvict func(key string, entry cache.Entry)
}

// Option configures a SingleCache at construction time.
type Option func(*SingleCache)

func WithMaxSize(n int) Option { return func(c *SingleCache) { c.maxSize = n } }

func WithMemoryThreshold(fraction float64) Option {
	return func(c *SingleCache) { c.memoryThreshold = fraction }
}

func WithEstimatedEntrySize(bytes int) Option {
	return func(c *SingleCache) { c.bytesPerEntry = bytes }
}

func WithClock(clk cache.Clock) Option { return func(c *SingleCache) { c.clock = clk } }

func WithCleanupInterval(d time.Duration) Option {
	return func(c *SingleCache) { c.cleanupInterval = d }
}

// WithEvictionCallback registers a callback invoked synchronously whenever
// a capacity eviction (not TTL expiry, not an explicit Delete) removes an
// entry -- used by multitier.MultiTierCache to migrate the evicted entry
// down a tier rather than discard it.
func WithEvictionCallback(fn func(key string, entry cache.Entry)) Option {
	return func(c *SingleCache) { c.onEvict = fn }
}

// New builds a SingleCache and, if a cleanup interval was configured,
// starts its background janitor -- the same initialization order as the
// teacher's New(opts ...Option).
func New(opts ...Option) *SingleCache {
	c := &SingleCache{
		data:            make(map[string]*list.Element),
		ord:             list.New(),
		maxSize:         1000,
		memoryThreshold: 0.85,
		bytesPerEntry:   128,
		clock:           cache.SystemClock{},
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startJanitor()
	return c
}

// Get retrieves a value, promoting it to most-recently-used on a live hit.
func (c *SingleCache) Get(key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Requests++

	elem, found := c.data[key]
	if !found {
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
	c.promote(elem)
	c.stats.Hits++
	return n.entry.Value, true
}

// Set inserts or updates key. Returns false only on invalid input.
func (c *SingleCache) Set(key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.stats.Sets++

	if elem, found := c.data[key]; found {
		n := elem.Value.(*node)
		n.entry.Value = value
		n.entry.CreatedAt = now
		if ttl > 0 {
			n.entry.ExpiresAt = now.Add(ttl)
		} else {
			n.entry.ExpiresAt = time.Time{}
		}
		c.promote(elem)
		return true
	}

	if c.maxSize > 0 && c.ord.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := cache.NewEntry(value, now, ttl)
	elem := c.ord.PushFront(&node{key: key, entry: entry})
	c.data[key] = elem
	return true
}

// Has reports key presence without mutating LRU order or access stats,
// but still honors lazy TTL expiry.
func (c *SingleCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key]
	if !found {
		return false
	}
	n := elem.Value.(*node)
	if n.entry.Expired(c.clock.Now()) {
		c.removeElement(elem)
		return false
	}
	return true
}

// Delete removes key unconditionally; returns true if it was present.
func (c *SingleCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key]
	if !found {
		return false
	}
	c.removeElement(elem)
	c.stats.Deletes++
	return true
}

// DeletePattern compiles pattern as a regexp and deletes every key that
// matches it in one pass. An invalid regex is reported rather than
// mutating any state.
func (c *SingleCache) DeletePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", cache.ErrInvalidPattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*list.Element
	for key, elem := range c.data {
		if re.MatchString(key) {
			toDelete = append(toDelete, elem)
		}
	}
	for _, elem := range toDelete {
		c.removeElement(elem)
		c.stats.Deletes++
	}
	return len(toDelete), nil
}

// Touch refreshes an existing key's TTL without changing its value.
func (c *SingleCache) Touch(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key]
	if !found {
		return false
	}
	n := elem.Value.(*node)
	now := c.clock.Now()
	if n.entry.Expired(now) {
		c.removeElement(elem)
		return false
	}
	if ttl > 0 {
		n.entry.ExpiresAt = now.Add(ttl)
	} else {
		n.entry.ExpiresAt = time.Time{}
	}
	c.promote(elem)
	return true
}

// Clear empties the cache and returns the number of entries removed.
func (c *SingleCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.data)
	c.data = make(map[string]*list.Element)
	c.ord.Init()
	return n
}

// Keys returns a snapshot of all live (non-expired) keys.
func (c *SingleCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	keys := make([]string, 0, len(c.data))
	for e := c.ord.Front(); e != nil; e = e.Next() {
		n := e.Value.(*node)
		if !n.entry.Expired(now) {
			keys = append(keys, n.key)
		}
	}
	return keys
}

// MaxSize returns the current capacity limit.
func (c *SingleCache) MaxSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxSize
}

// SetMaxSize adjusts the capacity limit live, letting facade.AutoTuner grow
// a simple-strategy cache when its hit rate is low but it hasn't hit the
// documented cap.
func (c *SingleCache) SetMaxSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = n
}

// Metadata returns a copy of the Entry backing key, for inspection without
// mutating access stats.
func (c *SingleCache) Metadata(key string) (cache.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, found := c.data[key]
	if !found {
		return cache.Entry{}, false
	}
	return *elem.Value.(*node).entry, true
}

// Stats returns a snapshot of accumulated statistics.
func (c *SingleCache) Stats() cache.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Algorithm = "lru"
	s.BytesResident = int64(len(c.data) * c.bytesPerEntry)
	return s
}

// promote moves elem to the front of the ordering list, assuming the
// caller already holds the write lock.
func (c *SingleCache) promote(elem *list.Element) {
	c.ord.MoveToFront(elem)
}

func (c *SingleCache) removeElement(elem *list.Element) {
	c.ord.Remove(elem)
	n := elem.Value.(*node)
	delete(c.data, n.key)
}

/*
Package arc implements ARCCache, the four-list Adaptive Replacement Cache:
resident lists T1 (recency) and T2 (frequency), and ghost lists B1/B2
tracking recently evicted keys from each.

Boundary conditions follow the canonical formulation: a ghost hit adjusts
p by max(1, other-ghost-len/this-ghost-len), and replace() evicts from T1
when |T1| >= max(1, p), else from T2.

TTL applies only to resident T1/T2 entries; ghost lists B1/B2 hold bare
keys plus an eviction timestamp and never expire on their own -- they are
trimmed purely by size.
*/
package arc

import (
	"container/list"
	"sync"
	"time"

	"github.com/promptvault/cache"
)

type residentNode struct {
	key   string
	entry *cache.Entry
}

type ghostNode struct {
	key      string
	evictedAt time.Time
}

// ARCCache is the adaptive replacement cache: T1/T2 resident, B1/B2 ghost.
type ARCCache struct {
	mu sync.Mutex

	capacity int
	p        int

	t1, t2 *list.List
	b1, b2 *list.List

	t1Map, t2Map map[string]*list.Element
	b1Map, b2Map map[string]*list.Element

	clock cache.Clock
	ttl   time.Duration
	stats cache.Stats
}

type Option func(*ARCCache)

func WithTTL(d time.Duration) Option   { return func(c *ARCCache) { c.ttl = d } }
func WithClock(clk cache.Clock) Option { return func(c *ARCCache) { c.clock = clk } }

// New builds an ARCCache with the given resident capacity c.
func New(capacity int, opts ...Option) *ARCCache {
	if capacity <= 0 {
		capacity = 1
	}
	a := &ARCCache{
		capacity: capacity,
		t1:       list.New(), t2: list.New(),
		b1: list.New(), b2: list.New(),
		t1Map: make(map[string]*list.Element), t2Map: make(map[string]*list.Element),
		b1Map: make(map[string]*list.Element), b2Map: make(map[string]*list.Element),
		clock: cache.SystemClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Get promotes a T1 hit to T2 and refreshes a T2 hit's recency.
func (a *ARCCache) Get(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Requests++
	now := a.clock.Now()

	if e, ok := a.t1Map[key]; ok {
		n := e.Value.(*residentNode)
		if n.entry.Expired(now) {
			a.t1.Remove(e)
			delete(a.t1Map, key)
			a.stats.Misses++
			return nil, false
		}
		a.t1.Remove(e)
		delete(a.t1Map, key)
		n.entry.Touch(now)
		ne := a.t2.PushFront(n)
		a.t2Map[key] = ne
		a.stats.Hits++
		return n.entry.Value, true
	}

	if e, ok := a.t2Map[key]; ok {
		n := e.Value.(*residentNode)
		if n.entry.Expired(now) {
			a.t2.Remove(e)
			delete(a.t2Map, key)
			a.stats.Misses++
			return nil, false
		}
		a.t2.MoveToFront(e)
		n.entry.Touch(now)
		a.stats.Hits++
		return n.entry.Value, true
	}

	a.stats.Misses++
	return nil, false
}

// Set stores key per the ARC state-machine.
func (a *ARCCache) Set(key string, value any, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	a.stats.Sets++
	effTTL := ttl
	if effTTL == 0 {
		effTTL = a.ttl
	}

	if e, ok := a.t1Map[key]; ok {
		n := e.Value.(*residentNode)
		n.entry.Value = value
		a.setExpiry(n.entry, now, effTTL)
		return true
	}
	if e, ok := a.t2Map[key]; ok {
		n := e.Value.(*residentNode)
		n.entry.Value = value
		a.setExpiry(n.entry, now, effTTL)
		a.t2.MoveToFront(e)
		return true
	}

	if _, ok := a.b1Map[key]; ok {
		delta := 1
		if a.b1.Len() > 0 {
			delta = max(1, a.b2.Len()/a.b1.Len())
		}
		a.p = min(a.p+delta, a.capacity)
		a.replace(false)
		a.removeGhost(a.b1, a.b1Map, key)
		a.insertT2(key, value, now, effTTL)
		return true
	}
	if _, ok := a.b2Map[key]; ok {
		delta := 1
		if a.b2.Len() > 0 {
			delta = max(1, a.b1.Len()/a.b2.Len())
		}
		a.p = max(a.p-delta, 0)
		a.replace(true)
		a.removeGhost(a.b2, a.b2Map, key)
		a.insertT2(key, value, now, effTTL)
		return true
	}

	// Complete miss.
	t1b1 := a.t1.Len() + a.b1.Len()
	if t1b1 == a.capacity {
		if a.b1.Len() > 0 {
			a.evictGhostBack(a.b1, a.b1Map)
			a.replace(false)
		} else {
			a.replace(false)
			a.evictGhostBack(a.b1, a.b1Map)
		}
	} else if t1b1 < a.capacity {
		total := a.t1.Len() + a.t2.Len() + a.b1.Len() + a.b2.Len()
		if total >= a.capacity {
			if total >= 2*a.capacity {
				a.evictGhostBack(a.b2, a.b2Map)
			}
			a.replace(false)
		}
	}
	a.insertT1(key, value, now, effTTL)
	return true
}

func (a *ARCCache) Has(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.t1Map[key]; ok {
		return true
	}
	_, ok := a.t2Map[key]
	return ok
}

func (a *ARCCache) Delete(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.t1Map[key]; ok {
		a.t1.Remove(e)
		delete(a.t1Map, key)
		a.stats.Deletes++
		return true
	}
	if e, ok := a.t2Map[key]; ok {
		a.t2.Remove(e)
		delete(a.t2Map, key)
		a.stats.Deletes++
		return true
	}
	return false
}

func (a *ARCCache) Clear() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.t1.Len() + a.t2.Len()
	a.t1.Init()
	a.t2.Init()
	a.b1.Init()
	a.b2.Init()
	a.t1Map = make(map[string]*list.Element)
	a.t2Map = make(map[string]*list.Element)
	a.b1Map = make(map[string]*list.Element)
	a.b2Map = make(map[string]*list.Element)
	a.p = 0
	return n
}

func (a *ARCCache) Stats() cache.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Algorithm = "arc"
	return s
}

// Keys returns a snapshot of every resident (T1 or T2) key, satisfying
// adaptive.KeyLister. Ghost entries are not included since they carry no
// value.
func (a *ARCCache) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, a.t1.Len()+a.t2.Len())
	for e := a.t1.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*residentNode).key)
	}
	for e := a.t2.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*residentNode).key)
	}
	return keys
}

// Sizes exposes the four list lengths and p, so callers can confirm
// |T1|+|B1| <= c, |T1|+|T2|+|B1|+|B2| <= 2c, and 0<=p<=c.
func (a *ARCCache) Sizes() (t1, t2, b1, b2, p int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t1.Len(), a.t2.Len(), a.b1.Len(), a.b2.Len(), a.p
}

func (a *ARCCache) setExpiry(e *cache.Entry, now time.Time, ttl time.Duration) {
	e.CreatedAt = now
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	} else {
		e.ExpiresAt = time.Time{}
	}
}

func (a *ARCCache) insertT1(key string, value any, now time.Time, ttl time.Duration) {
	entry := cache.NewEntry(value, now, ttl)
	e := a.t1.PushFront(&residentNode{key: key, entry: entry})
	a.t1Map[key] = e
}

func (a *ARCCache) insertT2(key string, value any, now time.Time, ttl time.Duration) {
	entry := cache.NewEntry(value, now, ttl)
	e := a.t2.PushFront(&residentNode{key: key, entry: entry})
	a.t2Map[key] = e
}

// replace demotes one resident entry to its ghost list: prefer T1->B1 if
// |T1| >= max(1,p), else T2->B2. fromB2 handles the "k in B2 and |T1|==p"
// boundary case, which also prefers T1->B1.
func (a *ARCCache) replace(fromB2 bool) {
	t1Len := a.t1.Len()
	if t1Len >= 1 && (t1Len >= max(1, a.p)) {
		a.evictResidentToGhost(a.t1, a.t1Map, a.b1, a.b1Map)
		return
	}
	if t1Len > 0 && fromB2 && t1Len == a.p {
		a.evictResidentToGhost(a.t1, a.t1Map, a.b1, a.b1Map)
		return
	}
	a.evictResidentToGhost(a.t2, a.t2Map, a.b2, a.b2Map)
}

func (a *ARCCache) evictResidentToGhost(src *list.List, srcMap map[string]*list.Element, dst *list.List, dstMap map[string]*list.Element) {
	if src.Len() == 0 {
		return
	}
	e := src.Back()
	n := e.Value.(*residentNode)
	src.Remove(e)
	delete(srcMap, n.key)

	ge := dst.PushFront(&ghostNode{key: n.key, evictedAt: a.clock.Now()})
	dstMap[n.key] = ge
	if dst.Len() > a.capacity {
		a.evictGhostBack(dst, dstMap)
	}
	a.stats.Evictions++
}

func (a *ARCCache) evictGhostBack(ghosts *list.List, ghostMap map[string]*list.Element) {
	e := ghosts.Back()
	if e == nil {
		return
	}
	g := e.Value.(*ghostNode)
	ghosts.Remove(e)
	delete(ghostMap, g.key)
}

func (a *ARCCache) removeGhost(ghosts *list.List, ghostMap map[string]*list.Element, key string) {
	if e, ok := ghostMap[key]; ok {
		ghosts.Remove(e)
		delete(ghostMap, key)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

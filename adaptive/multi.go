package adaptive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/promptvault/cache"
)

/*
Multi runs several candidate Algorithm instances side by side against the
same write traffic -- every Set is mirrored to all of them, so each
candidate's own eviction policy decides independently what it keeps -- and
routes reads through whichever candidate is currently active. A background
Selector scores each candidate's hit rate and responsiveness on live read
traffic; when a challenger clearly beats the active algorithm, Multi flips
the active pointer. Because every candidate already holds the mirrored
writes, switching is just a pointer flip -- no key migration step is
needed.
*/
type Multi struct {
	mu         sync.RWMutex
	candidates map[string]Algorithm
	order      []string
	active     string

	selector *Selector

	evaluationInterval time.Duration
	stopChan           chan struct{}
	stopped            bool
	stopOnce           sync.Once

	switchesThisWindow atomic.Int32 // how many Evaluate calls have switched since the last ResetSwitchCount call
}

// NewMulti builds a Multi from a name->Algorithm map, starting active on
// initial. evaluationInterval <= 0 disables the background evaluation
// loop; callers can still invoke Evaluate() manually (as tests do).
func NewMulti(candidates map[string]Algorithm, initial string, switchThreshold float64, minSamples uint64, evaluationInterval time.Duration) *Multi {
	order := make([]string, 0, len(candidates))
	for name := range candidates {
		order = append(order, name)
	}
	m := &Multi{
		candidates:         candidates,
		order:              order,
		active:             initial,
		selector:           NewSelector(switchThreshold, minSamples),
		evaluationInterval: evaluationInterval,
		stopChan:           make(chan struct{}),
	}
	if evaluationInterval > 0 {
		go m.evaluationLoop()
	}
	return m
}

func (m *Multi) evaluationLoop() {
	ticker := time.NewTicker(m.evaluationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Evaluate()
		case <-m.stopChan:
			return
		}
	}
}

// Active reports the name of the currently active candidate.
func (m *Multi) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Get reads through the active candidate, but also probes every other
// candidate with the same key so the selector can compare their real hit
// behavior under identical traffic.
func (m *Multi) Get(key string) (any, bool) {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	var result any
	var found bool

	for name, alg := range m.candidates {
		start := time.Now()
		v, ok := alg.Get(key)
		latency := time.Since(start)
		m.selector.Record(name, ok, latency)
		if name == active {
			result, found = v, ok
		}
	}
	return result, found
}

// Set mirrors the write to every candidate so each algorithm's own
// eviction policy operates on the same dataset.
func (m *Multi) Set(key string, value any, ttl time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ok := true
	for _, alg := range m.candidates {
		if !alg.Set(key, value, ttl) {
			ok = false
		}
	}
	return ok
}

func (m *Multi) Has(key string) bool {
	m.mu.RLock()
	alg := m.candidates[m.active]
	m.mu.RUnlock()
	return alg.Has(key)
}

func (m *Multi) Delete(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deleted := false
	for _, alg := range m.candidates {
		if alg.Delete(key) {
			deleted = true
		}
	}
	return deleted
}

func (m *Multi) Clear() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for name, alg := range m.candidates {
		cleared := alg.Clear()
		if name == m.active {
			n = cleared
		}
	}
	return n
}

// Stats returns the active candidate's own stats envelope.
func (m *Multi) Stats() cache.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.candidates[m.active].Stats()
}

// Scores exposes the selector's current per-candidate scores, for
// observability and tests.
func (m *Multi) Scores() map[string]float64 {
	return m.selector.Scores()
}

// Evaluate checks whether a challenger has overtaken the active candidate
// and, if so, switches to it. Resets the selector's window afterward
// regardless of outcome, starting a fresh comparison period.
func (m *Multi) Evaluate() (switched bool, to string) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	best, ok := m.selector.Recommend(active)
	if ok {
		m.mu.Lock()
		m.active = best
		m.mu.Unlock()
		m.switchesThisWindow.Add(1)
	}
	m.selector.Reset()
	return ok, best
}

// SwitchesSinceReset reports how many times Evaluate has switched the
// active candidate since the last call to ResetSwitchCount, for
// facade.AutoTuner's "switches > 2 per window" rule.
func (m *Multi) SwitchesSinceReset() int { return int(m.switchesThisWindow.Load()) }

// ResetSwitchCount zeroes the switch counter, starting a fresh window.
func (m *Multi) ResetSwitchCount() { m.switchesThisWindow.Store(0) }

// SwitchThreshold returns the selector's current live switch-threshold.
func (m *Multi) SwitchThreshold() float64 { return m.selector.SwitchThreshold() }

// SetSwitchThreshold adjusts the selector's live switch-threshold.
func (m *Multi) SetSwitchThreshold(t float64) { m.selector.SetSwitchThreshold(t) }

// destroyer is implemented by candidates that own a background goroutine
// (lru.SingleCache's janitor) needing an explicit stop.
type destroyer interface {
	Destroy()
}

// Destroy stops the background evaluation loop, if one was started, and
// every candidate's own background goroutines (e.g. lru.SingleCache's
// janitor), so a Multi built from mirrored-write candidates doesn't leak
// one janitor per strategy that happens to run a timer.
func (m *Multi) Destroy() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, alg := range m.candidates {
		if d, ok := alg.(destroyer); ok {
			d.Destroy()
		}
	}
}

package facade

import (
	"sync"
	"time"

	"github.com/promptvault/cache"
	"github.com/promptvault/cache/adaptive"
	"github.com/promptvault/cache/lru"
	"github.com/promptvault/cache/multitier"
)

// TuneAction records one adjustment AutoTuner made during a pass, for
// observability.
type TuneAction struct {
	At          time.Time
	Description string
}

/*
AutoTuner periodically inspects a System's stats and nudges the fixed set
of knobs documented in the design doc's auto-tune table:

  - L1 hit rate < 50% (multitier)            -> lower hot_threshold, min 2
  - compression ratio < 10% of sets (mtier)  -> lower compression_threshold to 512B
  - algorithm switches > 2 per window (adpt) -> raise switch_threshold, cap 0.15
  - hit rate < 60% and max_size < 2000 (simple) -> grow max_size by 20%, cap 2000
  - warming success rate < 30%                -> lower min_confidence, floor 0.1
  - warming success rate > 80%                -> raise min_confidence, cap 0.8

Every change a pass makes is recorded as a TuneAction, so a caller can
inspect what the tuner has been doing; a pass that changes nothing records
nothing.
*/
type AutoTuner struct {
	system *System
	cfg    cache.Config

	budgetBytes int64
	interval    time.Duration

	actionsMu sync.Mutex
	actions   []TuneAction
	stopChan  chan struct{}
}

func newAutoTuner(s *System, cfg cache.Config) *AutoTuner {
	interval := cfg.OptimizationInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	budget := int64(cfg.MaxSize) * 1024 // a conservative 1KiB/entry budget by default
	return &AutoTuner{
		system:      s,
		cfg:         cfg,
		budgetBytes: budget,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

func (t *AutoTuner) start() {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.tuneOnce()
			case <-t.stopChan:
				return
			}
		}
	}()
}

func (t *AutoTuner) stop() {
	select {
	case <-t.stopChan:
	default:
		close(t.stopChan)
	}
}

// TuneNow runs one tuning pass synchronously, bypassing the interval
// ticker. Exposed for tests driving a ManualClock deterministically.
func (t *AutoTuner) TuneNow() { t.tuneOnce() }

func (t *AutoTuner) tuneOnce() {
	stats := t.system.Stats()

	switch backend := t.system.backend.(type) {
	case *lru.SingleCache:
		if stats.BytesResident > t.budgetBytes {
			backend.OptimizeMemory(t.budgetBytes)
			t.record("optimized memory: evicted entries over budget")
		}
		if stats.HitRate() < 0.60 && backend.MaxSize() < 2000 && (stats.Hits+stats.Misses) > 0 {
			grown := int(float64(backend.MaxSize()) * 1.2)
			if grown > 2000 {
				grown = 2000
			}
			if grown > backend.MaxSize() {
				backend.SetMaxSize(grown)
				t.record("grew max_size: simple hit rate below 60%")
			}
		}

	case *multitier.MultiTierCache:
		detailed := backend.DetailedStats()
		if backend.L1Requests() > 0 && backend.L1HitRate() < 0.50 {
			backend.SetHotThreshold(backend.HotThreshold() - 1)
			t.record("lowered hot_threshold: L1 hit rate below 50%")
		}
		if detailed.Overall.Sets > 0 && detailed.CompressionRatio < 0.10 {
			backend.SetCompressionThreshold(512)
			t.record("lowered compression_threshold: compression ratio below 10%")
		}

	case *adaptive.Multi:
		if backend.SwitchesSinceReset() > 2 {
			next := backend.SwitchThreshold() + 0.02
			if next > 0.15 {
				next = 0.15
			}
			backend.SetSwitchThreshold(next)
			t.record("raised switch_threshold: more than 2 algorithm switches this window")
		}
		backend.ResetSwitchCount()
	}

	if t.system.warmer != nil && t.system.warmer.Attempts() > 0 {
		rate := t.system.warmer.SuccessRate()
		switch {
		case rate < 0.30:
			next := t.system.warmer.MinConfidence() - 0.1
			if next < 0.1 {
				next = 0.1
			}
			t.system.warmer.SetMinConfidence(next)
			t.record("lowered min_confidence: warming success rate below 30%")
		case rate > 0.80:
			next := t.system.warmer.MinConfidence() + 0.1
			if next > 0.8 {
				next = 0.8
			}
			t.system.warmer.SetMinConfidence(next)
			t.record("raised min_confidence: warming success rate above 80%")
		}
		t.system.warmer.ResetSuccessRate()
	}
}

func (t *AutoTuner) record(desc string) {
	t.actionsMu.Lock()
	t.actions = append(t.actions, TuneAction{At: t.cfg.Clock.Now(), Description: desc})
	if len(t.actions) > 100 {
		t.actions = t.actions[len(t.actions)-100:]
	}
	t.actionsMu.Unlock()
	t.cfg.Logger.Info().Str("component", "autotuner").Msg(desc)
}

// Actions returns a snapshot of recorded tuning actions, most recent last.
func (t *AutoTuner) Actions() []TuneAction {
	t.actionsMu.Lock()
	defer t.actionsMu.Unlock()
	out := make([]TuneAction, len(t.actions))
	copy(out, t.actions)
	return out
}

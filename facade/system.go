/*
Package facade exposes System, the single entry point most callers use:
it picks a concrete cache strategy (single-tier LRU, multi-tier, or
adaptive) from a Config, forwards every operation to it, and never
surfaces anything beyond a bad-key error on Set/Delete -- a miss is just
a miss, never an error.
*/
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/promptvault/cache"
	"github.com/promptvault/cache/adaptive"
	"github.com/promptvault/cache/codec"
	"github.com/promptvault/cache/internal/arc"
	"github.com/promptvault/cache/internal/lfu"
	"github.com/promptvault/cache/lru"
	"github.com/promptvault/cache/multitier"
	"github.com/promptvault/cache/warming"
)

// backend is the minimal surface every strategy's concrete cache exposes.
type backend interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration) bool
	Has(key string) bool
	Delete(key string) bool
	Clear() int
	Stats() cache.Stats
}

// System is a single named cache instance backed by one strategy.
type System struct {
	cfg     cache.Config
	backend backend

	multi *adaptive.Multi // non-nil only when cfg.Strategy == StrategyAdaptive, for AutoTuner access
	tier  *multitier.MultiTierCache

	warmer   *warming.Warmer // optional: attached automatically when Config.EnableWarming, or manually via AttachWarmer
	analyzer *warming.PatternAnalyzer

	autoTuner *AutoTuner

	warmCtx    context.Context
	warmCancel context.CancelFunc
}

// AttachWarmer wires a Warmer into this System so AutoTuner can also apply
// the warming-success-rate rules. Safe to call at most once, before
// AutoOptimize's background loop would otherwise read a nil warmer. Replaces
// any warmer New constructed automatically from Config.EnableWarming.
func (s *System) AttachWarmer(w *warming.Warmer) { s.warmer = w }

// PatternAnalyzer returns the System's access-pattern analyzer, or nil if
// New did not build a warmer from Config (EnableWarming false or no
// DataLoader). AttachWarmer does not set it. Every Get call feeds this
// analyzer automatically when it is non-nil.
func (s *System) PatternAnalyzer() *warming.PatternAnalyzer { return s.analyzer }

// Warmer returns the System's predictive warmer, or nil if warming was
// never enabled or attached.
func (s *System) Warmer() *warming.Warmer { return s.warmer }

// New builds a System from cfg, constructing whichever concrete cache the
// strategy calls for.
func New(cfg cache.Config) (*System, error) {
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}

	s := &System{cfg: cfg}

	switch cfg.Strategy {
	case cache.StrategyMultiTier:
		comp := cfg.Compressor
		if comp == nil {
			z, err := codec.NewZSTD()
			if err != nil {
				return nil, fmt.Errorf("facade: build default compressor: %w", err)
			}
			comp = z
		}
		tier := multitier.New(multitier.Config{
			L1MaxSize:            cfg.L1MaxSize,
			L2MaxSize:            cfg.L2MaxSize,
			L3MaxSize:            cfg.L3MaxSize,
			L1TTL:                cfg.L1TTL,
			L2TTL:                cfg.L2TTL,
			L3TTL:                cfg.L3TTL,
			HotThreshold:         cfg.HotThreshold,
			WarmThreshold:        cfg.WarmThreshold,
			CompressionThreshold: cfg.CompressionThreshold,
			Compressor:           comp,
			Clock:                cfg.Clock,
		})
		s.backend = tier
		s.tier = tier

	case cache.StrategyAdaptive:
		candidates := map[string]adaptive.Algorithm{
			"lru": lru.New(lru.WithMaxSize(cfg.MaxSize), lru.WithClock(cfg.Clock), lru.WithCleanupInterval(cfg.CleanupInterval)),
			"lfu": lfu.New(lfu.WithMaxSize(cfg.MaxSize), lfu.WithClock(cfg.Clock)),
			"arc": arc.New(cfg.MaxSize, arc.WithClock(cfg.Clock)),
		}
		m := adaptive.NewMulti(candidates, "lru", cfg.SwitchThreshold, 50, cfg.EvaluationInterval)
		s.backend = m
		s.multi = m

	default: // StrategySimple and any unrecognized value
		s.backend = lru.New(
			lru.WithMaxSize(cfg.MaxSize),
			lru.WithClock(cfg.Clock),
			lru.WithCleanupInterval(cfg.CleanupInterval),
			lru.WithMemoryThreshold(cfg.MemoryThreshold),
		)
	}

	if cfg.EnableWarming && cfg.DataLoader != nil {
		s.analyzer = warming.NewPatternAnalyzer(0, 0, cfg.Clock)
		s.warmer = warming.NewWarmer(s.analyzer, s.backend, cfg.DataLoader, warming.Config{
			MinConfidence: cfg.MinConfidence,
			TTL:           cfg.DefaultTTL,
			Clock:         cfg.Clock,
			Interval:      cfg.WarmingInterval,
		})
		s.warmCtx, s.warmCancel = context.WithCancel(context.Background())
		s.warmer.Start(s.warmCtx)
	}

	if cfg.AutoOptimize {
		s.autoTuner = newAutoTuner(s, cfg)
		s.autoTuner.start()
	}

	return s, nil
}

// Get returns the value stored under key. A miss is reported as (nil,
// false); it is never an error.
func (s *System) Get(key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	v, ok := s.backend.Get(key)
	if s.analyzer != nil {
		s.analyzer.RecordAccess(key, "")
	}
	return v, ok
}

// Set stores value under key. The only error this ever returns is
// ErrBadKey.
func (s *System) Set(key string, value any, ttl time.Duration) error {
	if key == "" {
		return cache.ErrBadKey
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	s.backend.Set(key, value, ttl)
	return nil
}

func (s *System) Has(key string) bool {
	if key == "" {
		return false
	}
	return s.backend.Has(key)
}

// Delete removes key. The only error this ever returns is ErrBadKey.
func (s *System) Delete(key string) error {
	if key == "" {
		return cache.ErrBadKey
	}
	s.backend.Delete(key)
	return nil
}

func (s *System) Clear() int { return s.backend.Clear() }

func (s *System) Stats() cache.Stats { return s.backend.Stats() }

// AutoTuner returns the System's background tuner, or nil if
// Config.AutoOptimize was false.
func (s *System) AutoTuner() *AutoTuner { return s.autoTuner }

// Destroy stops any background goroutines (auto-tuner, janitor, adaptive
// evaluation loop) owned by this System.
func (s *System) Destroy() {
	if s.autoTuner != nil {
		s.autoTuner.stop()
	}
	if s.warmer != nil {
		s.warmer.Destroy()
	}
	if s.warmCancel != nil {
		s.warmCancel()
	}
	if s.multi != nil {
		s.multi.Destroy()
	}
	if s.tier != nil {
		s.tier.Destroy()
	}
	if c, ok := s.backend.(*lru.SingleCache); ok {
		c.Destroy()
	}
}

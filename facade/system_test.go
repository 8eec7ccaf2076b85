package facade

import (
	"context"
	"testing"
	"time"

	"github.com/promptvault/cache"
)

func TestSystemSimpleGetSetDelete(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	s, err := New(cache.Config{
		Strategy:   cache.StrategySimple,
		MaxSize:    3,
		DefaultTTL: time.Second,
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.Set("k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := s.Get("k1"); !ok || v != "v1" {
		t.Fatalf("Get = %v,%v want v1,true", v, ok)
	}
	if err := s.Delete("k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("k1"); ok {
		t.Fatalf("Get after delete should miss")
	}
}

func TestSystemRejectsBadKey(t *testing.T) {
	s, err := New(cache.Config{Strategy: cache.StrategySimple, MaxSize: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.Set("", "v", 0); err != cache.ErrBadKey {
		t.Fatalf("Set empty key = %v, want ErrBadKey", err)
	}
	if err := s.Delete(""); err != cache.ErrBadKey {
		t.Fatalf("Delete empty key = %v, want ErrBadKey", err)
	}
}

// Scenario F: simple strategy, hit rate 45%, max_size=1000 -> after one
// optimization pass max_size grows to 1200 (20% growth, capped at 2000).
func TestAutoTunerGrowsSimpleMaxSizeOnLowHitRate(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	s, err := New(cache.Config{
		Strategy:             cache.StrategySimple,
		MaxSize:              1000,
		DefaultTTL:           time.Minute,
		AutoOptimize:         true,
		OptimizationInterval: time.Hour, // long enough that the ticker never fires; drive TuneNow directly
		Clock:                clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	// Produce a 45% hit rate: 45 hits, 55 misses.
	for i := 0; i < 45; i++ {
		s.Set("hit", "v", 0)
		s.Get("hit")
	}
	for i := 0; i < 55; i++ {
		s.Get("definitely-absent")
	}

	tuner := s.AutoTuner()
	if tuner == nil {
		t.Fatal("AutoTuner() = nil, want non-nil when AutoOptimize is true")
	}
	tuner.TuneNow()

	backend, ok := s.backend.(interface{ MaxSize() int })
	if !ok {
		t.Fatalf("backend does not expose MaxSize()")
	}
	if got := backend.MaxSize(); got != 1200 {
		t.Fatalf("MaxSize after tune = %d, want 1200", got)
	}
}

func TestAutoTunerCapsSimpleMaxSizeAt2000(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:             cache.StrategySimple,
		MaxSize:              1900,
		AutoOptimize:         true,
		OptimizationInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	for i := 0; i < 10; i++ {
		s.Get("absent")
	}
	s.Set("one-hit", "v", 0)
	s.Get("one-hit")

	s.AutoTuner().TuneNow()

	backend := s.backend.(interface{ MaxSize() int })
	if got := backend.MaxSize(); got != 2000 {
		t.Fatalf("MaxSize after tune = %d, want 2000 (1900*1.2 capped)", got)
	}
}

func TestSystemMultiTierStrategyUsesDefaultCompressor(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:             cache.StrategyMultiTier,
		L1MaxSize:            2,
		L2MaxSize:            2,
		L3MaxSize:            10,
		CompressionThreshold: 1024,
		HotThreshold:         3,
		WarmThreshold:        2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.Set("k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %v,%v want v,true", v, ok)
	}
}

func TestSystemAdaptiveStrategyRoutesThroughActiveAlgorithm(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:        cache.StrategyAdaptive,
		MaxSize:         10,
		SwitchThreshold: 0.10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.Set("k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %v,%v want v,true", v, ok)
	}
}

func TestAutoTunerLowersHotThresholdOnLowL1HitRate(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:             cache.StrategyMultiTier,
		L1MaxSize:            5,
		L2MaxSize:            5,
		L3MaxSize:            50,
		HotThreshold:         5,
		WarmThreshold:        2,
		CompressionThreshold: 1024,
		AutoOptimize:         true,
		OptimizationInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	// Nothing has ever reached L1 yet, so every L1 probe misses.
	for i := 0; i < 5; i++ {
		s.Set("k", "v", 0)
		s.Get("k")
	}

	s.AutoTuner().TuneNow()

	tier, ok := s.backend.(interface{ HotThreshold() int })
	if !ok {
		t.Fatal("backend does not expose HotThreshold()")
	}
	if got := tier.HotThreshold(); got != 4 {
		t.Fatalf("HotThreshold after tune = %d, want 4 (lowered by 1)", got)
	}
}

func TestAutoTunerLeavesAdaptiveSwitchThresholdAloneWithoutChurn(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:             cache.StrategyAdaptive,
		MaxSize:              10,
		SwitchThreshold:      0.10,
		AutoOptimize:         true,
		OptimizationInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	s.Set("k", "v", 0)
	s.Get("k")

	s.AutoTuner().TuneNow()

	if got := s.multi.SwitchThreshold(); got != 0.10 {
		t.Fatalf("SwitchThreshold after a quiet tuning pass = %v, want unchanged 0.10", got)
	}
	if got := s.multi.SwitchesSinceReset(); got != 0 {
		t.Fatalf("SwitchesSinceReset after tune = %d, want 0 (reset each pass)", got)
	}
}

func TestSystemAutoWiresWarmerFromConfig(t *testing.T) {
	loads := make(chan string, 1)
	loader := func(ctx context.Context, key string) (any, error) {
		loads <- key
		return "loaded:" + key, nil
	}

	s, err := New(cache.Config{
		Strategy:        cache.StrategySimple,
		MaxSize:         10,
		DefaultTTL:      time.Minute,
		EnableWarming:   true,
		MinConfidence:   0.01,
		WarmingInterval: 5 * time.Millisecond,
		DataLoader:      loader,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if s.PatternAnalyzer() == nil {
		t.Fatal("PatternAnalyzer() = nil, want non-nil when EnableWarming is true and a DataLoader is set")
	}
	if s.Warmer() == nil {
		t.Fatal("Warmer() = nil, want non-nil when EnableWarming is true and a DataLoader is set")
	}

	for i := 0; i < 10; i++ {
		s.Get("hot-key")
	}

	select {
	case key := <-loads:
		if key != "hot-key" {
			t.Fatalf("loader called for %q, want hot-key", key)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the warming ticker to invoke the loader for hot-key within 1s")
	}
}

func TestSystemWithoutDataLoaderSkipsAutoWarmer(t *testing.T) {
	s, err := New(cache.Config{
		Strategy:      cache.StrategySimple,
		MaxSize:       10,
		EnableWarming: true, // no DataLoader: nothing to warm with, so no warmer is built
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if s.Warmer() != nil {
		t.Fatal("Warmer() = non-nil, want nil without a DataLoader")
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	s, err := New(cache.Config{Strategy: cache.StrategySimple, MaxSize: 3, AutoOptimize: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Destroy()
	s.Destroy() // must not panic
}

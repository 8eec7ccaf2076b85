package warming

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/promptvault/cache"
)

type memTarget struct {
	mu   sync.Mutex
	data map[string]any
}

func newMemTarget() *memTarget { return &memTarget{data: make(map[string]any)} }

func (m *memTarget) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memTarget) Set(key string, value any, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return true
}

func TestPatternAnalyzerPredictsFrequentHourlyKey(t *testing.T) {
	clk := cache.NewManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	a := NewPatternAnalyzer(100, 0, clk)

	for i := 0; i < 10; i++ {
		a.RecordAccess("popular", "")
	}
	a.RecordAccess("rare", "")

	preds := a.GeneratePredictions(PredictionContext{Now: clk.Now()}, 5)
	if len(preds) == 0 {
		t.Fatalf("expected at least one prediction")
	}
	if preds[0].Key != "popular" {
		t.Fatalf("expected popular to rank first, got %s", preds[0].Key)
	}
}

func TestPatternAnalyzerTracksSequentialPerUser(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	a := NewPatternAnalyzer(100, 0, clk)

	// Interleaved sessions: user1 really goes A->C, user2 really goes B->D.
	// A naive single global "last key" would record a spurious A->B link.
	a.RecordAccess("A", "user1")
	a.RecordAccess("B", "user2")
	a.RecordAccess("C", "user1")
	a.RecordAccess("D", "user2")

	fromA := a.PredictNext("A", 5)
	for _, p := range fromA {
		if p.Key == "B" {
			t.Fatalf("expected no A->B link from interleaved sessions, got %+v", fromA)
		}
	}
	if len(fromA) != 1 || fromA[0].Key != "C" {
		t.Fatalf("expected A->C as the only sequential link for user1, got %+v", fromA)
	}

	fromB := a.PredictNext("B", 5)
	if len(fromB) != 1 || fromB[0].Key != "D" {
		t.Fatalf("expected B->D as the only sequential link for user2, got %+v", fromB)
	}
}

func TestPatternAnalyzerBlendsSequentialAndAffinityIntoScore(t *testing.T) {
	clk := cache.NewManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	a := NewPatternAnalyzer(100, 5, clk)

	for i := 0; i < 5; i++ {
		a.RecordAccess("prompt-a", "alice")
		a.RecordAccess("prompt-b", "alice")
	}
	for i := 0; i < 3; i++ {
		a.RecordAccess("prompt-c", "bob")
	}

	preds := a.GeneratePredictions(PredictionContext{Now: clk.Now(), AfterKey: "prompt-a", UserID: "alice"}, 5)
	if len(preds) == 0 {
		t.Fatalf("expected at least one blended prediction")
	}
	if preds[0].Key != "prompt-b" {
		t.Fatalf("expected prompt-b (alice's sequential+affinity successor) to rank first, got %+v", preds)
	}
	if preds[0].Confidence <= 0 || preds[0].Confidence > 1 {
		t.Fatalf("expected Confidence in (0,1], got %v", preds[0].Confidence)
	}
}

func TestWarmerSkipsAlreadyResidentKeys(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	a := NewPatternAnalyzer(100, 0, clk)
	for i := 0; i < 10; i++ {
		a.RecordAccess("k1", "")
	}

	target := newMemTarget()
	target.Set("k1", "already-there", 0)

	calls := 0
	loader := func(ctx context.Context, key string) (any, error) {
		calls++
		return "loaded:" + key, nil
	}

	w := NewWarmer(a, target, loader, Config{MinConfidence: 0.01, TopN: 5, Clock: clk, Workers: 2, QueueSize: 4})
	defer w.Destroy()

	report := w.RunCycle(context.Background())
	if report.Warmed != 0 || report.Skipped == 0 {
		t.Fatalf("expected the resident key to be skipped, got %+v", report)
	}
	if calls != 0 {
		t.Fatalf("loader should not be called for a resident key")
	}
}

func TestWarmerWarmsMissingPrediction(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	a := NewPatternAnalyzer(100, 0, clk)
	for i := 0; i < 10; i++ {
		a.RecordAccess("k1", "")
	}

	target := newMemTarget()
	loader := func(ctx context.Context, key string) (any, error) {
		return "loaded:" + key, nil
	}

	w := NewWarmer(a, target, loader, Config{MinConfidence: 0.01, TopN: 5, Clock: clk, Workers: 2, QueueSize: 4})
	defer w.Destroy()

	report := w.RunCycle(context.Background())
	if report.Warmed != 1 {
		t.Fatalf("expected one key warmed, got %+v", report)
	}
	if !target.Has("k1") {
		t.Fatalf("expected k1 to be loaded into target")
	}
}

func TestWarmerRunCycleSurvivesLoaderPanic(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	a := NewPatternAnalyzer(100, 0, clk)
	for i := 0; i < 10; i++ {
		a.RecordAccess("k1", "")
	}

	target := newMemTarget()
	loader := func(ctx context.Context, key string) (any, error) {
		panic("loader exploded")
	}

	w := NewWarmer(a, target, loader, Config{MinConfidence: 0.01, TopN: 5, Clock: clk, Workers: 2, QueueSize: 4})
	defer w.Destroy()

	report := w.RunCycle(context.Background())
	if report.Errors != 1 {
		t.Fatalf("expected the panicking loader to count as one error, got %+v", report)
	}
	if w.Crashes() != 1 {
		t.Fatalf("Crashes() = %d, want 1", w.Crashes())
	}
}

func TestWarmerStartRunsCycleOnTicker(t *testing.T) {
	a := NewPatternAnalyzer(100, 0, nil)
	for i := 0; i < 10; i++ {
		a.RecordAccess("k1", "")
	}

	target := newMemTarget()
	loader := func(ctx context.Context, key string) (any, error) {
		return "loaded:" + key, nil
	}

	w := NewWarmer(a, target, loader, Config{
		MinConfidence: 0.01, TopN: 5, Workers: 2, QueueSize: 4,
		Interval: 10 * time.Millisecond,
	})
	defer w.Destroy()

	w.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for !target.Has("k1") {
		if time.Now().After(deadline) {
			t.Fatalf("expected k1 to be warmed by the ticker within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWarmerStartNoopWithoutInterval(t *testing.T) {
	a := NewPatternAnalyzer(100, 0, nil)
	target := newMemTarget()
	loader := func(ctx context.Context, key string) (any, error) { return "v", nil }

	w := NewWarmer(a, target, loader, Config{MinConfidence: 0.01, Workers: 1, QueueSize: 1})
	defer w.Destroy()

	w.Start(context.Background()) // Interval is zero: must not panic, must not arm a ticker
	time.Sleep(20 * time.Millisecond)
}

func TestWarmerDestroyIsIdempotent(t *testing.T) {
	a := NewPatternAnalyzer(100, 0, nil)
	target := newMemTarget()
	loader := func(ctx context.Context, key string) (any, error) { return "v", nil }

	w := NewWarmer(a, target, loader, Config{MinConfidence: 0.01, Workers: 1, QueueSize: 1, Interval: time.Hour})
	w.Start(context.Background())
	w.Destroy()
	w.Destroy() // must not panic
}

package lru

import (
	"testing"
	"time"

	"github.com/promptvault/cache"
)

/*
single_cache_test.go verifies LRU ordering, TTL expiry, and pattern-delete
behavior, using a ManualClock so expiry assertions never depend on
wall-clock sleeps.
*/

func TestLRUCorrectness(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	c := New(WithMaxSize(3), WithClock(clk))

	c.Set("k1", "v1", 0)
	c.Set("k2", "v2", 0)
	c.Set("k3", "v3", 0)

	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected k1 to be found")
	}

	c.Set("k4", "v4", 0)

	if _, ok := c.Get("k2"); ok {
		t.Fatal("expected k2 to have been evicted")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected k1 to still be present")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Fatal("expected k4 to be present")
	}
}

func TestScenarioA(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	c := New(WithMaxSize(3), WithClock(clk))

	c.Set("k1", "v1", time.Second)
	c.Set("k2", "v2", time.Second)
	c.Set("k3", "v3", time.Second)

	clk.Advance(10 * time.Millisecond)
	if v, ok := c.Get("k1"); !ok || v != "v1" {
		t.Fatalf("expected v1, got %v ok=%v", v, ok)
	}

	clk.Advance(10 * time.Millisecond)
	c.Set("k4", "v4", time.Second)

	if _, ok := c.Get("k2"); ok {
		t.Fatal("expected k2 evicted")
	}

	clk.Advance(10 * time.Millisecond)
	if _, ok := c.Get("k2"); ok {
		t.Fatal("expected k2 still absent")
	}
}

func TestTTLExpiry(t *testing.T) {
	clk := cache.NewManualClock(time.Unix(0, 0))
	c := New(WithClock(clk))

	c.Set("a", "b", 100*time.Millisecond)
	clk.Advance(101 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected key to have expired")
	}
	if c.Stats().Misses == 0 {
		t.Fatal("expected expiry to count as a miss")
	}
}

func TestDeletePattern(t *testing.T) {
	c := New()

	c.Set("a1", 1, 0)
	c.Set("a2", 2, 0)
	c.Set("b1", 3, 0)

	n, err := c.DeletePattern("^a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deletions, got %d", n)
	}
	if _, ok := c.Get("a1"); ok {
		t.Fatal("a1 should be gone")
	}
	if _, ok := c.Get("a2"); ok {
		t.Fatal("a2 should be gone")
	}
	if _, ok := c.Get("b1"); !ok {
		t.Fatal("b1 should remain")
	}
}

func TestDeletePatternInvalidRegex(t *testing.T) {
	c := New()
	if _, err := c.DeletePattern("("); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestGetResurrectsPosition(t *testing.T) {
	c := New(WithMaxSize(2))

	c.Set("k1", "v1", 0)
	c.Set("k2", "v2", 0)
	c.Get("k1") // k1 becomes MRU
	c.Set("k3", "v3", 0)

	if _, ok := c.Get("k2"); ok {
		t.Fatal("expected k2 evicted as LRU")
	}
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected k1 to survive")
	}
}

func TestIdempotentDestroy(t *testing.T) {
	c := New(WithCleanupInterval(time.Millisecond))
	c.Destroy()
	c.Destroy() // must not panic
}

package arc

import "testing"

// TestARCInvariants verifies the four-list size bounds hold after inserting
// twice the capacity in distinct keys, reading one resident key, and
// inserting one more new key.
func TestARCInvariants(t *testing.T) {
	c := New(4)

	for i := 1; i <= 8; i++ {
		c.Set(keyFor(i), i, 0)
	}
	c.Get(keyFor(3))
	c.Set(keyFor(9), 9, 0)

	t1, t2, b1, b2, p := c.Sizes()
	if t1+b1 > 4 {
		t.Fatalf("|T1|+|B1| = %d > c", t1+b1)
	}
	if t1+t2+b1+b2 > 8 {
		t.Fatalf("|T1|+|T2|+|B1|+|B2| = %d > 2c", t1+t2+b1+b2)
	}
	if p < 0 || p > 4 {
		t.Fatalf("p out of range: %d", p)
	}
}

// TestScenarioC covers: c=4, insert k1..k4, access k1 and k2 (promoting
// both to T2); inserting k5 must move one of k3/k4 to B1 since p defaults
// to 0; re-inserting k3 must then grow p and reinstate k3 into T2.
func TestScenarioC(t *testing.T) {
	c := New(4)

	c.Set("k1", 1, 0)
	c.Set("k2", 2, 0)
	c.Set("k3", 3, 0)
	c.Set("k4", 4, 0)

	c.Get("k1")
	c.Get("k2")

	c.Set("k5", 5, 0)

	_, _, b1, _, pBefore := c.Sizes()
	if b1 == 0 {
		t.Fatal("expected one of k3/k4 to have moved to B1")
	}

	c.Set("k3", 30, 0)

	_, _, _, _, pAfter := c.Sizes()
	if pAfter <= pBefore {
		t.Fatalf("expected p to grow on ghost hit: before=%d after=%d", pBefore, pAfter)
	}

	if v, ok := c.Get("k3"); !ok || v != 30 {
		t.Fatalf("expected k3 reinstated with new value, got %v ok=%v", v, ok)
	}
}

func keyFor(i int) string {
	letters := [...]string{"", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"}
	return letters[i]
}

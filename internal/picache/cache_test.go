package picache

import "testing"

func TestStateTransitions(t *testing.T) {
	stats := &Stats{}
	c := New[string, int](DefaultConfig(), stats)

	steps := []struct {
		key       string
		wantState State
		wantCap   int
		wantLen   int
	}{
		{"a", StateMonomorphic, 2, 1},
		{"b", StatePolymorphic, 2, 2},
		{"c", StatePolymorphic, 4, 3},
		{"d", StatePolymorphic, 4, 4},
		{"e", StateMegamorphic, 4, 0},
	}
	if c.State() != StateUninitialized {
		t.Fatalf("new cache state = %s", c.State())
	}
	for i, st := range steps {
		c.Store(st.key, i)
		if c.State() != st.wantState || c.Capacity() != st.wantCap || c.Len() != st.wantLen {
			t.Fatalf("after storing %q: state=%s cap=%d len=%d, want %s/%d/%d",
				st.key, c.State(), c.Capacity(), c.Len(), st.wantState, st.wantCap, st.wantLen)
		}
	}
	if _, ok := c.Lookup("a"); ok {
		t.Fatal("megamorphic cache returned a hit")
	}
	c.Store("a", 1)
	if c.Len() != 0 {
		t.Fatal("megamorphic cache accepted an entry")
	}
	if stats.Sites() != 1 {
		t.Fatalf("sites = %d, want 1", stats.Sites())
	}
}

func TestLookupAndPromote(t *testing.T) {
	c := New[int, string](Config{Enabled: true, InitialCapacity: 4, MaxCapacity: 4}, nil)
	c.Store(1, "one")
	c.Store(2, "two")
	c.Store(3, "three")

	tests := []struct {
		key    int
		want   string
		wantOK bool
	}{
		{3, "three", true},
		{1, "one", true},
		{2, "two", true},
		{4, "", false},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%d) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
	if sn := c.snap.Load(); sn.entries[0].key != 2 {
		t.Errorf("last hit not promoted to front, front key = %d", sn.entries[0].key)
	}
	if c.Hits() != 3 || c.Misses() != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", c.Hits(), c.Misses())
	}

	c.Store(2, "deux")
	if got, _ := c.Lookup(2); got != "deux" {
		t.Errorf("replaced value = %q", got)
	}
}

func TestValidationMiss(t *testing.T) {
	stats := &Stats{}
	c := New[int, int](DefaultConfig(), stats)
	c.Store(1, 10)
	if _, ok := c.Lookup(1); !ok {
		t.Fatal("expected hit")
	}
	c.Miss()
	if stats.Hits() != 0 || stats.Misses() != 1 {
		t.Fatalf("stats hits/misses = %d/%d, want 0/1", stats.Hits(), stats.Misses())
	}
}

func TestDisabledCacheIsNil(t *testing.T) {
	c := New[int, int](Config{Enabled: false}, &Stats{})
	if c != nil {
		t.Fatal("disabled config produced a cache")
	}
	c.Store(1, 1)
	if _, ok := c.Lookup(1); ok {
		t.Fatal("nil cache returned a hit")
	}
	c.Invalidate()
	c.Miss()
	if c.State() != StateUninitialized || c.Hits() != 0 {
		t.Fatal("nil cache reported activity")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int, int](DefaultConfig(), nil)
	c.Store(1, 1)
	c.Store(2, 2)
	c.Store(3, 3)
	c.Invalidate()
	if c.State() != StateUninitialized || c.Len() != 0 {
		t.Fatalf("after Invalidate state=%s len=%d", c.State(), c.Len())
	}
	if _, ok := c.Lookup(1); ok {
		t.Fatal("hit after Invalidate")
	}
}

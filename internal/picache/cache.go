// Package picache implements the polymorphic inline caches used by compiled
// call sites. A cache maps a receiver shape (usually a class pointer) to the
// result of a slow lookup. Callers validate every hit against the live
// receiver, so a stale entry only costs a miss.
package picache

import (
	"fmt"
	"sync/atomic"
)

type State uint8

const (
	StateUninitialized State = iota
	StateMonomorphic
	StatePolymorphic
	// StateMegamorphic sites saw more shapes than the maximum capacity and
	// stop caching.
	StateMegamorphic
)

func (s State) String() string {
	switch s {
	case StateMonomorphic:
		return "monomorphic"
	case StatePolymorphic:
		return "polymorphic"
	case StateMegamorphic:
		return "megamorphic"
	}
	return "uninitialized"
}

// Config controls the caches created by a compiler.
type Config struct {
	Enabled         bool
	InitialCapacity int
	MaxCapacity     int
}

func DefaultConfig() Config {
	return Config{Enabled: true, InitialCapacity: 2, MaxCapacity: 4}
}

// Stats aggregates hits and misses of many sites.
type Stats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	sites  atomic.Int64
}

func (st *Stats) Hits() uint64   { return st.hits.Load() }
func (st *Stats) Misses() uint64 { return st.misses.Load() }
func (st *Stats) Sites() int64   { return st.sites.Load() }

func (st *Stats) String() string {
	total := st.Hits() + st.Misses()
	if total == 0 {
		return fmt.Sprintf("inline caches: %d sites, no activity", st.Sites())
	}
	rate := float64(st.Hits()) / float64(total) * 100.0
	return fmt.Sprintf("inline caches: %d sites, %d lookups, hits %d (%.1f%%), misses %d",
		st.Sites(), total, st.Hits(), rate, st.Misses())
}

type entry[K comparable, V any] struct {
	key K
	val V
}

// snapshot is immutable once published; writers install a new one.
type snapshot[K comparable, V any] struct {
	state    State
	capacity int
	entries  []entry[K, V]
}

// Cache is one call site's cache. A nil *Cache is valid and never hits,
// which is how disabled caching is represented.
type Cache[K comparable, V any] struct {
	snap   atomic.Pointer[snapshot[K, V]]
	max    int
	hits   atomic.Uint64
	misses atomic.Uint64
	stats  *Stats
}

// New returns a cache for one site, or nil when caching is disabled.
func New[K comparable, V any](cfg Config, stats *Stats) *Cache[K, V] {
	if !cfg.Enabled {
		return nil
	}
	initial, max := cfg.InitialCapacity, cfg.MaxCapacity
	if initial < 1 {
		initial = 1
	}
	if max < initial {
		max = initial
	}
	c := &Cache[K, V]{max: max, stats: stats}
	c.snap.Store(&snapshot[K, V]{capacity: initial})
	if stats != nil {
		stats.sites.Add(1)
	}
	return c
}

// Lookup returns the value cached for key. A hit on a later entry moves it
// to the front.
func (c *Cache[K, V]) Lookup(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	sn := c.snap.Load()
	for i, e := range sn.entries {
		if e.key != key {
			continue
		}
		if i > 0 {
			c.promote(sn, i)
		}
		c.hit()
		return e.val, true
	}
	c.miss()
	return zero, false
}

// Miss records a hit that failed validation by the caller.
func (c *Cache[K, V]) Miss() {
	if c == nil {
		return
	}
	c.hits.Add(^uint64(0))
	if c.stats != nil {
		c.stats.hits.Add(^uint64(0))
	}
	c.miss()
}

func (c *Cache[K, V]) hit() {
	c.hits.Add(1)
	if c.stats != nil {
		c.stats.hits.Add(1)
	}
}

func (c *Cache[K, V]) miss() {
	c.misses.Add(1)
	if c.stats != nil {
		c.stats.misses.Add(1)
	}
}

func (c *Cache[K, V]) promote(sn *snapshot[K, V], i int) {
	next := &snapshot[K, V]{state: sn.state, capacity: sn.capacity, entries: make([]entry[K, V], len(sn.entries))}
	next.entries[0] = sn.entries[i]
	copy(next.entries[1:i+1], sn.entries[:i])
	copy(next.entries[i+1:], sn.entries[i+1:])
	c.snap.CompareAndSwap(sn, next)
}

// Store installs or replaces the value for key. A full cache grows up to the
// maximum capacity and then turns megamorphic.
func (c *Cache[K, V]) Store(key K, val V) {
	if c == nil {
		return
	}
	for {
		sn := c.snap.Load()
		if sn.state == StateMegamorphic {
			return
		}
		next := &snapshot[K, V]{capacity: sn.capacity}
		replaced := false
		next.entries = make([]entry[K, V], 0, len(sn.entries)+1)
		for _, e := range sn.entries {
			if e.key == key {
				e.val = val
				replaced = true
			}
			next.entries = append(next.entries, e)
		}
		if !replaced {
			if len(sn.entries) >= sn.capacity {
				if sn.capacity >= c.max {
					next.entries = nil
					next.state = StateMegamorphic
					if c.snap.CompareAndSwap(sn, next) {
						return
					}
					continue
				}
				next.capacity = min(sn.capacity*2, c.max)
			}
			next.entries = append(next.entries, entry[K, V]{key: key, val: val})
		}
		switch {
		case len(next.entries) == 1:
			next.state = StateMonomorphic
		default:
			next.state = StatePolymorphic
		}
		if c.snap.CompareAndSwap(sn, next) {
			return
		}
	}
}

// Invalidate drops every entry; the site starts over uninitialized.
func (c *Cache[K, V]) Invalidate() {
	if c == nil {
		return
	}
	sn := c.snap.Load()
	c.snap.Store(&snapshot[K, V]{capacity: sn.capacity})
}

func (c *Cache[K, V]) State() State {
	if c == nil {
		return StateUninitialized
	}
	return c.snap.Load().state
}

// Capacity is the current number of entries the site may hold.
func (c *Cache[K, V]) Capacity() int {
	if c == nil {
		return 0
	}
	return c.snap.Load().capacity
}

func (c *Cache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.snap.Load().entries)
}

func (c *Cache[K, V]) Hits() uint64 {
	if c == nil {
		return 0
	}
	return c.hits.Load()
}

func (c *Cache[K, V]) Misses() uint64 {
	if c == nil {
		return 0
	}
	return c.misses.Load()
}

package object

import (
	"math"
	"strings"
)

type ObjList struct {
	Items []Obj
}

func NewList(items []Obj) *ObjList {
	if items == nil {
		items = []Obj{}
	}
	return &ObjList{Items: items}
}

func (l *ObjList) Class() *ObjClass { return ListClass }
func (l *ObjList) Inspect() string  { return "[" + inspectAll(l.Items) + "]" }

// ObjMap is an insertion-ordered hash map.
type ObjMap struct {
	index   map[any]int
	entries []*ObjMapEntry
}

func NewMap() *ObjMap {
	return &ObjMap{index: map[any]int{}}
}

func (m *ObjMap) Class() *ObjClass { return MapClass }
func (m *ObjMap) Inspect() string {
	parts := make([]string, len(m.entries))
	for i, e := range m.entries {
		parts[i] = inspectNested(e.Key) + " => " + inspectNested(e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *ObjMap) Len() int { return len(m.entries) }

func (m *ObjMap) Get(key Obj) (Obj, bool) {
	if i, ok := m.index[keyOf(key)]; ok {
		return m.entries[i].Value, true
	}
	return nil, false
}

func (m *ObjMap) Put(key, value Obj) {
	k := keyOf(key)
	if i, ok := m.index[k]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, &ObjMapEntry{Key: key, Value: value})
}

func (m *ObjMap) Remove(key Obj) (Obj, bool) {
	k := keyOf(key)
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	removed := m.entries[i].Value
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.entries); j++ {
		m.index[keyOf(m.entries[j].Key)] = j
	}
	return removed, true
}

// Entries returns the entries in insertion order.
func (m *ObjMap) Entries() []*ObjMapEntry { return m.entries }

// ObjMapEntry is a key/value pair, also produced by the `=>` operator.
type ObjMapEntry struct {
	Key   Obj
	Value Obj
}

func (e *ObjMapEntry) Class() *ObjClass { return MapEntryClass }
func (e *ObjMapEntry) Inspect() string {
	return inspectNested(e.Key) + " => " + inspectNested(e.Value)
}

// ObjSet is an insertion-ordered set.
type ObjSet struct {
	m *ObjMap
}

func NewSet() *ObjSet { return &ObjSet{m: NewMap()} }

func (s *ObjSet) Class() *ObjClass { return SetClass }
func (s *ObjSet) Inspect() string  { return "Set(" + inspectAll(s.Items()) + ")" }

func (s *ObjSet) Len() int { return s.m.Len() }

// Add inserts v and reports whether it was absent.
func (s *ObjSet) Add(v Obj) bool {
	if _, ok := s.m.Get(v); ok {
		return false
	}
	s.m.Put(v, v)
	return true
}

func (s *ObjSet) Has(v Obj) bool {
	_, ok := s.m.Get(v)
	return ok
}

func (s *ObjSet) Remove(v Obj) bool {
	_, ok := s.m.Remove(v)
	return ok
}

func (s *ObjSet) Items() []Obj {
	items := make([]Obj, len(s.m.entries))
	for i, e := range s.m.entries {
		items[i] = e.Key
	}
	return items
}

// ObjRange is `start..end` or `start..<end`.
type ObjRange struct {
	Start     Obj
	End       Obj
	Exclusive bool
}

func (r *ObjRange) Class() *ObjClass { return RangeClass }
func (r *ObjRange) Inspect() string {
	op := ".."
	if r.Exclusive {
		op = "..<"
	}
	return r.Start.Inspect() + op + r.End.Inspect()
}

// IntBounds returns the closed integer interval [first, last] of an Int
// range. The range is empty when first > last.
func (r *ObjRange) IntBounds() (first, last int64, ok bool) {
	a, ok1 := r.Start.(*ObjInt)
	b, ok2 := r.End.(*ObjInt)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	if !r.Exclusive {
		return a.Value, b.Value, true
	}
	if b.Value == math.MinInt64 {
		return math.MaxInt64, math.MinInt64, true
	}
	return a.Value, b.Value - 1, true
}

// ObjIterator is the builtin iterator produced by `iterator()`.
type ObjIterator struct {
	next   func() (Obj, bool)
	peeked Obj
	done   bool
}

func NewIterator(next func() (Obj, bool)) *ObjIterator { return &ObjIterator{next: next} }

func SliceIterator(items []Obj) *ObjIterator {
	i := 0
	return NewIterator(func() (Obj, bool) {
		if i >= len(items) {
			return nil, false
		}
		v := items[i]
		i++
		return v, true
	})
}

func (it *ObjIterator) Class() *ObjClass { return IteratorClass }
func (it *ObjIterator) Inspect() string  { return "Iterator" }

func (it *ObjIterator) HasNext() bool {
	if it.peeked != nil {
		return true
	}
	if it.done {
		return false
	}
	v, ok := it.next()
	if !ok {
		it.done = true
		return false
	}
	it.peeked = v
	return true
}

// Next returns the next element; ok is false when exhausted.
func (it *ObjIterator) Next() (Obj, bool) {
	if !it.HasNext() {
		return nil, false
	}
	v := it.peeked
	it.peeked = nil
	return v, true
}

package object

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var nextID atomic.Uint64

func nextScopeID() uint64 {
	return nextID.Add(1)
}

type ScopeKind uint8

const (
	// ScopeBlock is a plain lexical block, a module or the root.
	ScopeBlock ScopeKind = iota
	// ScopeFrame is the call frame of a named function or method; its parent
	// is the scope the function was declared in.
	ScopeFrame
	// ScopeClosure is the call frame of a lambda: its parent is the caller
	// and captured is the scope the lambda was created in.
	ScopeClosure
	// ScopeInstance holds the fields of one instance.
	ScopeInstance
)

// Scope is a frame of the environment chain.
type Scope struct {
	id       uint64
	parent   *Scope
	captured *Scope
	kind     ScopeKind

	bindings map[string]*Record
	// slots and slotNames list the records in declaration order with the
	// name each is bound under.
	slots     []*Record
	slotNames []string

	thisObj  Obj
	ownsThis bool
	args     *Arguments

	currentClass *ObjClass
	extensions   map[*ObjClass]map[string]*Record

	machine *Machine
	ctx     context.Context
	module  string
	depth   int
	pooled  bool
	// retained frames are reachable from a closure or class and never go
	// back to the pool.
	retained bool
}

func newScope(m *Machine) *Scope {
	return &Scope{
		id:       nextScopeID(),
		bindings: map[string]*Record{},
		machine:  m,
		ctx:      context.Background(),
	}
}

// NewRootScope creates the root of a scope tree owned by m.
func NewRootScope(m *Machine) *Scope {
	slog.Debug("new root scope", slog.Bool("pool", m != nil && m.pool != nil))
	return newScope(m)
}

// NewChild creates a block scope under s. It sees the same this and lexical
// class as s.
func (s *Scope) NewChild() *Scope {
	c := newScope(s.machine)
	c.parent = s
	c.inherit(s)
	return c
}

// NewModuleScope creates the top-level scope of a module under s.
func (s *Scope) NewModuleScope(module string) *Scope {
	c := s.NewChild()
	c.module = module
	return c
}

// WithContext returns a child scope observing ctx for cancellation.
func (s *Scope) WithContext(ctx context.Context) *Scope {
	c := s.NewChild()
	c.ctx = ctx
	return c
}

// Retain marks s and every frame on its parent chain as outliving the
// current call. A retained frame's ancestors are already retained.
func (s *Scope) Retain() {
	for f := s; f != nil && !f.retained; f = f.parent {
		f.retained = true
	}
}

// SetContext makes s and the scopes created from it observe ctx. Module
// scopes are created before the run that fills them.
func (s *Scope) SetContext(ctx context.Context) { s.ctx = ctx }

func (s *Scope) inherit(from *Scope) {
	s.thisObj = from.thisObj
	s.currentClass = from.currentClass
	s.ctx = from.ctx
	s.module = from.module
	s.depth = from.depth
	s.args = from.args
}

func (s *Scope) ID() uint64                { return s.id }
func (s *Scope) Parent() *Scope            { return s.parent }
func (s *Scope) Captured() *Scope          { return s.captured }
func (s *Scope) Kind() ScopeKind           { return s.kind }
func (s *Scope) Machine() *Machine         { return s.machine }
func (s *Scope) Context() context.Context  { return s.ctx }
func (s *Scope) Module() string            { return s.module }
func (s *Scope) Args() *Arguments          { return s.args }
func (s *Scope) CurrentClass() *ObjClass   { return s.currentClass }
func (s *Scope) SetCurrentClass(c *ObjClass) { s.currentClass = c }
func (s *Scope) Depth() int                { return s.depth }

// This returns the receiver visible from s, or nil.
func (s *Scope) This() Obj { return s.thisObj }

// SetThis makes o the receiver of s; members of o resolve from s.
func (s *Scope) SetThis(o Obj) {
	s.thisObj = o
	s.ownsThis = o != nil
}

// SetParent relinks s, refusing links that would make the chain cyclic.
func (s *Scope) SetParent(p *Scope) error {
	for f := p; f != nil; f = f.parent {
		if f == s {
			return s.Raise(IllegalStateExceptionClass, "scope %d would become its own ancestor", s.id)
		}
	}
	s.parent = p
	return nil
}

// Local returns the record declared directly in s.
func (s *Scope) Local(name string) *Record { return s.bindings[name] }

// SlotFor returns the i-th record of s if it is bound under name.
func (s *Scope) SlotFor(i int, name string) *Record {
	if i < 0 || i >= len(s.slots) || s.slotNames[i] != name {
		return nil
	}
	return s.slots[i]
}

// SlotIndex returns the declaration index of the record bound under name in
// s, or -1.
func (s *Scope) SlotIndex(name string) int {
	for i, n := range s.slotNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Records returns the records of s in declaration order.
func (s *Scope) Records() []*Record { return s.slots }

func (s *Scope) defineRaw(rec *Record) { s.put(rec.Name, rec) }

func (s *Scope) put(name string, rec *Record) {
	if _, ok := s.bindings[name]; ok {
		for i, n := range s.slotNames {
			if n == name {
				s.slots[i] = rec
			}
		}
	} else {
		s.slots = append(s.slots, rec)
		s.slotNames = append(s.slotNames, name)
	}
	s.bindings[name] = rec
}

// Define declares name in s. A name predeclared with Unset is initialized in
// place so that records linked elsewhere see the value; any other existing
// name is an error.
func (s *Scope) Define(name string, value Obj, mutable bool, vis Visibility, kind RecordKind) (*Record, error) {
	if old, ok := s.bindings[name]; ok {
		if old.Value != Unset || old.Kind == KindProperty {
			return nil, s.Raise(IllegalAssignmentExceptionClass, "%s is already defined", name)
		}
		old.Value = value
		old.Mutable = mutable
		old.Visibility = vis
		old.Kind = kind
		return old, nil
	}
	rec := &Record{
		Name:           name,
		Value:          value,
		Mutable:        mutable,
		Visibility:     vis,
		Kind:           kind,
		DeclaringClass: s.currentClass,
		Origin:         s.module,
	}
	s.defineRaw(rec)
	return rec, nil
}

// Bind declares an immutable public value, overwriting any previous binding.
// Host code uses it to install globals.
func (s *Scope) Bind(name string, value Obj) *Record {
	rec := &Record{Name: name, Value: value, Kind: KindOther, Origin: s.module}
	s.defineRaw(rec)
	return rec
}

// Predeclare reserves name with Unset so that it can be linked before the
// code defining it runs. The record carries its declared visibility from
// the start.
func (s *Scope) Predeclare(name string, vis Visibility) {
	if _, ok := s.bindings[name]; ok {
		return
	}
	s.defineRaw(&Record{Name: name, Value: Unset, Visibility: vis, Origin: s.module})
}

// Link installs an existing record under alias, sharing its identity. A
// name already present with a different origin is an error.
func (s *Scope) Link(alias string, rec *Record) error {
	if old, ok := s.bindings[alias]; ok {
		if old == rec {
			return nil
		}
		if old.Origin != rec.Origin {
			return s.Raise(IllegalAssignmentExceptionClass,
				"import of %s from %s conflicts with existing definition from %s",
				alias, originName(rec.Origin), originName(old.Origin))
		}
	}
	s.put(alias, rec)
	return nil
}

func originName(o string) string {
	if o == "" {
		return "<script>"
	}
	return o
}

// AddExtension registers an extension member of cls declared in s.
func (s *Scope) AddExtension(cls *ObjClass, rec *Record) {
	if s.extensions == nil {
		s.extensions = map[*ObjClass]map[string]*Record{}
	}
	byName := s.extensions[cls]
	if byName == nil {
		byName = map[string]*Record{}
		s.extensions[cls] = byName
	}
	byName[rec.Name] = rec
	if s.machine != nil {
		s.machine.extensionCount.Add(1)
	}
	memberEpoch.Add(1)
}

// reset prepares a pooled frame for reuse: all bindings are dropped and the
// frame gets a fresh identity so stale references can be told apart.
func (s *Scope) reset() {
	s.id = nextScopeID()
	clear(s.bindings)
	clear(s.slots)
	s.slots = s.slots[:0]
	s.slotNames = s.slotNames[:0]
	s.parent = nil
	s.captured = nil
	s.thisObj = nil
	s.ownsThis = false
	s.args = nil
	s.currentClass = nil
	s.extensions = nil
	s.module = ""
	s.kind = ScopeBlock
}

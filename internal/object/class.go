package object

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// memberEpoch changes whenever any class member table changes. Inline caches
// remember the epoch they were filled at and treat a mismatch as a miss.
var memberEpoch atomic.Uint64

func MemberEpoch() uint64 { return memberEpoch.Load() }

type fieldDecl struct {
	name       string
	mutable    bool
	visibility Visibility
	class      *ObjClass
}

// ParentInit is a direct parent reference of a user class together with the
// argument list written in the class header.
type ParentInit struct {
	Class *ObjClass
	Args  ArgsBuilder
}

// ClassBody holds the compiled per-instance part of a user class.
type ClassBody struct {
	Ctor        *ArgsDeclaration
	ParentInits []ParentInit
	// Init holds field initializers and init blocks in declaration order. They
	// run in the constructor frame whose this is the new instance.
	Init []*Statement
}

type ObjClass struct {
	Name    string
	Parents []*ObjClass

	mro       []*ObjClass
	ancestors map[*ObjClass]struct{}
	members   map[string]*Record
	fields    map[string]*fieldDecl

	Body *ClassBody
	// NativeInit initializes the part of an instance owned by a builtin class,
	// e.g. the message of an exception.
	NativeInit func(caller *Scope, inst *ObjInstance, args *Arguments) error
	// Factory replaces construction for builtin classes whose values are not
	// instances, such as List() or Mutex(). Such classes can't be inherited.
	Factory func(caller *Scope, args *Arguments) (Obj, error)
	// DeclScope is the scope the class was declared in; methods close over it.
	DeclScope *Scope
	// Static is the class init scope: this is the class, static initializers
	// run in it once.
	Static *Scope

	// Instantiable is false for builtin value classes such as Int.
	Instantiable bool
	Enum         bool
	entries      []*ObjInstance
}

// NewClass creates a class with the given direct parents; with no parents the
// class derives from Obj.
func NewClass(name string, parents ...*ObjClass) *ObjClass {
	c := &ObjClass{
		Name:         name,
		members:      map[string]*Record{},
		fields:       map[string]*fieldDecl{},
		Instantiable: true,
	}
	if len(parents) == 0 && RootClass != nil {
		parents = []*ObjClass{RootClass}
	}
	c.Parents = parents
	c.linearize()
	return c
}

func (c *ObjClass) Class() *ObjClass { return ClassClass }
func (c *ObjClass) Inspect() string  { return c.Name }

// MRO returns the linearized ancestors, the class itself first.
func (c *ObjClass) MRO() []*ObjClass { return c.mro }

// IsA reports whether c is other or one of its descendants.
func (c *ObjClass) IsA(other *ObjClass) bool {
	_, ok := c.ancestors[other]
	return ok
}

func (c *ObjClass) linearize() {
	mro, ok := c3Merge(c)
	if !ok {
		mro = depthFirst(c)
	}
	c.mro = mro
	c.ancestors = make(map[*ObjClass]struct{}, len(mro))
	for _, k := range mro {
		c.ancestors[k] = struct{}{}
	}
}

// c3Merge computes the C3 linearization; ok is false when the hierarchy has
// no consistent order.
func c3Merge(c *ObjClass) ([]*ObjClass, bool) {
	var seqs [][]*ObjClass
	for _, p := range c.Parents {
		seqs = append(seqs, append([]*ObjClass(nil), p.mro...))
	}
	seqs = append(seqs, append([]*ObjClass(nil), c.Parents...))
	result := []*ObjClass{c}

	inTail := func(k *ObjClass) bool {
		for _, seq := range seqs {
			for _, t := range seq[1:] {
				if t == k {
					return true
				}
			}
		}
		return false
	}

	for {
		live := seqs[:0]
		for _, seq := range seqs {
			if len(seq) > 0 {
				live = append(live, seq)
			}
		}
		seqs = live
		if len(seqs) == 0 {
			return result, true
		}
		var candidate *ObjClass
		for _, seq := range seqs {
			if !inTail(seq[0]) {
				candidate = seq[0]
				break
			}
		}
		if candidate == nil {
			return nil, false
		}
		result = append(result, candidate)
		for i, seq := range seqs {
			if seq[0] == candidate {
				seqs[i] = seq[1:]
			}
		}
	}
}

func depthFirst(c *ObjClass) []*ObjClass {
	seen := map[*ObjClass]bool{}
	var out []*ObjClass
	var visit func(k *ObjClass)
	visit = func(k *ObjClass) {
		if seen[k] || k == RootClass {
			return
		}
		seen[k] = true
		out = append(out, k)
		for _, p := range k.Parents {
			visit(p)
		}
	}
	visit(c)
	if c != RootClass && RootClass != nil {
		out = append(out, RootClass)
	}
	return out
}

// AddMember installs a method, property or static field declared by c.
func (c *ObjClass) AddMember(rec *Record) {
	if rec.DeclaringClass == nil {
		rec.DeclaringClass = c
	}
	c.members[rec.Name] = rec
	memberEpoch.Add(1)
}

// OwnMember returns a member declared directly by c.
func (c *ObjClass) OwnMember(name string) *Record { return c.members[name] }

// FindMember looks name up through the MRO.
func (c *ObjClass) FindMember(name string) *Record {
	for _, k := range c.mro {
		if rec := k.members[name]; rec != nil {
			return rec
		}
	}
	return nil
}

// MemberNames lists the member names of c and its ancestors, sorted.
func (c *ObjClass) MemberNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, k := range c.mro {
		for name := range k.members {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// CreateField declares an instance field. Redeclaring a field that the class
// or an ancestor already declares as val is rejected, as is declaring the
// same name twice in one class.
func (c *ObjClass) CreateField(name string, mutable bool, vis Visibility) error {
	for _, k := range c.mro {
		fd := k.fields[name]
		if fd == nil {
			continue
		}
		if k == c {
			return fmt.Errorf("field %s is already declared in %s", name, c.Name)
		}
		if !fd.mutable {
			return fmt.Errorf("field %s is already defined as val in %s", name, k.Name)
		}
	}
	c.fields[name] = &fieldDecl{name: name, mutable: mutable, visibility: vis, class: c}
	return nil
}

// HasField reports whether c or an ancestor declares an instance field.
func (c *ObjClass) HasField(name string) bool {
	for _, k := range c.mro {
		if k.fields[name] != nil {
			return true
		}
	}
	return false
}

// Entries returns the entries of an enum class in ordinal order.
func (c *ObjClass) Entries() []*ObjInstance { return c.entries }

// NewEnumClass creates an enum class with one instance per entry name. Each
// entry has the fields name and ordinal and is a static member of the class.
func NewEnumClass(name string, decl *Scope, entryNames []string) *ObjClass {
	c := NewClass(name, EnumBaseClass)
	c.Enum = true
	c.Instantiable = false
	c.DeclScope = decl
	for i, en := range entryNames {
		inst := newInstance(c)
		inst.Fields.defineRaw(&Record{Name: "name", Value: NewString(en), Kind: KindField, DeclaringClass: c})
		inst.Fields.defineRaw(&Record{Name: "ordinal", Value: NewInt(int64(i)), Kind: KindField, DeclaringClass: c})
		c.entries = append(c.entries, inst)
		c.AddMember(&Record{Name: en, Value: inst, Kind: KindField, Static: true})
	}
	return c
}

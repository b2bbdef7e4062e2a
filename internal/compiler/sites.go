package compiler

import (
	"lyng/internal/object"
	"lyng/internal/picache"
)

// Call sites keep an inline cache of their last lookups. Every hit is
// validated against the live receiver before use; a failed validation is
// a miss and falls back to the full lookup, so results never depend on the
// cache.

// identSite resolves a bare identifier. It caches the slot index of a
// binding found directly in the accessing frame.
type identSite struct {
	name  string
	cache *picache.Cache[object.ScopeKind, int]
}

func (p *Parser) newIdentSite(name string) *identSite {
	return &identSite{name: name, cache: picache.New[object.ScopeKind, int](p.cacheCfg, p.stats)}
}

// resolve returns the record and, for members of a frame's receiver, the
// receiver. A missing name raises SymbolNotFoundException.
func (site *identSite) resolve(s *object.Scope) (*object.Record, object.Obj, error) {
	if idx, ok := site.cache.Lookup(s.Kind()); ok {
		if rec := s.SlotFor(idx, site.name); rec != nil {
			if err := s.CheckAccess(rec); err != nil {
				return nil, nil, err
			}
			return rec, nil, nil
		}
		site.cache.Miss()
	}
	rec, recv, err := s.Resolve(site.name)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, s.Raise(object.SymbolNotFoundExceptionClass, "symbol %s is not defined", site.name)
	}
	if recv == nil && s.Local(site.name) == rec {
		site.cache.Store(s.Kind(), s.SlotIndex(site.name))
	}
	return rec, recv, nil
}

func (site *identSite) read(s *object.Scope) (object.Obj, error) {
	rec, recv, err := site.resolve(s)
	if err != nil {
		return nil, err
	}
	if recv == nil {
		if rec.Value == object.Unset {
			return nil, s.Raise(object.IllegalStateExceptionClass, "%s is not initialized", rec.Name)
		}
		if rec.Kind != object.KindProperty {
			return rec.Value, nil
		}
	}
	return object.ReadMember(s, recv, rec)
}

// memberEntry is the cached result of a member lookup for one class.
// field >= 0 is the slot of an instance field; otherwise rec is the class
// member found while the member epoch was epoch.
type memberEntry struct {
	field int
	rec   *object.Record
	epoch uint64
}

// memberSite resolves `recv.name`. Extension members are never cached.
type memberSite struct {
	name  string
	cache *picache.Cache[*object.ObjClass, memberEntry]
}

func (p *Parser) newMemberSite(name string) *memberSite {
	return &memberSite{name: name, cache: p.newCache()}
}

func (site *memberSite) find(s *object.Scope, recv object.Obj) (*object.Record, error) {
	if _, isClass := recv.(*object.ObjClass); isClass || object.IsNull(recv) {
		return object.FindMethod(s, recv, site.name)
	}
	inst, isInst := recv.(*object.ObjInstance)
	cls := recv.Class()
	if e, ok := site.cache.Lookup(cls); ok {
		if rec := site.validate(inst, isInst, e); rec != nil {
			if err := s.CheckAccess(rec); err != nil {
				return nil, err
			}
			return rec, nil
		}
		site.cache.Miss()
	}
	rec, err := object.FindMethod(s, recv, site.name)
	if err != nil {
		return nil, err
	}
	switch {
	case isInst && inst.Fields.Local(site.name) == rec:
		site.cache.Store(cls, memberEntry{field: inst.Fields.SlotIndex(site.name)})
	case cls.FindMember(site.name) == rec:
		site.cache.Store(cls, memberEntry{field: -1, rec: rec, epoch: object.MemberEpoch()})
	}
	return rec, nil
}

func (site *memberSite) validate(inst *object.ObjInstance, isInst bool, e memberEntry) *object.Record {
	if e.field >= 0 {
		if !isInst {
			return nil
		}
		return inst.Fields.SlotFor(e.field, site.name)
	}
	if e.epoch != object.MemberEpoch() {
		return nil
	}
	if isInst && inst.Fields.Local(site.name) != nil {
		return nil
	}
	return e.rec
}

func (site *memberSite) read(s *object.Scope, recv object.Obj) (object.Obj, error) {
	rec, err := site.find(s, recv)
	if err != nil {
		return nil, err
	}
	return object.ReadMember(s, recv, rec)
}

func (site *memberSite) write(s *object.Scope, recv, v object.Obj) error {
	rec, err := site.find(s, recv)
	if err != nil {
		return err
	}
	return assignRecord(s, rec, v)
}

func (site *memberSite) call(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
	rec, err := site.find(s, recv)
	if err != nil {
		return nil, err
	}
	return object.CallMember(s, recv, rec, args)
}

// indexSite caches the specialized element getter per receiver class.
type indexSite struct {
	cache *picache.Cache[*object.ObjClass, object.IndexGetter]
}

func (p *Parser) newIndexSite() *indexSite {
	return &indexSite{cache: picache.New[*object.ObjClass, object.IndexGetter](p.cacheCfg, p.stats)}
}

func (site *indexSite) get(s *object.Scope, recv, index object.Obj) (object.Obj, error) {
	if object.IsNull(recv) {
		return object.GetAt(s, recv, index)
	}
	cls := recv.Class()
	if g, ok := site.cache.Lookup(cls); ok {
		return g(s, recv, index)
	}
	g := object.IndexGetterFor(cls)
	site.cache.Store(cls, g)
	return g(s, recv, index)
}

func assignRecord(s *object.Scope, rec *object.Record, v object.Obj) error {
	if rec.Kind == object.KindMethod {
		return s.Raise(object.IllegalAssignmentExceptionClass, "can't assign to method %s", rec.Name)
	}
	return rec.Assign(s, v)
}

package object

import (
	"errors"
	"strings"
	"testing"

	"lyng/internal/util"
)

func newTestMachine() *Machine {
	return NewMachine(util.DefaultConfiguration())
}

func mustDefine(t *testing.T, s *Scope, name string, v Obj) *Record {
	t.Helper()
	rec, err := s.Define(name, v, false, Public, KindOther)
	if err != nil {
		t.Fatalf("define %s: %v", name, err)
	}
	return rec
}

func resolveValue(t *testing.T, s *Scope, name string) string {
	t.Helper()
	rec, recv, err := s.Resolve(name)
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	if rec == nil {
		return "<missing>"
	}
	v, err := ReadMember(s, recv, rec)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return v.Inspect()
}

func TestShadowingOrder(t *testing.T) {
	m := newTestMachine()
	mod := m.Globals.NewModuleScope("main")
	mustDefine(t, mod, "x", NewString("module"))

	cls := NewClass("Box")
	withField := newInstance(cls)
	if _, err := withField.DefineField(mod, "x", NewString("field"), false, Public, cls); err != nil {
		t.Fatal(err)
	}
	withoutField := newInstance(cls)

	closureOver := func(recv Obj, caller *Scope) *Scope {
		method := m.newFrame(ScopeFrame, mod, mod, false)
		method.SetThis(recv)
		method.currentClass = cls
		cl := m.newFrame(ScopeClosure, caller, method, false)
		cl.captured = method
		return cl
	}

	tests := []struct {
		name  string
		scope func() *Scope
		want  string
	}{
		{
			name: "local shadows captured field",
			scope: func() *Scope {
				cl := closureOver(withField, mod)
				mustDefine(t, cl, "x", NewString("local"))
				return cl
			},
			want: "local",
		},
		{
			name:  "captured field shadows module",
			scope: func() *Scope { return closureOver(withField, mod) },
			want:  "field",
		},
		{
			name:  "module when the receiver has no field",
			scope: func() *Scope { return closureOver(withoutField, mod) },
			want:  "module",
		},
		{
			name: "captured receiver before the caller chain",
			scope: func() *Scope {
				caller := mod.NewChild()
				mustDefine(t, caller, "x", NewString("caller"))
				return closureOver(withField, caller)
			},
			want: "field",
		},
		{
			name: "caller chain after the captured chain",
			scope: func() *Scope {
				caller := mod.NewChild()
				mustDefine(t, caller, "y", NewString("caller"))
				return closureOver(withoutField, caller)
			},
			want: "module",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveValue(t, tt.scope(), "x"); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestVisibility(t *testing.T) {
	m := newTestMachine()
	base := NewClass("Base")
	base.AddMember(&Record{Name: "secret", Value: NewInt(1), Kind: KindMethod, Visibility: Private})
	base.AddMember(&Record{Name: "shared", Value: NewInt(2), Kind: KindMethod, Visibility: Protected})
	base.AddMember(&Record{Name: "open", Value: NewInt(3), Kind: KindMethod})
	other := NewClass("Other")
	mixin := NewClass("Mixin")
	child := NewClass("Child", mixin, base)
	unrelated := NewClass("Unrelated", mixin)

	tests := []struct {
		from   *ObjClass
		member string
		ok     bool
	}{
		{base, "secret", true},
		{child, "secret", false},
		{nil, "secret", false},
		{base, "shared", true},
		{child, "shared", true},
		{unrelated, "shared", false},
		{other, "shared", false},
		{nil, "shared", false},
		{nil, "open", true},
		{unrelated, "open", true},
	}
	for _, tt := range tests {
		from := "<none>"
		if tt.from != nil {
			from = tt.from.Name
		}
		t.Run(from+"/"+tt.member, func(t *testing.T) {
			s := m.Globals.NewChild()
			s.SetCurrentClass(tt.from)
			_, err := FindMethod(s, newInstance(child), tt.member)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				var ee *ExecutionError
				if !errors.As(err, &ee) || ee.ClassName() != "IllegalAccessException" {
					t.Fatalf("expected IllegalAccessException, got %v", err)
				}
			}
		})
	}
}

func TestResolveDetectsCycles(t *testing.T) {
	m := newTestMachine()
	first := m.Globals.NewChild()
	last := first
	for i := 0; i < shallowDepth+8; i++ {
		last = last.NewChild()
	}
	if err := first.SetParent(last); err == nil {
		t.Fatal("SetParent accepted a cyclic link")
	}

	first.parent = last
	_, _, err := last.Resolve("missing")
	if err == nil || !strings.Contains(err.Error(), "scope cycle detected") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestDefineAndAssign(t *testing.T) {
	m := newTestMachine()
	s := m.Globals.NewChild()

	val, _ := s.Define("x", NewInt(1), false, Public, KindOther)
	if err := val.Assign(s, NewInt(2)); err == nil {
		t.Fatal("val accepted reassignment")
	}
	v, _ := s.Define("y", NewInt(1), true, Public, KindOther)
	if err := v.Assign(s, NewInt(2)); err != nil || resolveValue(t, s, "y") != "2" {
		t.Fatalf("var assignment failed: %v", err)
	}
	deferred, _ := s.Define("z", Unset, false, Public, KindOther)
	if err := deferred.Assign(s, NewInt(3)); err != nil {
		t.Fatalf("first assignment of deferred val failed: %v", err)
	}
	if err := deferred.Assign(s, NewInt(4)); err == nil {
		t.Fatal("deferred val accepted a second assignment")
	}
	if _, err := s.Define("x", NewInt(5), false, Public, KindOther); err == nil {
		t.Fatal("redefinition in the same scope accepted")
	}

	s.Predeclare("later", Public)
	early, _, _ := s.Resolve("later")
	if _, err := s.Define("later", NewInt(6), false, Public, KindOther); err != nil {
		t.Fatalf("define over predeclared name: %v", err)
	}
	if early.Value.Inspect() != "6" {
		t.Fatal("predeclared record was not initialized in place")
	}
}

func TestLinkConflicts(t *testing.T) {
	m := newTestMachine()
	lib := m.Globals.NewModuleScope("lib")
	other := m.Globals.NewModuleScope("other")
	rec := mustDefine(t, lib, "answer", NewInt(42))
	clash := mustDefine(t, other, "answer", NewInt(0))

	dest := m.Globals.NewModuleScope("main")
	if err := dest.Link("answer", rec); err != nil {
		t.Fatal(err)
	}
	if err := dest.Link("answer", rec); err != nil {
		t.Fatalf("relinking the same record failed: %v", err)
	}
	if dest.Local("answer") != rec {
		t.Fatal("link does not share record identity")
	}
	if err := dest.Link("answer", clash); err == nil {
		t.Fatal("conflicting import accepted")
	}
	if err := dest.Link("renamed", clash); err != nil || dest.SlotFor(dest.SlotIndex("renamed"), "renamed") != clash {
		t.Fatalf("aliased link failed: %v", err)
	}
}

func TestExtensionLookup(t *testing.T) {
	m := newTestMachine()
	mod := m.Globals.NewModuleScope("main")
	if rec := FindExtension(mod, StringClass, "shout"); rec != nil {
		t.Fatal("extension found before registration")
	}
	mod.AddExtension(RootClass, &Record{Name: "shout", Value: NewString("root"), Kind: KindMethod})
	mod.AddExtension(StringClass, &Record{Name: "shout", Value: NewString("string"), Kind: KindMethod})
	inner := mod.NewChild()

	if rec := FindExtension(inner, StringClass, "shout"); rec == nil || rec.Value.Inspect() != "string" {
		t.Fatalf("expected String extension, got %+v", rec)
	}
	if rec := FindExtension(inner, IntClass, "shout"); rec == nil || rec.Value.Inspect() != "root" {
		t.Fatalf("expected Obj extension, got %+v", rec)
	}
	if rec := FindExtension(m.Globals, StringClass, "shout"); rec != nil {
		t.Fatal("extension visible outside its declaring scope")
	}
}

func TestScopePoolResetsFrames(t *testing.T) {
	cfg := util.DefaultConfiguration()
	cfg.ScopePoolEnabled = true
	m := NewMachine(cfg)

	f := m.newFrame(ScopeFrame, m.Globals, m.Globals, true)
	id := f.ID()
	mustDefine(t, f, "x", NewInt(1))
	f.SetThis(NewInt(5))
	m.releaseFrame(f)

	g := m.newFrame(ScopeFrame, m.Globals, m.Globals, true)
	if g != f {
		t.Fatal("released frame was not reused")
	}
	if g.ID() == id {
		t.Fatal("reused frame kept its identity")
	}
	if g.Local("x") != nil || len(g.Records()) != 0 || g.ownsThis {
		t.Fatal("reused frame kept state")
	}
	if m.Pool().Reused() != 1 {
		t.Fatalf("expected 1 reuse, got %d", m.Pool().Reused())
	}

	nonPooled := m.newFrame(ScopeFrame, m.Globals, m.Globals, false)
	m.releaseFrame(nonPooled)
	if again := m.newFrame(ScopeFrame, m.Globals, m.Globals, true); again == nonPooled {
		t.Fatal("non-poolable frame entered the pool")
	}
}

package object

import (
	"math/rand"
	"testing"

	"lyng/internal/util"
)

func constStmt(v Obj) *Statement {
	return &Statement{Exec: func(*Scope) (Obj, error) { return v, nil }}
}

func inspectValues(values []Obj) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Inspect()
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ints(values ...int64) []Obj {
	out := make([]Obj, len(values))
	for i, v := range values {
		out[i] = NewInt(v)
	}
	return out
}

func TestBindVariadicBothEnds(t *testing.T) {
	m := NewMachine(util.DefaultConfiguration())
	decl := NewArgsDeclaration([]ArgDecl{
		{Name: "a"},
		{Name: "b", Default: constStmt(NewInt(10))},
		{Name: "rest", Variadic: true},
		{Name: "z"},
	})

	tests := []struct {
		name    string
		args    *Arguments
		want    []string
		wantErr string
	}{
		{
			name: "named back parameter",
			args: &Arguments{List: ints(1), Named: []NamedArg{{Name: "z", Value: NewInt(9)}}},
			want: []string{"1", "10", "[]", "9"},
		},
		{
			name: "positional from both ends",
			args: Args(ints(1, 2, 3, 4, 5)...),
			want: []string{"1", "2", "[3, 4]", "5"},
		},
		{
			name: "exactly the required ones",
			args: Args(ints(1, 2)...),
			want: []string{"1", "10", "[]", "2"},
		},
		{
			name: "named front parameter",
			args: &Arguments{List: ints(1, 2), Named: []NamedArg{{Name: "b", Value: NewInt(7)}}},
			want: []string{"1", "7", "[]", "2"},
		},
		{
			name:    "named front parameter also covered positionally",
			args:    &Arguments{List: ints(1, 2, 3), Named: []NamedArg{{Name: "b", Value: NewInt(7)}}},
			wantErr: "IllegalArgumentException: argument b is already given positionally",
		},
		{
			name:    "variadic by name",
			args:    &Arguments{Named: []NamedArg{{Name: "rest", Value: NewInt(1)}}},
			wantErr: "IllegalArgumentException: variadic parameter rest can't be passed by name",
		},
		{
			name:    "unknown name",
			args:    &Arguments{List: ints(1, 2), Named: []NamedArg{{Name: "q", Value: NewInt(1)}}},
			wantErr: "IllegalArgumentException: unknown argument name: q",
		},
		{
			name:    "duplicate name",
			args:    &Arguments{List: ints(1), Named: []NamedArg{{Name: "z", Value: NewInt(1)}, {Name: "z", Value: NewInt(2)}}},
			wantErr: "IllegalArgumentException: argument z is already given",
		},
		{
			name:    "missing required",
			args:    NoArgs(),
			wantErr: "IllegalArgumentException: too few arguments: no value for parameter a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := decl.Bind(m.Globals, tt.args)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got values %v", tt.wantErr, inspectValues(values))
				}
				if got := err.(*ExecutionError).Exception.Inspect(); got != tt.wantErr {
					t.Fatalf("expected error %q, got %q", tt.wantErr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := inspectValues(values); !sameStrings(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBindPositionalNamedConflict(t *testing.T) {
	m := NewMachine(util.DefaultConfiguration())
	decl := NewArgsDeclaration([]ArgDecl{{Name: "a"}, {Name: "b"}})
	args := &Arguments{List: ints(1, 2), Named: []NamedArg{{Name: "a", Value: NewInt(3)}}}
	_, err := decl.Bind(m.Globals, args)
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "IllegalArgumentException: argument a is already given positionally"
	if got := err.(*ExecutionError).Exception.Inspect(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDefaultsEvaluatedInCallerScope(t *testing.T) {
	m := NewMachine(util.DefaultConfiguration())
	caller := m.Globals.NewChild()
	caller.Bind("base", NewInt(40))
	decl := NewArgsDeclaration([]ArgDecl{{
		Name: "x",
		Default: &Statement{Exec: func(s *Scope) (Obj, error) {
			rec, _, err := s.Resolve("base")
			if err != nil || rec == nil {
				t.Fatalf("default could not see caller binding: %v", err)
			}
			return Plus(s, rec.Value, NewInt(2))
		}},
	}})
	values, err := decl.Bind(caller, NoArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values[0].Inspect() != "42" {
		t.Fatalf("expected 42, got %s", values[0].Inspect())
	}
}

// The positional fast path and the general algorithm must agree on every
// purely positional call: same values or the same error message.
func TestFastPathMatchesGeneral(t *testing.T) {
	m := NewMachine(util.DefaultConfiguration())
	rnd := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := rnd.Intn(6)
		params := make([]ArgDecl, n)
		for i := range params {
			params[i] = ArgDecl{Name: string(rune('a' + i))}
			if rnd.Intn(2) == 0 {
				params[i].Default = constStmt(NewInt(int64(100 + i)))
			}
		}
		decl := NewArgsDeclaration(params)
		args := Args(ints(randomInts(rnd, rnd.Intn(n+2))...)...)
		if !decl.isFastPath(args) {
			t.Fatalf("positional call not on the fast path")
		}

		fast, fastErr := decl.bindPositional(m.Globals, args)
		general, generalErr := decl.bindGeneral(m.Globals, args)
		if (fastErr == nil) != (generalErr == nil) {
			t.Fatalf("iteration %d: fast err %v, general err %v", iter, fastErr, generalErr)
		}
		if fastErr != nil {
			if fastErr.Error() != generalErr.Error() {
				t.Fatalf("iteration %d: fast err %q, general err %q", iter, fastErr, generalErr)
			}
			continue
		}
		if f, g := inspectValues(fast), inspectValues(general); !sameStrings(f, g) {
			t.Fatalf("iteration %d: fast %v, general %v", iter, f, g)
		}
	}
}

func randomInts(rnd *rand.Rand, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = rnd.Int63n(1000)
	}
	return out
}

func TestAssignToContextDefinesFields(t *testing.T) {
	m := NewMachine(util.DefaultConfiguration())
	cls := NewClass("Point")
	inst := newInstance(cls)
	frame := m.newFrame(ScopeFrame, m.Globals, m.Globals, false)
	frame.SetThis(inst)
	frame.currentClass = cls

	decl := NewArgsDeclaration([]ArgDecl{
		{Name: "x", Access: AccessVal},
		{Name: "y", Access: AccessVar},
		{Name: "scale"},
	})
	if err := decl.AssignToContext(m.Globals, frame, Args(ints(1, 2, 3)...), inst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec := inst.Fields.Local("x"); rec == nil || rec.Mutable || rec.Value.Inspect() != "1" {
		t.Fatalf("x field = %+v", rec)
	}
	if rec := inst.Fields.Local("y"); rec == nil || !rec.Mutable {
		t.Fatalf("y field = %+v", rec)
	}
	if inst.Fields.Local("scale") != nil {
		t.Fatal("plain parameter became a field")
	}
	if rec := frame.Local("scale"); rec == nil || rec.Kind != KindArgument {
		t.Fatalf("scale argument = %+v", rec)
	}
}

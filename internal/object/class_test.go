package object

import (
	"strings"
	"testing"
)

func mroNames(c *ObjClass) string {
	names := make([]string, len(c.MRO()))
	for i, k := range c.MRO() {
		names[i] = k.Name
	}
	return strings.Join(names, ",")
}

func TestLinearization(t *testing.T) {
	a := NewClass("A")
	b := NewClass("B", a)
	c := NewClass("C", a)
	d := NewClass("D", b, c)

	x := NewClass("X", a, b)
	y := NewClass("Y", b, a)
	z := NewClass("Z", x, y)

	p := NewClass("P", a, b)

	tests := []struct {
		class *ObjClass
		want  string
	}{
		{a, "A,Obj"},
		{b, "B,A,Obj"},
		{d, "D,B,C,A,Obj"},
		// X lists A before its subclass B: no C3 order exists, depth-first
		// order is used instead.
		{z, "Z,X,A,B,Y,Obj"},
		{p, "P,A,B,Obj"},
	}
	for _, tt := range tests {
		t.Run(tt.class.Name, func(t *testing.T) {
			if got := mroNames(tt.class); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIsA(t *testing.T) {
	a := NewClass("A")
	b := NewClass("B")
	c := NewClass("C", a, b)

	tests := []struct {
		class, other *ObjClass
		want         bool
	}{
		{c, a, true},
		{c, b, true},
		{c, c, true},
		{c, RootClass, true},
		{a, c, false},
		{a, b, false},
		{IntClass, NumberClass, true},
		{IllegalAccessExceptionClass, ExceptionClass, true},
		{ExceptionClass, IllegalAccessExceptionClass, false},
	}
	for _, tt := range tests {
		if got := tt.class.IsA(tt.other); got != tt.want {
			t.Errorf("%s.IsA(%s) = %v, want %v", tt.class.Name, tt.other.Name, got, tt.want)
		}
	}
}

func TestCreateField(t *testing.T) {
	base := NewClass("Base")
	derived := NewClass("Derived", base)

	steps := []struct {
		class   *ObjClass
		name    string
		mutable bool
		wantErr string
	}{
		{base, "id", false, ""},
		{base, "id", true, "field id is already declared in Base"},
		{derived, "id", true, "field id is already defined as val in Base"},
		{base, "count", true, ""},
		{derived, "count", true, ""},
		{derived, "extra", false, ""},
	}
	for _, st := range steps {
		err := st.class.CreateField(st.name, st.mutable, Public)
		switch {
		case st.wantErr == "" && err != nil:
			t.Fatalf("%s.CreateField(%s): unexpected error %v", st.class.Name, st.name, err)
		case st.wantErr != "" && (err == nil || err.Error() != st.wantErr):
			t.Fatalf("%s.CreateField(%s): expected %q, got %v", st.class.Name, st.name, st.wantErr, err)
		}
	}
	if !derived.HasField("id") || base.HasField("extra") {
		t.Fatal("HasField does not follow the MRO")
	}
}

func TestFindMemberFollowsMRO(t *testing.T) {
	a := NewClass("A")
	b := NewClass("B", a)
	c := NewClass("C", a)
	d := NewClass("D", b, c)
	a.AddMember(&Record{Name: "who", Value: NewString("a"), Kind: KindMethod})
	c.AddMember(&Record{Name: "who", Value: NewString("c"), Kind: KindMethod})

	epoch := MemberEpoch()
	rec := d.FindMember("who")
	if rec == nil || rec.Value.Inspect() != "c" {
		t.Fatalf("expected member of C, got %+v", rec)
	}
	b.AddMember(&Record{Name: "who", Value: NewString("b"), Kind: KindMethod})
	if MemberEpoch() == epoch {
		t.Fatal("AddMember did not change the member epoch")
	}
	if rec := d.FindMember("who"); rec.Value.Inspect() != "b" || rec.DeclaringClass != b {
		t.Fatalf("expected member of B, got %+v", rec)
	}
}

func TestEnumClass(t *testing.T) {
	color := NewEnumClass("Color", nil, []string{"RED", "GREEN"})
	if len(color.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(color.Entries()))
	}
	green := ReceiverMember(color, "GREEN")
	if green == nil || green.Value.Inspect() != "GREEN" {
		t.Fatalf("static entry lookup failed: %+v", green)
	}
	inst := green.Value.(*ObjInstance)
	if enumOrdinal(inst) != 1 {
		t.Fatalf("expected ordinal 1, got %d", enumOrdinal(inst))
	}
	if !color.IsA(EnumBaseClass) {
		t.Fatal("enum does not derive from Enum")
	}
}

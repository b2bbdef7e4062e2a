package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Obj is the value interface of the runtime. Every value has exactly one
// class; member lookups that are not resolved by the scope chain fall
// through to it.
type Obj interface {
	Class() *ObjClass
	Inspect() string
}

type ObjInt struct {
	Value int64
}

const (
	smallIntMin = -128
	smallIntMax = 1024
)

var smallInts [smallIntMax - smallIntMin + 1]*ObjInt

func init() {
	for i := range smallInts {
		smallInts[i] = &ObjInt{Value: int64(i + smallIntMin)}
	}
}

// NewInt returns an Int value; small values are shared.
func NewInt(v int64) *ObjInt {
	if v >= smallIntMin && v <= smallIntMax {
		return smallInts[v-smallIntMin]
	}
	return &ObjInt{Value: v}
}

func (i *ObjInt) Class() *ObjClass { return IntClass }
func (i *ObjInt) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

type ObjReal struct {
	Value float64
}

func NewReal(v float64) *ObjReal { return &ObjReal{Value: v} }

func (r *ObjReal) Class() *ObjClass { return RealClass }
func (r *ObjReal) Inspect() string {
	switch {
	case math.IsInf(r.Value, 1):
		return "Infinity"
	case math.IsInf(r.Value, -1):
		return "-Infinity"
	case math.IsNaN(r.Value):
		return "NaN"
	}
	s := strconv.FormatFloat(r.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

type ObjBool struct {
	Value bool
}

var (
	TRUE  = &ObjBool{Value: true}
	FALSE = &ObjBool{Value: false}
)

func NewBool(b bool) *ObjBool {
	if b {
		return TRUE
	}
	return FALSE
}

func (b *ObjBool) Class() *ObjClass { return BoolClass }
func (b *ObjBool) Inspect() string  { return strconv.FormatBool(b.Value) }

type ObjChar struct {
	Value rune
}

func NewChar(r rune) *ObjChar { return &ObjChar{Value: r} }

func (c *ObjChar) Class() *ObjClass { return CharClass }
func (c *ObjChar) Inspect() string  { return string(c.Value) }

type ObjString struct {
	Value string
}

func NewString(s string) *ObjString { return &ObjString{Value: s} }

func (s *ObjString) Class() *ObjClass { return StringClass }
func (s *ObjString) Inspect() string  { return s.Value }

type ObjVoid struct{}

type ObjNull struct{}

var (
	VOID = &ObjVoid{}
	NULL = &ObjNull{}
)

func (v *ObjVoid) Class() *ObjClass { return VoidClass }
func (v *ObjVoid) Inspect() string  { return "void" }

func (n *ObjNull) Class() *ObjClass { return NullClass }
func (n *ObjNull) Inspect() string  { return "null" }

// unset marks a declared binding that has not received its first value yet:
// deferred `val x` declarations and predeclared module names.
type unset struct{}

// Unset is the sentinel value of a declared but uninitialized binding. It
// never escapes to user code: reading it raises an error.
var Unset Obj = &unset{}

func (u *unset) Class() *ObjClass { return VoidClass }
func (u *unset) Inspect() string  { return "<unset>" }

// IsNull reports whether o is the null value (or a missing Go value).
func IsNull(o Obj) bool {
	if o == nil {
		return true
	}
	_, ok := o.(*ObjNull)
	return ok
}

// Truthy converts a condition value to a Go bool. Only Bool values are
// accepted as conditions.
func Truthy(s *Scope, o Obj) (bool, error) {
	if b, ok := o.(*ObjBool); ok {
		return b.Value, nil
	}
	return false, s.Raise(ClassCastExceptionClass, "condition must be Bool, got %s", o.Class().Name)
}

// ToString renders a value as user-visible text, dispatching to a user
// defined `toString()` on instances.
func ToString(s *Scope, o Obj) (string, error) {
	if inst, ok := o.(*ObjInstance); ok {
		if rec := inst.class.FindMember("toString"); rec != nil && rec.Kind == KindMethod {
			res, err := CallMember(s, inst, rec, NoArgs())
			if err != nil {
				return "", err
			}
			return res.Inspect(), nil
		}
	}
	return o.Inspect(), nil
}

// keyOf maps a value onto a comparable Go key used by Map and Set. Numbers
// with equal values share a key so that 1 and 1.0 address the same entry.
func keyOf(o Obj) any {
	switch v := o.(type) {
	case *ObjInt:
		return v.Value
	case *ObjReal:
		if v.Value == math.Trunc(v.Value) && math.Abs(v.Value) < 1<<62 {
			return int64(v.Value)
		}
		return v.Value
	case *ObjString:
		return v.Value
	case *ObjChar:
		return v.Value
	case *ObjBool:
		return v.Value
	case *ObjNull:
		return nullKey{}
	case *ObjVoid:
		return voidKey{}
	}
	return o
}

type nullKey struct{}

type voidKey struct{}

func typeError(s *Scope, op string, a, b Obj) error {
	if b == nil {
		return s.Raise(UnsupportedOperationExceptionClass, "operator %s is not supported for %s", op, a.Class().Name)
	}
	return s.Raise(UnsupportedOperationExceptionClass, "operator %s is not supported for %s and %s",
		op, a.Class().Name, b.Class().Name)
}

func inspectAll(items []Obj) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = inspectNested(it)
	}
	return strings.Join(parts, ", ")
}

// Repr renders o the way collections print their elements.
func Repr(o Obj) string { return inspectNested(o) }

// inspectNested quotes strings so that collections print unambiguously.
func inspectNested(o Obj) string {
	switch v := o.(type) {
	case *ObjString:
		return strconv.Quote(v.Value)
	case *ObjChar:
		return fmt.Sprintf("'%c'", v.Value)
	}
	return o.Inspect()
}

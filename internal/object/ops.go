package object

import (
	"math"
	"strings"
)

// Operators dispatch on the dynamic kinds of their operands. Instances of
// user classes may implement an operator with a method of the conventional
// name (plus, minus, times, div, rem, compareTo, equals, contains, getAt,
// putAt, iterator, unaryMinus).

func userOperator(s *Scope, a Obj, method string, args ...Obj) (Obj, bool, error) {
	inst, ok := a.(*ObjInstance)
	if !ok {
		return nil, false, nil
	}
	rec := inst.class.FindMember(method)
	if rec == nil || rec.Kind != KindMethod {
		return nil, false, nil
	}
	res, err := CallMember(s, inst, rec, Args(args...))
	return res, true, err
}

// ToFloat converts Int and Real values.
func ToFloat(o Obj) (float64, bool) {
	switch v := o.(type) {
	case *ObjInt:
		return float64(v.Value), true
	case *ObjReal:
		return v.Value, true
	}
	return 0, false
}

type arith struct {
	name  string
	ints  func(s *Scope, a, b int64) (Obj, error)
	reals func(a, b float64) float64
}

func (op *arith) apply(s *Scope, a, b Obj) (Obj, bool, error) {
	if x, ok := a.(*ObjInt); ok {
		if y, ok := b.(*ObjInt); ok {
			res, err := op.ints(s, x.Value, y.Value)
			return res, true, err
		}
	}
	x, ok1 := ToFloat(a)
	y, ok2 := ToFloat(b)
	if ok1 && ok2 {
		return NewReal(op.reals(x, y)), true, nil
	}
	return nil, false, nil
}

var (
	addOp = &arith{"+", func(_ *Scope, a, b int64) (Obj, error) { return NewInt(a + b), nil },
		func(a, b float64) float64 { return a + b }}
	subOp = &arith{"-", func(_ *Scope, a, b int64) (Obj, error) { return NewInt(a - b), nil },
		func(a, b float64) float64 { return a - b }}
	mulOp = &arith{"*", func(_ *Scope, a, b int64) (Obj, error) { return NewInt(a * b), nil },
		func(a, b float64) float64 { return a * b }}
	divOp = &arith{"/", func(s *Scope, a, b int64) (Obj, error) {
		if b == 0 {
			return nil, s.Raise(ArithmeticExceptionClass, "division by zero")
		}
		return NewInt(a / b), nil
	}, func(a, b float64) float64 { return a / b }}
	modOp = &arith{"%", func(s *Scope, a, b int64) (Obj, error) {
		if b == 0 {
			return nil, s.Raise(ArithmeticExceptionClass, "division by zero")
		}
		return NewInt(a % b), nil
	}, math.Mod}
)

func Plus(s *Scope, a, b Obj) (Obj, error) {
	if res, ok, err := addOp.apply(s, a, b); ok {
		return res, err
	}
	switch x := a.(type) {
	case *ObjString:
		str, err := ToString(s, b)
		if err != nil {
			return nil, err
		}
		return NewString(x.Value + str), nil
	case *ObjChar:
		if n, ok := b.(*ObjInt); ok {
			return NewChar(x.Value + rune(n.Value)), nil
		}
		if c, ok := b.(*ObjChar); ok {
			return NewString(string(x.Value) + string(c.Value)), nil
		}
	case *ObjList:
		items := append([]Obj(nil), x.Items...)
		if y, ok := b.(*ObjList); ok {
			items = append(items, y.Items...)
		} else {
			items = append(items, b)
		}
		return NewList(items), nil
	case *ObjSet:
		out := NewSet()
		for _, v := range x.Items() {
			out.Add(v)
		}
		if y, ok := b.(*ObjSet); ok {
			for _, v := range y.Items() {
				out.Add(v)
			}
		} else {
			out.Add(b)
		}
		return out, nil
	}
	if res, ok, err := userOperator(s, a, "plus", b); ok {
		return res, err
	}
	return nil, typeError(s, "+", a, b)
}

func Minus(s *Scope, a, b Obj) (Obj, error) {
	if res, ok, err := subOp.apply(s, a, b); ok {
		return res, err
	}
	switch x := a.(type) {
	case *ObjChar:
		if n, ok := b.(*ObjInt); ok {
			return NewChar(x.Value - rune(n.Value)), nil
		}
		if c, ok := b.(*ObjChar); ok {
			return NewInt(int64(x.Value - c.Value)), nil
		}
	case *ObjList:
		var items []Obj
		for _, v := range x.Items {
			eq, err := Equals(s, v, b)
			if err != nil {
				return nil, err
			}
			if !eq {
				items = append(items, v)
			}
		}
		return NewList(items), nil
	case *ObjSet:
		out := NewSet()
		for _, v := range x.Items() {
			if keyOf(v) != keyOf(b) {
				out.Add(v)
			}
		}
		return out, nil
	}
	if res, ok, err := userOperator(s, a, "minus", b); ok {
		return res, err
	}
	return nil, typeError(s, "-", a, b)
}

func Mul(s *Scope, a, b Obj) (Obj, error) {
	if res, ok, err := mulOp.apply(s, a, b); ok {
		return res, err
	}
	if x, ok := a.(*ObjString); ok {
		if n, ok := b.(*ObjInt); ok {
			if n.Value < 0 {
				return nil, s.Raise(IllegalArgumentExceptionClass, "negative repeat count %d", n.Value)
			}
			return NewString(strings.Repeat(x.Value, int(n.Value))), nil
		}
	}
	if res, ok, err := userOperator(s, a, "times", b); ok {
		return res, err
	}
	return nil, typeError(s, "*", a, b)
}

func Div(s *Scope, a, b Obj) (Obj, error) {
	if res, ok, err := divOp.apply(s, a, b); ok {
		return res, err
	}
	if res, ok, err := userOperator(s, a, "div", b); ok {
		return res, err
	}
	return nil, typeError(s, "/", a, b)
}

func Mod(s *Scope, a, b Obj) (Obj, error) {
	if res, ok, err := modOp.apply(s, a, b); ok {
		return res, err
	}
	if res, ok, err := userOperator(s, a, "rem", b); ok {
		return res, err
	}
	return nil, typeError(s, "%", a, b)
}

func Negate(s *Scope, a Obj) (Obj, error) {
	switch x := a.(type) {
	case *ObjInt:
		return NewInt(-x.Value), nil
	case *ObjReal:
		return NewReal(-x.Value), nil
	}
	if res, ok, err := userOperator(s, a, "unaryMinus"); ok {
		return res, err
	}
	return nil, typeError(s, "unary -", a, nil)
}

func Not(s *Scope, a Obj) (Obj, error) {
	b, err := Truthy(s, a)
	if err != nil {
		return nil, err
	}
	return NewBool(!b), nil
}

func cmp[T int64 | float64 | string | rune](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Compare orders two values, returning -1, 0 or 1.
func Compare(s *Scope, a, b Obj) (int, error) {
	if x, ok := a.(*ObjInt); ok {
		if y, ok := b.(*ObjInt); ok {
			return cmp(x.Value, y.Value), nil
		}
	}
	if x, ok := ToFloat(a); ok {
		if y, ok := ToFloat(b); ok {
			return cmp(x, y), nil
		}
	}
	switch x := a.(type) {
	case *ObjString:
		if y, ok := b.(*ObjString); ok {
			return cmp(x.Value, y.Value), nil
		}
	case *ObjChar:
		if y, ok := b.(*ObjChar); ok {
			return cmp(x.Value, y.Value), nil
		}
	case *ObjBool:
		if y, ok := b.(*ObjBool); ok {
			if x.Value == y.Value {
				return 0, nil
			}
			if !x.Value {
				return -1, nil
			}
			return 1, nil
		}
	case *ObjInstance:
		if x.class.Enum {
			if y, ok := b.(*ObjInstance); ok && y.class == x.class {
				return cmp(enumOrdinal(x), enumOrdinal(y)), nil
			}
		}
	}
	if res, ok, err := userOperator(s, a, "compareTo", b); ok {
		if err != nil {
			return 0, err
		}
		n, isInt := res.(*ObjInt)
		if !isInt {
			return 0, s.Raise(ClassCastExceptionClass, "compareTo must return Int, got %s", res.Class().Name)
		}
		return cmp(n.Value, 0), nil
	}
	return 0, typeError(s, "compare", a, b)
}

func enumOrdinal(inst *ObjInstance) int64 {
	if rec := inst.Fields.bindings["ordinal"]; rec != nil {
		if n, ok := rec.Value.(*ObjInt); ok {
			return n.Value
		}
	}
	return -1
}

// Equals implements `==`. Numbers compare by value across Int and Real;
// collections compare element-wise; other instances use a user `equals`
// method or identity.
func Equals(s *Scope, a, b Obj) (bool, error) {
	if a == b {
		return true, nil
	}
	if x, ok := ToFloat(a); ok {
		y, ok := ToFloat(b)
		return ok && x == y, nil
	}
	switch x := a.(type) {
	case *ObjString:
		y, ok := b.(*ObjString)
		return ok && x.Value == y.Value, nil
	case *ObjChar:
		y, ok := b.(*ObjChar)
		return ok && x.Value == y.Value, nil
	case *ObjBool:
		y, ok := b.(*ObjBool)
		return ok && x.Value == y.Value, nil
	case *ObjNull, *ObjVoid:
		return false, nil
	case *ObjList:
		y, ok := b.(*ObjList)
		if !ok || len(x.Items) != len(y.Items) {
			return false, nil
		}
		return allEqual(s, x.Items, y.Items)
	case *ObjSet:
		y, ok := b.(*ObjSet)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		for _, v := range x.Items() {
			if !y.Has(v) {
				return false, nil
			}
		}
		return true, nil
	case *ObjMap:
		y, ok := b.(*ObjMap)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		for _, e := range x.entries {
			other, found := y.Get(e.Key)
			if !found {
				return false, nil
			}
			if eq, err := Equals(s, e.Value, other); err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *ObjMapEntry:
		y, ok := b.(*ObjMapEntry)
		if !ok {
			return false, nil
		}
		return allEqual(s, []Obj{x.Key, x.Value}, []Obj{y.Key, y.Value})
	case *ObjRange:
		y, ok := b.(*ObjRange)
		if !ok || x.Exclusive != y.Exclusive {
			return false, nil
		}
		return allEqual(s, []Obj{x.Start, x.End}, []Obj{y.Start, y.End})
	case *ObjInstance:
		if IsNull(b) {
			return false, nil
		}
		if res, ok, err := userOperator(s, x, "equals", b); ok {
			if err != nil {
				return false, err
			}
			return Truthy(s, res)
		}
	}
	return false, nil
}

func allEqual(s *Scope, xs, ys []Obj) (bool, error) {
	for i := range xs {
		eq, err := Equals(s, xs[i], ys[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Contains implements `elem in container`.
func Contains(s *Scope, container, elem Obj) (bool, error) {
	switch c := container.(type) {
	case *ObjList:
		for _, v := range c.Items {
			eq, err := Equals(s, v, elem)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case *ObjSet:
		return c.Has(elem), nil
	case *ObjMap:
		_, ok := c.Get(elem)
		return ok, nil
	case *ObjString:
		switch e := elem.(type) {
		case *ObjString:
			return strings.Contains(c.Value, e.Value), nil
		case *ObjChar:
			return strings.ContainsRune(c.Value, e.Value), nil
		}
	case *ObjRange:
		if n, ok := elem.(*ObjInt); ok {
			if first, last, ok := c.IntBounds(); ok {
				return n.Value >= first && n.Value <= last, nil
			}
		}
		lo, err := Compare(s, c.Start, elem)
		if err != nil {
			return false, err
		}
		hi, err := Compare(s, elem, c.End)
		if err != nil {
			return false, err
		}
		if c.Exclusive {
			return lo <= 0 && hi < 0, nil
		}
		return lo <= 0 && hi <= 0, nil
	}
	if res, ok, err := userOperator(s, container, "contains", elem); ok {
		if err != nil {
			return false, err
		}
		return Truthy(s, res)
	}
	return false, typeError(s, "in", elem, container)
}

// IndexGetter reads `recv[index]` for receivers of one class.
type IndexGetter func(s *Scope, recv, index Obj) (Obj, error)

// IndexGetterFor returns the index reader specialized for receivers of cls.
// Call sites cache it per receiver class.
func IndexGetterFor(cls *ObjClass) IndexGetter {
	switch cls {
	case ListClass:
		return listGetAt
	case MapClass:
		return mapGetAt
	case StringClass:
		return stringGetAt
	}
	return GetAt
}

func checkIndex(s *Scope, index Obj, size int) (int, error) {
	n, ok := index.(*ObjInt)
	if !ok {
		return 0, s.Raise(ClassCastExceptionClass, "index must be Int, got %s", index.Class().Name)
	}
	if n.Value < 0 || n.Value >= int64(size) {
		return 0, s.Raise(IndexOutOfBoundsExceptionClass, "index %d out of bounds for size %d", n.Value, size)
	}
	return int(n.Value), nil
}

func listGetAt(s *Scope, recv, index Obj) (Obj, error) {
	l := recv.(*ObjList)
	i, err := checkIndex(s, index, len(l.Items))
	if err != nil {
		return nil, err
	}
	return l.Items[i], nil
}

func mapGetAt(s *Scope, recv, index Obj) (Obj, error) {
	if v, ok := recv.(*ObjMap).Get(index); ok {
		return v, nil
	}
	return NULL, nil
}

func stringGetAt(s *Scope, recv, index Obj) (Obj, error) {
	runes := []rune(recv.(*ObjString).Value)
	i, err := checkIndex(s, index, len(runes))
	if err != nil {
		return nil, err
	}
	return NewChar(runes[i]), nil
}

// GetAt implements `recv[index]` for any receiver.
func GetAt(s *Scope, recv, index Obj) (Obj, error) {
	switch recv.(type) {
	case *ObjList:
		return listGetAt(s, recv, index)
	case *ObjMap:
		return mapGetAt(s, recv, index)
	case *ObjString:
		return stringGetAt(s, recv, index)
	case *ObjNull:
		return nil, s.Raise(NullReferenceExceptionClass, "can't index null")
	}
	if res, ok, err := userOperator(s, recv, "getAt", index); ok {
		return res, err
	}
	return nil, typeError(s, "[]", recv, nil)
}

// PutAt implements `recv[index] = value`.
func PutAt(s *Scope, recv, index, value Obj) error {
	switch c := recv.(type) {
	case *ObjList:
		i, err := checkIndex(s, index, len(c.Items))
		if err != nil {
			return err
		}
		c.Items[i] = value
		return nil
	case *ObjMap:
		c.Put(index, value)
		return nil
	case *ObjNull:
		return s.Raise(NullReferenceExceptionClass, "can't index null")
	}
	if _, ok, err := userOperator(s, recv, "putAt", index, value); ok {
		return err
	}
	return typeError(s, "[]=", recv, nil)
}

// Iterator returns the builtin iterator over o, or nil when o only supports
// the iterator() member protocol.
func Iterator(s *Scope, o Obj) (*ObjIterator, error) {
	switch c := o.(type) {
	case *ObjIterator:
		return c, nil
	case *ObjList:
		return SliceIterator(c.Items), nil
	case *ObjSet:
		return SliceIterator(c.Items()), nil
	case *ObjMap:
		items := make([]Obj, len(c.entries))
		for i, e := range c.entries {
			items[i] = e
		}
		return SliceIterator(items), nil
	case *ObjString:
		runes := []rune(c.Value)
		items := make([]Obj, len(runes))
		for i, r := range runes {
			items[i] = NewChar(r)
		}
		return SliceIterator(items), nil
	case *ObjRange:
		first, last, ok := c.IntBounds()
		if !ok {
			return nil, s.Raise(UnsupportedOperationExceptionClass, "range %s is not iterable", c.Inspect())
		}
		i, done := first, first > last
		return NewIterator(func() (Obj, bool) {
			if done {
				return nil, false
			}
			v := NewInt(i)
			if i == last {
				done = true
			} else {
				i++
			}
			return v, true
		}), nil
	case *ObjInstance:
		return nil, nil
	}
	return nil, s.Raise(UnsupportedOperationExceptionClass, "%s is not iterable", o.Class().Name)
}

// Iterate calls fn for every element of o until fn asks to stop. Values that
// are not builtin collections are iterated through their iterator(),
// hasNext() and next() members.
func Iterate(s *Scope, o Obj, fn func(v Obj) (stop bool, err error)) error {
	it, err := Iterator(s, o)
	if err != nil {
		return err
	}
	if it != nil {
		for {
			if err := CheckCancelled(s); err != nil {
				return err
			}
			v, ok := it.Next()
			if !ok {
				return nil
			}
			if stop, err := fn(v); err != nil || stop {
				return err
			}
		}
	}
	userIt, err := CallMethod(s, o, "iterator", NoArgs())
	if err != nil {
		return err
	}
	for {
		if err := CheckCancelled(s); err != nil {
			return err
		}
		has, err := CallMethod(s, userIt, "hasNext", NoArgs())
		if err != nil {
			return err
		}
		ok, err := Truthy(s, has)
		if err != nil || !ok {
			return err
		}
		v, err := CallMethod(s, userIt, "next", NoArgs())
		if err != nil {
			return err
		}
		if stop, err := fn(v); err != nil || stop {
			return err
		}
	}
}

// IsInstance implements `o is cls`.
func IsInstance(o Obj, cls *ObjClass) bool {
	if o == nil {
		return false
	}
	return o.Class().IsA(cls)
}

package object

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Builtin classes. They are created in dependency order by init since every
// class links to Obj and member tables reference the value types.
var (
	RootClass     *ObjClass
	ClassClass    *ObjClass
	NumberClass   *ObjClass
	IntClass      *ObjClass
	RealClass     *ObjClass
	BoolClass     *ObjClass
	CharClass     *ObjClass
	StringClass   *ObjClass
	VoidClass     *ObjClass
	NullClass     *ObjClass
	ListClass     *ObjClass
	SetClass      *ObjClass
	MapClass      *ObjClass
	MapEntryClass *ObjClass
	RangeClass    *ObjClass
	IteratorClass *ObjClass
	CallableClass *ObjClass
	EnumBaseClass *ObjClass
	DeferredClass *ObjClass
	MutexClass    *ObjClass

	ExceptionClass                     *ObjClass
	SymbolNotFoundExceptionClass       *ObjClass
	IllegalArgumentExceptionClass      *ObjClass
	IllegalAssignmentExceptionClass    *ObjClass
	IllegalAccessExceptionClass        *ObjClass
	ClassCastExceptionClass            *ObjClass
	IndexOutOfBoundsExceptionClass     *ObjClass
	NoSuchElementExceptionClass        *ObjClass
	AssertionFailedExceptionClass      *ObjClass
	IllegalStateExceptionClass         *ObjClass
	UnsupportedOperationExceptionClass *ObjClass
	ArithmeticExceptionClass           *ObjClass
	NullReferenceExceptionClass        *ObjClass
	ImportExceptionClass               *ObjClass
)

// builtinClasses lists every class bound as a global name.
var builtinClasses []*ObjClass

func valueClass(name string, parents ...*ObjClass) *ObjClass {
	c := NewClass(name, parents...)
	c.Instantiable = false
	builtinClasses = append(builtinClasses, c)
	return c
}

func exceptionClass(name string, parent *ObjClass) *ObjClass {
	c := NewClass(name, parent)
	c.NativeInit = initException
	builtinClasses = append(builtinClasses, c)
	return c
}

func init() {
	RootClass = NewClass("Obj")
	RootClass.Instantiable = false
	builtinClasses = append(builtinClasses, RootClass)
	ClassClass = valueClass("Class")
	NumberClass = valueClass("Number")
	IntClass = valueClass("Int", NumberClass)
	RealClass = valueClass("Real", NumberClass)
	BoolClass = valueClass("Bool")
	CharClass = valueClass("Char")
	StringClass = valueClass("String")
	VoidClass = valueClass("Void")
	NullClass = valueClass("Null")
	ListClass = valueClass("List")
	SetClass = valueClass("Set")
	MapClass = valueClass("Map")
	MapEntryClass = valueClass("MapEntry")
	RangeClass = valueClass("Range")
	IteratorClass = valueClass("Iterator")
	CallableClass = valueClass("Callable")
	EnumBaseClass = valueClass("Enum")
	DeferredClass = valueClass("Deferred")
	MutexClass = valueClass("Mutex")

	ExceptionClass = exceptionClass("Exception", RootClass)
	SymbolNotFoundExceptionClass = exceptionClass("SymbolNotFoundException", ExceptionClass)
	IllegalArgumentExceptionClass = exceptionClass("IllegalArgumentException", ExceptionClass)
	IllegalAssignmentExceptionClass = exceptionClass("IllegalAssignmentException", ExceptionClass)
	IllegalAccessExceptionClass = exceptionClass("IllegalAccessException", ExceptionClass)
	ClassCastExceptionClass = exceptionClass("ClassCastException", ExceptionClass)
	IndexOutOfBoundsExceptionClass = exceptionClass("IndexOutOfBoundsException", ExceptionClass)
	NoSuchElementExceptionClass = exceptionClass("NoSuchElementException", ExceptionClass)
	AssertionFailedExceptionClass = exceptionClass("AssertionFailedException", ExceptionClass)
	IllegalStateExceptionClass = exceptionClass("IllegalStateException", ExceptionClass)
	UnsupportedOperationExceptionClass = exceptionClass("UnsupportedOperationException", ExceptionClass)
	ArithmeticExceptionClass = exceptionClass("ArithmeticException", ExceptionClass)
	NullReferenceExceptionClass = exceptionClass("NullReferenceException", ExceptionClass)
	ImportExceptionClass = exceptionClass("ImportException", ExceptionClass)

	ListClass.Factory = func(_ *Scope, args *Arguments) (Obj, error) {
		return NewList(append([]Obj(nil), args.List...)), nil
	}
	SetClass.Factory = func(_ *Scope, args *Arguments) (Obj, error) {
		set := NewSet()
		for _, v := range args.List {
			set.Add(v)
		}
		return set, nil
	}
	MapClass.Factory = newMapFrom

	registerCommonMembers()
	registerExceptionMembers()
	registerStringMembers()
	registerCollectionMembers()
	registerSchedulerMembers()
}

// BuiltinClasses returns the classes installed as globals of every root
// scope.
func BuiltinClasses() []*ObjClass { return builtinClasses }

func initException(caller *Scope, inst *ObjInstance, args *Arguments) error {
	msg := Obj(NULL)
	if len(args.List) > 1 {
		return caller.Raise(IllegalArgumentExceptionClass, "too many arguments: expected at most 1, got %d", len(args.List))
	}
	if len(args.List) == 1 {
		msg = args.List[0]
	}
	for _, na := range args.Named {
		if na.Name != "message" {
			return caller.Raise(IllegalArgumentExceptionClass, "unknown argument name: %s", na.Name)
		}
		msg = na.Value
	}
	if !IsNull(msg) {
		str, err := ToString(caller, msg)
		if err != nil {
			return err
		}
		msg = NewString(str)
	}
	setExceptionMessage(inst, msg)
	return nil
}

// newMapFrom builds a map from MapEntry arguments (`Map("a" => 1)`).
func newMapFrom(s *Scope, args *Arguments) (Obj, error) {
	m := NewMap()
	for _, v := range args.List {
		e, ok := v.(*ObjMapEntry)
		if !ok {
			return nil, s.Raise(IllegalArgumentExceptionClass, "map entries must be key => value, got %s", v.Class().Name)
		}
		m.Put(e.Key, e.Value)
	}
	return m, nil
}

func registerCommonMembers() {
	DefMethod(RootClass, "toString", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewString(recv.Inspect()), nil
	})
	DefMethod(RootClass, "hashCode", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		h := fnv.New64a()
		key := keyOf(recv)
		if o, ok := key.(Obj); ok {
			fmt.Fprintf(h, "%s:%s", o.Class().Name, o.Inspect())
		} else {
			fmt.Fprintf(h, "%T:%v", key, key)
		}
		return NewInt(int64(h.Sum64() >> 1)), nil
	})
	DefMethod(RootClass, "let", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "let", args)
		if err != nil {
			return nil, err
		}
		return Call(s, fn, Args(recv))
	})
	DefMethod(RootClass, "also", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "also", args)
		if err != nil {
			return nil, err
		}
		if _, err := Call(s, fn, Args(recv)); err != nil {
			return nil, err
		}
		return recv, nil
	})
	DefMethod(RootClass, "apply", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "apply", args)
		if err != nil {
			return nil, err
		}
		if _, err := CallWithReceiver(s, fn, recv, NoArgs()); err != nil {
			return nil, err
		}
		return recv, nil
	})

	DefProperty(ClassClass, "name", func(s *Scope, recv Obj) (Obj, error) {
		return NewString(recv.(*ObjClass).Name), nil
	})
	DefProperty(ClassClass, "parents", func(s *Scope, recv Obj) (Obj, error) {
		cls := recv.(*ObjClass)
		items := make([]Obj, len(cls.Parents))
		for i, p := range cls.Parents {
			items[i] = p
		}
		return NewList(items), nil
	})

	EnumBaseClass.AddMember(&Record{Name: "entries", Value: VOID, Kind: KindProperty, Static: true,
		Getter: func(s *Scope, recv Obj) (Obj, error) {
			cls, ok := recv.(*ObjClass)
			if !ok {
				cls = recv.Class()
			}
			items := make([]Obj, len(cls.entries))
			for i, e := range cls.entries {
				items[i] = e
			}
			return NewList(items), nil
		}})
	DefStatic(EnumBaseClass, "valueOf", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		name, err := argString(s, "valueOf", args, 0)
		if err != nil {
			return nil, err
		}
		cls := recv.(*ObjClass)
		for _, e := range cls.entries {
			if e.Fields.bindings["name"].Value.Inspect() == name {
				return e, nil
			}
		}
		return nil, s.Raise(NoSuchElementExceptionClass, "%s has no entry %s", cls.Name, name)
	})
}

func registerExceptionMembers() {
	DefMethod(ExceptionClass, "stackTrace", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		inst := recv.(*ObjInstance)
		items := make([]Obj, len(inst.trace))
		for i, p := range inst.trace {
			items[i] = NewString(p.String())
		}
		return NewList(items), nil
	})
}

func expectArgs(s *Scope, name string, args *Arguments, min, max int) error {
	n := len(args.List)
	if len(args.Named) > 0 {
		return s.Raise(IllegalArgumentExceptionClass, "%s does not accept named arguments", name)
	}
	if n < min {
		return s.Raise(IllegalArgumentExceptionClass, "too few arguments for %s: expected %d, got %d", name, min, n)
	}
	if max >= 0 && n > max {
		return s.Raise(IllegalArgumentExceptionClass, "too many arguments for %s: expected at most %d, got %d", name, max, n)
	}
	return nil
}

func argCallable(s *Scope, name string, args *Arguments) (Obj, error) {
	if err := expectArgs(s, name, args, 1, 1); err != nil {
		return nil, err
	}
	return args.List[0], nil
}

// ArgInt returns positional argument i as an Int.
func ArgInt(s *Scope, name string, args *Arguments, i int) (int64, error) {
	if i >= len(args.List) {
		return 0, s.Raise(IllegalArgumentExceptionClass, "too few arguments for %s", name)
	}
	n, ok := args.List[i].(*ObjInt)
	if !ok {
		return 0, s.Raise(ClassCastExceptionClass, "%s expects Int, got %s", name, args.List[i].Class().Name)
	}
	return n.Value, nil
}

func argString(s *Scope, name string, args *Arguments, i int) (string, error) {
	if i >= len(args.List) {
		return "", s.Raise(IllegalArgumentExceptionClass, "too few arguments for %s", name)
	}
	str, ok := args.List[i].(*ObjString)
	if !ok {
		return "", s.Raise(ClassCastExceptionClass, "%s expects String, got %s", name, args.List[i].Class().Name)
	}
	return str.Value, nil
}

// ArgString returns positional argument i as a String.
func ArgString(s *Scope, name string, args *Arguments, i int) (string, error) {
	return argString(s, name, args, i)
}

func joinInspect(s *Scope, items []Obj, sep string) (string, error) {
	parts := make([]string, len(items))
	for i, it := range items {
		str, err := ToString(s, it)
		if err != nil {
			return "", err
		}
		parts[i] = str
	}
	return strings.Join(parts, sep), nil
}

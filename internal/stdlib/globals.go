// Package stdlib provides the global functions of every Lyng root scope and
// the host modules implemented in Go.
package stdlib

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lyng/internal/object"
)

// GlobalFunctions returns the builtin functions bound in every root scope.
func GlobalFunctions() map[string]*object.BuiltinFunc {
	return map[string]*object.BuiltinFunc{
		"print":        fnPrint(false),
		"println":      fnPrint(true),
		"assert":       fnAssert(),
		"assertEquals": fnAssertEquals(),
		"assertThrows": fnAssertThrows(),
		"require":      fnRequire("require", object.IllegalArgumentExceptionClass),
		"check":        fnRequire("check", object.IllegalStateExceptionClass),
		"listOf":       fnListOf(),
		"setOf":        fnSetOf(),
		"mapOf":        fnMapOf(),
		"pairOf":       fnPairOf(),
		"launch":       fnLaunch(),
		"delay":        fnDelay(),
		"yield":        fnYield(),
		"with":         fnWith(),
		"typeOf":       fnTypeOf(),
	}
}

// Install binds the builtin classes and functions into s, normally the
// root scope of a machine.
func Install(s *object.Scope) {
	for _, c := range object.BuiltinClasses() {
		s.Bind(c.Name, c)
	}
	fns := GlobalFunctions()
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Bind(name, fns[name])
	}
}

func expectArgs(s *object.Scope, name string, args *object.Arguments, min, max int) error {
	n := len(args.List)
	if len(args.Named) > 0 {
		return s.Raise(object.IllegalArgumentExceptionClass, "%s does not accept named arguments", name)
	}
	if n < min || (max >= 0 && n > max) {
		if min == max {
			return s.Raise(object.IllegalArgumentExceptionClass, "wrong number of arguments for %s. got=%d, want=%d", name, n, min)
		}
		return s.Raise(object.IllegalArgumentExceptionClass, "wrong number of arguments for %s. got=%d, want=%d..%d", name, n, min, max)
	}
	return nil
}

func joinArgs(s *object.Scope, args []object.Obj) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		str, err := object.ToString(s, a)
		if err != nil {
			return "", err
		}
		parts[i] = str
	}
	return strings.Join(parts, " "), nil
}

func fnPrint(newline bool) *object.BuiltinFunc {
	name := "print"
	if newline {
		name = "println"
	}
	return &object.BuiltinFunc{Name: name, Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		text, err := joinArgs(s, args.List)
		if err != nil {
			return nil, err
		}
		if newline {
			text += "\n"
		}
		if _, err := fmt.Fprint(s.Machine().Out, text); err != nil {
			return nil, object.WrapHostError(s, fmt.Errorf("%s failed: %w", name, err))
		}
		return object.VOID, nil
	}}
}

// optionalMessage returns argument i rendered as a string, or fallback.
func optionalMessage(s *object.Scope, args *object.Arguments, i int, fallback string) (string, error) {
	if i >= len(args.List) {
		return fallback, nil
	}
	return object.ToString(s, args.List[i])
}

func fnAssert() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "assert", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "assert", args, 1, 2); err != nil {
			return nil, err
		}
		ok, err := object.Truthy(s, args.List[0])
		if err != nil || ok {
			return object.VOID, err
		}
		msg, err := optionalMessage(s, args, 1, "assertion failed")
		if err != nil {
			return nil, err
		}
		return nil, s.Raise(object.AssertionFailedExceptionClass, "%s", msg)
	}}
}

func fnAssertEquals() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "assertEquals", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "assertEquals", args, 2, 3); err != nil {
			return nil, err
		}
		expected, actual := args.List[0], args.List[1]
		eq, err := object.Equals(s, expected, actual)
		if err != nil || eq {
			return object.VOID, err
		}
		msg := fmt.Sprintf("expected %s, got %s", object.Repr(expected), object.Repr(actual))
		if len(args.List) == 3 {
			prefix, err := object.ToString(s, args.List[2])
			if err != nil {
				return nil, err
			}
			msg = prefix + ": " + msg
		}
		return nil, s.Raise(object.AssertionFailedExceptionClass, "%s", msg)
	}}
}

// fnAssertThrows runs its last argument and returns the exception it
// throws. An optional leading class restricts the accepted exceptions.
func fnAssertThrows() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "assertThrows", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "assertThrows", args, 1, 2); err != nil {
			return nil, err
		}
		expected := object.ExceptionClass
		if len(args.List) == 2 {
			cls, ok := args.List[0].(*object.ObjClass)
			if !ok {
				return nil, s.Raise(object.ClassCastExceptionClass, "assertThrows expects an exception class, got %s", args.List[0].Class().Name)
			}
			expected = cls
		}
		_, err := object.Call(s, args.List[len(args.List)-1], object.NoArgs())
		if err == nil {
			return nil, s.Raise(object.AssertionFailedExceptionClass, "expected %s to be thrown", expected.Name)
		}
		var ee *object.ExecutionError
		if !errors.As(err, &ee) {
			return nil, err
		}
		if !ee.Exception.Class().IsA(expected) {
			return nil, s.Raise(object.AssertionFailedExceptionClass, "expected %s to be thrown, got %s: %s",
				expected.Name, ee.ClassName(), ee.Message())
		}
		return ee.Exception, nil
	}}
}

func fnRequire(name string, cls *object.ObjClass) *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: name, Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, name, args, 1, 2); err != nil {
			return nil, err
		}
		ok, err := object.Truthy(s, args.List[0])
		if err != nil || ok {
			return object.VOID, err
		}
		msg, err := optionalMessage(s, args, 1, name+" failed")
		if err != nil {
			return nil, err
		}
		return nil, s.Raise(cls, "%s", msg)
	}}
}

func fnListOf() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "listOf", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		return object.NewList(append([]object.Obj(nil), args.List...)), nil
	}}
}

func fnSetOf() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "setOf", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		set := object.NewSet()
		for _, v := range args.List {
			set.Add(v)
		}
		return set, nil
	}}
}

func fnMapOf() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "mapOf", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		return object.Construct(s, object.MapClass, args)
	}}
}

func fnPairOf() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "pairOf", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "pairOf", args, 2, 2); err != nil {
			return nil, err
		}
		return &object.ObjMapEntry{Key: args.List[0], Value: args.List[1]}, nil
	}}
}

func fnLaunch() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "launch", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "launch", args, 1, 1); err != nil {
			return nil, err
		}
		return object.Launch(s, args.List[0]), nil
	}}
}

// fnDelay suspends the calling task for a number of milliseconds.
func fnDelay() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "delay", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "delay", args, 1, 1); err != nil {
			return nil, err
		}
		ms, ok := object.ToFloat(args.List[0])
		if !ok || ms < 0 {
			return nil, s.Raise(object.IllegalArgumentExceptionClass, "delay expects a non-negative number of milliseconds, got %s", args.List[0].Inspect())
		}
		return object.VOID, object.Delay(s, time.Duration(ms*float64(time.Millisecond)))
	}}
}

func fnYield() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "yield", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "yield", args, 0, 0); err != nil {
			return nil, err
		}
		return object.VOID, object.Yield(s)
	}}
}

// fnWith calls a block with its first argument as the receiver.
func fnWith() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "with", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "with", args, 2, 2); err != nil {
			return nil, err
		}
		return object.CallWithReceiver(s, args.List[1], args.List[0], object.NoArgs())
	}}
}

func fnTypeOf() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "typeOf", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "typeOf", args, 1, 1); err != nil {
			return nil, err
		}
		return args.List[0].Class(), nil
	}}
}

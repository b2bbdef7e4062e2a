package object

import (
	"errors"
	"lyng/internal/token"
)

// Statement is a compiled executable node. Exec is built once by the
// compiler and shared read-only afterwards.
type Statement struct {
	Pos  token.Pos
	Exec func(s *Scope) (Obj, error)
}

// Execute runs the node, attaching its position to exceptions that do not
// carry one yet.
func (st *Statement) Execute(s *Scope) (Obj, error) {
	v, err := st.Exec(s)
	if err != nil {
		if ee, ok := err.(*ExecutionError); ok && !ee.Pos.IsValid() {
			ee.Pos = st.Pos
		}
		return nil, err
	}
	return v, nil
}

type LambdaKind uint8

const (
	// FunNamed runs in a frame whose parent is the declaring scope.
	FunNamed LambdaKind = iota
	// FunLambda runs in a closure frame: parent is the caller, captured is
	// the declaring scope.
	FunLambda
	// FunMethod is a named function declared in a class body.
	FunMethod
)

// Lambda is a user function value: the compiled body plus the scope it
// closes over, attached when the declaration executes.
type Lambda struct {
	Name   string
	Kind   LambdaKind
	Params *ArgsDeclaration
	Body   *Statement
	// Closure is the defining scope. It is written once when the declaration
	// runs and only read afterwards.
	Closure *Scope
	// Capturing is set when the body may retain its frame (nested lambdas,
	// functions, classes or tasks); such frames are never pooled.
	Capturing      bool
	DeclaringClass *ObjClass
	Visibility     Visibility
	Static         bool
	// Label is the name return@label returns from, in addition to Name.
	Label string
}

func (l *Lambda) Class() *ObjClass { return CallableClass }
func (l *Lambda) Inspect() string {
	if l.Name != "" {
		return "fun " + l.Name
	}
	return "lambda"
}

// WithClosure returns a copy of the template bound to scope s. The frames
// s reaches are retained.
func (l *Lambda) WithClosure(s *Scope) *Lambda {
	c := *l
	c.Closure = s
	s.Retain()
	return &c
}

// BoundMethod pairs a receiver with a method found on it.
type BoundMethod struct {
	Receiver Obj
	Method   Obj
}

func (b *BoundMethod) Class() *ObjClass { return CallableClass }
func (b *BoundMethod) Inspect() string  { return b.Receiver.Class().Name + "." + b.Method.Inspect() }

// BuiltinFunc is a global function implemented in Go.
type BuiltinFunc struct {
	Name string
	Fn   func(s *Scope, args *Arguments) (Obj, error)
}

func (b *BuiltinFunc) Class() *ObjClass { return CallableClass }
func (b *BuiltinFunc) Inspect() string  { return "builtin " + b.Name }

// BuiltinMethod is a class member implemented in Go.
type BuiltinMethod struct {
	Name string
	Fn   func(s *Scope, recv Obj, args *Arguments) (Obj, error)
}

func (b *BuiltinMethod) Class() *ObjClass { return CallableClass }
func (b *BuiltinMethod) Inspect() string  { return "builtin method " + b.Name }

// Call invokes any callable value.
func Call(caller *Scope, fn Obj, args *Arguments) (Obj, error) {
	switch f := fn.(type) {
	case *Lambda:
		return callLambda(caller, f, nil, args)
	case *BoundMethod:
		return callWithReceiver(caller, f.Method, f.Receiver, args)
	case *BuiltinFunc:
		res, err := f.Fn(caller, args)
		return res, WrapHostError(caller, err)
	case *ObjClass:
		return Construct(caller, f, args)
	case *ObjInstance:
		if rec := f.class.FindMember("invoke"); rec != nil && rec.Kind == KindMethod {
			return CallMember(caller, f, rec, args)
		}
	}
	return nil, caller.Raise(UnsupportedOperationExceptionClass, "%s is not callable", fn.Class().Name)
}

// CallWithReceiver runs fn with recv as this; receivers of lambdas make the
// receiver's members resolvable from the lambda body.
func CallWithReceiver(caller *Scope, fn Obj, recv Obj, args *Arguments) (Obj, error) {
	return callWithReceiver(caller, fn, recv, args)
}

func callWithReceiver(caller *Scope, fn Obj, recv Obj, args *Arguments) (Obj, error) {
	switch f := fn.(type) {
	case *Lambda:
		return callLambda(caller, f, recv, args)
	case *BuiltinMethod:
		res, err := f.Fn(caller, recv, args)
		return res, WrapHostError(caller, err)
	}
	return Call(caller, fn, args)
}

// CallMember invokes a member record found on recv.
func CallMember(caller *Scope, recv Obj, rec *Record, args *Arguments) (Obj, error) {
	if rec.Kind == KindProperty || rec.Kind == KindField {
		v, err := ReadMember(caller, recv, rec)
		if err != nil {
			return nil, err
		}
		return Call(caller, v, args)
	}
	if rec.Value == Unset {
		return nil, caller.Raise(IllegalStateExceptionClass, "%s is not initialized", rec.Name)
	}
	if rec.Static {
		if _, isClass := recv.(*ObjClass); !isClass {
			recv = rec.DeclaringClass
		}
	}
	return callWithReceiver(caller, rec.Value, recv, args)
}

// CallMethod dispatches `recv.name(args)` without an inline cache.
func CallMethod(caller *Scope, recv Obj, name string, args *Arguments) (Obj, error) {
	rec, err := FindMethod(caller, recv, name)
	if err != nil {
		return nil, err
	}
	return CallMember(caller, recv, rec, args)
}

func callLambda(caller *Scope, fn *Lambda, recv Obj, args *Arguments) (Obj, error) {
	m := caller.machine
	if err := m.checkCall(caller); err != nil {
		return nil, err
	}

	var frame *Scope
	switch fn.Kind {
	case FunLambda:
		frame = m.newFrame(ScopeClosure, caller, caller, !fn.Capturing)
		frame.captured = fn.Closure
		if fn.Closure != nil {
			frame.thisObj = fn.Closure.thisObj
			frame.currentClass = fn.Closure.currentClass
			frame.module = fn.Closure.module
		}
	default:
		frame = m.newFrame(ScopeFrame, fn.Closure, caller, !fn.Capturing)
		if fn.DeclaringClass != nil {
			frame.currentClass = fn.DeclaringClass
		}
	}
	defer m.releaseFrame(frame)
	if recv != nil {
		frame.SetThis(recv)
	}
	frame.args = args

	if fn.Params == nil {
		it := Obj(VOID)
		if len(args.List) > 0 {
			it = args.List[0]
		}
		frame.defineRaw(&Record{Name: "it", Value: it, Kind: KindArgument, Origin: frame.module})
	} else if err := fn.Params.AssignToContext(caller, frame, args, nil); err != nil {
		return nil, err
	}

	res, err := fn.Body.Execute(frame)
	if err != nil {
		var ret *ReturnSignal
		if errors.As(err, &ret) && (ret.Label == "" || ret.Label == fn.Name || ret.Label == fn.Label) {
			return ret.Value, nil
		}
		return nil, err
	}
	return res, nil
}

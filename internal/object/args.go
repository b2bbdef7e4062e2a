package object

import (
	"strings"
)

type NamedArg struct {
	Name  string
	Value Obj
}

// Arguments are the evaluated arguments of one call. A trailing block is
// already the last element of List; TailBlock records that it was written
// after the parentheses.
type Arguments struct {
	List      []Obj
	Named     []NamedArg
	TailBlock bool
}

// ArgsBuilder evaluates the argument list of a call site in a scope.
type ArgsBuilder func(s *Scope) (*Arguments, error)

func NoArgs() *Arguments { return &Arguments{} }

func Args(values ...Obj) *Arguments { return &Arguments{List: values} }

func (a *Arguments) Inspect() string {
	parts := make([]string, 0, len(a.List)+len(a.Named))
	for _, v := range a.List {
		parts = append(parts, inspectNested(v))
	}
	for _, n := range a.Named {
		parts = append(parts, n.Name+": "+inspectNested(n.Value))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Access marks constructor parameters that also declare a field.
type Access uint8

const (
	AccessNone Access = iota
	AccessVal
	AccessVar
)

type ArgDecl struct {
	Name string
	// Type is the best-effort annotation; it is not checked.
	Type       string
	Default    *Statement
	Variadic   bool
	Access     Access
	Visibility Visibility
}

// ArgsDeclaration is a parsed formal parameter list with at most one
// variadic parameter.
type ArgsDeclaration struct {
	Params   []ArgDecl
	variadic int
}

func NewArgsDeclaration(params []ArgDecl) *ArgsDeclaration {
	d := &ArgsDeclaration{Params: params, variadic: -1}
	for i, p := range params {
		if p.Variadic {
			d.variadic = i
			break
		}
	}
	return d
}

// VariadicIndex returns the position of the variadic parameter or -1.
func (d *ArgsDeclaration) VariadicIndex() int { return d.variadic }

// Names returns the parameter names in declaration order.
func (d *ArgsDeclaration) Names() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// isFastPath reports calls that can be bound by zipping values onto the
// parameters.
func (d *ArgsDeclaration) isFastPath(args *Arguments) bool {
	return d.variadic < 0 && len(args.Named) == 0 && !args.TailBlock
}

// Bind computes the value of every parameter, in declaration order.
// Defaults are evaluated in the caller scope.
func (d *ArgsDeclaration) Bind(caller *Scope, args *Arguments) ([]Obj, error) {
	if d.isFastPath(args) {
		return d.bindPositional(caller, args)
	}
	return d.bindGeneral(caller, args)
}

func (d *ArgsDeclaration) bindPositional(caller *Scope, args *Arguments) ([]Obj, error) {
	if len(args.List) > len(d.Params) {
		return nil, caller.Raise(IllegalArgumentExceptionClass, "too many arguments: expected at most %d, got %d",
			len(d.Params), len(args.List))
	}
	values := make([]Obj, len(d.Params))
	copy(values, args.List)
	for i := len(args.List); i < len(d.Params); i++ {
		v, err := d.defaultFor(caller, i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// bindGeneral implements the full binding rules:
//  1. named values match parameters by name; naming the variadic parameter,
//     an unknown or a duplicate name is an error
//  2. parameters after the variadic one take positional values from the
//     back, the others from the front
//  3. what remains between both cursors becomes the variadic list
//  4. unmatched parameters use their default; a missing required value or
//     unconsumed positional values are errors
func (d *ArgsDeclaration) bindGeneral(caller *Scope, args *Arguments) ([]Obj, error) {
	n := len(d.Params)
	values := make([]Obj, n)
	named := make([]bool, n)

	for _, na := range args.Named {
		i := d.indexOf(na.Name)
		switch {
		case i < 0:
			return nil, caller.Raise(IllegalArgumentExceptionClass, "unknown argument name: %s", na.Name)
		case i == d.variadic:
			return nil, caller.Raise(IllegalArgumentExceptionClass, "variadic parameter %s can't be passed by name", na.Name)
		case named[i]:
			return nil, caller.Raise(IllegalArgumentExceptionClass, "argument %s is already given", na.Name)
		}
		named[i] = true
		values[i] = na.Value
	}

	pos := args.List
	front, back := 0, len(pos)
	head := n
	if d.variadic >= 0 {
		head = d.variadic
		for i := n - 1; i > d.variadic; i-- {
			if named[i] || back <= front {
				continue
			}
			back--
			values[i] = pos[back]
		}
	}
	for i := 0; i < head && front < back; i++ {
		if named[i] {
			return nil, caller.Raise(IllegalArgumentExceptionClass, "argument %s is already given positionally", d.Params[i].Name)
		}
		values[i] = pos[front]
		front++
	}
	if d.variadic >= 0 {
		rest := make([]Obj, back-front)
		copy(rest, pos[front:back])
		values[d.variadic] = NewList(rest)
		front = back
	}
	if front < back {
		return nil, caller.Raise(IllegalArgumentExceptionClass, "too many arguments: expected at most %d, got %d",
			n, len(pos))
	}

	for i := range values {
		if values[i] != nil {
			continue
		}
		v, err := d.defaultFor(caller, i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (d *ArgsDeclaration) defaultFor(caller *Scope, i int) (Obj, error) {
	p := d.Params[i]
	if p.Default == nil {
		return nil, caller.Raise(IllegalArgumentExceptionClass, "too few arguments: no value for parameter %s", p.Name)
	}
	return p.Default.Execute(caller)
}

func (d *ArgsDeclaration) indexOf(name string) int {
	for i, p := range d.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// AssignToContext binds args into target. Parameters marked val or var
// become fields of fields (the instance under construction) when it is
// given; all others are immutable arguments of target.
func (d *ArgsDeclaration) AssignToContext(caller, target *Scope, args *Arguments, fields *ObjInstance) error {
	values, err := d.Bind(caller, args)
	if err != nil {
		return err
	}
	for i, p := range d.Params {
		if fields != nil && p.Access != AccessNone {
			if _, err := fields.DefineField(target, p.Name, values[i], p.Access == AccessVar, p.Visibility, target.currentClass); err != nil {
				return err
			}
			continue
		}
		target.defineRaw(&Record{
			Name:           p.Name,
			Value:          values[i],
			Mutable:        p.Access == AccessVar,
			Kind:           KindArgument,
			DeclaringClass: target.currentClass,
			Origin:         target.module,
		})
	}
	return nil
}

package object

import (
	"lyng/internal/token"
	"strings"
)

// ObjInstance is an object of a user or builtin class. Its fields live in a
// dedicated scope so that they are records like any other binding.
type ObjInstance struct {
	class  *ObjClass
	Fields *Scope
	// trace collects call positions an exception propagated through.
	trace []token.Pos
}

func newInstance(cls *ObjClass) *ObjInstance {
	inst := &ObjInstance{class: cls}
	f := newScope(nil)
	f.kind = ScopeInstance
	f.thisObj = inst
	inst.Fields = f
	return inst
}

func (i *ObjInstance) Class() *ObjClass { return i.class }

func (i *ObjInstance) Inspect() string {
	switch {
	case i.class.IsA(ExceptionClass):
		if msg := ExceptionMessage(i); msg != "" {
			return i.class.Name + ": " + msg
		}
		return i.class.Name
	case i.class.Enum:
		if rec := i.Fields.bindings["name"]; rec != nil {
			return rec.Value.Inspect()
		}
	}
	var out strings.Builder
	out.WriteString(i.class.Name)
	out.WriteString("(")
	for n, rec := range i.Fields.slots {
		if n > 0 {
			out.WriteString(", ")
		}
		out.WriteString(i.Fields.slotNames[n])
		out.WriteString("=")
		if rec.Value == Unset {
			out.WriteString("<unset>")
		} else {
			out.WriteString(inspectNested(rec.Value))
		}
	}
	out.WriteString(")")
	return out.String()
}

// Trace returns the call positions recorded while the exception propagated.
func (i *ObjInstance) Trace() []token.Pos { return i.trace }

// AddTrace records pos unless it is already the last recorded position.
func (i *ObjInstance) AddTrace(pos token.Pos) {
	if !pos.IsValid() {
		return
	}
	if n := len(i.trace); n > 0 && i.trace[n-1] == pos {
		return
	}
	i.trace = append(i.trace, pos)
}

// DefineField creates or overrides the field name of the instance. A field
// already initialized as val can't be redefined.
func (i *ObjInstance) DefineField(s *Scope, name string, value Obj, mutable bool, vis Visibility, cls *ObjClass) (*Record, error) {
	if old := i.Fields.bindings[name]; old != nil && !old.Mutable && old.Value != Unset {
		return nil, s.Raise(IllegalAssignmentExceptionClass, "val %s is already defined in %s", name, i.class.Name)
	}
	rec := &Record{
		Name:           name,
		Value:          value,
		Mutable:        mutable,
		Visibility:     vis,
		DeclaringClass: cls,
		Kind:           KindField,
		Origin:         s.module,
	}
	i.Fields.put(name, rec)
	return rec, nil
}

// Construct creates an instance of cls, initializing every class of the
// hierarchy exactly once, parents before children.
func Construct(caller *Scope, cls *ObjClass, args *Arguments) (Obj, error) {
	if cls.Factory != nil {
		res, err := cls.Factory(caller, args)
		return res, WrapHostError(caller, err)
	}
	if !cls.Instantiable {
		return nil, caller.Raise(IllegalArgumentExceptionClass, "class %s can't be instantiated", cls.Name)
	}
	inst := newInstance(cls)
	done := make(map[*ObjClass]bool, len(cls.mro))
	if err := initClass(caller, inst, cls, args, done); err != nil {
		return nil, err
	}
	return inst, nil
}

func initClass(caller *Scope, inst *ObjInstance, c *ObjClass, args *Arguments, done map[*ObjClass]bool) error {
	if done[c] {
		return nil
	}
	done[c] = true
	if c.Body == nil {
		if c.NativeInit != nil {
			return c.NativeInit(caller, inst, args)
		}
		if len(args.List) > 0 || len(args.Named) > 0 {
			return caller.Raise(IllegalArgumentExceptionClass, "class %s takes no constructor arguments", c.Name)
		}
		return nil
	}

	frame := caller.machine.newFrame(ScopeFrame, c.DeclScope, caller, false)
	defer caller.machine.releaseFrame(frame)
	frame.SetThis(inst)
	frame.currentClass = c
	frame.args = args

	if c.Body.Ctor != nil {
		if err := c.Body.Ctor.AssignToContext(caller, frame, args, inst); err != nil {
			return err
		}
	} else if len(args.List) > 0 || len(args.Named) > 0 {
		return caller.Raise(IllegalArgumentExceptionClass, "class %s takes no constructor arguments", c.Name)
	}

	for _, p := range c.Parents {
		pargs := NoArgs()
		for _, pi := range c.Body.ParentInits {
			if pi.Class == p && pi.Args != nil {
				var err error
				if pargs, err = pi.Args(frame); err != nil {
					return err
				}
			}
		}
		if err := initClass(frame, inst, p, pargs, done); err != nil {
			return err
		}
	}

	for _, st := range c.Body.Init {
		if _, err := st.Execute(frame); err != nil {
			return err
		}
	}
	return nil
}

package object

// FindMethod resolves `recv.name` for a member call or read: members of the
// receiver first, then extensions visible from the caller scope. The record
// is access checked against the caller's lexical class.
func FindMethod(caller *Scope, recv Obj, name string) (*Record, error) {
	if IsNull(recv) {
		return nil, caller.Raise(NullReferenceExceptionClass, "can't access member %s of null", name)
	}
	rec := ReceiverMember(recv, name)
	if rec == nil {
		rec = FindExtension(caller, recv.Class(), name)
	}
	if rec == nil {
		return nil, caller.Raise(SymbolNotFoundExceptionClass, "%s has no member %s", recv.Class().Name, name)
	}
	if err := caller.CheckAccess(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReadMember produces the value a member record denotes for recv: the
// field value, the computed property, or a method bound to recv.
func ReadMember(s *Scope, recv Obj, rec *Record) (Obj, error) {
	if rec.Value == Unset {
		return nil, s.Raise(IllegalStateExceptionClass, "%s is not initialized", rec.Name)
	}
	switch rec.Kind {
	case KindProperty:
		return rec.Getter(s, recv)
	case KindMethod:
		if _, isClass := recv.(*ObjClass); rec.Static && !isClass {
			recv = rec.DeclaringClass
		}
		return &BoundMethod{Receiver: recv, Method: rec.Value}, nil
	}
	return rec.Value, nil
}

// GetMember evaluates `recv.name`.
func GetMember(s *Scope, recv Obj, name string) (Obj, error) {
	rec, err := FindMethod(s, recv, name)
	if err != nil {
		return nil, err
	}
	return ReadMember(s, recv, rec)
}

// SetMember evaluates `recv.name = value`. Only fields can be assigned.
func SetMember(s *Scope, recv Obj, name string, value Obj) error {
	rec, err := FindMethod(s, recv, name)
	if err != nil {
		return err
	}
	switch rec.Kind {
	case KindMethod:
		return s.Raise(IllegalAssignmentExceptionClass, "can't assign to method %s", name)
	case KindProperty:
		return s.Raise(IllegalAssignmentExceptionClass, "property %s is read only", name)
	}
	return rec.Assign(s, value)
}

// DefMethod installs a builtin method on cls.
func DefMethod(cls *ObjClass, name string, fn func(s *Scope, recv Obj, args *Arguments) (Obj, error)) {
	cls.AddMember(&Record{Name: name, Value: &BuiltinMethod{Name: name, Fn: fn}, Kind: KindMethod})
}

// DefProperty installs a read-only computed member on cls.
func DefProperty(cls *ObjClass, name string, get Getter) {
	cls.AddMember(&Record{Name: name, Value: VOID, Kind: KindProperty, Getter: get})
}

// DefStatic installs a builtin method callable on the class itself.
func DefStatic(cls *ObjClass, name string, fn func(s *Scope, recv Obj, args *Arguments) (Obj, error)) {
	cls.AddMember(&Record{Name: name, Value: &BuiltinMethod{Name: name, Fn: fn}, Kind: KindMethod, Static: true})
}

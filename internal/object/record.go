package object

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	}
	return "public"
}

type RecordKind uint8

const (
	KindOther RecordKind = iota
	KindArgument
	KindField
	KindProperty
	KindMethod
)

// Getter computes the value of a property record for a receiver.
type Getter func(s *Scope, recv Obj) (Obj, error)

// Record is a named binding: a value slot plus the metadata needed for
// assignment and access checks. Imports share record pointers, so a record is
// the identity of a binding.
type Record struct {
	Name           string
	Value          Obj
	Mutable        bool
	Visibility     Visibility
	DeclaringClass *ObjClass
	Kind           RecordKind
	Static         bool
	// Getter is set on property records; Value is unused for them.
	Getter Getter
	// Origin is the module that declared the record.
	Origin string
}

func (r *Record) IsUnset() bool { return r.Value == Unset }

// CanAccess reports whether code whose lexical class is from may see r.
// Records declared outside of any class are restricted only by imports.
func (r *Record) CanAccess(from *ObjClass) bool {
	if r.DeclaringClass == nil {
		return true
	}
	switch r.Visibility {
	case Public:
		return true
	case Private:
		return from != nil && from == r.DeclaringClass
	case Protected:
		return from != nil && (r.DeclaringClass == nil || from.IsA(r.DeclaringClass))
	}
	return false
}

// Assign stores v, enforcing mutability. A record still holding Unset
// accepts its first value even when immutable.
func (r *Record) Assign(s *Scope, v Obj) error {
	if !r.Mutable && r.Value != Unset {
		return s.Raise(IllegalAssignmentExceptionClass, "can't reassign val %s", r.Name)
	}
	if r.Kind == KindProperty {
		return s.Raise(IllegalAssignmentExceptionClass, "property %s is read only", r.Name)
	}
	r.Value = v
	return nil
}

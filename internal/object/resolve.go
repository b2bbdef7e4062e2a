package object

// Identifier resolution is a fixed pipeline of strategies selected by the
// kind of each frame on the chain; there is no per-scope virtual lookup.
//
// For every frame, starting at the accessing scope and following parents:
//  1. records declared in the frame
//  2. extension members of the frame's receiver class, most specific first
//  3. members of the frame's receiver (fields first, then class members)
//  4. closure frames only: the captured defining scope, resolved in full
// The chain ends at the root scope holding the globals.

const (
	// shallowDepth frames are walked without bookkeeping; deeper walks track
	// visited frame ids to detect cycles.
	shallowDepth = 32
	// maxHops bounds the total number of frames one resolution may visit,
	// counting captured chains.
	maxHops = 1 << 16
)

type walker struct {
	origin *Scope
	hops   int
}

type resolver func(w *walker, f *Scope, name string) (*Record, Obj, error)

var pipelines [ScopeInstance + 1][]resolver

func init() {
	pipelines = [...][]resolver{
		ScopeBlock:    {resolveLocal, resolveExtension, resolveReceiver},
		ScopeFrame:    {resolveLocal, resolveExtension, resolveReceiver},
		ScopeClosure:  {resolveLocal, resolveExtension, resolveReceiver, resolveCaptured},
		ScopeInstance: {resolveLocal},
	}
}

func resolveLocal(_ *walker, f *Scope, name string) (*Record, Obj, error) {
	return f.bindings[name], nil, nil
}

func resolveExtension(_ *walker, f *Scope, name string) (*Record, Obj, error) {
	if !f.ownsThis || f.machine == nil || f.machine.extensionCount.Load() == 0 {
		return nil, nil, nil
	}
	if rec := FindExtension(f, f.thisObj.Class(), name); rec != nil {
		return rec, f.thisObj, nil
	}
	return nil, nil, nil
}

func resolveReceiver(_ *walker, f *Scope, name string) (*Record, Obj, error) {
	if !f.ownsThis {
		return nil, nil, nil
	}
	rec := ReceiverMember(f.thisObj, name)
	if rec == nil {
		return nil, nil, nil
	}
	return rec, f.thisObj, nil
}

func resolveCaptured(w *walker, f *Scope, name string) (*Record, Obj, error) {
	if f.captured == nil {
		return nil, nil, nil
	}
	return w.walk(f.captured, name)
}

func (w *walker) walk(start *Scope, name string) (*Record, Obj, error) {
	var visited map[uint64]struct{}
	depth := 0
	for f := start; f != nil; f = f.parent {
		w.hops++
		if w.hops > maxHops {
			return nil, nil, w.origin.Raise(IllegalStateExceptionClass, "scope chain too deep resolving %s", name)
		}
		depth++
		if depth > shallowDepth {
			if visited == nil {
				visited = make(map[uint64]struct{})
			}
			if _, seen := visited[f.id]; seen {
				return nil, nil, w.origin.Raise(IllegalStateExceptionClass, "scope cycle detected at frame %d resolving %s", f.id, name)
			}
			visited[f.id] = struct{}{}
		}
		for _, step := range pipelines[f.kind] {
			rec, recv, err := step(w, f, name)
			if err != nil || rec != nil {
				return rec, recv, err
			}
		}
	}
	return nil, nil, nil
}

// Resolve finds the record name denotes in s. recv is the receiver when the
// record is a member of a frame's this (nil for plain bindings). A record
// that exists but is not visible from s raises IllegalAccessException; a
// missing name yields a nil record and no error.
func (s *Scope) Resolve(name string) (rec *Record, recv Obj, err error) {
	w := walker{origin: s}
	rec, recv, err = w.walk(s, name)
	if err != nil || rec == nil {
		return nil, nil, err
	}
	if err := s.CheckAccess(rec); err != nil {
		return nil, nil, err
	}
	return rec, recv, nil
}

// CheckAccess verifies that rec is visible from the lexical class of s.
func (s *Scope) CheckAccess(rec *Record) error {
	if rec.Visibility == Public || rec.CanAccess(s.currentClass) {
		return nil
	}
	from := "outside of any class"
	if s.currentClass != nil {
		from = "from " + s.currentClass.Name
	}
	owner := "?"
	if rec.DeclaringClass != nil {
		owner = rec.DeclaringClass.Name
	}
	return s.Raise(IllegalAccessExceptionClass, "%s member %s of %s is not accessible %s",
		rec.Visibility, rec.Name, owner, from)
}

// ReceiverMember looks name up on a receiver: instance fields first, then
// members of the class through its MRO. On a class receiver only static
// members and members of Class itself are visible.
func ReceiverMember(recv Obj, name string) *Record {
	switch r := recv.(type) {
	case *ObjInstance:
		if rec := r.Fields.bindings[name]; rec != nil {
			return rec
		}
	case *ObjClass:
		if rec := r.FindMember(name); rec != nil && rec.Static {
			return rec
		}
		return ClassClass.FindMember(name)
	}
	return recv.Class().FindMember(name)
}

// FindExtension searches the lexical chain of start for an extension member
// of cls or one of its ancestors, most specific class first.
func FindExtension(start *Scope, cls *ObjClass, name string) *Record {
	if start.machine != nil && start.machine.extensionCount.Load() == 0 {
		return nil
	}
	for _, k := range cls.mro {
		hops := 0
		if rec := findExtensionIn(start, k, name, &hops); rec != nil {
			return rec
		}
	}
	return nil
}

func findExtensionIn(start *Scope, k *ObjClass, name string, hops *int) *Record {
	for f := start; f != nil; f = f.parent {
		*hops++
		if *hops > maxHops {
			return nil
		}
		if f.extensions != nil {
			if rec := f.extensions[k][name]; rec != nil {
				return rec
			}
		}
		if f.kind == ScopeClosure && f.captured != nil {
			if rec := findExtensionIn(f.captured, k, name, hops); rec != nil {
				return rec
			}
		}
	}
	return nil
}

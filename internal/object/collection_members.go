package object

import (
	"sort"
)

func listOf(recv Obj) *ObjList { return recv.(*ObjList) }

func prop(cls *ObjClass, name string, get func(recv Obj) Obj) {
	DefProperty(cls, name, func(s *Scope, recv Obj) (Obj, error) { return get(recv), nil })
}

func registerCollectionMembers() {
	registerListMembers()

	prop(SetClass, "size", func(recv Obj) Obj { return NewInt(int64(recv.(*ObjSet).Len())) })
	DefMethod(SetClass, "add", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		added := false
		for _, v := range args.List {
			added = recv.(*ObjSet).Add(v) || added
		}
		return NewBool(added), nil
	})
	DefMethod(SetClass, "contains", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "contains", args, 1, 1); err != nil {
			return nil, err
		}
		return NewBool(recv.(*ObjSet).Has(args.List[0])), nil
	})
	DefMethod(SetClass, "remove", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "remove", args, 1, 1); err != nil {
			return nil, err
		}
		return NewBool(recv.(*ObjSet).Remove(args.List[0])), nil
	})
	DefMethod(SetClass, "toList", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewList(recv.(*ObjSet).Items()), nil
	})
	DefMethod(SetClass, "iterator", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return SliceIterator(recv.(*ObjSet).Items()), nil
	})

	prop(MapClass, "size", func(recv Obj) Obj { return NewInt(int64(recv.(*ObjMap).Len())) })
	prop(MapClass, "keys", func(recv Obj) Obj {
		m := recv.(*ObjMap)
		items := make([]Obj, len(m.entries))
		for i, e := range m.entries {
			items[i] = e.Key
		}
		return NewList(items)
	})
	prop(MapClass, "values", func(recv Obj) Obj {
		m := recv.(*ObjMap)
		items := make([]Obj, len(m.entries))
		for i, e := range m.entries {
			items[i] = e.Value
		}
		return NewList(items)
	})
	prop(MapClass, "entries", func(recv Obj) Obj {
		m := recv.(*ObjMap)
		items := make([]Obj, len(m.entries))
		for i, e := range m.entries {
			items[i] = e
		}
		return NewList(items)
	})
	DefMethod(MapClass, "containsKey", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "containsKey", args, 1, 1); err != nil {
			return nil, err
		}
		_, ok := recv.(*ObjMap).Get(args.List[0])
		return NewBool(ok), nil
	})
	DefMethod(MapClass, "getOrNull", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "getOrNull", args, 1, 1); err != nil {
			return nil, err
		}
		if v, ok := recv.(*ObjMap).Get(args.List[0]); ok {
			return v, nil
		}
		return NULL, nil
	})
	DefMethod(MapClass, "getOrDefault", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "getOrDefault", args, 2, 2); err != nil {
			return nil, err
		}
		if v, ok := recv.(*ObjMap).Get(args.List[0]); ok {
			return v, nil
		}
		return args.List[1], nil
	})
	DefMethod(MapClass, "put", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "put", args, 2, 2); err != nil {
			return nil, err
		}
		m := recv.(*ObjMap)
		old, ok := m.Get(args.List[0])
		m.Put(args.List[0], args.List[1])
		if !ok {
			return NULL, nil
		}
		return old, nil
	})
	DefMethod(MapClass, "remove", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "remove", args, 1, 1); err != nil {
			return nil, err
		}
		if v, ok := recv.(*ObjMap).Remove(args.List[0]); ok {
			return v, nil
		}
		return NULL, nil
	})
	DefMethod(MapClass, "iterator", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return Iterator(s, recv)
	})

	prop(MapEntryClass, "key", func(recv Obj) Obj { return recv.(*ObjMapEntry).Key })
	prop(MapEntryClass, "value", func(recv Obj) Obj { return recv.(*ObjMapEntry).Value })

	prop(RangeClass, "start", func(recv Obj) Obj { return recv.(*ObjRange).Start })
	prop(RangeClass, "end", func(recv Obj) Obj { return recv.(*ObjRange).End })
	prop(RangeClass, "isEndInclusive", func(recv Obj) Obj { return NewBool(!recv.(*ObjRange).Exclusive) })
	DefProperty(RangeClass, "first", func(s *Scope, recv Obj) (Obj, error) {
		return recv.(*ObjRange).Start, nil
	})
	DefProperty(RangeClass, "last", func(s *Scope, recv Obj) (Obj, error) {
		r := recv.(*ObjRange)
		if first, last, ok := r.IntBounds(); ok && first <= last {
			return NewInt(last), nil
		}
		return r.End, nil
	})
	DefMethod(RangeClass, "contains", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "contains", args, 1, 1); err != nil {
			return nil, err
		}
		ok, err := Contains(s, recv, args.List[0])
		return NewBool(ok), err
	})
	DefMethod(RangeClass, "toList", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		var items []Obj
		err := Iterate(s, recv, func(v Obj) (bool, error) {
			items = append(items, v)
			return false, nil
		})
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	})
	DefMethod(RangeClass, "iterator", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return Iterator(s, recv)
	})

	DefMethod(IteratorClass, "hasNext", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewBool(recv.(*ObjIterator).HasNext()), nil
	})
	DefMethod(IteratorClass, "next", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		v, ok := recv.(*ObjIterator).Next()
		if !ok {
			return nil, s.Raise(NoSuchElementExceptionClass, "iterator is exhausted")
		}
		return v, nil
	})
}

func registerListMembers() {
	prop(ListClass, "size", func(recv Obj) Obj { return NewInt(int64(len(listOf(recv).Items))) })
	DefProperty(ListClass, "first", func(s *Scope, recv Obj) (Obj, error) {
		l := listOf(recv)
		if len(l.Items) == 0 {
			return nil, s.Raise(NoSuchElementExceptionClass, "list is empty")
		}
		return l.Items[0], nil
	})
	DefProperty(ListClass, "last", func(s *Scope, recv Obj) (Obj, error) {
		l := listOf(recv)
		if len(l.Items) == 0 {
			return nil, s.Raise(NoSuchElementExceptionClass, "list is empty")
		}
		return l.Items[len(l.Items)-1], nil
	})
	DefMethod(ListClass, "isEmpty", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewBool(len(listOf(recv).Items) == 0), nil
	})
	DefMethod(ListClass, "add", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		l := listOf(recv)
		l.Items = append(l.Items, args.List...)
		return TRUE, nil
	})
	DefMethod(ListClass, "removeAt", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "removeAt", args, 1, 1); err != nil {
			return nil, err
		}
		l := listOf(recv)
		i, err := checkIndex(s, args.List[0], len(l.Items))
		if err != nil {
			return nil, err
		}
		v := l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return v, nil
	})
	DefMethod(ListClass, "contains", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "contains", args, 1, 1); err != nil {
			return nil, err
		}
		ok, err := Contains(s, recv, args.List[0])
		return NewBool(ok), err
	})
	DefMethod(ListClass, "indexOf", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "indexOf", args, 1, 1); err != nil {
			return nil, err
		}
		for i, v := range listOf(recv).Items {
			eq, err := Equals(s, v, args.List[0])
			if err != nil {
				return nil, err
			}
			if eq {
				return NewInt(int64(i)), nil
			}
		}
		return NewInt(-1), nil
	})
	DefMethod(ListClass, "map", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "map", args)
		if err != nil {
			return nil, err
		}
		src := listOf(recv).Items
		out := make([]Obj, 0, len(src))
		for _, v := range src {
			res, err := Call(s, fn, Args(v))
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
		return NewList(out), nil
	})
	DefMethod(ListClass, "filter", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "filter", args)
		if err != nil {
			return nil, err
		}
		var out []Obj
		for _, v := range listOf(recv).Items {
			res, err := Call(s, fn, Args(v))
			if err != nil {
				return nil, err
			}
			keep, err := Truthy(s, res)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, v)
			}
		}
		return NewList(out), nil
	})
	DefMethod(ListClass, "forEach", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		fn, err := argCallable(s, "forEach", args)
		if err != nil {
			return nil, err
		}
		for _, v := range listOf(recv).Items {
			if _, err := Call(s, fn, Args(v)); err != nil {
				return nil, err
			}
		}
		return VOID, nil
	})
	DefMethod(ListClass, "joinToString", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "joinToString", args, 0, 1); err != nil {
			return nil, err
		}
		sep := ", "
		if len(args.List) == 1 {
			var err error
			if sep, err = argString(s, "joinToString", args, 0); err != nil {
				return nil, err
			}
		}
		str, err := joinInspect(s, listOf(recv).Items, sep)
		if err != nil {
			return nil, err
		}
		return NewString(str), nil
	})
	DefMethod(ListClass, "sum", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		var acc Obj = NewInt(0)
		for _, v := range listOf(recv).Items {
			var err error
			if acc, err = Plus(s, acc, v); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	DefMethod(ListClass, "reversed", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		src := listOf(recv).Items
		out := make([]Obj, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return NewList(out), nil
	})
	DefMethod(ListClass, "sorted", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		out := append([]Obj(nil), listOf(recv).Items...)
		var cmpErr error
		sort.SliceStable(out, func(i, j int) bool {
			if cmpErr != nil {
				return false
			}
			c, err := Compare(s, out[i], out[j])
			if err != nil {
				cmpErr = err
			}
			return c < 0
		})
		if cmpErr != nil {
			return nil, cmpErr
		}
		return NewList(out), nil
	})
	DefMethod(ListClass, "iterator", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return SliceIterator(listOf(recv).Items), nil
	})
	DefMethod(ListClass, "toSet", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		set := NewSet()
		for _, v := range listOf(recv).Items {
			set.Add(v)
		}
		return set, nil
	})
}

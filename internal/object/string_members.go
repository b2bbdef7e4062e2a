package object

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func strValue(recv Obj) string { return recv.(*ObjString).Value }

func registerStringMembers() {
	size := func(s *Scope, recv Obj) (Obj, error) {
		return NewInt(int64(utf8.RuneCountInString(strValue(recv)))), nil
	}
	DefProperty(StringClass, "size", size)
	DefProperty(StringClass, "length", size)

	DefMethod(StringClass, "upper", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewString(cases.Upper(language.Und).String(strValue(recv))), nil
	})
	DefMethod(StringClass, "lower", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewString(cases.Lower(language.Und).String(strValue(recv))), nil
	})
	DefMethod(StringClass, "title", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewString(cases.Title(language.Und).String(strValue(recv))), nil
	})
	DefMethod(StringClass, "trim", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewString(strings.TrimSpace(strValue(recv))), nil
	})
	DefMethod(StringClass, "isEmpty", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewBool(strValue(recv) == ""), nil
	})
	DefMethod(StringClass, "substring", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "substring", args, 1, 2); err != nil {
			return nil, err
		}
		runes := []rune(strValue(recv))
		start, err := ArgInt(s, "substring", args, 0)
		if err != nil {
			return nil, err
		}
		end := int64(len(runes))
		if len(args.List) == 2 {
			if end, err = ArgInt(s, "substring", args, 1); err != nil {
				return nil, err
			}
		}
		if start < 0 || end > int64(len(runes)) || start > end {
			return nil, s.Raise(IndexOutOfBoundsExceptionClass, "substring(%d, %d) out of bounds for length %d", start, end, len(runes))
		}
		return NewString(string(runes[start:end])), nil
	})
	DefMethod(StringClass, "startsWith", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		prefix, err := argString(s, "startsWith", args, 0)
		if err != nil {
			return nil, err
		}
		return NewBool(strings.HasPrefix(strValue(recv), prefix)), nil
	})
	DefMethod(StringClass, "endsWith", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		suffix, err := argString(s, "endsWith", args, 0)
		if err != nil {
			return nil, err
		}
		return NewBool(strings.HasSuffix(strValue(recv), suffix)), nil
	})
	DefMethod(StringClass, "indexOf", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		sub, err := argString(s, "indexOf", args, 0)
		if err != nil {
			return nil, err
		}
		str := strValue(recv)
		i := strings.Index(str, sub)
		if i < 0 {
			return NewInt(-1), nil
		}
		return NewInt(int64(utf8.RuneCountInString(str[:i]))), nil
	})
	DefMethod(StringClass, "replace", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		if err := expectArgs(s, "replace", args, 2, 2); err != nil {
			return nil, err
		}
		old, err := argString(s, "replace", args, 0)
		if err != nil {
			return nil, err
		}
		repl, err := argString(s, "replace", args, 1)
		if err != nil {
			return nil, err
		}
		return NewString(strings.ReplaceAll(strValue(recv), old, repl)), nil
	})
	DefMethod(StringClass, "split", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		sep, err := argString(s, "split", args, 0)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(strValue(recv), sep)
		items := make([]Obj, len(parts))
		for i, p := range parts {
			items[i] = NewString(p)
		}
		return NewList(items), nil
	})
	DefMethod(StringClass, "toInt", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(strValue(recv)), 10, 64)
		if err != nil {
			return nil, s.Raise(IllegalArgumentExceptionClass, "can't convert %q to Int", strValue(recv))
		}
		return NewInt(n), nil
	})
	DefMethod(StringClass, "toReal", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(strValue(recv)), 64)
		if err != nil {
			return nil, s.Raise(IllegalArgumentExceptionClass, "can't convert %q to Real", strValue(recv))
		}
		return NewReal(f), nil
	})
	DefMethod(StringClass, "chars", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		runes := []rune(strValue(recv))
		items := make([]Obj, len(runes))
		for i, r := range runes {
			items[i] = NewChar(r)
		}
		return NewList(items), nil
	})

	DefProperty(CharClass, "code", func(s *Scope, recv Obj) (Obj, error) {
		return NewInt(int64(recv.(*ObjChar).Value)), nil
	})
	DefMethod(IntClass, "toReal", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewReal(float64(recv.(*ObjInt).Value)), nil
	})
	DefMethod(RealClass, "toInt", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewInt(int64(recv.(*ObjReal).Value)), nil
	})
	DefMethod(IntClass, "toChar", func(s *Scope, recv Obj, args *Arguments) (Obj, error) {
		return NewChar(rune(recv.(*ObjInt).Value)), nil
	})
}

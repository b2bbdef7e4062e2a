package stdlib

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"lyng/internal/modules"
	"lyng/internal/object"
)

// matchTimeout bounds backtracking of a single regex operation.
const matchTimeout = 5 * time.Second

// ObjRegex is a compiled .NET-flavoured regular expression.
type ObjRegex struct {
	Pattern string
	re      *regexp2.Regexp
	// full is the pattern anchored at both ends, compiled on first use.
	full *regexp2.Regexp
}

var RegexClass = object.NewClass("Regex")

func (r *ObjRegex) Class() *object.ObjClass { return RegexClass }
func (r *ObjRegex) Inspect() string         { return fmt.Sprintf("Regex(%q)", r.Pattern) }

func compileRegex(pattern string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}

func NewRegex(pattern string) (*ObjRegex, error) {
	re, err := compileRegex(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return &ObjRegex{Pattern: pattern, re: re}, nil
}

func (r *ObjRegex) fullMatch(s string) (bool, error) {
	if r.full == nil {
		full, err := compileRegex(`\A(?:` + r.Pattern + `)\z`)
		if err != nil {
			return false, err
		}
		r.full = full
	}
	return r.full.MatchString(s)
}

func matchObject(m *regexp2.Match) object.Obj {
	if m == nil {
		return object.NULL
	}
	res := object.NewMap()
	res.Put(object.NewString("value"), object.NewString(m.String()))
	res.Put(object.NewString("index"), object.NewInt(int64(m.Index)))
	var groups []object.Obj
	for _, g := range m.Groups()[1:] {
		if len(g.Captures) == 0 {
			groups = append(groups, object.NULL)
			continue
		}
		groups = append(groups, object.NewString(g.String()))
	}
	res.Put(object.NewString("groups"), object.NewList(groups))
	return res
}

func regexMethod(name string, nargs int, fn func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error)) {
	object.DefMethod(RegexClass, name, func(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, name, args, nargs, nargs); err != nil {
			return nil, err
		}
		strs := make([]string, nargs)
		for i := range strs {
			str, err := object.ArgString(s, name, args, i)
			if err != nil {
				return nil, err
			}
			strs[i] = str
		}
		res, err := fn(s, recv.(*ObjRegex), strs)
		if err != nil {
			return nil, object.WrapHostError(s, fmt.Errorf("%s failed: %w", name, err))
		}
		return res, nil
	})
}

func init() {
	RegexClass.Factory = func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "Regex", args, 1, 1); err != nil {
			return nil, err
		}
		pattern, err := object.ArgString(s, "Regex", args, 0)
		if err != nil {
			return nil, err
		}
		r, err := NewRegex(pattern)
		if err != nil {
			return nil, s.Raise(object.IllegalArgumentExceptionClass, "%s", err.Error())
		}
		return r, nil
	}
	object.DefProperty(RegexClass, "pattern", func(s *object.Scope, recv object.Obj) (object.Obj, error) {
		return object.NewString(recv.(*ObjRegex).Pattern), nil
	})
	regexMethod("matches", 1, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		ok, err := r.fullMatch(args[0])
		return object.NewBool(ok), err
	})
	regexMethod("containsMatchIn", 1, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		ok, err := r.re.MatchString(args[0])
		return object.NewBool(ok), err
	})
	regexMethod("find", 1, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		m, err := r.re.FindStringMatch(args[0])
		if err != nil {
			return nil, err
		}
		return matchObject(m), nil
	})
	regexMethod("findAll", 1, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		var found []object.Obj
		m, err := r.re.FindStringMatch(args[0])
		for m != nil && err == nil {
			found = append(found, object.NewString(m.String()))
			m, err = r.re.FindNextMatch(m)
		}
		if err != nil {
			return nil, err
		}
		return object.NewList(found), nil
	})
	regexMethod("replace", 2, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		out, err := r.re.Replace(args[0], args[1], -1, -1)
		if err != nil {
			return nil, err
		}
		return object.NewString(out), nil
	})
	regexMethod("split", 1, func(s *object.Scope, r *ObjRegex, args []string) (object.Obj, error) {
		var parts []object.Obj
		input := []rune(args[0])
		last := 0
		m, err := r.re.FindStringMatch(args[0])
		for m != nil && err == nil {
			parts = append(parts, object.NewString(string(input[last:m.Index])))
			last = m.Index + m.Length
			m, err = r.re.FindNextMatch(m)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, object.NewString(string(input[last:])))
		return object.NewList(parts), nil
	})
}

func regexModule() *modules.HostModule {
	return &modules.HostModule{Name: "lyng.regex", Install: func(s *object.Scope) error {
		s.Bind("Regex", RegexClass)
		return nil
	}}
}

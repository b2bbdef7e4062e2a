package stdlib

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"lyng/internal/modules"
	"lyng/internal/object"
)

var normForms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

// languageArg parses an optional BCP 47 tag at position i.
func languageArg(s *object.Scope, name string, args *object.Arguments, i int) (language.Tag, error) {
	if i >= len(args.List) {
		return language.Und, nil
	}
	raw, err := object.ArgString(s, name, args, i)
	if err != nil {
		return language.Und, err
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, s.Raise(object.IllegalArgumentExceptionClass, "invalid language tag %q", raw)
	}
	return tag, nil
}

func caseFunc(name string, caser func(language.Tag) cases.Caser) *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: name, Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, name, args, 1, 2); err != nil {
			return nil, err
		}
		str, err := object.ArgString(s, name, args, 0)
		if err != nil {
			return nil, err
		}
		tag, err := languageArg(s, name, args, 1)
		if err != nil {
			return nil, err
		}
		return object.NewString(caser(tag).String(str)), nil
	}}
}

func fnNormalize() *object.BuiltinFunc {
	return &object.BuiltinFunc{Name: "normalize", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "normalize", args, 1, 2); err != nil {
			return nil, err
		}
		str, err := object.ArgString(s, "normalize", args, 0)
		if err != nil {
			return nil, err
		}
		form := "NFC"
		if len(args.List) == 2 {
			if form, err = object.ArgString(s, "normalize", args, 1); err != nil {
				return nil, err
			}
		}
		f, ok := normForms[form]
		if !ok {
			return nil, s.Raise(object.IllegalArgumentExceptionClass, "unknown normalization form %s", form)
		}
		return object.NewString(f.String(str)), nil
	}}
}

func fnEqualFold() *object.BuiltinFunc {
	fold := cases.Fold()
	return &object.BuiltinFunc{Name: "equalFold", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "equalFold", args, 2, 2); err != nil {
			return nil, err
		}
		a, err := object.ArgString(s, "equalFold", args, 0)
		if err != nil {
			return nil, err
		}
		b, err := object.ArgString(s, "equalFold", args, 1)
		if err != nil {
			return nil, err
		}
		return object.NewBool(fold.String(norm.NFC.String(a)) == fold.String(norm.NFC.String(b))), nil
	}}
}

func textModule() *modules.HostModule {
	return &modules.HostModule{Name: "lyng.text", Install: func(s *object.Scope) error {
		for _, fn := range []*object.BuiltinFunc{
			caseFunc("upper", func(t language.Tag) cases.Caser { return cases.Upper(t) }),
			caseFunc("lower", func(t language.Tag) cases.Caser { return cases.Lower(t) }),
			caseFunc("title", func(t language.Tag) cases.Caser { return cases.Title(t) }),
			caseFunc("fold", func(language.Tag) cases.Caser { return cases.Fold() }),
			fnNormalize(),
			fnEqualFold(),
		} {
			s.Bind(fn.Name, fn)
		}
		return nil
	}}
}

// HostModules returns the modules implemented in Go.
func HostModules() []*modules.HostModule {
	return []*modules.HostModule{dbModule(), regexModule(), textModule()}
}

package compiler

import (
	"errors"

	"lyng/internal/object"
	"lyng/internal/token"
)

// target is an assignable expression. bind evaluates its sub-expressions
// once, so compound assignments read and write the same place.
type target interface {
	bind(s *object.Scope) (place, error)
}

type place interface {
	get(s *object.Scope) (object.Obj, error)
	set(s *object.Scope, v object.Obj) error
}

type identTarget struct {
	site *identSite
}

type identPlace struct {
	rec  *object.Record
	recv object.Obj
}

func (t *identTarget) bind(s *object.Scope) (place, error) {
	rec, recv, err := t.site.resolve(s)
	if err != nil {
		return nil, err
	}
	return &identPlace{rec: rec, recv: recv}, nil
}

func (pl *identPlace) get(s *object.Scope) (object.Obj, error) {
	if pl.recv == nil && pl.rec.Kind != object.KindProperty {
		if pl.rec.Value == object.Unset {
			return nil, s.Raise(object.IllegalStateExceptionClass, "%s is not initialized", pl.rec.Name)
		}
		return pl.rec.Value, nil
	}
	return object.ReadMember(s, pl.recv, pl.rec)
}

func (pl *identPlace) set(s *object.Scope, v object.Obj) error { return assignRecord(s, pl.rec, v) }

type memberTarget struct {
	recv *expr
	site *memberSite
	pos  token.Pos
}

type memberPlace struct {
	recv object.Obj
	site *memberSite
	pos  token.Pos
}

func (t *memberTarget) bind(s *object.Scope) (place, error) {
	recv, err := t.recv.eval(s)
	if err != nil {
		return nil, err
	}
	return &memberPlace{recv: recv, site: t.site, pos: t.pos}, nil
}

func (pl *memberPlace) get(s *object.Scope) (object.Obj, error) {
	v, err := pl.site.read(s, pl.recv)
	return v, at(pl.pos, err)
}

func (pl *memberPlace) set(s *object.Scope, v object.Obj) error {
	return at(pl.pos, pl.site.write(s, pl.recv, v))
}

type indexTarget struct {
	recv, index *expr
	site        *indexSite
	pos         token.Pos
}

type indexPlace struct {
	recv, index object.Obj
	site        *indexSite
	pos         token.Pos
}

func (t *indexTarget) bind(s *object.Scope) (place, error) {
	recv, err := t.recv.eval(s)
	if err != nil {
		return nil, err
	}
	index, err := t.index.eval(s)
	if err != nil {
		return nil, err
	}
	return &indexPlace{recv: recv, index: index, site: t.site, pos: t.pos}, nil
}

func (pl *indexPlace) get(s *object.Scope) (object.Obj, error) {
	v, err := pl.site.get(s, pl.recv, pl.index)
	return v, at(pl.pos, err)
}

func (pl *indexPlace) set(s *object.Scope, v object.Obj) error {
	return at(pl.pos, object.PutAt(s, pl.recv, pl.index, v))
}

type argItem struct {
	value *expr
	splat bool
}

type namedItem struct {
	name  string
	value *expr
}

// argItems is the compiled argument list of a call or list literal.
type argItems struct {
	items []argItem
	named []namedItem
	tail  *expr
	splat bool
}

// parseArgumentItems parses a comma separated list up to end (not
// consumed). Named arguments are recognized only when allowNamed is set.
func (p *Parser) parseArgumentItems(end token.TokenType, allowNamed bool) *argItems {
	a := &argItems{}
	seen := map[string]bool{}
	for !p.peekIs(end) {
		var name token.Token
		switch {
		case p.accept(token.ELLIPSIS):
			a.items = append(a.items, argItem{value: p.parseExpression(LOWEST), splat: true})
			a.splat = true
		case allowNamed && p.tryParse(func() bool {
			if !p.peekIs(token.IDENT) {
				return false
			}
			name = p.next()
			return p.accept(token.COLON)
		}):
			if seen[name.Literal] {
				p.errorAt(name.Pos, "argument %s is already given", name.Literal)
			}
			seen[name.Literal] = true
			a.named = append(a.named, namedItem{name: name.Literal, value: p.parseExpression(LOWEST)})
		default:
			a.items = append(a.items, argItem{value: p.parseExpression(LOWEST)})
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	return a
}

// positional evaluates the positional items, expanding splats.
func (a *argItems) positional(s *object.Scope) ([]object.Obj, error) {
	if !a.splat {
		values := make([]object.Obj, len(a.items))
		for i, it := range a.items {
			v, err := it.value.eval(s)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}
	values := make([]object.Obj, 0, len(a.items))
	for _, it := range a.items {
		v, err := it.value.eval(s)
		if err != nil {
			return nil, err
		}
		if !it.splat {
			values = append(values, v)
			continue
		}
		if l, ok := v.(*object.ObjList); ok {
			values = append(values, l.Items...)
			continue
		}
		err = object.Iterate(s, v, func(x object.Obj) (bool, error) {
			values = append(values, x)
			return false, nil
		})
		if err != nil {
			return nil, at(it.value.pos, err)
		}
	}
	return values, nil
}

func (a *argItems) evaluate(s *object.Scope) (*object.Arguments, error) {
	values, err := a.positional(s)
	if err != nil {
		return nil, err
	}
	args := &object.Arguments{List: values}
	if len(a.named) > 0 {
		args.Named = make([]object.NamedArg, len(a.named))
		for i, n := range a.named {
			v, err := n.value.eval(s)
			if err != nil {
				return nil, err
			}
			args.Named[i] = object.NamedArg{Name: n.name, Value: v}
		}
	}
	if a.tail != nil {
		block, err := a.tail.eval(s)
		if err != nil {
			return nil, err
		}
		args.List = append(args.List, block)
		args.TailBlock = true
	}
	return args, nil
}

func (p *Parser) parseCallExpression(left *expr) *expr {
	p.next()
	args := p.parseArgumentItems(token.RPAREN, true)
	p.expect(token.RPAREN, "')'")
	if p.peekIs(token.LBRACE) && !p.peek().NewlineBefore {
		args.tail = p.parseLambdaLiteral(left.callee)
	}
	return p.makeCall(left, args)
}

func (p *Parser) parseTrailingBlockCall(left *expr) *expr {
	args := &argItems{tail: p.parseLambdaLiteral(left.callee)}
	return p.makeCall(left, args)
}

// traced records a call position on an exception passing through it.
func traced(pos token.Pos, err error) error {
	var ee *object.ExecutionError
	if errors.As(err, &ee) {
		if !ee.Pos.IsValid() {
			ee.Pos = pos
		}
		ee.Exception.AddTrace(pos)
	}
	return err
}

func (p *Parser) makeCall(callee *expr, args *argItems) *expr {
	pos := callee.pos
	switch {
	case callee.ident != nil:
		site := callee.ident
		if site.name == "launch" {
			p.markCapturing()
		}
		return &expr{pos: pos, eval: func(s *object.Scope) (object.Obj, error) {
			a, err := args.evaluate(s)
			if err != nil {
				return nil, err
			}
			rec, recv, err := site.resolve(s)
			if err != nil {
				return nil, at(pos, err)
			}
			var res object.Obj
			if recv != nil {
				res, err = object.CallMember(s, recv, rec, a)
			} else if rec.Value == object.Unset {
				err = s.Raise(object.IllegalStateExceptionClass, "%s is not initialized", rec.Name)
			} else {
				res, err = object.Call(s, rec.Value, a)
			}
			if err != nil {
				return nil, traced(pos, err)
			}
			return res, nil
		}}

	case callee.member != nil:
		m := callee.member
		return &expr{pos: pos, eval: func(s *object.Scope) (object.Obj, error) {
			recv, err := m.recv.eval(s)
			if err != nil {
				return nil, err
			}
			if m.safe && object.IsNull(recv) {
				return object.NULL, nil
			}
			a, err := args.evaluate(s)
			if err != nil {
				return nil, err
			}
			res, err := m.site.call(s, recv, a)
			if err != nil {
				return nil, traced(pos, err)
			}
			return res, nil
		}}
	}

	return &expr{pos: pos, eval: func(s *object.Scope) (object.Obj, error) {
		fn, err := callee.eval(s)
		if err != nil {
			return nil, err
		}
		a, err := args.evaluate(s)
		if err != nil {
			return nil, err
		}
		res, err := object.Call(s, fn, a)
		if err != nil {
			return nil, traced(pos, err)
		}
		return res, nil
	}}
}

// parseParams parses formal parameters up to end (not consumed). In a
// constructor, parameters may carry a visibility and val/var.
func (p *Parser) parseParams(end token.TokenType, ctor bool) *object.ArgsDeclaration {
	var params []object.ArgDecl
	seen := map[string]bool{}
	variadic := false
	for !p.peekIs(end) {
		var d object.ArgDecl
		if ctor {
			d.Visibility = p.parseModifiers().vis
			switch {
			case p.accept(token.VAL):
				d.Access = object.AccessVal
			case p.accept(token.VAR):
				d.Access = object.AccessVar
			}
		}
		d.Variadic = p.accept(token.ELLIPSIS)
		name := p.expectIdent("parameter name")
		if !d.Variadic && p.accept(token.ELLIPSIS) {
			d.Variadic = true
		}
		d.Name = name.Literal
		if seen[d.Name] {
			p.errorAt(name.Pos, "duplicate parameter %s", d.Name)
		}
		seen[d.Name] = true
		if d.Variadic {
			if variadic {
				p.errorAt(name.Pos, "only one variadic parameter is allowed")
			}
			variadic = true
		}
		if p.accept(token.COLON) {
			d.Type, _, _ = p.parseTypeRef()
		}
		if p.accept(token.ASSIGN) {
			if d.Variadic {
				p.errorAt(name.Pos, "variadic parameter %s can't have a default value", d.Name)
			}
			d.Default = p.parseExpression(LOWEST).statement()
		}
		params = append(params, d)
		if !p.accept(token.COMMA) {
			break
		}
	}
	return object.NewArgsDeclaration(params)
}

// parseLambdaLiteral parses `{ params -> body }` or `{ body }`. label is the
// name return@label refers to, the callee name for trailing blocks.
func (p *Parser) parseLambdaLiteral(label string) *expr {
	lbrace := p.expect(token.LBRACE, "'{'")
	var params *object.ArgsDeclaration
	p.tryParse(func() bool {
		if p.accept(token.ARROW) {
			params = object.NewArgsDeclaration(nil)
			return true
		}
		decl := p.parseParams(token.ARROW, false)
		if !p.accept(token.ARROW) {
			return false
		}
		params = decl
		return true
	})
	p.markCapturing()
	f := p.pushFunc(label)
	body := p.parseStatements(lbrace.Pos)
	p.popFunc()
	p.expect(token.RBRACE, "'}'")

	tmpl := &object.Lambda{Kind: object.FunLambda, Params: params, Body: body, Capturing: f.capturing, Label: label}
	return &expr{pos: lbrace.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		return tmpl.WithClosure(s), nil
	}}
}

// parseAnonymousFun parses `fun(params) = expr` and `fun(params) { ... }`.
func (p *Parser) parseAnonymousFun() *expr {
	kw := p.next()
	if !p.peekIs(token.LPAREN) {
		p.errorf("expected '(' after fun in an expression")
	}
	tmpl := p.parseFunctionRest(kw.Pos, "")
	tmpl.Kind = object.FunNamed
	return &expr{pos: kw.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		return tmpl.WithClosure(s), nil
	}}
}

// parseFunctionRest parses the parameter list, optional return type and the
// body of a function.
func (p *Parser) parseFunctionRest(pos token.Pos, name string) *object.Lambda {
	p.expect(token.LPAREN, "'('")
	params := p.parseParams(token.RPAREN, false)
	p.expect(token.RPAREN, "')'")
	if p.accept(token.COLON) {
		p.parseTypeRef()
	}
	p.markCapturing()
	f := p.pushFunc(name)
	var body *object.Statement
	switch {
	case p.accept(token.ASSIGN):
		body = p.parseExpression(LOWEST).statement()
	case p.peekIs(token.LBRACE):
		lbrace := p.next()
		body = p.parseStatements(lbrace.Pos)
		p.expect(token.RBRACE, "'}'")
	default:
		p.errorf("expected function body, got %s", describe(p.peek()))
	}
	p.popFunc()
	return &object.Lambda{Name: name, Kind: object.FunNamed, Params: params, Body: body, Capturing: f.capturing}
}

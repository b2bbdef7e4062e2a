package compiler

import (
	"errors"
	"strings"

	"lyng/internal/object"
	"lyng/internal/token"
)

func (p *Parser) parseScript() *object.Statement {
	p.pushFunc("")
	defer p.popFunc()

	start := p.peek().Pos
	for p.accept(token.SEMICOLON) {
	}
	if p.peekIs(token.PACKAGE) {
		p.next()
		p.unit.Package = p.parseDottedName("package name")
		p.endStatement()
	}
	body := p.parseStatementList(start, token.EOF)
	if !p.peekIs(token.EOF) {
		p.errorf("unexpected %s", describe(p.peek()))
	}
	return body
}

// parseStatements parses the statements of a block body up to the closing
// brace, which is left for the caller.
func (p *Parser) parseStatements(pos token.Pos) *object.Statement {
	p.depth++
	defer func() { p.depth-- }()
	return p.parseStatementList(pos, token.RBRACE)
}

func (p *Parser) parseStatementList(pos token.Pos, end token.TokenType) *object.Statement {
	var hoisted, stmts []*object.Statement
	for !p.peekIs(end) {
		if p.peekIs(token.EOF) {
			p.errorf("expected '}', got end of input")
		}
		if p.accept(token.SEMICOLON) {
			continue
		}
		if p.peekIs(token.PACKAGE) {
			p.errorf("package must be the first statement")
		}
		p.hoist = false
		st := p.parseStatement()
		if p.hoist {
			hoisted = append(hoisted, st)
		} else {
			stmts = append(stmts, st)
		}
		p.endStatement()
	}
	p.hoist = false
	return sequence(pos, append(hoisted, stmts...))
}

// sequence runs statements in order; its value is the value of the last
// one, void when empty.
func sequence(pos token.Pos, stmts []*object.Statement) *object.Statement {
	switch len(stmts) {
	case 0:
		return &object.Statement{Pos: pos, Exec: func(*object.Scope) (object.Obj, error) { return object.VOID, nil }}
	case 1:
		return stmts[0]
	}
	return &object.Statement{Pos: pos, Exec: func(s *object.Scope) (object.Obj, error) {
		var res object.Obj = object.VOID
		for _, st := range stmts {
			v, err := st.Execute(s)
			if err != nil {
				return nil, err
			}
			res = v
		}
		return res, nil
	}}
}

// parseBlock parses `{ ... }` run in a fresh child scope.
func (p *Parser) parseBlock() *object.Statement {
	lbrace := p.expect(token.LBRACE, "'{'")
	body := p.parseStatements(lbrace.Pos)
	p.expect(token.RBRACE, "'}'")
	return &object.Statement{Pos: lbrace.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		return body.Execute(s.NewChild())
	}}
}

// parseBranch parses the body of if, when and loop else clauses: a block or
// a single statement.
func (p *Parser) parseBranch() *object.Statement {
	if p.peekIs(token.LBRACE) {
		return p.parseBlock()
	}
	return p.parseNestedStatement()
}

// parseNestedStatement parses a brace-less body. Its declarations are
// neither module-level names nor hoisted out of the enclosing statement.
func (p *Parser) parseNestedStatement() *object.Statement {
	p.depth++
	defer func(hoist bool) {
		p.depth--
		p.hoist = hoist
	}(p.hoist)
	return p.parseStatement()
}

func (p *Parser) parseStatement() *object.Statement {
	switch p.peek().Type {
	case token.VAL, token.VAR:
		return p.parseVarDecl(modifiers{})
	case token.FUN:
		if p.peekAt(1).Type == token.LPAREN {
			return p.parseExpression(LOWEST).statement()
		}
		return p.parseFunDecl(modifiers{})
	case token.CLASS:
		return p.parseClassDecl(modifiers{})
	case token.ENUM:
		return p.parseEnumDecl(modifiers{})
	case token.IMPORT:
		return p.parseImport()
	case token.LBRACE:
		return p.parseBlock()
	case token.PRIVATE, token.PROTECTED, token.PUBLIC, token.STATIC, token.OPEN, token.OVERRIDE:
		mods := p.parseModifiers()
		if mods.static {
			p.errorAt(mods.pos, "static is only allowed in a class body")
		}
		switch p.peek().Type {
		case token.VAL, token.VAR:
			return p.parseVarDecl(mods)
		case token.FUN:
			return p.parseFunDecl(mods)
		case token.CLASS:
			return p.parseClassDecl(mods)
		case token.ENUM:
			return p.parseEnumDecl(mods)
		}
		p.errorf("expected declaration after modifiers, got %s", describe(p.peek()))
	}
	return p.parseExpression(LOWEST).statement()
}

type modifiers struct {
	vis    object.Visibility
	static bool
	pos    token.Pos
}

func (p *Parser) parseModifiers() modifiers {
	m := modifiers{pos: p.peek().Pos}
	for {
		switch p.peek().Type {
		case token.PRIVATE:
			m.vis = object.Private
		case token.PROTECTED:
			m.vis = object.Protected
		case token.PUBLIC:
			m.vis = object.Public
		case token.STATIC:
			m.static = true
		case token.OPEN, token.OVERRIDE:
		default:
			return m
		}
		p.next()
	}
}

func (p *Parser) parseDottedName(what string) string {
	parts := []string{p.expectIdent(what).Literal}
	for p.peekIs(token.PERIOD) && p.peekAt(1).Type != token.LBRACE {
		p.next()
		parts = append(parts, p.expectIdent(what).Literal)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseVarDecl(mods modifiers) *object.Statement {
	kw := p.next()
	mutable := kw.Type == token.VAR

	var names []token.Token
	if p.peekIs(token.LBRACKET) && p.tryParse(func() bool {
		p.next()
		for {
			names = append(names, p.expectIdent("variable name"))
			if !p.accept(token.COMMA) {
				break
			}
		}
		return p.accept(token.RBRACKET) && p.peekIs(token.ASSIGN)
	}) {
		return p.parseDestructuring(kw, names, mutable, mods)
	}

	name := p.expectIdent("variable name")
	if p.accept(token.COLON) {
		p.parseTypeRef()
	}
	var init *expr
	if p.accept(token.ASSIGN) {
		init = p.parseExpression(LOWEST)
	}
	p.declare(name.Literal, mods.vis)
	vis := mods.vis
	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		v := object.Unset
		if init != nil {
			var err error
			if v, err = init.eval(s); err != nil {
				return nil, err
			}
		}
		if _, err := s.Define(name.Literal, v, mutable, vis, object.KindOther); err != nil {
			return nil, at(name.Pos, err)
		}
		return object.VOID, nil
	}}
}

func (p *Parser) parseDestructuring(kw token.Token, names []token.Token, mutable bool, mods modifiers) *object.Statement {
	p.expect(token.ASSIGN, "'='")
	init := p.parseExpression(LOWEST)
	for _, n := range names {
		p.declare(n.Literal, mods.vis)
	}
	vis := mods.vis
	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		v, err := init.eval(s)
		if err != nil {
			return nil, err
		}
		var items []object.Obj
		if l, ok := v.(*object.ObjList); ok {
			items = l.Items
		} else if err := object.Iterate(s, v, func(x object.Obj) (bool, error) {
			items = append(items, x)
			return len(items) == len(names), nil
		}); err != nil {
			return nil, at(init.pos, err)
		}
		if len(items) < len(names) {
			return nil, at(kw.Pos, s.Raise(object.IndexOutOfBoundsExceptionClass,
				"can't destructure %d values into %d names", len(items), len(names)))
		}
		for i, n := range names {
			if _, err := s.Define(n.Literal, items[i], mutable, vis, object.KindOther); err != nil {
				return nil, at(n.Pos, err)
			}
		}
		return object.VOID, nil
	}}
}

func (p *Parser) parseFunDecl(mods modifiers) *object.Statement {
	kw := p.next()
	var recvType token.Token
	extension := p.tryParse(func() bool {
		recvType = p.expectIdent("receiver type")
		p.skipTypeArguments()
		p.accept(token.QUESTION)
		return p.accept(token.PERIOD)
	})
	name := p.expectIdent("function name")
	tmpl := p.parseFunctionRest(kw.Pos, name.Literal)
	tmpl.Visibility = mods.vis

	if extension {
		lookup := p.typeLookup(recvType.Literal, recvType.Pos)
		return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
			cls, err := lookup(s)
			if err != nil {
				return nil, err
			}
			s.AddExtension(cls, &object.Record{
				Name:       name.Literal,
				Value:      tmpl.WithClosure(s),
				Kind:       object.KindMethod,
				Visibility: mods.vis,
				Origin:     s.Module(),
			})
			return object.VOID, nil
		}}
	}

	p.declare(name.Literal, mods.vis)
	p.hoist = true
	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		if _, err := s.Define(name.Literal, tmpl.WithClosure(s), false, mods.vis, object.KindOther); err != nil {
			return nil, at(name.Pos, err)
		}
		return object.VOID, nil
	}}
}

func (p *Parser) parseImport() *object.Statement {
	kw := p.next()
	module := p.parseDottedName("module name")
	var symbols []object.ImportSymbol
	if p.accept(token.PERIOD) {
		p.expect(token.LBRACE, "'{'")
		for !p.peekIs(token.RBRACE) {
			sym := object.ImportSymbol{Name: p.expectIdent("symbol name").Literal}
			if p.accept(token.AS) {
				sym.Alias = p.expectIdent("alias").Literal
			}
			symbols = append(symbols, sym)
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE, "'}'")
	}
	if p.imports == nil {
		p.errorAt(kw.Pos, "module %s is not available", module)
	}
	if err := p.imports.PrepareImport(p.ctx, kw.Pos, module, symbols); err != nil {
		var se *object.SyntaxError
		if errors.As(err, &se) {
			panic(se)
		}
		p.errorAt(kw.Pos, "%s", importMessage(err))
	}
	p.unit.Imports = append(p.unit.Imports, module)
	provider := p.imports
	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		if err := provider.PerformImport(s.Context(), s, module, symbols); err != nil {
			return nil, at(kw.Pos, object.WrapHostError(s, err))
		}
		return object.VOID, nil
	}}
}

func importMessage(err error) string {
	var ee *object.ExecutionError
	if errors.As(err, &ee) {
		return ee.Message()
	}
	return err.Error()
}

package compiler

import (
	"lyng/internal/object"
	"lyng/internal/token"
)

type parentRef struct {
	name   string
	pos    token.Pos
	lookup func(s *object.Scope) (*object.ObjClass, error)
	args   *argItems
}

type fieldDef struct {
	name    token.Token
	mutable bool
	vis     object.Visibility
	static  bool
	init    *expr
}

type methodDef struct {
	tmpl   *object.Lambda
	static bool
}

// classDef is the compiled form of a class declaration. Classes are created
// when the declaration runs, so each execution yields a fresh class.
type classDef struct {
	name    token.Token
	vis     object.Visibility
	ctor    *object.ArgsDeclaration
	parents []parentRef
	fields  []fieldDef
	methods []methodDef
	// init holds instance field initializers and init blocks in source
	// order; statics holds static field initializers.
	init    []*object.Statement
	statics []fieldDef
}

func (p *Parser) parseClassDecl(mods modifiers) *object.Statement {
	kw := p.expect(token.CLASS, "'class'")
	def := &classDef{name: p.expectIdent("class name"), vis: mods.vis}
	if p.accept(token.LPAREN) {
		def.ctor = p.parseParams(token.RPAREN, true)
		p.expect(token.RPAREN, "')'")
	}
	if p.accept(token.COLON) {
		for {
			name, _, pos := p.parseTypeRef()
			ref := parentRef{name: name, pos: pos, lookup: p.typeLookup(name, pos)}
			if p.peekIs(token.LPAREN) && !p.peek().NewlineBefore {
				p.next()
				ref.args = p.parseArgumentItems(token.RPAREN, true)
				p.expect(token.RPAREN, "')'")
			}
			for _, other := range def.parents {
				if other.name == name {
					p.errorAt(pos, "%s is listed twice as a parent of %s", name, def.name.Literal)
				}
			}
			def.parents = append(def.parents, ref)
			if !p.accept(token.COMMA) {
				break
			}
		}
	}
	if p.peekIs(token.LBRACE) {
		p.parseClassBody(def)
	}
	p.declare(def.name.Literal, def.vis)

	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		cls, err := def.build(s)
		if err != nil {
			return nil, err
		}
		if _, err := s.Define(def.name.Literal, cls, false, def.vis, object.KindOther); err != nil {
			return nil, at(def.name.Pos, err)
		}
		if err := def.initStatics(s, cls); err != nil {
			return nil, err
		}
		return object.VOID, nil
	}}
}

func (p *Parser) parseClassBody(def *classDef) {
	p.expect(token.LBRACE, "'{'")
	p.depth++
	defer func() { p.depth-- }()

	for !p.peekIs(token.RBRACE) {
		if p.peekIs(token.EOF) {
			p.errorf("expected '}', got end of input")
		}
		if p.accept(token.SEMICOLON) {
			continue
		}
		mods := p.parseModifiers()
		switch p.peek().Type {
		case token.VAL, token.VAR:
			f := p.parseFieldDef(mods)
			if f.static {
				def.statics = append(def.statics, f)
			} else {
				def.fields = append(def.fields, f)
				def.init = append(def.init, f.initializer())
			}
		case token.FUN:
			kw := p.next()
			name := p.expectIdent("method name")
			tmpl := p.parseFunctionRest(kw.Pos, name.Literal)
			tmpl.Kind = object.FunMethod
			tmpl.Visibility = mods.vis
			tmpl.Static = mods.static
			def.methods = append(def.methods, methodDef{tmpl: tmpl, static: mods.static})
		case token.INIT:
			if mods.static {
				p.errorAt(mods.pos, "init blocks can't be static")
			}
			p.next()
			def.init = append(def.init, p.parseBlock())
		case token.CLASS, token.ENUM:
			p.errorf("nested %s declarations are not supported", p.peek().Literal)
		default:
			p.errorf("expected class member, got %s", describe(p.peek()))
		}
		p.endStatement()
	}
	p.expect(token.RBRACE, "'}'")
}

func (p *Parser) parseFieldDef(mods modifiers) fieldDef {
	kw := p.next()
	f := fieldDef{
		name:    p.expectIdent("field name"),
		mutable: kw.Type == token.VAR,
		vis:     mods.vis,
		static:  mods.static,
	}
	if p.accept(token.COLON) {
		p.parseTypeRef()
	}
	if p.accept(token.ASSIGN) {
		f.init = p.parseExpression(LOWEST)
	}
	return f
}

func (f fieldDef) value(s *object.Scope) (object.Obj, error) {
	if f.init == nil {
		return object.Unset, nil
	}
	return f.init.eval(s)
}

// initializer runs in the constructor frame of the declaring class.
func (f fieldDef) initializer() *object.Statement {
	return &object.Statement{Pos: f.name.Pos, Exec: func(frame *object.Scope) (object.Obj, error) {
		v, err := f.value(frame)
		if err != nil {
			return nil, err
		}
		inst := frame.This().(*object.ObjInstance)
		if _, err := inst.DefineField(frame, f.name.Literal, v, f.mutable, f.vis, frame.CurrentClass()); err != nil {
			return nil, at(f.name.Pos, err)
		}
		return object.VOID, nil
	}}
}

func (def *classDef) resolveParents(s *object.Scope) ([]*object.ObjClass, []object.ParentInit, error) {
	var (
		parents []*object.ObjClass
		inits   []object.ParentInit
	)
	for _, ref := range def.parents {
		pc, err := ref.lookup(s)
		if err != nil {
			return nil, nil, err
		}
		if pc.Factory != nil || (!pc.Instantiable && pc != object.RootClass) {
			return nil, nil, at(ref.pos, s.Raise(object.IllegalArgumentExceptionClass, "class %s can't be inherited", pc.Name))
		}
		parents = append(parents, pc)
		if ref.args != nil {
			args := ref.args
			inits = append(inits, object.ParentInit{Class: pc, Args: args.evaluate})
		}
	}
	return parents, inits, nil
}

func (def *classDef) build(s *object.Scope) (*object.ObjClass, error) {
	parents, inits, err := def.resolveParents(s)
	if err != nil {
		return nil, err
	}
	cls := object.NewClass(def.name.Literal, parents...)
	cls.DeclScope = s
	cls.Body = &object.ClassBody{Ctor: def.ctor, ParentInits: inits, Init: def.init}

	fieldErr := func(pos token.Pos, err error) error {
		return at(pos, s.Raise(object.IllegalAssignmentExceptionClass, "%s", err.Error()))
	}
	if def.ctor != nil {
		for _, param := range def.ctor.Params {
			if param.Access == object.AccessNone {
				continue
			}
			if err := cls.CreateField(param.Name, param.Access == object.AccessVar, param.Visibility); err != nil {
				return nil, fieldErr(def.name.Pos, err)
			}
		}
	}
	for _, f := range def.fields {
		if err := cls.CreateField(f.name.Literal, f.mutable, f.vis); err != nil {
			return nil, fieldErr(f.name.Pos, err)
		}
	}
	for _, m := range def.methods {
		fn := m.tmpl.WithClosure(s)
		fn.DeclaringClass = cls
		cls.AddMember(&object.Record{
			Name:       fn.Name,
			Value:      fn,
			Kind:       object.KindMethod,
			Visibility: fn.Visibility,
			Static:     m.static,
			Origin:     s.Module(),
		})
	}
	return cls, nil
}

// initStatics creates the class init scope and runs the static field
// initializers in it, once per class.
func (def *classDef) initStatics(s *object.Scope, cls *object.ObjClass) error {
	st := s.NewChild()
	st.Retain()
	st.SetThis(cls)
	st.SetCurrentClass(cls)
	cls.Static = st
	for _, f := range def.statics {
		v, err := f.value(st)
		if err != nil {
			return err
		}
		if cls.OwnMember(f.name.Literal) != nil {
			return at(f.name.Pos, s.Raise(object.IllegalAssignmentExceptionClass,
				"%s is already defined in %s", f.name.Literal, cls.Name))
		}
		cls.AddMember(&object.Record{
			Name:       f.name.Literal,
			Value:      v,
			Mutable:    f.mutable,
			Visibility: f.vis,
			Kind:       object.KindField,
			Static:     true,
			Origin:     s.Module(),
		})
	}
	return nil
}

func (p *Parser) parseEnumDecl(mods modifiers) *object.Statement {
	kw := p.expect(token.ENUM, "'enum'")
	name := p.expectIdent("enum name")
	p.expect(token.LBRACE, "'{'")
	var entries []string
	seen := map[string]bool{}
	for !p.peekIs(token.RBRACE) {
		entry := p.expectIdent("enum entry")
		if seen[entry.Literal] {
			p.errorAt(entry.Pos, "duplicate enum entry %s", entry.Literal)
		}
		seen[entry.Literal] = true
		entries = append(entries, entry.Literal)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.accept(token.SEMICOLON)
	p.expect(token.RBRACE, "'}'")
	p.declare(name.Literal, mods.vis)

	return &object.Statement{Pos: kw.Pos, Exec: func(s *object.Scope) (object.Obj, error) {
		cls := object.NewEnumClass(name.Literal, s, entries)
		if _, err := s.Define(name.Literal, cls, false, mods.vis, object.KindOther); err != nil {
			return nil, at(name.Pos, err)
		}
		return object.VOID, nil
	}}
}

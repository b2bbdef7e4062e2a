package compiler

import (
	"errors"

	"lyng/internal/object"
	"lyng/internal/token"
)

// startsExpression reports whether the next token can begin an optional
// operand, as after return or break.
func (p *Parser) startsExpression() bool {
	tok := p.peek()
	if tok.NewlineBefore {
		return false
	}
	switch tok.Type {
	case token.RBRACE, token.RPAREN, token.SEMICOLON, token.EOF, token.ELSE, token.COMMA:
		return false
	}
	_, ok := prefixParseFns[tok.Type]
	return ok
}

func (p *Parser) parseCondition() *expr {
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpression(LOWEST)
	p.expect(token.RPAREN, "')'")
	return cond
}

func truthy(s *object.Scope, cond *expr) (bool, error) {
	v, err := cond.eval(s)
	if err != nil {
		return false, err
	}
	ok, err := object.Truthy(s, v)
	if err != nil {
		return false, at(cond.pos, err)
	}
	return ok, nil
}

// acceptElse consumes an else keyword, optionally preceded by ';'.
func (p *Parser) acceptElse() bool {
	if p.peekIs(token.SEMICOLON) && p.peekAt(1).Type == token.ELSE {
		p.next()
	}
	return p.accept(token.ELSE)
}

func (p *Parser) parseIf() *expr {
	tok := p.next()
	cond := p.parseCondition()
	then := p.parseBranch()
	var otherwise *object.Statement
	if p.acceptElse() {
		otherwise = p.parseBranch()
	}
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		ok, err := truthy(s, cond)
		if err != nil {
			return nil, err
		}
		switch {
		case ok:
			return then.Execute(s)
		case otherwise != nil:
			return otherwise.Execute(s)
		}
		return object.VOID, nil
	}}
}

type whenCond func(s *object.Scope, subject object.Obj) (bool, error)

type whenBranch struct {
	conds []whenCond
	body  *object.Statement
}

func (p *Parser) parseWhen() *expr {
	tok := p.next()
	var subject *expr
	if p.peekIs(token.LPAREN) {
		subject = p.parseCondition()
	}
	p.expect(token.LBRACE, "'{'")
	var branches []whenBranch
	var otherwise *object.Statement
	for !p.peekIs(token.RBRACE) {
		if p.accept(token.SEMICOLON) {
			continue
		}
		if p.peekIs(token.ELSE) {
			elseTok := p.next()
			if otherwise != nil {
				p.errorAt(elseTok.Pos, "when has more than one else branch")
			}
			p.expect(token.ARROW, "'->'")
			otherwise = p.parseBranch()
			p.endStatement()
			continue
		}
		var b whenBranch
		for {
			b.conds = append(b.conds, p.parseWhenCondition(subject != nil))
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.ARROW, "'->'")
		b.body = p.parseBranch()
		branches = append(branches, b)
		p.endStatement()
	}
	p.expect(token.RBRACE, "'}'")

	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		var subj object.Obj
		if subject != nil {
			var err error
			if subj, err = subject.eval(s); err != nil {
				return nil, err
			}
		}
		for _, b := range branches {
			for _, c := range b.conds {
				ok, err := c(s, subj)
				if err != nil {
					return nil, err
				}
				if ok {
					return b.body.Execute(s)
				}
			}
		}
		if otherwise != nil {
			return otherwise.Execute(s)
		}
		return object.VOID, nil
	}}
}

func (p *Parser) parseWhenCondition(hasSubject bool) whenCond {
	tok := p.peek()
	switch tok.Type {
	case token.IN, token.NOT_IN:
		if !hasSubject {
			p.errorf("%s condition requires a when subject", tok.Literal)
		}
		p.next()
		container := p.parseExpression(LOWEST)
		negate := tok.Type == token.NOT_IN
		return func(s *object.Scope, subj object.Obj) (bool, error) {
			c, err := container.eval(s)
			if err != nil {
				return false, err
			}
			ok, err := object.Contains(s, c, subj)
			if err != nil {
				return false, at(tok.Pos, err)
			}
			return ok != negate, nil
		}
	case token.IS, token.NOT_IS:
		if !hasSubject {
			p.errorf("%s condition requires a when subject", tok.Literal)
		}
		p.next()
		name, nullable, pos := p.parseTypeRef()
		lookup := p.typeLookup(name, pos)
		negate := tok.Type == token.NOT_IS
		return func(s *object.Scope, subj object.Obj) (bool, error) {
			cls, err := lookup(s)
			if err != nil {
				return false, err
			}
			ok := object.IsInstance(subj, cls) || (nullable && object.IsNull(subj))
			return ok != negate, nil
		}
	}
	value := p.parseExpression(LOWEST)
	if !hasSubject {
		return func(s *object.Scope, _ object.Obj) (bool, error) { return truthy(s, value) }
	}
	return func(s *object.Scope, subj object.Obj) (bool, error) {
		v, err := value.eval(s)
		if err != nil {
			return false, err
		}
		ok, err := object.Equals(s, subj, v)
		return ok, at(value.pos, err)
	}
}

type catchClause struct {
	name    string
	classes []func(s *object.Scope) (*object.ObjClass, error)
	body    *object.Statement
}

func (c *catchClause) matches(s *object.Scope, exc *object.ObjInstance) (bool, error) {
	if len(c.classes) == 0 {
		return true, nil
	}
	for _, lookup := range c.classes {
		cls, err := lookup(s)
		if err != nil {
			return false, err
		}
		if exc.Class().IsA(cls) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Parser) parseTry() *expr {
	tok := p.next()
	body := p.parseBlock()
	var catches []*catchClause
	for p.peekIs(token.CATCH) {
		p.next()
		p.expect(token.LPAREN, "'('")
		c := &catchClause{name: p.expectIdent("exception name").Literal}
		if p.accept(token.COLON) {
			for {
				name, _, pos := p.parseTypeRef()
				c.classes = append(c.classes, p.typeLookup(name, pos))
				if !p.accept(token.COMMA) {
					break
				}
			}
		}
		p.expect(token.RPAREN, "')'")
		c.body = p.parseBlock()
		catches = append(catches, c)
	}
	var finally *object.Statement
	if p.accept(token.FINALLY) {
		finally = p.parseBlock()
	}
	if len(catches) == 0 && finally == nil {
		p.errorAt(tok.Pos, "try requires a catch or finally block")
	}

	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		res, err := body.Execute(s)
		var ee *object.ExecutionError
		if err != nil && errors.As(err, &ee) {
			for _, c := range catches {
				ok, merr := c.matches(s, ee.Exception)
				if merr != nil {
					res, err = nil, merr
					break
				}
				if !ok {
					continue
				}
				handler := s.NewChild()
				handler.Bind(c.name, ee.Exception)
				res, err = c.body.Execute(handler)
				break
			}
		}
		if finally != nil {
			if _, ferr := finally.Execute(s); ferr != nil {
				return nil, ferr
			}
		}
		return res, err
	}}
}

func (p *Parser) parseThrow() *expr {
	tok := p.next()
	value := p.parseExpression(LOWEST)
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := value.eval(s)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case *object.ObjInstance:
			if x.Class().IsA(object.ExceptionClass) {
				return nil, &object.ExecutionError{Exception: x, Pos: tok.Pos}
			}
		case *object.ObjString:
			return nil, &object.ExecutionError{Exception: object.NewException(object.ExceptionClass, x.Value), Pos: tok.Pos}
		}
		return nil, at(tok.Pos, s.Raise(object.ClassCastExceptionClass, "can't throw %s", v.Class().Name))
	}}
}

// parseLabelRef reads an optional @label directly after a keyword.
func (p *Parser) parseLabelRef() string {
	if p.peekIs(token.ATREF) && !p.peek().NewlineBefore {
		return p.next().Literal
	}
	return ""
}

func (p *Parser) optionalValue() *expr {
	if p.startsExpression() {
		return p.parseExpression(LOWEST)
	}
	return nil
}

func evalOptional(s *object.Scope, e *expr) (object.Obj, error) {
	if e == nil {
		return object.VOID, nil
	}
	return e.eval(s)
}

func (p *Parser) parseReturn() *expr {
	tok := p.next()
	label := p.parseLabelRef()
	value := p.optionalValue()
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := evalOptional(s, value)
		if err != nil {
			return nil, err
		}
		return nil, &object.ReturnSignal{Label: label, Value: v}
	}}
}

// checkLoopLabel verifies at compile time that a break or continue has a
// loop to leave in the current function.
func (p *Parser) checkLoopLabel(tok token.Token, label string) {
	loops := p.fn().loops
	if label == "" {
		if len(loops) == 0 {
			p.errorAt(tok.Pos, "%s outside of a loop", tok.Literal)
		}
		return
	}
	for _, l := range loops {
		if l == label {
			return
		}
	}
	p.errorAt(tok.Pos, "%s@%s: no enclosing loop with label %s", tok.Literal, label, label)
}

func (p *Parser) parseBreak() *expr {
	tok := p.next()
	label := p.parseLabelRef()
	p.checkLoopLabel(tok, label)
	value := p.optionalValue()
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := evalOptional(s, value)
		if err != nil {
			return nil, err
		}
		return nil, &object.BreakSignal{Label: label, Value: v}
	}}
}

func (p *Parser) parseContinue() *expr {
	tok := p.next()
	label := p.parseLabelRef()
	p.checkLoopLabel(tok, label)
	return &expr{pos: tok.Pos, eval: func(*object.Scope) (object.Obj, error) {
		return nil, &object.ContinueSignal{Label: label}
	}}
}

// parseLabeled handles `name@` before a loop or a lambda.
func (p *Parser) parseLabeled() *expr {
	label := p.next()
	switch p.peek().Type {
	case token.FOR:
		return p.parseFor(label.Literal)
	case token.WHILE:
		return p.parseWhile(label.Literal)
	case token.DO:
		return p.parseDoWhile(label.Literal)
	case token.LBRACE:
		return p.parseLambdaLiteral(label.Literal)
	}
	p.errorf("expected loop or lambda after label %s@, got %s", label.Literal, describe(p.peek()))
	return nil
}

package compiler

import (
	"strconv"
	"strings"

	"lyng/internal/object"
	"lyng/internal/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGNMENT // = += -= ...
	PAIR       // =>
	ELVIS      // ?:
	OR         // ||
	AND        // &&
	EQUALS     // == != === !==
	COMPARE    // < <= > >= is !is in !in
	RANGE      // .. ..<
	SUM        // + -
	PRODUCT    // * / %
	PREFIX     // -x !x ++x
	POSTFIX    // f(x) a[i] a.b a as T x++
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:       ASSIGNMENT,
	token.PLUS_ASSIGN:  ASSIGNMENT,
	token.MINUS_ASSIGN: ASSIGNMENT,
	token.STAR_ASSIGN:  ASSIGNMENT,
	token.SLASH_ASSIGN: ASSIGNMENT,
	token.PCT_ASSIGN:   ASSIGNMENT,
	token.ROCKET:       PAIR,
	token.ELVIS:        ELVIS,
	token.LOGICAL_OR:   OR,
	token.LOGICAL_AND:  AND,
	token.EQ:           EQUALS,
	token.NOT_EQ:       EQUALS,
	token.REF_EQ:       EQUALS,
	token.REF_NEQ:      EQUALS,
	token.LT:           COMPARE,
	token.LT_EQ:        COMPARE,
	token.GT:           COMPARE,
	token.GT_EQ:        COMPARE,
	token.IS:           COMPARE,
	token.NOT_IS:       COMPARE,
	token.IN:           COMPARE,
	token.NOT_IN:       COMPARE,
	token.RANGE:        RANGE,
	token.RANGE_EX:     RANGE,
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.ASTERISK:     PRODUCT,
	token.SLASH:        PRODUCT,
	token.PERCENT:      PRODUCT,
	token.LPAREN:       POSTFIX,
	token.LBRACKET:     POSTFIX,
	token.LBRACE:       POSTFIX,
	token.PERIOD:       POSTFIX,
	token.SAFE_DOT:     POSTFIX,
	token.AS:           POSTFIX,
	token.INC:          POSTFIX,
	token.DEC:          POSTFIX,
}

// continuesLine lists the operators that may start a continuation line.
var continuesLine = map[token.TokenType]bool{
	token.PERIOD:      true,
	token.SAFE_DOT:    true,
	token.ELVIS:       true,
	token.LOGICAL_AND: true,
	token.LOGICAL_OR:  true,
	token.ASTERISK:    true,
	token.SLASH:       true,
	token.PERCENT:     true,
	token.EQ:          true,
	token.NOT_EQ:      true,
	token.REF_EQ:      true,
	token.REF_NEQ:     true,
	token.LT_EQ:       true,
	token.GT:          true,
	token.GT_EQ:       true,
	token.ROCKET:      true,
	token.AS:          true,
	token.RANGE:       true,
	token.RANGE_EX:    true,
}

type (
	evalFn   func(s *object.Scope) (object.Obj, error)
	prefixFn func(p *Parser) *expr
	infixFn  func(p *Parser, left *expr) *expr
)

// expr is a compiled expression plus the shape information the enclosing
// construct needs: assignment targets, callee kind, literal ranges.
type expr struct {
	pos  token.Pos
	eval evalFn

	target target
	ident  *identSite
	member *memberRef
	rng    *rangeRef
	// callee is set on expressions a trailing block may follow.
	callee string
}

type memberRef struct {
	recv *expr
	site *memberSite
	safe bool
}

type rangeRef struct {
	start, end *expr
	exclusive  bool
}

var (
	prefixParseFns map[token.TokenType]prefixFn
	infixParseFns  map[token.TokenType]infixFn
)

func init() {
	prefixParseFns = map[token.TokenType]prefixFn{
		token.IDENT:    (*Parser).parseIdentifier,
		token.INT:      (*Parser).parseIntLiteral,
		token.REAL:     (*Parser).parseRealLiteral,
		token.STRING:   (*Parser).parseStringLiteral,
		token.CHAR:     (*Parser).parseCharLiteral,
		token.TRUE:     (*Parser).parseConstant,
		token.FALSE:    (*Parser).parseConstant,
		token.NULL:     (*Parser).parseConstant,
		token.VOID:     (*Parser).parseConstant,
		token.THIS:     (*Parser).parseThis,
		token.MINUS:    (*Parser).parsePrefixExpression,
		token.BANG:     (*Parser).parsePrefixExpression,
		token.INC:      (*Parser).parsePrefixIncrement,
		token.DEC:      (*Parser).parsePrefixIncrement,
		token.LPAREN:   (*Parser).parseGroupedExpression,
		token.LBRACKET: (*Parser).parseListLiteral,
		token.LBRACE:   func(p *Parser) *expr { return p.parseLambdaLiteral("") },
		token.IF:       (*Parser).parseIf,
		token.WHEN:     (*Parser).parseWhen,
		token.TRY:      (*Parser).parseTry,
		token.THROW:    (*Parser).parseThrow,
		token.RETURN:   (*Parser).parseReturn,
		token.BREAK:    (*Parser).parseBreak,
		token.CONTINUE: (*Parser).parseContinue,
		token.FOR:      func(p *Parser) *expr { return p.parseFor("") },
		token.WHILE:    func(p *Parser) *expr { return p.parseWhile("") },
		token.DO:       func(p *Parser) *expr { return p.parseDoWhile("") },
		token.LABEL:    (*Parser).parseLabeled,
		token.FUN:      (*Parser).parseAnonymousFun,
	}
	infixParseFns = map[token.TokenType]infixFn{
		token.PLUS:         (*Parser).parseInfixExpression,
		token.MINUS:        (*Parser).parseInfixExpression,
		token.ASTERISK:     (*Parser).parseInfixExpression,
		token.SLASH:        (*Parser).parseInfixExpression,
		token.PERCENT:      (*Parser).parseInfixExpression,
		token.EQ:           (*Parser).parseInfixExpression,
		token.NOT_EQ:       (*Parser).parseInfixExpression,
		token.REF_EQ:       (*Parser).parseInfixExpression,
		token.REF_NEQ:      (*Parser).parseInfixExpression,
		token.LT:           (*Parser).parseInfixExpression,
		token.LT_EQ:        (*Parser).parseInfixExpression,
		token.GT:           (*Parser).parseInfixExpression,
		token.GT_EQ:        (*Parser).parseInfixExpression,
		token.IN:           (*Parser).parseInfixExpression,
		token.NOT_IN:       (*Parser).parseInfixExpression,
		token.LOGICAL_AND:  (*Parser).parseLogical,
		token.LOGICAL_OR:   (*Parser).parseLogical,
		token.ELVIS:        (*Parser).parseElvis,
		token.ROCKET:       (*Parser).parsePair,
		token.RANGE:        (*Parser).parseRange,
		token.RANGE_EX:     (*Parser).parseRange,
		token.IS:           (*Parser).parseIs,
		token.NOT_IS:       (*Parser).parseIs,
		token.AS:           (*Parser).parseAs,
		token.ASSIGN:       (*Parser).parseAssignment,
		token.PLUS_ASSIGN:  (*Parser).parseAssignment,
		token.MINUS_ASSIGN: (*Parser).parseAssignment,
		token.STAR_ASSIGN:  (*Parser).parseAssignment,
		token.SLASH_ASSIGN: (*Parser).parseAssignment,
		token.PCT_ASSIGN:   (*Parser).parseAssignment,
		token.INC:          (*Parser).parsePostfixIncrement,
		token.DEC:          (*Parser).parsePostfixIncrement,
		token.LPAREN:       (*Parser).parseCallExpression,
		token.LBRACE:       (*Parser).parseTrailingBlockCall,
		token.LBRACKET:     (*Parser).parseIndexExpression,
		token.PERIOD:       (*Parser).parseMemberExpression,
		token.SAFE_DOT:     (*Parser).parseMemberExpression,
	}
}

// peekPrecedence is the binding power of the next token as an infix
// operator after left. Tokens on a new line end the expression unless
// they can only continue one.
func (p *Parser) peekPrecedence(left *expr) int {
	tok := p.peek()
	if tok.NewlineBefore && !continuesLine[tok.Type] {
		return LOWEST
	}
	if tok.Type == token.LBRACE && left.callee == "" {
		return LOWEST
	}
	if prec, ok := precedences[tok.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseExpression(precedence int) *expr {
	tok := p.peek()
	if tok.Type == token.ILLEGAL {
		p.next()
	}
	prefix := prefixParseFns[tok.Type]
	if prefix == nil {
		p.errorf("expected expression, got %s", describe(tok))
	}
	left := prefix(p)
	for precedence < p.peekPrecedence(left) {
		infix := infixParseFns[p.peek().Type]
		if infix == nil {
			return left
		}
		left = infix(p, left)
	}
	return left
}

// statement wraps an expression into an executable node.
func (e *expr) statement() *object.Statement {
	return &object.Statement{Pos: e.pos, Exec: e.eval}
}

func constant(pos token.Pos, v object.Obj) *expr {
	return &expr{pos: pos, eval: func(*object.Scope) (object.Obj, error) { return v, nil }}
}

// at attaches pos to an exception that has no position yet.
func at(pos token.Pos, err error) error {
	if ee, ok := err.(*object.ExecutionError); ok && !ee.Pos.IsValid() {
		ee.Pos = pos
	}
	return err
}

func (p *Parser) parseIdentifier() *expr {
	tok := p.next()
	site := p.newIdentSite(tok.Literal)
	e := &expr{pos: tok.Pos, ident: site, callee: tok.Literal}
	e.eval = func(s *object.Scope) (object.Obj, error) {
		v, err := site.read(s)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		return v, nil
	}
	e.target = &identTarget{site: site}
	return e
}

func (p *Parser) parseIntLiteral() *expr {
	tok := p.next()
	lit := tok.Literal
	base := 10
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		lit, base = lit[2:], 16
	}
	v, err := strconv.ParseUint(lit, base, 64)
	if err != nil || (base == 10 && v > 1<<63-1) {
		p.errorAt(tok.Pos, "invalid integer literal %s", tok.Literal)
	}
	return constant(tok.Pos, object.NewInt(int64(v)))
}

func (p *Parser) parseRealLiteral() *expr {
	tok := p.next()
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorAt(tok.Pos, "invalid real literal %s", tok.Literal)
	}
	return constant(tok.Pos, object.NewReal(v))
}

func (p *Parser) parseStringLiteral() *expr {
	tok := p.next()
	return constant(tok.Pos, object.NewString(tok.Literal))
}

func (p *Parser) parseCharLiteral() *expr {
	tok := p.next()
	r := []rune(tok.Literal)
	return constant(tok.Pos, object.NewChar(r[0]))
}

func (p *Parser) parseConstant() *expr {
	tok := p.next()
	switch tok.Type {
	case token.TRUE:
		return constant(tok.Pos, object.TRUE)
	case token.FALSE:
		return constant(tok.Pos, object.FALSE)
	case token.NULL:
		return constant(tok.Pos, object.NULL)
	}
	return constant(tok.Pos, object.VOID)
}

func (p *Parser) parseThis() *expr {
	tok := p.next()
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		if this := s.This(); this != nil {
			return this, nil
		}
		return nil, at(tok.Pos, s.Raise(object.IllegalStateExceptionClass, "this is not available here"))
	}}
}

func (p *Parser) parseGroupedExpression() *expr {
	p.next()
	inner := p.parseExpression(LOWEST)
	p.expect(token.RPAREN, "')'")
	return &expr{pos: inner.pos, eval: inner.eval, target: inner.target}
}

func (p *Parser) parsePrefixExpression() *expr {
	tok := p.next()
	operand := p.parseExpression(PREFIX)
	op := object.Negate
	if tok.Type == token.BANG {
		op = object.Not
	}
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := operand.eval(s)
		if err != nil {
			return nil, err
		}
		res, err := op(s, v)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		return res, nil
	}}
}

type binaryOp func(s *object.Scope, a, b object.Obj) (object.Obj, error)

func boolOp(fn func(s *object.Scope, a, b object.Obj) (bool, error), negate bool) binaryOp {
	return func(s *object.Scope, a, b object.Obj) (object.Obj, error) {
		r, err := fn(s, a, b)
		if err != nil {
			return nil, err
		}
		return object.NewBool(r != negate), nil
	}
}

func compareOp(test func(c int) bool) binaryOp {
	return func(s *object.Scope, a, b object.Obj) (object.Obj, error) {
		c, err := object.Compare(s, a, b)
		if err != nil {
			return nil, err
		}
		return object.NewBool(test(c)), nil
	}
}

func refEquals(_ *object.Scope, a, b object.Obj) (bool, error) {
	if a == b {
		return true, nil
	}
	switch x := a.(type) {
	case *object.ObjInt:
		y, ok := b.(*object.ObjInt)
		return ok && x.Value == y.Value, nil
	case *object.ObjChar:
		y, ok := b.(*object.ObjChar)
		return ok && x.Value == y.Value, nil
	}
	return false, nil
}

func inOp(s *object.Scope, elem, container object.Obj) (bool, error) {
	return object.Contains(s, container, elem)
}

var binaryOps = map[token.TokenType]binaryOp{
	token.PLUS:     object.Plus,
	token.MINUS:    object.Minus,
	token.ASTERISK: object.Mul,
	token.SLASH:    object.Div,
	token.PERCENT:  object.Mod,
	token.EQ:       boolOp(object.Equals, false),
	token.NOT_EQ:   boolOp(object.Equals, true),
	token.REF_EQ:   boolOp(refEquals, false),
	token.REF_NEQ:  boolOp(refEquals, true),
	token.LT:       compareOp(func(c int) bool { return c < 0 }),
	token.LT_EQ:    compareOp(func(c int) bool { return c <= 0 }),
	token.GT:       compareOp(func(c int) bool { return c > 0 }),
	token.GT_EQ:    compareOp(func(c int) bool { return c >= 0 }),
	token.IN:       boolOp(inOp, false),
	token.NOT_IN:   boolOp(inOp, true),
}

var compoundOps = map[token.TokenType]token.TokenType{
	token.PLUS_ASSIGN:  token.PLUS,
	token.MINUS_ASSIGN: token.MINUS,
	token.STAR_ASSIGN:  token.ASTERISK,
	token.SLASH_ASSIGN: token.SLASH,
	token.PCT_ASSIGN:   token.PERCENT,
}

func (p *Parser) parseInfixExpression(left *expr) *expr {
	tok := p.next()
	prec := precedences[tok.Type]
	right := p.parseExpression(prec)
	op := binaryOps[tok.Type]
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		a, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		b, err := right.eval(s)
		if err != nil {
			return nil, err
		}
		res, err := op(s, a, b)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		return res, nil
	}}
}

func (p *Parser) parseLogical(left *expr) *expr {
	tok := p.next()
	right := p.parseExpression(precedences[tok.Type])
	shortCircuit := tok.Type == token.LOGICAL_OR
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		a, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		ok, err := object.Truthy(s, a)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		if ok == shortCircuit {
			return object.NewBool(ok), nil
		}
		b, err := right.eval(s)
		if err != nil {
			return nil, err
		}
		ok, err = object.Truthy(s, b)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		return object.NewBool(ok), nil
	}}
}

func (p *Parser) parseElvis(left *expr) *expr {
	p.next()
	right := p.parseExpression(ELVIS - 1)
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		a, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		if !object.IsNull(a) {
			return a, nil
		}
		return right.eval(s)
	}}
}

func (p *Parser) parsePair(left *expr) *expr {
	p.next()
	right := p.parseExpression(PAIR)
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		k, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		v, err := right.eval(s)
		if err != nil {
			return nil, err
		}
		return &object.ObjMapEntry{Key: k, Value: v}, nil
	}}
}

func (p *Parser) parseRange(left *expr) *expr {
	tok := p.next()
	right := p.parseExpression(RANGE)
	if t := p.peek().Type; (t == token.RANGE || t == token.RANGE_EX) && !p.peek().NewlineBefore {
		p.errorf("range operators can't be chained")
	}
	exclusive := tok.Type == token.RANGE_EX
	return &expr{
		pos: left.pos,
		rng: &rangeRef{start: left, end: right, exclusive: exclusive},
		eval: func(s *object.Scope) (object.Obj, error) {
			a, err := left.eval(s)
			if err != nil {
				return nil, err
			}
			b, err := right.eval(s)
			if err != nil {
				return nil, err
			}
			return &object.ObjRange{Start: a, End: b, Exclusive: exclusive}, nil
		},
	}
}

// parseTypeRef parses a type name with optional nullability and generic
// arguments; only the class name is kept.
func (p *Parser) parseTypeRef() (name string, nullable bool, pos token.Pos) {
	tok := p.expectIdent("type name")
	name, pos = tok.Literal, tok.Pos
	for p.peekIs(token.PERIOD) && p.peekAt(1).Type == token.IDENT {
		p.next()
		name = p.next().Literal
	}
	p.skipTypeArguments()
	if p.peekIs(token.QUESTION) && !p.peek().NewlineBefore {
		p.next()
		nullable = true
	}
	return name, nullable, pos
}

func (p *Parser) skipTypeArguments() {
	if !p.peekIs(token.LT) {
		return
	}
	depth := 0
	for {
		tok := p.next()
		switch tok.Type {
		case token.LT:
			depth++
		case token.GT:
			depth--
			if depth == 0 {
				return
			}
		case token.EOF:
			p.errorAt(tok.Pos, "unterminated type arguments")
		}
	}
}

// typeLookup compiles the runtime lookup of a class by name.
func (p *Parser) typeLookup(name string, pos token.Pos) func(s *object.Scope) (*object.ObjClass, error) {
	site := p.newIdentSite(name)
	return func(s *object.Scope) (*object.ObjClass, error) {
		v, err := site.read(s)
		if err != nil {
			return nil, at(pos, err)
		}
		cls, ok := v.(*object.ObjClass)
		if !ok {
			return nil, at(pos, s.Raise(object.ClassCastExceptionClass, "%s is not a class", name))
		}
		return cls, nil
	}
}

func (p *Parser) parseIs(left *expr) *expr {
	tok := p.next()
	name, nullable, pos := p.parseTypeRef()
	lookup := p.typeLookup(name, pos)
	negate := tok.Type == token.NOT_IS
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		cls, err := lookup(s)
		if err != nil {
			return nil, err
		}
		ok := object.IsInstance(v, cls) || (nullable && object.IsNull(v))
		return object.NewBool(ok != negate), nil
	}}
}

func (p *Parser) parseAs(left *expr) *expr {
	tok := p.next()
	orNull := p.accept(token.QUESTION)
	name, nullable, pos := p.parseTypeRef()
	lookup := p.typeLookup(name, pos)
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		cls, err := lookup(s)
		if err != nil {
			return nil, err
		}
		if object.IsInstance(v, cls) || (nullable && object.IsNull(v)) {
			return v, nil
		}
		if orNull {
			return object.NULL, nil
		}
		return nil, at(tok.Pos, s.Raise(object.ClassCastExceptionClass, "%s can't be cast to %s", v.Class().Name, cls.Name))
	}}
}

func (p *Parser) parseListLiteral() *expr {
	tok := p.next()
	items := p.parseArgumentItems(token.RBRACKET, false)
	p.expect(token.RBRACKET, "']'")
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		values, err := items.positional(s)
		if err != nil {
			return nil, err
		}
		return object.NewList(values), nil
	}}
}

func (p *Parser) parseIndexExpression(left *expr) *expr {
	tok := p.next()
	index := p.parseExpression(LOWEST)
	p.expect(token.RBRACKET, "']'")
	site := p.newIndexSite()
	e := &expr{pos: left.pos}
	e.eval = func(s *object.Scope) (object.Obj, error) {
		recv, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		i, err := index.eval(s)
		if err != nil {
			return nil, err
		}
		v, err := site.get(s, recv, i)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		return v, nil
	}
	e.target = &indexTarget{recv: left, index: index, site: site, pos: tok.Pos}
	return e
}

func (p *Parser) parseMemberExpression(left *expr) *expr {
	dot := p.next()
	safe := dot.Type == token.SAFE_DOT
	name := p.expectIdent("member name")
	site := p.newMemberSite(name.Literal)
	ref := &memberRef{recv: left, site: site, safe: safe}
	e := &expr{pos: left.pos, member: ref, callee: name.Literal}
	e.eval = func(s *object.Scope) (object.Obj, error) {
		recv, err := left.eval(s)
		if err != nil {
			return nil, err
		}
		if safe && object.IsNull(recv) {
			return object.NULL, nil
		}
		v, err := site.read(s, recv)
		if err != nil {
			return nil, at(name.Pos, err)
		}
		return v, nil
	}
	if !safe {
		e.target = &memberTarget{recv: left, site: site, pos: name.Pos}
	}
	return e
}

func (p *Parser) parseAssignment(left *expr) *expr {
	tok := p.next()
	if left.target == nil {
		p.errorAt(tok.Pos, "can't assign to this expression")
	}
	right := p.parseExpression(ASSIGNMENT - 1)
	tgt := left.target
	if tok.Type == token.ASSIGN {
		return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
			pl, err := tgt.bind(s)
			if err != nil {
				return nil, err
			}
			v, err := right.eval(s)
			if err != nil {
				return nil, err
			}
			if err := pl.set(s, v); err != nil {
				return nil, at(tok.Pos, err)
			}
			return v, nil
		}}
	}
	op := binaryOps[compoundOps[tok.Type]]
	return &expr{pos: left.pos, eval: func(s *object.Scope) (object.Obj, error) {
		pl, err := tgt.bind(s)
		if err != nil {
			return nil, err
		}
		old, err := pl.get(s)
		if err != nil {
			return nil, err
		}
		b, err := right.eval(s)
		if err != nil {
			return nil, err
		}
		v, err := op(s, old, b)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		if err := pl.set(s, v); err != nil {
			return nil, at(tok.Pos, err)
		}
		return v, nil
	}}
}

func incrementer(s *object.Scope, v object.Obj, delta int64) (object.Obj, error) {
	return object.Plus(s, v, object.NewInt(delta))
}

func (p *Parser) parsePrefixIncrement() *expr {
	tok := p.next()
	operand := p.parseExpression(PREFIX)
	return p.increment(tok, operand, false)
}

func (p *Parser) parsePostfixIncrement(left *expr) *expr {
	tok := p.next()
	return p.increment(tok, left, true)
}

func (p *Parser) increment(tok token.Token, operand *expr, postfix bool) *expr {
	if operand.target == nil {
		p.errorAt(tok.Pos, "operand of %s must be assignable", tok.Literal)
	}
	delta := int64(1)
	if tok.Type == token.DEC {
		delta = -1
	}
	tgt := operand.target
	return &expr{pos: operand.pos, eval: func(s *object.Scope) (object.Obj, error) {
		pl, err := tgt.bind(s)
		if err != nil {
			return nil, err
		}
		old, err := pl.get(s)
		if err != nil {
			return nil, err
		}
		switch old.(type) {
		case *object.ObjInt, *object.ObjReal:
		default:
			return nil, at(tok.Pos, s.Raise(object.UnsupportedOperationExceptionClass,
				"operator %s is not supported for %s", tok.Literal, old.Class().Name))
		}
		v, err := incrementer(s, old, delta)
		if err != nil {
			return nil, at(tok.Pos, err)
		}
		if err := pl.set(s, v); err != nil {
			return nil, at(tok.Pos, err)
		}
		if postfix {
			return old, nil
		}
		return v, nil
	}}
}

// Package compiler turns Lyng source into a tree of executable statements.
// Parsing and code generation happen in one pass: every parse function
// returns the closure that evaluates the construct it recognized.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lyng/internal/lexer"
	"lyng/internal/object"
	"lyng/internal/picache"
	"lyng/internal/token"
)

// Unit is a compiled source file.
type Unit struct {
	Source  *token.Source
	Package string
	Root    *object.Statement
	// Declared lists the top-level names the unit defines, in order. Module
	// scopes predeclare them so importers can link records early.
	Declared []Declaration
	// Imports lists the modules named by import statements.
	Imports []string
}

// Declaration is a name defined directly in the body of a unit.
type Declaration struct {
	Name       string
	Visibility object.Visibility
}

// DeclaredNames returns the names of Declared in order.
func (u *Unit) DeclaredNames() []string {
	names := make([]string, len(u.Declared))
	for i, d := range u.Declared {
		names[i] = d.Name
	}
	return names
}

// Execute runs the unit in s. A top-level return ends the unit with its
// value; control signals that escape are reported as errors.
func (u *Unit) Execute(s *object.Scope) (object.Obj, error) {
	res, err := u.Root.Execute(s)
	if err == nil {
		return res, nil
	}
	var ret *object.ReturnSignal
	if errors.As(err, &ret) && ret.Label == "" {
		return ret.Value, nil
	}
	if object.IsControlSignal(err) {
		return nil, s.Raise(object.IllegalStateExceptionClass, "%s", err.Error())
	}
	return nil, err
}

type Option func(*Parser)

// WithCache configures the inline caches of compiled call sites.
func WithCache(cfg picache.Config, stats *picache.Stats) Option {
	return func(p *Parser) {
		p.cacheCfg = cfg
		p.stats = stats
	}
}

// WithContext bounds the compile-time import checks.
func WithContext(ctx context.Context) Option {
	return func(p *Parser) { p.ctx = ctx }
}

// funcCtx tracks the function body being compiled.
type funcCtx struct {
	name      string
	capturing bool
	// loops holds the labels of the enclosing loops, innermost last; unlabeled
	// loops are "".
	loops []string
}

type Parser struct {
	src    *token.Source
	tokens []token.Token
	pos    int

	imports  object.ImportProvider
	ctx      context.Context
	cacheCfg picache.Config
	stats    *picache.Stats

	funcs []*funcCtx
	unit  *Unit
	// depth counts the enclosing blocks; declarations at depth 0 of the
	// script are top-level names.
	depth int
	// hoist is set by the last parsed statement when it is a named function
	// declaration that runs before the rest of its block.
	hoist bool
}

// Compile parses and compiles src. Imports are validated through provider at
// compile time; provider may be nil when the source imports nothing.
func Compile(src *token.Source, provider object.ImportProvider, opts ...Option) (unit *Unit, err error) {
	p := &Parser{
		src:      src,
		tokens:   lexer.Tokenize(src),
		imports:  provider,
		ctx:      context.Background(),
		cacheCfg: picache.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.unit = &Unit{Source: src}

	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*object.SyntaxError)
			if !ok {
				panic(r)
			}
			slog.Debug("compile failed", slog.String("file", src.FileName), slog.String("error", se.Error()))
			unit, err = nil, se
		}
	}()

	p.unit.Root = p.parseScript()
	slog.Debug("compiled", slog.String("file", src.FileName), slog.Int("tokens", len(p.tokens)),
		slog.Int("declared", len(p.unit.Declared)))
	return p.unit, nil
}

// CompileString is Compile for a string of code.
func CompileString(code, fileName string, provider object.ImportProvider, opts ...Option) (*Unit, error) {
	return Compile(token.NewSource(fileName, code), provider, opts...)
}

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(n int) token.Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) peekIs(t token.TokenType) bool { return p.tokens[p.pos].Type == t }

func (p *Parser) next() token.Token {
	tok := p.tokens[p.pos]
	if tok.Type == token.ILLEGAL {
		p.errorAt(tok.Pos, "%s", tok.Literal)
	}
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// accept consumes the next token if it has type t.
func (p *Parser) accept(t token.TokenType) bool {
	if p.peekIs(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t token.TokenType, what string) token.Token {
	if !p.peekIs(t) {
		p.errorf("expected %s, got %s", what, describe(p.peek()))
	}
	return p.next()
}

func (p *Parser) expectIdent(what string) token.Token {
	tok := p.peek()
	if tok.Type != token.IDENT && !token.IsSoftKeyword(tok.Type) {
		p.errorf("expected %s, got %s", what, describe(tok))
	}
	return p.next()
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT:
		return "identifier '" + tok.Literal + "'"
	case token.STRING:
		return "string literal"
	case token.ILLEGAL:
		return tok.Literal
	}
	return "'" + tok.Literal + "'"
}

// errorf aborts compilation with an error at the next token.
func (p *Parser) errorf(format string, args ...any) {
	p.errorAt(p.peek().Pos, format, args...)
}

func (p *Parser) errorAt(pos token.Pos, format string, args ...any) {
	panic(&object.SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// tryParse runs fn speculatively. When fn reports no match, or fails with
// a syntax error, the cursor is restored exactly and tryParse returns
// false. It is the only backtracking primitive of the parser.
func (p *Parser) tryParse(fn func() bool) (ok bool) {
	saved, funcs := p.pos, len(p.funcs)
	defer func() {
		if r := recover(); r != nil {
			if _, isSyntax := r.(*object.SyntaxError); !isSyntax {
				panic(r)
			}
			ok = false
		}
		if !ok {
			p.pos = saved
			p.funcs = p.funcs[:funcs]
		}
	}()
	return fn()
}

func (p *Parser) fn() *funcCtx { return p.funcs[len(p.funcs)-1] }

func (p *Parser) pushFunc(name string) *funcCtx {
	f := &funcCtx{name: name}
	p.funcs = append(p.funcs, f)
	return f
}

func (p *Parser) popFunc() { p.funcs = p.funcs[:len(p.funcs)-1] }

// markCapturing records that the current frame may outlive its call.
func (p *Parser) markCapturing() {
	if len(p.funcs) > 0 {
		p.fn().capturing = true
	}
}

func (p *Parser) atTopLevel() bool { return p.depth == 0 && len(p.funcs) == 1 }

func (p *Parser) declare(name string, vis object.Visibility) {
	if p.atTopLevel() {
		p.unit.Declared = append(p.unit.Declared, Declaration{Name: name, Visibility: vis})
	}
}

// endStatement checks that a statement is properly terminated.
func (p *Parser) endStatement() {
	if p.accept(token.SEMICOLON) {
		return
	}
	tok := p.peek()
	if tok.NewlineBefore || tok.Type == token.RBRACE || tok.Type == token.EOF || tok.Type == token.RPAREN {
		return
	}
	p.errorf("unexpected %s", describe(tok))
}

func (p *Parser) newCache() *picache.Cache[*object.ObjClass, memberEntry] {
	return picache.New[*object.ObjClass, memberEntry](p.cacheCfg, p.stats)
}

package compiler

import (
	"errors"

	"lyng/internal/object"
	"lyng/internal/token"
)

type loopAction uint8

const (
	loopNext loopAction = iota
	loopBreak
)

// loopSignal interprets an error returned by a loop body. Breaks and
// continues addressed to another loop propagate unchanged.
func loopSignal(err error, label string) (loopAction, object.Obj, error) {
	if err == nil {
		return loopNext, nil, nil
	}
	var br *object.BreakSignal
	if errors.As(err, &br) && (br.Label == "" || br.Label == label) {
		return loopBreak, br.Value, nil
	}
	var cont *object.ContinueSignal
	if errors.As(err, &cont) && (cont.Label == "" || cont.Label == label) {
		return loopNext, nil, nil
	}
	return loopNext, nil, err
}

// parseLoopBody parses a loop body with label registered as an enclosing
// loop. A braced body is not wrapped in a block scope: every iteration runs
// it in a fresh child scope of its own.
func (p *Parser) parseLoopBody(label string) *object.Statement {
	f := p.fn()
	f.loops = append(f.loops, label)
	defer func() { f.loops = f.loops[:len(f.loops)-1] }()

	if p.peekIs(token.LBRACE) {
		lbrace := p.next()
		body := p.parseStatements(lbrace.Pos)
		p.expect(token.RBRACE, "'}'")
		return body
	}
	return p.parseNestedStatement()
}

func (p *Parser) parseLoopElse() *object.Statement {
	if p.acceptElse() {
		return p.parseBranch()
	}
	return nil
}

// loopResult is the value of a loop that ran to completion.
func loopResult(s *object.Scope, otherwise *object.Statement) (object.Obj, error) {
	if otherwise != nil {
		return otherwise.Execute(s)
	}
	return object.VOID, nil
}

func (p *Parser) parseFor(label string) *expr {
	tok := p.expect(token.FOR, "'for'")
	p.expect(token.LPAREN, "'('")
	name := p.expectIdent("loop variable").Literal
	p.expect(token.IN, "'in'")
	source := p.parseExpression(LOWEST)
	p.expect(token.RPAREN, "')'")
	body := p.parseLoopBody(label)
	otherwise := p.parseLoopElse()

	// step runs one iteration; done reports a break together with its value.
	step := func(s *object.Scope, v object.Obj) (done bool, res object.Obj, err error) {
		if err := object.CheckCancelled(s); err != nil {
			return true, nil, err
		}
		iter := s.NewChild()
		iter.Bind(name, v)
		_, err = body.Execute(iter)
		action, res, err := loopSignal(err, label)
		return action == loopBreak || err != nil, res, err
	}
	counting := func(s *object.Scope, first, last int64) (object.Obj, error) {
		for i := first; i <= last; i++ {
			if done, res, err := step(s, object.NewInt(i)); done {
				return res, err
			}
			if i == last {
				break
			}
		}
		return loopResult(s, otherwise)
	}

	if source.rng != nil {
		rng := source.rng
		return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
			a, err := rng.start.eval(s)
			if err != nil {
				return nil, err
			}
			b, err := rng.end.eval(s)
			if err != nil {
				return nil, err
			}
			r := &object.ObjRange{Start: a, End: b, Exclusive: rng.exclusive}
			if first, last, ok := r.IntBounds(); ok {
				return counting(s, first, last)
			}
			return iterateLoop(s, source.pos, r, step, otherwise)
		}}
	}

	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		v, err := source.eval(s)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case *object.ObjRange:
			if first, last, ok := x.IntBounds(); ok {
				return counting(s, first, last)
			}
		case *object.ObjList:
			for i := 0; i < len(x.Items); i++ {
				if done, res, err := step(s, x.Items[i]); done {
					return res, err
				}
			}
			return loopResult(s, otherwise)
		}
		return iterateLoop(s, source.pos, v, step, otherwise)
	}}
}

func iterateLoop(s *object.Scope, pos token.Pos, v object.Obj,
	step func(*object.Scope, object.Obj) (bool, object.Obj, error), otherwise *object.Statement) (object.Obj, error) {
	var (
		broken bool
		res    object.Obj
	)
	err := object.Iterate(s, v, func(x object.Obj) (bool, error) {
		done, r, err := step(s, x)
		if err != nil {
			return true, err
		}
		if done {
			broken, res = true, r
		}
		return done, nil
	})
	if err != nil {
		return nil, at(pos, err)
	}
	if broken {
		return res, nil
	}
	return loopResult(s, otherwise)
}

func (p *Parser) parseWhile(label string) *expr {
	tok := p.expect(token.WHILE, "'while'")
	cond := p.parseCondition()
	body := p.parseLoopBody(label)
	otherwise := p.parseLoopElse()
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		for {
			if err := object.CheckCancelled(s); err != nil {
				return nil, err
			}
			ok, err := truthy(s, cond)
			if err != nil {
				return nil, err
			}
			if !ok {
				return loopResult(s, otherwise)
			}
			_, err = body.Execute(s.NewChild())
			action, res, err := loopSignal(err, label)
			if err != nil {
				return nil, err
			}
			if action == loopBreak {
				return res, nil
			}
		}
	}}
}

// parseDoWhile parses `do body while (cond)`. The condition sees the
// declarations of the iteration it follows.
func (p *Parser) parseDoWhile(label string) *expr {
	tok := p.expect(token.DO, "'do'")
	body := p.parseLoopBody(label)
	p.expect(token.WHILE, "'while'")
	cond := p.parseCondition()
	otherwise := p.parseLoopElse()
	return &expr{pos: tok.Pos, eval: func(s *object.Scope) (object.Obj, error) {
		for {
			if err := object.CheckCancelled(s); err != nil {
				return nil, err
			}
			iter := s.NewChild()
			_, err := body.Execute(iter)
			action, res, err := loopSignal(err, label)
			if err != nil {
				return nil, err
			}
			if action == loopBreak {
				return res, nil
			}
			ok, err := truthy(iter, cond)
			if err != nil {
				return nil, err
			}
			if !ok {
				return loopResult(s, otherwise)
			}
		}
	}}
}

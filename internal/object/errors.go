package object

import (
	"bytes"
	"errors"
	"fmt"
	"lyng/internal/token"
	"lyng/internal/util"
)

// SyntaxError is a compile-time error. Compilation stops at the first one.
type SyntaxError struct {
	Pos token.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: Error: %s", e.Pos, e.Msg)
}

// ExecutionError carries a language-level exception out of the runtime.
type ExecutionError struct {
	Exception *ObjInstance
	Pos       token.Pos
}

func (e *ExecutionError) Error() string {
	if !e.Pos.IsValid() {
		return "Error: " + e.Exception.Inspect()
	}
	return fmt.Sprintf("%s: Error: %s", e.Pos, e.Exception.Inspect())
}

// ClassName is the name of the exception class.
func (e *ExecutionError) ClassName() string { return e.Exception.class.Name }

// Message is the exception message.
func (e *ExecutionError) Message() string { return ExceptionMessage(e.Exception) }

// BreakSignal leaves the loop whose label matches (any loop when Label is
// empty), making Value the value of the loop.
type BreakSignal struct {
	Label string
	Value Obj
}

func (b *BreakSignal) Error() string {
	if b.Label != "" {
		return "break@" + b.Label + " outside of a matching loop"
	}
	return "break outside of a loop"
}

type ContinueSignal struct {
	Label string
}

func (c *ContinueSignal) Error() string {
	if c.Label != "" {
		return "continue@" + c.Label + " outside of a matching loop"
	}
	return "continue outside of a loop"
}

// ReturnSignal returns Value from the innermost function, or from the
// function or lambda carrying Label.
type ReturnSignal struct {
	Label string
	Value Obj
}

func (r *ReturnSignal) Error() string {
	if r.Label != "" {
		return "return@" + r.Label + " outside of a matching function"
	}
	return "return outside of a function"
}

// CancelledSignal stops evaluation when the context is cancelled. It cannot
// be caught by try/catch.
type CancelledSignal struct {
	Cause error
}

func (c *CancelledSignal) Error() string { return "execution cancelled: " + c.Cause.Error() }
func (c *CancelledSignal) Unwrap() error { return c.Cause }

// IsControlSignal reports break, continue and return signals.
func IsControlSignal(err error) bool {
	switch err.(type) {
	case *BreakSignal, *ContinueSignal, *ReturnSignal:
		return true
	}
	return false
}

// Raise creates an exception of class cls and returns it as an error.
func (s *Scope) Raise(cls *ObjClass, format string, args ...any) error {
	return &ExecutionError{Exception: NewException(cls, fmt.Sprintf(format, args...))}
}

// WrapHostError turns an error from Go host code into a language exception,
// leaving runtime errors and signals untouched.
func WrapHostError(s *Scope, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	var se *SyntaxError
	var cs *CancelledSignal
	if errors.As(err, &ee) || errors.As(err, &se) || errors.As(err, &cs) || IsControlSignal(err) {
		return err
	}
	return s.Raise(ExceptionClass, "%v", err)
}

// NewException builds an exception instance outside of any constructor call.
func NewException(cls *ObjClass, message string) *ObjInstance {
	inst := newInstance(cls)
	setExceptionMessage(inst, NewString(message))
	return inst
}

func setExceptionMessage(inst *ObjInstance, msg Obj) {
	if rec := inst.Fields.bindings["message"]; rec != nil {
		rec.Value = msg
		return
	}
	inst.Fields.defineRaw(&Record{Name: "message", Value: msg, Kind: KindField, DeclaringClass: ExceptionClass})
}

// ExceptionMessage returns the message field of an exception instance.
func ExceptionMessage(inst *ObjInstance) string {
	if rec := inst.Fields.bindings["message"]; rec != nil && !IsNull(rec.Value) {
		return rec.Value.Inspect()
	}
	return ""
}

// Diagnostic renders err in the stable diagnostic format: a header line,
// then the offending source line and a caret under the column.
func Diagnostic(err error) string {
	var se *SyntaxError
	if errors.As(err, &se) {
		return posDiagnostic(se.Pos, se.Msg)
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return posDiagnostic(ee.Pos, ee.Exception.Inspect())
	}
	return "Error: " + err.Error()
}

func posDiagnostic(pos token.Pos, msg string) string {
	if !pos.IsValid() {
		return "Error: " + msg
	}
	line := ""
	if pos.Source != nil {
		line = pos.Source.Line(pos.Line)
	}
	return util.FormatDiagnostic(pos.FileName(), pos.Line, pos.Column, msg, line)
}

// RenderStacktrace prints an uncaught exception with the call positions it
// passed through, innermost first.
func RenderStacktrace(err *ExecutionError) string {
	var buf bytes.Buffer
	buf.WriteString(Diagnostic(err))
	for _, p := range err.Exception.trace {
		fmt.Fprintf(&buf, "\n  at %s", p)
	}
	return buf.String()
}

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"lyng/internal/evaluator"
	"lyng/internal/object"
)

const (
	PROMPT      = "lyng> "
	CONTINUE    = "  ... "
	historyFile = ".lyng_history"
)

// LineReader reads one line of input after showing a prompt.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Session evaluates REPL input in one persistent scope, so declarations of
// earlier lines stay visible.
type Session struct {
	rt    *evaluator.Runtime
	scope *object.Scope
	out   io.Writer
}

func NewSession(rt *evaluator.Runtime, out io.Writer) *Session {
	return &Session{rt: rt, scope: rt.NewRootScope(), out: out}
}

// incomplete reports whether code failed to compile only because more
// input is needed.
func (s *Session) incomplete(code string) bool {
	_, err := s.rt.Compile(code, "<repl>")
	var se *object.SyntaxError
	return errors.As(err, &se) && strings.Contains(se.Msg, "end of input")
}

// read collects lines until they form a complete program.
func (s *Session) read(in LineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := PROMPT
		if b.Len() > 0 {
			prompt = CONTINUE
		}
		line, err := in.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if src := b.String(); strings.TrimSpace(src) == "" || !s.incomplete(src) {
			return src, true
		}
	}
}

// command runs a ':' command and reports whether the session should end.
func (s *Session) command(cmd string) bool {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":stats":
		fmt.Fprintln(s.out, s.rt.CacheStats().String())
	case ":modules":
		for _, name := range s.rt.Modules().Loaded() {
			fmt.Fprintln(s.out, name)
		}
	case ":reset":
		s.scope = s.rt.NewRootScope()
	default:
		fmt.Fprintln(s.out, "unknown command. Commands are :quit, :stats, :modules and :reset")
	}
	return false
}

// Eval runs one complete input and prints its value or error.
func (s *Session) Eval(ctx context.Context, code string) {
	v, err := s.rt.EvalIn(ctx, code, s.scope)
	if err != nil {
		var ee *object.ExecutionError
		if errors.As(err, &ee) {
			fmt.Fprintln(s.out, object.RenderStacktrace(ee))
			return
		}
		fmt.Fprintln(s.out, object.Diagnostic(err))
		return
	}
	if v != nil && v != object.VOID {
		fmt.Fprintln(s.out, v.Inspect())
	}
}

// Run reads and evaluates input until EOF or :quit.
func (s *Session) Run(ctx context.Context, in LineReader) {
	for {
		code, ok := s.read(in)
		if !ok {
			fmt.Fprintln(s.out)
			return
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		in.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed) {
				return
			}
			continue
		}
		s.Eval(ctx, code)
	}
}

// Start runs an interactive session on the terminal with line editing and
// a history file in the home directory.
func Start(ctx context.Context, rt *evaluator.Runtime, out io.Writer) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	var histPath string
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintf(out, "Lyng %s. Type :quit to exit.\n", rt.Config.Version)
	NewSession(rt, out).Run(ctx, ln)
}

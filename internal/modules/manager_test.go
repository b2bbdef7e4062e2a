package modules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lyng/internal/compiler"
	"lyng/internal/object"
	"lyng/internal/token"
	"lyng/internal/util"
)

// harness is a machine with a module manager and a `mark` function that
// records every call, so tests can count how often module code ran.
type harness struct {
	machine *object.Machine
	manager *Manager

	mu    sync.Mutex
	marks []string
}

func newHarness(t *testing.T, modules map[string]string, opts ...Option) *harness {
	t.Helper()
	h := &harness{machine: object.NewMachine(util.DefaultConfiguration())}
	for _, c := range object.BuiltinClasses() {
		h.machine.Globals.Bind(c.Name, c)
	}
	h.machine.Globals.Bind("mark", &object.BuiltinFunc{Name: "mark", Fn: func(s *object.Scope, args *object.Arguments) (object.Obj, error) {
		str, err := object.ToString(s, args.List[0])
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.marks = append(h.marks, str)
		h.mu.Unlock()
		return object.VOID, nil
	}})
	h.manager = NewManager(h.machine, opts...)
	for name, code := range modules {
		h.manager.Memory().Add(name, code)
	}
	return h
}

func (h *harness) compile(code string) (*compiler.Unit, error) {
	return compiler.CompileString(code, "main.lyng", h.manager)
}

func (h *harness) run(t *testing.T, code string) (object.Obj, error) {
	t.Helper()
	unit, err := h.compile(code)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := h.machine.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer h.machine.Release()
	scope := h.machine.Globals.NewModuleScope("")
	scope.SetContext(ctx)
	return unit.Execute(scope)
}

func (h *harness) mustRun(t *testing.T, code string) string {
	t.Helper()
	v, err := h.run(t, code)
	if err != nil {
		t.Fatalf("unexpected error: %s", object.Diagnostic(err))
	}
	return v.Inspect()
}

func (h *harness) markCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.marks {
		if m == name {
			n++
		}
	}
	return n
}

func TestImportRunsModuleOnce(t *testing.T) {
	h := newHarness(t, map[string]string{
		"shared": "mark(\"shared\")\nval base = 40",
		"left":   "import shared\nval l = base + 1",
		"right":  "import shared\nval r = base + 2",
	})
	got := h.mustRun(t, "import left\nimport right\nimport shared\nl + r + base")
	if got != "123" {
		t.Errorf("expected 123, got %s", got)
	}
	if n := h.markCount("shared"); n != 1 {
		t.Errorf("shared ran %d times", n)
	}
	if loaded := strings.Join(h.manager.Loaded(), ","); loaded != "left,right,shared" {
		t.Errorf("unexpected registry contents %s", loaded)
	}
}

func TestImportSymbols(t *testing.T) {
	h := newHarness(t, map[string]string{
		"lib.math": "fun square(x) = x * x\nfun cube(x) = x * x * x\nval answer = 42",
	})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"wildcard", "import lib.math\nsquare(3) + answer", "51"},
		{"selected", "import lib.math.{cube}\ncube(2)", "8"},
		{"alias", "import lib.math.{square as sq, answer as a}\nsq(a)", "1764"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.mustRun(t, tt.input); got != tt.expected {
				t.Errorf("expected=%s, got=%s", tt.expected, got)
			}
		})
	}
}

func TestPrepareImportErrors(t *testing.T) {
	h := newHarness(t, map[string]string{
		"lib.math": "fun square(x) = x * x",
		"broken":   "val x = (1 + ",
		"secret":   "val open = 1",
	}, WithSecurity(NewAllowList([]string{"lib", "broken"}, []string{"lib.math.square"})))

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"missing module", "import lib.nothing", "main.lyng:1:1: Error: module lib.nothing not found"},
		{"broken module", "import broken.{x}", "broken.lyng:1:14: Error: expected expression, got end of input"},
		{"denied module", "import secret", "main.lyng:1:1: Error: import of module secret is denied"},
		{"denied symbol", "import lib.math.{square}", "main.lyng:1:1: Error: import of square from lib.math is denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.compile(tt.input)
			var se *object.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected a syntax error, got %v", err)
			}
			if got := se.Error(); got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestUnknownSymbol(t *testing.T) {
	h := newHarness(t, map[string]string{"lib.math": "fun square(x) = x * x"})
	_, err := h.compile("import lib.math.{sqrt}")
	if err == nil || !strings.Contains(err.Error(), "module lib.math has no symbol sqrt") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVisibilityAndConflicts(t *testing.T) {
	h := newHarness(t, map[string]string{
		"vault": "private val secret = 1\nval open = 2",
	})

	if got := h.mustRun(t, "import vault\nopen"); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}

	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"private symbol", "import vault.{secret}", "secret is private in module vault"},
		{"private not linked", "import vault\nsecret", "secret"},
		{"conflict", "val open = 5\nimport vault", "import of open from vault conflicts with existing definition from <script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(t, tt.input)
			var ee *object.ExecutionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected an exception, got %v", err)
			}
			if !strings.Contains(ee.Message(), tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, ee.Message())
			}
		})
	}
}

func TestCyclicImports(t *testing.T) {
	h := newHarness(t, map[string]string{
		"ping": "import pong\nmark(\"ping\")\nfun pingName() = \"ping\"\nval both = pongName() + \"-\" + pingName()",
		"pong": "import ping\nmark(\"pong\")\nfun pongName() = \"pong\"\nfun fromPing() = pingName()",
	})
	if got := h.mustRun(t, "import ping\nimport pong\nboth + \"/\" + fromPing()"); got != "pong-ping/ping" {
		t.Errorf("unexpected result %s", got)
	}
	if h.markCount("ping") != 1 || h.markCount("pong") != 1 {
		t.Errorf("modules ran more than once: %v", h.marks)
	}
}

func TestCyclicImportKeepsPrivateNames(t *testing.T) {
	h := newHarness(t, map[string]string{
		"ring.a": "import ring.b\nprivate val secret = 1\nval open = 2",
		"ring.b": "import ring.a\nfun peek() = secret\nfun reach() = open",
	})
	if got := h.mustRun(t, "import ring.a\nimport ring.b\nreach()"); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}
	_, err := h.run(t, "import ring.b\npeek()")
	var ee *object.ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected an exception, got %v", err)
	}
	if !strings.Contains(ee.Message(), "symbol secret is not defined") {
		t.Errorf("private name leaked through the cycle: %q", ee.Message())
	}
	_, err = h.run(t, "import ring.a.{secret}")
	if !errors.As(err, &ee) || !strings.Contains(ee.Message(), "secret is private in module ring.a") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestModuleFailureIsShared(t *testing.T) {
	h := newHarness(t, map[string]string{
		"failing": "mark(\"failing\")\nthrow IllegalStateException(\"not today\")",
	})
	for i := 0; i < 2; i++ {
		_, err := h.run(t, "import failing")
		var ee *object.ExecutionError
		if !errors.As(err, &ee) || ee.Message() != "not today" {
			t.Fatalf("run %d: unexpected error %v", i, err)
		}
	}
	if n := h.markCount("failing"); n != 1 {
		t.Errorf("failing module ran %d times", n)
	}
}

func TestHostModules(t *testing.T) {
	greet := &HostModule{Name: "host.greet", Install: func(s *object.Scope) error {
		s.Bind("greeting", object.NewString("hello"))
		return nil
	}}
	h := newHarness(t, nil, WithHostModules(greet))
	if got := h.mustRun(t, "import host.greet.{greeting as g}\ng + \"!\""); got != "hello!" {
		t.Errorf("unexpected result %s", got)
	}
	if _, ok := h.manager.Module("host.greet"); !ok {
		t.Error("host module missing from registry")
	}
}

func TestFSProvider(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	write := func(dir, rel, code string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(root, "app/util.lyng", "fun twice(x) = x * 2")
	write(home, "lib/std/extra.lyng", "val extra = 7")

	cfg := util.DefaultConfiguration()
	cfg.RootPath = root
	cfg.LyngHome = home
	h := newHarness(t, nil, WithSources(NewFSProvider(cfg)))
	if got := h.mustRun(t, "import app.util\nimport std.extra\ntwice(extra)"); got != "14" {
		t.Errorf("expected 14, got %s", got)
	}

	src, err := NewFSProvider(cfg).Load(context.Background(), "app.util")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "app", "util.lyng"); src.FileName != want {
		t.Errorf("expected file %s, got %s", want, src.FileName)
	}
	if _, err := NewFSProvider(cfg).Load(context.Background(), "app.none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type cancellingProvider struct{ cancel context.CancelFunc }

func (p cancellingProvider) Load(ctx context.Context, _ string) (*token.Source, error) {
	p.cancel()
	return nil, ctx.Err()
}

// gatedProvider serves one module whose source is held back until release
// is closed.
type gatedProvider struct {
	name, code string
	started    chan struct{}
	release    chan struct{}
}

func (p gatedProvider) Load(ctx context.Context, name string) (*token.Source, error) {
	if name != p.name {
		return nil, ErrNotFound
	}
	close(p.started)
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return token.NewSource(name+".lyng", p.code), nil
}

func TestConcurrentPrepareChecksSymbols(t *testing.T) {
	gate := gatedProvider{name: "slow", code: "val present = 1", started: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, nil, WithSources(gate))
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- h.manager.PrepareImport(ctx, token.Pos{}, "slow", nil) }()
	<-gate.started

	second := make(chan error, 1)
	go func() {
		second <- h.manager.PrepareImport(ctx, token.Pos{}, "slow", []object.ImportSymbol{{Name: "absent"}})
	}()
	select {
	case err := <-second:
		t.Fatalf("import returned before the module compiled: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	close(gate.release)

	if err := <-first; err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	err := <-second
	if err == nil || !strings.Contains(err.Error(), "module slow has no symbol absent") {
		t.Fatalf("unexpected error %v", err)
	}
	if err := h.manager.PrepareImport(ctx, token.Pos{}, "slow", []object.ImportSymbol{{Name: "present"}}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCancelledPrepareForgetsModule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, nil, WithSources(cancellingProvider{cancel: cancel}))
	err := h.manager.PrepareImport(ctx, token.Pos{}, "slow", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if loaded := h.manager.Loaded(); len(loaded) != 0 {
		t.Errorf("cancelled module stayed registered: %v", loaded)
	}
}

func TestBatch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	err := h.manager.AddBatch(ctx, map[string]string{
		"batch.a": "import batch.common\nmark(\"a\")",
		"batch.b": "import batch.common\nmark(\"b\")",
		"batch.c": "import batch.a\nmark(\"c\")",
		"batch.common": "mark(\"common\")\nval shared = 1",
	})
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if err := h.manager.RunAll(ctx); err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	for _, name := range []string{"a", "b", "c", "common"} {
		if n := h.markCount(name); n != 1 {
			t.Errorf("%s ran %d times", name, n)
		}
	}
}

func TestBatchFailure(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	err := h.manager.AddBatch(ctx, map[string]string{
		"ok":  "val x = 1",
		"bad": "throw \"boom\"",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = h.manager.RunAll(ctx)
	var ee *object.ExecutionError
	if !errors.As(err, &ee) || ee.Message() != "boom" {
		t.Fatalf("unexpected error %v", err)
	}

	if err := h.manager.AddBatch(ctx, map[string]string{"syntax": "val = 3"}); err == nil {
		t.Error("expected a compile error from the batch")
	}
}

func TestSecurityFromConfig(t *testing.T) {
	cfg := util.DefaultConfiguration()
	if SecurityFromConfig(cfg) != AllowAll {
		t.Error("unrestricted configuration should allow everything")
	}
	cfg.AllowedModules = []string{"lyng"}
	cfg.DeniedSymbols = []string{"lyng.db.open"}
	sm := SecurityFromConfig(cfg)

	tests := []struct {
		module, symbol string
		expected       bool
	}{
		{"lyng", "", true},
		{"lyng.db", "", true},
		{"lyngx", "", false},
		{"other", "", false},
		{"lyng.db", "open", false},
		{"lyng.db", "query", true},
	}
	for _, tt := range tests {
		got := sm.CanImportModule(tt.module)
		if tt.symbol != "" {
			got = sm.CanImportSymbol(tt.module, tt.symbol)
		}
		if got != tt.expected {
			t.Errorf("%s.%s: expected %v, got %v", tt.module, tt.symbol, tt.expected, got)
		}
	}
}

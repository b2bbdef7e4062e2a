package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lyng/internal/object"
	"lyng/internal/util"
)

func testConfig() util.Configuration {
	cfg := util.DefaultConfiguration()
	cfg.RootPath = ""
	cfg.LyngHome = ""
	return cfg
}

func TestEval(t *testing.T) {
	var out strings.Builder
	rt := New(testConfig(), WithOutput(&out), WithArgs([]string{"one", "two"}))

	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "7"},
		{`"n=" + ARGV.size`, "n=2"},
		{"ARGV[1]", "two"},
		{"fun fact(n) = if (n <= 1) 1 else n * fact(n - 1)\nfact(10)", "3628800"},
		{"import lyng.regex\nRegex(\"b+\").findAll(\"abbcb\")", `["bb", "b"]`},
	}
	for _, tt := range tests {
		v, err := rt.Eval(context.Background(), tt.input)
		if err != nil {
			t.Fatalf("%q: %s", tt.input, object.Diagnostic(err))
		}
		if got := v.Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%s, got=%s", tt.input, tt.expected, got)
		}
	}

	if _, err := rt.Eval(context.Background(), `println("hi", ARGV[0])`); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hi one\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestScopePersistsAcrossExecutions(t *testing.T) {
	rt := New(testConfig())
	scope := rt.NewRootScope()
	ctx := context.Background()
	for _, line := range []string{"var total = 1", "total += 41", "fun twice(x) = x * 2"} {
		if _, err := rt.EvalIn(ctx, line, scope); err != nil {
			t.Fatal(object.Diagnostic(err))
		}
	}
	v, err := rt.EvalIn(ctx, "twice(total)", scope)
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "84" {
		t.Errorf("expected 84, got %s", v.Inspect())
	}
	if _, err := rt.Eval(ctx, "total"); err == nil {
		t.Error("a fresh root scope should not see earlier declarations")
	}
}

func TestDiagnostics(t *testing.T) {
	rt := New(testConfig())
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"syntax", "val x = ", "<eval>:1:9: Error: expected expression, got end of input\nval x = \n        ^"},
		{"runtime", "val a = 1\nnope(a)", "<eval>:2:1: Error: SymbolNotFoundException: symbol nope is not defined\nnope(a)\n^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Eval(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := object.Diagnostic(err); got != tt.expected {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.expected, got)
			}
		})
	}
}

func TestModulesFromMemoryAndFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "geo"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := os.WriteFile(filepath.Join(root, "geo", "shapes.lyng"), []byte(`package geo.shapes
import util.math
class Square(val side) {
  fun area() = sq(side)
}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.RootPath = root
	rt := New(cfg, WithModuleSources(map[string]string{"util.math": "fun sq(x) = x * x"}))
	v, err := rt.Eval(context.Background(), "import geo.shapes\nSquare(7).area()")
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "49" {
		t.Errorf("expected 49, got %s", v.Inspect())
	}

	_, err = New(testConfig(), WithoutFilesystem()).Eval(context.Background(), "import geo.shapes")
	var se *object.SyntaxError
	if !errors.As(err, &se) || se.Msg != "module geo.shapes not found" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAllowedModules(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedModules = []string{"lyng.text"}
	rt := New(cfg)
	if _, err := rt.Eval(context.Background(), "import lyng.text\nupper(\"ok\")"); err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	_, err := rt.Eval(context.Background(), "import lyng.db")
	if err == nil || !strings.Contains(err.Error(), "import of module lyng.db is denied") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestCacheStats(t *testing.T) {
	code := `class P(val x) { fun get() = x }
var sum = 0
for (i in 0..<50) { sum += P(i).get() }
sum`
	enabled := New(testConfig())
	v, err := enabled.Eval(context.Background(), code)
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "1225" {
		t.Errorf("expected 1225, got %s", v.Inspect())
	}
	if enabled.CacheStats().Hits() == 0 {
		t.Error("expected cache hits with caching enabled")
	}

	cfg := testConfig()
	cfg.PICEnabled = false
	disabled := New(cfg)
	v, err = disabled.Eval(context.Background(), code)
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "1225" || disabled.CacheStats().Hits() != 0 {
		t.Errorf("disabled caches: got %s with %d hits", v.Inspect(), disabled.CacheStats().Hits())
	}
}

func TestFramePooling(t *testing.T) {
	cfg := testConfig()
	cfg.ScopePoolEnabled = true
	cfg.ScopePoolSize = 8
	rt := New(cfg)
	v, err := rt.Eval(context.Background(), "fun add(a, b) = a + b\nvar s = 0\nfor (i in 1..100) s = add(s, i)\ns")
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "5050" {
		t.Errorf("expected 5050, got %s", v.Inspect())
	}
	if rt.Machine().Pool() == nil {
		t.Error("pool should be enabled")
	}
}

// outcome renders a result or its diagnostic so runs can be compared.
func outcome(v object.Obj, err error) string {
	if err != nil {
		return object.Diagnostic(err)
	}
	return v.Inspect()
}

func TestFramePoolingIsTransparent(t *testing.T) {
	programs := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"closure escapes through a caller frame",
			`fun make(g) { return g() }
val h = make({ return ({ -> g }) })
fun other() { val y = 42; return h() }
other()`,
			"lambda",
		},
		{
			"escaped closures keep their bindings",
			`fun apply(f, x) = f(x)
val adders = []
for (i in 1..3) adders.add(apply({ k -> { v -> v + k } }, i))
fun noise(a, b) = a * b
noise(7, 8)
adders.map { it(10) }`,
			"[11, 12, 13]",
		},
		{
			"recursion",
			`fun fib(n) = if (n < 2) n else fib(n - 1) + fib(n - 2)
fib(15)`,
			"610",
		},
		{
			"nested lambdas",
			`fun twice(f) = { x -> f(f(x)) }
fun inc(n) = n + 1
val add4 = twice(twice({ n -> inc(n) }))
fun spin(n) = if (n == 0) 0 else spin(n - 1)
spin(20)
add4(1)`,
			"5",
		},
		{
			"errors inside pooled frames",
			`fun call(f) = f()
fun pad(a) = a
pad(1)
call({ nope })`,
			"",
		},
	}
	ctx := context.Background()
	for _, tt := range programs {
		t.Run(tt.name, func(t *testing.T) {
			plain := New(testConfig())
			want := outcome(plain.Eval(ctx, tt.input))
			if tt.expected != "" && want != tt.expected {
				t.Fatalf("expected %s without pooling, got %s", tt.expected, want)
			}

			cfg := testConfig()
			cfg.ScopePoolEnabled = true
			cfg.ScopePoolSize = 2
			pooled := New(cfg)
			// Warm the pool so later calls reuse frames.
			if _, err := pooled.Eval(ctx, "fun w(a) = a\nfor (i in 1..10) w(i)"); err != nil {
				t.Fatal(object.Diagnostic(err))
			}
			if got := outcome(pooled.Eval(ctx, tt.input)); got != want {
				t.Errorf("pooling changed the result.\nwithout: %s\nwith:    %s", want, got)
			}
		})
	}
}

func TestCancellation(t *testing.T) {
	rt := New(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := rt.Eval(ctx, "while (true) { }")
	var cs *object.CancelledSignal
	if !errors.As(err, &cs) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	v, err := rt.Eval(context.Background(), "1")
	if err != nil || v.Inspect() != "1" {
		t.Errorf("runtime unusable after cancellation: %v", err)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.lyng")
	if err := os.WriteFile(path, []byte("val xs = [3, 1, 2]\nxs.sum()"), 0o644); err != nil {
		t.Fatal(err)
	}
	rt := New(testConfig())
	v, err := rt.RunFile(context.Background(), path)
	if err != nil {
		t.Fatal(object.Diagnostic(err))
	}
	if v.Inspect() != "6" {
		t.Errorf("expected 6, got %s", v.Inspect())
	}
	if _, err := rt.RunFile(context.Background(), path+".missing"); err == nil {
		t.Error("expected an error for a missing script")
	}
}

func TestCallDepthLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCallDepth = 64
	rt := New(cfg)
	_, err := rt.Eval(context.Background(), "fun down(n) = down(n + 1)\ndown(0)")
	var ee *object.ExecutionError
	if !errors.As(err, &ee) || ee.Message() != "call depth limit of 64 exceeded" {
		t.Fatalf("expected the depth limit to stop recursion, got %v", err)
	}
	v, err := rt.Eval(context.Background(), "fun count(n) = if (n == 0) 0 else 1 + count(n - 1)\ncount(50)")
	if err != nil || v.Inspect() != "50" {
		t.Errorf("recursion below the limit failed: %v", err)
	}
}

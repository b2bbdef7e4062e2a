package stdlib

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lyng/internal/compiler"
	"lyng/internal/modules"
	"lyng/internal/object"
	"lyng/internal/util"
)

type result struct {
	value  object.Obj
	output string
	err    error
}

func eval(t *testing.T, code string) result {
	t.Helper()
	m := object.NewMachine(util.DefaultConfiguration())
	var out strings.Builder
	m.Out = &out
	Install(m.Globals)
	mgr := modules.NewManager(m, modules.WithHostModules(HostModules()...))

	unit, err := compiler.CompileString(code, "test.lyng", mgr)
	if err != nil {
		return result{err: err}
	}
	ctx := context.Background()
	if err := m.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer m.Release()
	scope := m.Globals.NewModuleScope("")
	scope.SetContext(ctx)
	v, err := unit.Execute(scope)
	return result{value: v, output: out.String(), err: err}
}

func mustEval(t *testing.T, code string) result {
	t.Helper()
	res := eval(t, code)
	if res.err != nil {
		t.Fatalf("unexpected error: %s", object.Diagnostic(res.err))
	}
	return res
}

func TestGlobals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"listOf", "listOf(1, 2, 3).size", "3"},
		{"setOf dedups", "setOf(1, 2, 1, 2).size", "2"},
		{"mapOf", `mapOf("a" => 1, "b" => 2)["b"]`, "2"},
		{"pairOf", `pairOf("k", 5).value`, "5"},
		{"typeOf", "typeOf(1) == Int", "true"},
		{"with", `with("hello") { size }`, "5"},
		{"assert passes", "assert(1 < 2)\n1", "1"},
		{"assertEquals passes", "assertEquals(4, 2 + 2)\n2", "2"},
		{"assertThrows returns exception", "val e = assertThrows { throw IllegalStateException(\"x\") }\ne.message", "x"},
		{"assertThrows with class", "assertThrows(IllegalArgumentException) { require(false, \"bad\") }.message", "bad"},
		{"launch and await", "val d = launch { 6 * 7 }\nd.await()", "42"},
		{"mutex", "val m = Mutex()\nm.withLock { 3 }", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustEval(t, tt.input).value.Inspect(); got != tt.expected {
				t.Errorf("expected=%s, got=%s", tt.expected, got)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	res := mustEval(t, "print(\"a\", 1)\nprintln(\"b\")\nprintln()\nprintln([1, 2])")
	if want := "a 1b\n\n[1, 2]\n"; res.output != want {
		t.Errorf("expected output %q, got %q", want, res.output)
	}
}

func TestGlobalFailures(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		className string
		message   string
	}{
		{"assert", "assert(false)", "AssertionFailedException", "assertion failed"},
		{"assert message", `assert(1 > 2, "order")`, "AssertionFailedException", "order"},
		{"assertEquals", "assertEquals(1, 2)", "AssertionFailedException", "expected 1, got 2"},
		{"assertEquals prefix", `assertEquals("a", "b", "names")`, "AssertionFailedException", `names: expected "a", got "b"`},
		{"assertThrows nothing thrown", "assertThrows { 1 }", "AssertionFailedException", "expected Exception to be thrown"},
		{"assertThrows wrong class", "assertThrows(IllegalArgumentException) { check(false) }", "AssertionFailedException",
			"expected IllegalArgumentException to be thrown, got IllegalStateException: check failed"},
		{"require", "require(false)", "IllegalArgumentException", "require failed"},
		{"check", `check(false, "state")`, "IllegalStateException", "state"},
		{"pairOf arity", "pairOf(1)", "IllegalArgumentException", "wrong number of arguments for pairOf. got=1, want=2"},
		{"delay negative", "delay(-1)", "IllegalArgumentException", "delay expects a non-negative number of milliseconds, got -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := eval(t, tt.input)
			var ee *object.ExecutionError
			if !errors.As(res.err, &ee) {
				t.Fatalf("expected an exception, got %v", res.err)
			}
			if ee.ClassName() != tt.className || ee.Message() != tt.message {
				t.Errorf("expected %s(%q), got %s(%q)", tt.className, tt.message, ee.ClassName(), ee.Message())
			}
		})
	}
}

func TestDelayLetsOtherTasksRun(t *testing.T) {
	res := mustEval(t, `val order = []
val a = launch { delay(20); order.add("slow") }
val b = launch { order.add("fast") }
a.await()
b.await()
order`)
	if got := res.value.Inspect(); got != `["fast", "slow"]` {
		t.Errorf("unexpected order %s", got)
	}
}

func TestRegexModule(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"matches whole", `Regex("[a-z]+").matches("abc")`, "true"},
		{"matches partial", `Regex("[a-z]+").matches("abc1")`, "false"},
		{"contains", `Regex("\\d").containsMatchIn("abc1")`, "true"},
		{"find", `Regex("(\\w)(\\d)").find("xx a1 b2")["value"]`, `a1`},
		{"find groups", `Regex("(\\w)(\\d)").find("xx a1 b2")["groups"]`, `["a", "1"]`},
		{"find index", `Regex("b").find("abc")["index"]`, "1"},
		{"find none", `Regex("z").find("abc")`, "null"},
		{"findAll", `Regex("\\d+").findAll("a1b22c333")`, `["1", "22", "333"]`},
		{"replace", `Regex("(\\d+)").replace("a1b22", "<$1>")`, "a<1>b<22>"},
		{"split", `Regex(",\\s*").split("a, b,c")`, `["a", "b", "c"]`},
		{"lookahead", `Regex("\\w+(?=!)").find("hey you!")["value"]`, "you"},
		{"pattern", `Regex("a+").pattern`, "a+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEval(t, "import lyng.regex\n"+tt.input).value.Inspect()
			if got != tt.expected {
				t.Errorf("expected=%s, got=%s", tt.expected, got)
			}
		})
	}

	res := eval(t, "import lyng.regex\nRegex(\"(\")")
	var ee *object.ExecutionError
	if !errors.As(res.err, &ee) || ee.ClassName() != "IllegalArgumentException" {
		t.Errorf("expected IllegalArgumentException for a bad pattern, got %v", res.err)
	}
}

func TestTextModule(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"upper", `upper("straße")`, "STRASSE"},
		{"lower turkish", `lower("İ", "tr")`, "i"},
		{"title", `title("hello world")`, "Hello World"},
		{"fold", `fold("HeLLo")`, "hello"},
		{"normalize", `normalize("é").size`, "1"},
		{"normalize NFD", `normalize("é", "NFD").size`, "2"},
		{"equalFold", `equalFold("Straße", "STRASSE")`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEval(t, "import lyng.text\n"+tt.input).value.Inspect()
			if got != tt.expected {
				t.Errorf("expected=%s, got=%s", tt.expected, got)
			}
		})
	}
}

func TestDatabaseModule(t *testing.T) {
	res := eval(t, `import lyng.db
val db = Database.open("sqlite3", ":memory:")
db.exec("create table langs (id integer primary key, name text, year integer)")
val r = db.exec("insert into langs (name, year) values (?, ?)", "Lyng", 2024)
db.transaction { tx ->
  tx.exec("insert into langs (name, year) values (?, ?)", "Go", 2009)
}
try {
  db.transaction { tx ->
    tx.exec("insert into langs (name, year) values (?, ?)", "Lost", 1)
    throw "rollback"
  }
} catch (e) { }
val rows = db.query("select name, year from langs order by year")
db.close()
[r["rowsAffected"], rows.size, rows[0]["name"], rows[1]["year"], db.isClosed]`)
	if res.err != nil {
		if strings.Contains(res.err.Error(), "cgo") {
			t.Skip("go-sqlite3 needs cgo")
		}
		t.Fatal(object.Diagnostic(res.err))
	}
	if got := res.value.Inspect(); got != `[1, 2, "Go", 2024, true]` {
		t.Errorf("unexpected result %s", got)
	}
}

func TestDatabaseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"unknown driver", `Database.open("oracle", "x")`, "unsupported database driver oracle"},
		{"bad mysql dsn", `Database.open("mysql", "no-slash")`, "invalid mysql DSN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := eval(t, "import lyng.db\n"+tt.input)
			var ee *object.ExecutionError
			if !errors.As(res.err, &ee) {
				t.Fatalf("expected an exception, got %v", res.err)
			}
			if !strings.Contains(ee.Message(), tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, ee.Message())
			}
		})
	}
}

package compiler

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"lyng/internal/object"
	"lyng/internal/picache"
)

// polymorphicProgram builds a script whose call sites see many receiver
// classes in an order fixed by seed.
func polymorphicProgram(seed int64) string {
	rnd := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString("class Shape {\n  fun area() = 0\n  fun tag() = \"s\"\n}\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "class S%d(val w) : Shape { fun area() = w * %d }\n", i, i+1)
	}
	b.WriteString("class Odd(w) : S1(w) {\n  val tag = \"field\"\n}\n")
	b.WriteString("fun Shape.bonus() = 1\n")
	b.WriteString("val items = [")
	for i := 0; i < 60; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if k := rnd.Intn(7); k == 6 {
			fmt.Fprintf(&b, "Odd(%d)", rnd.Intn(10))
		} else {
			fmt.Fprintf(&b, "S%d(%d)", k, rnd.Intn(10))
		}
	}
	b.WriteString("]\n")
	b.WriteString(`var total = 0
var tags = ""
for (round in 0..<3) {
  for (x in items) {
    total += x.area() + x.w + x.bonus()
    val t = if (x is Odd) x.tag else x.tag()
    tags += t.size
  }
}
total * 100000 + tags.size
`)
	return b.String()
}

func TestCacheTransparency(t *testing.T) {
	configs := []struct {
		name string
		cfg  picache.Config
	}{
		{"disabled", picache.Config{}},
		{"monomorphic only", picache.Config{Enabled: true, InitialCapacity: 1, MaxCapacity: 1}},
		{"default", picache.DefaultConfig()},
		{"wide", picache.Config{Enabled: true, InitialCapacity: 1, MaxCapacity: 8}},
	}

	for _, seed := range []int64{1, 7, 42} {
		code := polymorphicProgram(seed)
		var want string
		for i, c := range configs {
			res := run(t, code, c.cfg)
			if res.err != nil {
				t.Fatalf("seed %d, %s: %s", seed, c.name, object.Diagnostic(res.err))
			}
			got := res.value.Inspect()
			if i == 0 {
				want = got
				if res.stats.Hits() != 0 {
					t.Errorf("seed %d: disabled caches reported %d hits", seed, res.stats.Hits())
				}
				continue
			}
			if got != want {
				t.Errorf("seed %d, %s: result differs from uncached run. expected=%s, got=%s", seed, c.name, want, got)
			}
			if c.cfg.MaxCapacity > 1 && res.stats.Hits() == 0 {
				t.Errorf("seed %d, %s: caches never hit", seed, c.name)
			}
		}
	}
}

func TestCacheSeesRedefinedLocals(t *testing.T) {
	code := `var out = 0
for (i in 0..<4) {
  val v = i * 2
  out = out * 10 + v
}
fun f(a) {
  val b = a + 1
  b
}
out * 10 + f(1) + f(5)`
	for _, cfg := range []picache.Config{{}, picache.DefaultConfig()} {
		res := run(t, code, cfg)
		if res.err != nil {
			t.Fatal(object.Diagnostic(res.err))
		}
		if got := res.value.Inspect(); got != "2468" {
			t.Errorf("enabled=%v: expected 2468, got %s", cfg.Enabled, got)
		}
	}
}

func TestCacheTransparencyOfErrors(t *testing.T) {
	configs := []picache.Config{
		{},
		{Enabled: true, InitialCapacity: 1, MaxCapacity: 1},
		picache.DefaultConfig(),
		{Enabled: true, InitialCapacity: 1, MaxCapacity: 8},
	}
	programs := []struct {
		name  string
		input string
	}{
		{"missing method after warm-up", `class A { fun f() = 1 }
class B { fun f() = 2 }
class C { }
var s = 0
for (x in [A(), B(), A(), B(), A(), C()]) { s += x.f(); log(s) }`},
		{"private field on a warm site", `class Open(val v)
class Closed { private val v = 3 }
var s = 0
for (x in [Open(1), Open(2), Open(3), Closed()]) { s += x.v; log(s) }`},
		{"index on an incompatible receiver", `var s = ""
for (x in [[1, 2], [3, 4], "ab", 5]) { s += x[0]; log(s) }`},
		{"arity mismatch on a polymorphic call", `class M { fun g(a) = a }
class N { fun g() = 0 }
for (x in [M(), M(), N(), M()]) log(x.g(1))`},
	}

	for _, tt := range programs {
		t.Run(tt.name, func(t *testing.T) {
			var want runResult
			for i, cfg := range configs {
				res := run(t, tt.input, cfg)
				if res.err == nil {
					t.Fatalf("config %d: expected an error, got %s", i, res.value.Inspect())
				}
				if i == 0 {
					want = res
					continue
				}
				if got, exp := object.Diagnostic(res.err), object.Diagnostic(want.err); got != exp {
					t.Errorf("config %d: error differs from uncached run.\nexpected:\n%s\ngot:\n%s", i, exp, got)
				}
				if res.output != want.output {
					t.Errorf("config %d: output differs. expected=%q, got=%q", i, want.output, res.output)
				}
			}
		})
	}
}

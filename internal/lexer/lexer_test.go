package lexer

import (
	"lyng/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `val five = 5
var ten = 1_000
fun add(x, y = 2.5e1) = x + y
outer@ for (i in 0..<10) { break@outer }
a?.b ?: c !in d !is E
x === y !== z
"a\n\"b\u{41}" 'c' -> => ... ..
/* block
comment */ i++ -= 0xFF
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.VAL, "val"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.VAR, "var"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.INT, "1000"},
		{token.FUN, "fun"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.ASSIGN, "="},
		{token.REAL, "2.5e1"},
		{token.RPAREN, ")"},
		{token.ASSIGN, "="},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.LABEL, "outer"},
		{token.FOR, "for"},
		{token.LPAREN, "("},
		{token.IDENT, "i"},
		{token.IN, "in"},
		{token.INT, "0"},
		{token.RANGE_EX, "..<"},
		{token.INT, "10"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.BREAK, "break"},
		{token.ATREF, "outer"},
		{token.RBRACE, "}"},
		{token.IDENT, "a"},
		{token.SAFE_DOT, "?."},
		{token.IDENT, "b"},
		{token.ELVIS, "?:"},
		{token.IDENT, "c"},
		{token.NOT_IN, "!in"},
		{token.IDENT, "d"},
		{token.NOT_IS, "!is"},
		{token.IDENT, "E"},
		{token.IDENT, "x"},
		{token.REF_EQ, "==="},
		{token.IDENT, "y"},
		{token.REF_NEQ, "!=="},
		{token.IDENT, "z"},
		{token.STRING, "a\n\"bA"},
		{token.CHAR, "c"},
		{token.ARROW, "->"},
		{token.ROCKET, "=>"},
		{token.ELLIPSIS, "..."},
		{token.RANGE, ".."},
		{token.IDENT, "i"},
		{token.INC, "++"},
		{token.MINUS_ASSIGN, "-="},
		{token.INT, "0xFF"},
		{token.EOF, ""},
	}

	tokens := Tokenize(token.NewSource("test.lyng", input))
	if len(tokens) != len(tests) {
		for _, tok := range tokens {
			t.Logf("%s", tok)
		}
		t.Fatalf("wrong token count. expected=%d, got=%d", len(tests), len(tokens))
	}

	for i, tt := range tests {
		tok := tokens[i]
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%s)",
				i, tt.expectedType, tok.Type, tok)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNewlineAndPositions(t *testing.T) {
	tokens := Tokenize(token.NewSource("pos.lyng", "a\n  bb // tail\n\tc"))

	tests := []struct {
		literal       string
		line, column  int
		newlineBefore bool
	}{
		{"a", 1, 1, false},
		{"bb", 2, 3, true},
		{"c", 3, 2, true},
	}

	for i, tt := range tests {
		tok := tokens[i]
		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.literal, tok.Literal)
		}
		if tok.Pos.Line != tt.line || tok.Pos.Column != tt.column {
			t.Errorf("tests[%d] - position wrong. expected=%d:%d, got=%d:%d",
				i, tt.line, tt.column, tok.Pos.Line, tok.Pos.Column)
		}
		if tok.NewlineBefore != tt.newlineBefore {
			t.Errorf("tests[%d] - newlineBefore wrong. expected=%v, got=%v", i, tt.newlineBefore, tok.NewlineBefore)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"unterminated comment", `/* abc`},
		{"bad escape", `"\q"`},
		{"empty char", `''`},
		{"stray character", "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(token.NewSource("bad.lyng", tt.input))
			if tokens[0].Type != token.ILLEGAL {
				t.Fatalf("expected ILLEGAL token, got %s", tokens[0])
			}
		})
	}
}

package token

import (
	"fmt"
	"strings"
)

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	// Identifiers + literals
	IDENT  = "IDENT"  // add, foobar, x, y, ...
	INT    = "INT"    // 1343456, 0xFF
	REAL   = "REAL"   // 1.5, 2e3
	STRING = "STRING" // "foobar"
	CHAR   = "CHAR"   // 'a'
	LABEL  = "LABEL"  // outer@
	ATREF  = "ATREF"  // @outer

	// Operators
	ASSIGN       = "="
	PLUS_ASSIGN  = "+="
	MINUS_ASSIGN = "-="
	STAR_ASSIGN  = "*="
	SLASH_ASSIGN = "/="
	PCT_ASSIGN   = "%="
	PLUS         = "+"
	MINUS        = "-"
	BANG         = "!"
	ASTERISK     = "*"
	SLASH        = "/"
	PERCENT      = "%"
	INC          = "++"
	DEC          = "--"

	LT    = "<"
	LT_EQ = "<="
	GT    = ">"
	GT_EQ = ">="

	LOGICAL_AND = "&&"
	LOGICAL_OR  = "||"

	EQ      = "=="
	NOT_EQ  = "!="
	REF_EQ  = "==="
	REF_NEQ = "!=="

	ARROW    = "->"
	ROCKET   = "=>"
	RANGE    = ".."
	RANGE_EX = "..<"
	ELLIPSIS = "..."
	ELVIS    = "?:"
	SAFE_DOT = "?."
	QUESTION = "?"
	NOT_IN   = "!in"
	NOT_IS   = "!is"

	// Delimiters
	PERIOD    = "."
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	VAL       = "VAL"
	VAR       = "VAR"
	FUN       = "FUN"
	CLASS     = "CLASS"
	ENUM      = "ENUM"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"
	VOID      = "VOID"
	THIS      = "THIS"
	IF        = "IF"
	ELSE      = "ELSE"
	WHILE     = "WHILE"
	DO        = "DO"
	FOR       = "FOR"
	IN        = "IN"
	IS        = "IS"
	AS        = "AS"
	WHEN      = "WHEN"
	TRY       = "TRY"
	CATCH     = "CATCH"
	FINALLY   = "FINALLY"
	THROW     = "THROW"
	RETURN    = "RETURN"
	BREAK     = "BREAK"
	CONTINUE  = "CONTINUE"
	IMPORT    = "IMPORT"
	PACKAGE   = "PACKAGE"
	PRIVATE   = "PRIVATE"
	PROTECTED = "PROTECTED"
	PUBLIC    = "PUBLIC"
	STATIC    = "STATIC"
	OPEN      = "OPEN"
	OVERRIDE  = "OVERRIDE"
	INIT      = "INIT"
)

// Source is a named chunk of program text. Positions refer back to it so
// diagnostics can print the offending line.
type Source struct {
	FileName string
	Text     string
	lines    []string
}

func NewSource(fileName, text string) *Source {
	return &Source{FileName: fileName, Text: text}
}

// Line returns the 1-based line of the source, without the line terminator.
func (s *Source) Line(n int) string {
	if s.lines == nil {
		s.lines = strings.Split(s.Text, "\n")
	}
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return strings.TrimRight(s.lines[n-1], "\r")
}

// Pos is a 1-based line/column location inside a Source.
type Pos struct {
	Source *Source
	Line   int
	Column int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) FileName() string {
	if p.Source == nil {
		return "<unknown>"
	}
	return p.Source.FileName
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.FileName(), p.Line, p.Column)
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     Pos
	// NewlineBefore is set when at least one line break separates this token
	// from the previous one.
	NewlineBefore bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}

var keywords = map[string]TokenType{
	// constants
	"null":  NULL,
	"void":  VOID,
	"true":  TRUE,
	"false": FALSE,
	"this":  THIS,

	// declarations
	"val":   VAL,
	"var":   VAR,
	"fun":   FUN,
	"fn":    FUN,
	"class": CLASS,
	"enum":  ENUM,
	"init":  INIT,

	// modifiers
	"private":   PRIVATE,
	"protected": PROTECTED,
	"public":    PUBLIC,
	"static":    STATIC,
	"open":      OPEN,
	"override":  OVERRIDE,

	// flow control
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"do":       DO,
	"for":      FOR,
	"in":       IN,
	"is":       IS,
	"as":       AS,
	"when":     WHEN,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,

	// error handling
	"try":     TRY,
	"catch":   CATCH,
	"finally": FINALLY,
	"throw":   THROW,

	"import":  IMPORT,
	"package": PACKAGE,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsSoftKeyword reports keywords that may still be used as member names
// after a '.', e.g. `range.in` is not valid but `x.init` is.
func IsSoftKeyword(t TokenType) bool {
	switch t {
	case INIT, OPEN, OVERRIDE, STATIC, PUBLIC, PRIVATE, PROTECTED, PACKAGE, IMPORT:
		return true
	}
	return false
}

package lexer

import (
	"lyng/internal/token"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	src          *token.Source
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
	line         int
	column       int
	sawNewline   bool
}

func New(src *token.Source) *Lexer {
	l := &Lexer{src: src, input: src.Text, line: 1}
	l.readChar()
	return l
}

// Tokenize scans the whole source. The last token is always EOF; scanning
// problems are reported as ILLEGAL tokens carrying the message as literal.
func Tokenize(src *token.Source) []token.Token {
	l := New(src)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Source: l.src, Line: l.line, Column: l.column}
}

func (l *Lexer) newToken(t token.TokenType, literal string, pos token.Pos) token.Token {
	tok := token.Token{Type: t, Literal: literal, Pos: pos, NewlineBefore: l.sawNewline}
	l.sawNewline = false
	return tok
}

// readChar advances by one UTF-8 rune, updating byte positions and the
// line/column of the current rune.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// peekTwoChars returns the rune after next without advancing; returns 0 if unavailable
func (l *Lexer) peekTwoChars() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	idx := l.readPosition + size
	if idx >= len(l.input) {
		return 0
	}
	r2, _ := utf8.DecodeRuneInString(l.input[idx:])
	return r2
}

func (l *Lexer) skipWhitespace() bool {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '\n':
			l.sawNewline = true
			l.readChar()
		case '/':
			switch l.peekChar() {
			case '/':
				l.skipToLineEnd()
			case '*':
				if !l.skipBlockComment() {
					return false
				}
			default:
				return true
			}
		default:
			return true
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() bool {
	l.readChar() // '/'
	l.readChar() // '*'
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		if l.ch == '\n' {
			l.sawNewline = true
		}
		l.readChar()
	}
	return false
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber scans an Int or Real literal. A '.' is only taken as a decimal
// point when a digit follows, so `1..5` stays a range.
func (l *Lexer) readNumber() (string, token.TokenType) {
	start := l.position
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return stripUnderscores(l.input[start:l.position]), token.INT
	}
	typ := token.TokenType(token.INT)
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = token.REAL
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekTwoChars())) {
			typ = token.REAL
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return stripUnderscores(l.input[start:l.position]), typ
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

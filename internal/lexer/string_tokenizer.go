package lexer

import (
	"lyng/internal/token"
	"strconv"
	"strings"
)

// readString scans a double-quoted string; the current rune is the opening quote.
func (l *Lexer) readString(start token.Pos) token.Token {
	var result strings.Builder
	l.readChar()
	for {
		switch l.ch {
		case 0:
			return l.newToken(token.ILLEGAL, "unterminated string literal", start)
		case '"':
			l.readChar()
			return l.newToken(token.STRING, result.String(), start)
		case '\\':
			r, ok := l.readEscape()
			if !ok {
				return l.newToken(token.ILLEGAL, "invalid escape sequence", l.pos())
			}
			result.WriteRune(r)
		default:
			result.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readCharLiteral(start token.Pos) token.Token {
	l.readChar()
	var r rune
	switch l.ch {
	case 0, '\'':
		return l.newToken(token.ILLEGAL, "empty character literal", start)
	case '\\':
		var ok bool
		r, ok = l.readEscape()
		if !ok {
			return l.newToken(token.ILLEGAL, "invalid escape sequence", start)
		}
	default:
		r = l.ch
		l.readChar()
	}
	if l.ch != '\'' {
		return l.newToken(token.ILLEGAL, "unterminated character literal", start)
	}
	l.readChar()
	return l.newToken(token.CHAR, string(r), start)
}

// readEscape consumes a backslash escape and returns the rune it denotes.
func (l *Lexer) readEscape() (rune, bool) {
	l.readChar() // backslash
	ch := l.ch
	l.readChar()
	switch ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '"', '\'', '$':
		return ch, true
	case 'u':
		if l.ch != '{' {
			return 0, false
		}
		l.readChar()
		startPos := l.position
		for isHexDigit(l.ch) {
			l.readChar()
		}
		hex := l.input[startPos:l.position]
		if l.ch != '}' || hex == "" {
			return 0, false
		}
		l.readChar()
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, false
		}
		return rune(v), true
	}
	return 0, false
}

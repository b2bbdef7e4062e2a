package lexer

import (
	"lyng/internal/token"
)

// NextToken scans the next token. Line breaks are not tokens; they set
// NewlineBefore on the following token instead.
func (l *Lexer) NextToken() token.Token {
	if !l.skipWhitespace() {
		return l.newToken(token.ILLEGAL, "unterminated block comment", l.pos())
	}

	start := l.pos()

	// operators are matched longest first
	three := string([]rune{l.ch, l.peekChar(), l.peekTwoChars()})
	switch three {
	case "===", "!==", "...", "..<":
		l.readChar()
		l.readChar()
		l.readChar()
		return l.newToken(token.TokenType(three), three, start)
	}

	if l.ch == '!' && (l.peekChar() == 'i') {
		if tok, ok := l.readNegatedKeyword(start); ok {
			return tok
		}
	}

	two := string([]rune{l.ch, l.peekChar()})
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||", "->", "=>", "..", "?:", "?.",
		"++", "--", "+=", "-=", "*=", "/=", "%=":
		l.readChar()
		l.readChar()
		return l.newToken(token.TokenType(two), two, start)
	}

	switch l.ch {
	case '=', '+', '-', '!', '*', '/', '%', '<', '>', '?', '.', ',', ';', ':',
		'(', ')', '{', '}', '[', ']':
		ch := l.ch
		l.readChar()
		return l.newToken(token.TokenType(string(ch)), string(ch), start)
	case '"':
		return l.readString(start)
	case '\'':
		return l.readCharLiteral(start)
	case '@':
		l.readChar()
		if !isLetter(l.ch) {
			return l.newToken(token.ILLEGAL, "label name expected after '@'", start)
		}
		return l.newToken(token.ATREF, l.readIdentifier(), start)
	case 0:
		return l.newToken(token.EOF, "", start)
	}

	if isLetter(l.ch) {
		ident := l.readIdentifier()
		typ := token.LookupIdent(ident)
		if typ == token.IDENT && l.ch == '@' && isLetterOrSpace(l.peekChar()) {
			// `outer@ for (...)` declares a label
			l.readChar()
			return l.newToken(token.LABEL, ident, start)
		}
		return l.newToken(typ, ident, start)
	}
	if isDigit(l.ch) {
		lit, typ := l.readNumber()
		return l.newToken(typ, lit, start)
	}

	ch := l.ch
	l.readChar()
	return l.newToken(token.ILLEGAL, "unexpected character '"+string(ch)+"'", start)
}

// readNegatedKeyword handles `!in` and `!is`, which only count as operators
// when the keyword is not a prefix of a longer identifier.
func (l *Lexer) readNegatedKeyword(start token.Pos) (token.Token, bool) {
	second := l.peekTwoChars()
	if second != 'n' && second != 's' {
		return token.Token{}, false
	}
	rest := l.input[l.readPosition:]
	if len(rest) > 2 && (isLetter(rune(rest[2])) || isDigit(rune(rest[2]))) {
		return token.Token{}, false
	}
	l.readChar()
	l.readChar()
	l.readChar()
	if second == 'n' {
		return l.newToken(token.NOT_IN, "!in", start), true
	}
	return l.newToken(token.NOT_IS, "!is", start), true
}

func isLetterOrSpace(ch rune) bool {
	return isLetter(ch) || ch == ' ' || ch == '\t' || ch == '{' || ch == '\n'
}

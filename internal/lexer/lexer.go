// Package lexer implements the single-pass, no-backtracking scanner from
// spec §4.4, adapted from the teacher's byte-at-a-time lexer structure
// (advance/peek, consume-then-classify NextToken) onto the spec's
// JavaScript-like keyword and operator set, with a getToken/retireToken
// one-token-lookahead wrapper (Lexer.GetToken/RetireToken/Next below) in place of the
// teacher's stateless NextToken-only API.
package lexer

import (
	"strings"

	"github.com/cmarrin/m8rscript-sub000/internal/token"
)

// Lexer scans a byte stream into tokens with one-token lookahead.
type Lexer struct {
	input []byte
	pos   int
	line  int
	col   int
	ch    byte

	lookahead *token.Token
}

// New creates a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: []byte(input), line: 1, col: 0}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
	l.pos++
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col}
}

func makeToken(typ token.Type, text string, pos token.Position) token.Token {
	return token.Token{Type: typ, Text: text, Pos: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.advance()
	}
}

// GetToken returns the current lookahead token without consuming it,
// scanning one if none is buffered yet — spec §4.4's `getToken`.
func (l *Lexer) GetToken() token.Token {
	if l.lookahead == nil {
		t := l.scan()
		l.lookahead = &t
	}
	return *l.lookahead
}

// RetireToken discards the buffered lookahead token so the next GetToken
// scans a fresh one — spec §4.4's `retireToken`.
func (l *Lexer) RetireToken() {
	l.lookahead = nil
}

// Next consumes and returns the current token (GetToken followed by
// RetireToken), the common case at call sites that don't need to peek
// twice.
func (l *Lexer) Next() token.Token {
	t := l.GetToken()
	l.RetireToken()
	return t
}

// Line returns the scanner's current line, for diagnostics.
func (l *Lexer) Line() int { return l.line }

func (l *Lexer) scan() token.Token {
	for {
		l.skipWhitespace()
		pos := l.currentPos()
		ch := l.ch
		if ch == 0 {
			return makeToken(token.EOF, "", pos)
		}
		l.advance()

		switch {
		case isIdentStart(ch):
			lit := l.readIdentFromFirst(ch)
			return makeToken(token.LookupIdent(lit), lit, pos)
		case isDigit(ch):
			typ, lit := l.readNumberFromFirst(ch)
			return makeToken(typ, lit, pos)
		case ch == '"' || ch == '\'':
			lit, ok := l.readStringBody(ch)
			if !ok {
				return makeToken(token.ILLEGAL, lit, pos)
			}
			return makeToken(token.STRING, lit, pos)
		case ch == '/':
			switch l.ch {
			case '/':
				l.advance()
				l.skipLineComment()
				continue
			case '*':
				l.advance()
				if !l.skipBlockComment() {
					return makeToken(token.ILLEGAL, "unterminated block comment", pos)
				}
				continue
			case '=':
				l.advance()
				return makeToken(token.SLASHEQ, "/=", pos)
			default:
				return makeToken(token.SLASH, "/", pos)
			}
		case ch == '+':
			switch l.ch {
			case '=':
				l.advance()
				return makeToken(token.PLUSEQ, "+=", pos)
			case '+':
				l.advance()
				return makeToken(token.INC, "++", pos)
			default:
				return makeToken(token.PLUS, "+", pos)
			}
		case ch == '-':
			switch l.ch {
			case '=':
				l.advance()
				return makeToken(token.MINUSEQ, "-=", pos)
			case '-':
				l.advance()
				return makeToken(token.DEC, "--", pos)
			default:
				return makeToken(token.MINUS, "-", pos)
			}
		case ch == '*':
			if l.ch == '=' {
				l.advance()
				return makeToken(token.STAREQ, "*=", pos)
			}
			return makeToken(token.STAR, "*", pos)
		case ch == '%':
			if l.ch == '=' {
				l.advance()
				return makeToken(token.PERCENTEQ, "%=", pos)
			}
			return makeToken(token.PERCENT, "%", pos)
		case ch == '&':
			switch l.ch {
			case '&':
				l.advance()
				return makeToken(token.ANDAND, "&&", pos)
			case '=':
				l.advance()
				return makeToken(token.AMPEQ, "&=", pos)
			default:
				return makeToken(token.AMP, "&", pos)
			}
		case ch == '|':
			switch l.ch {
			case '|':
				l.advance()
				return makeToken(token.OROR, "||", pos)
			case '=':
				l.advance()
				return makeToken(token.PIPEEQ, "|=", pos)
			default:
				return makeToken(token.PIPE, "|", pos)
			}
		case ch == '^':
			if l.ch == '=' {
				l.advance()
				return makeToken(token.CARETEQ, "^=", pos)
			}
			return makeToken(token.CARET, "^", pos)
		case ch == '!':
			if l.ch == '=' {
				l.advance()
				return makeToken(token.NEQ, "!=", pos)
			}
			return makeToken(token.BANG, "!", pos)
		case ch == '=':
			if l.ch == '=' {
				l.advance()
				return makeToken(token.EQ, "==", pos)
			}
			return makeToken(token.ASSIGN, "=", pos)
		case ch == '<':
			switch l.ch {
			case '<':
				l.advance()
				if l.ch == '=' {
					l.advance()
					return makeToken(token.LSHIFTEQ, "<<=", pos)
				}
				return makeToken(token.LSHIFT, "<<", pos)
			case '=':
				l.advance()
				return makeToken(token.LTE, "<=", pos)
			default:
				return makeToken(token.LT, "<", pos)
			}
		case ch == '>':
			switch l.ch {
			case '>':
				l.advance()
				if l.ch == '>' {
					l.advance()
					return makeToken(token.RSHIFTFILL, ">>>", pos)
				}
				if l.ch == '=' {
					l.advance()
					return makeToken(token.RSHIFTEQ, ">>=", pos)
				}
				return makeToken(token.RSHIFT, ">>", pos)
			case '=':
				l.advance()
				return makeToken(token.GTE, ">=", pos)
			default:
				return makeToken(token.GT, ">", pos)
			}
		case ch == '.':
			return makeToken(token.DOT, ".", pos)
		case ch == ':':
			return makeToken(token.COLON, ":", pos)
		case ch == '?':
			return makeToken(token.QUESTION, "?", pos)
		case ch == '~':
			return makeToken(token.TILDE, "~", pos)
		case ch == '(':
			return makeToken(token.LPAREN, "(", pos)
		case ch == ')':
			return makeToken(token.RPAREN, ")", pos)
		case ch == '[':
			return makeToken(token.LBRACKET, "[", pos)
		case ch == ']':
			return makeToken(token.RBRACKET, "]", pos)
		case ch == '{':
			return makeToken(token.LBRACE, "{", pos)
		case ch == '}':
			return makeToken(token.RBRACE, "}", pos)
		case ch == ',':
			return makeToken(token.COMMA, ",", pos)
		case ch == ';':
			return makeToken(token.SEMICOLON, ";", pos)
		}
		return makeToken(token.ILLEGAL, string([]byte{ch}), pos)
	}
}

func (l *Lexer) readIdentFromFirst(first byte) string {
	buf := make([]byte, 1, 16)
	buf[0] = first
	for isIdentContinue(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}
	return string(buf)
}

func (l *Lexer) readNumberFromFirst(first byte) (token.Type, string) {
	buf := make([]byte, 1, 24)
	buf[0] = first

	if first == '0' && (l.ch == 'x' || l.ch == 'X') {
		buf = append(buf, l.ch)
		l.advance()
		for isHexDigit(l.ch) {
			buf = append(buf, l.ch)
			l.advance()
		}
		return token.INTEGER, string(buf)
	}

	for isDigit(l.ch) {
		buf = append(buf, l.ch)
		l.advance()
	}

	isFloat := false
	if l.ch == '.' && isDigit(l.peekByte()) {
		isFloat = true
		buf = append(buf, '.')
		l.advance()
		for isDigit(l.ch) {
			buf = append(buf, l.ch)
			l.advance()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		isFloat = true
		buf = append(buf, l.ch)
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			buf = append(buf, l.ch)
			l.advance()
		}
		for isDigit(l.ch) {
			buf = append(buf, l.ch)
			l.advance()
		}
	}
	if isFloat {
		return token.FLOAT, string(buf)
	}
	return token.INTEGER, string(buf)
}

// readStringBody reads a quoted string's content (the opening quote byte
// has already been consumed), decoding \n \r \t \\ \" \' escapes per spec
// §4.4. Returns the decoded text and false if the string is unterminated.
func (l *Lexer) readStringBody(quote byte) (string, bool) {
	var b strings.Builder
	for {
		switch l.ch {
		case 0, '\n':
			return b.String(), false
		case '\\':
			l.advance()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case 0:
				return b.String(), false
			default:
				b.WriteByte(l.ch)
			}
			l.advance()
		default:
			if l.ch == quote {
				l.advance()
				return b.String(), true
			}
			b.WriteByte(l.ch)
			l.advance()
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.advance()
	}
}

// skipBlockComment reads a /* ... */ comment with no nesting support
// (spec §4.4 explicitly excludes nested block comments). The opening "/*"
// has already been consumed.
func (l *Lexer) skipBlockComment() bool {
	for {
		switch {
		case l.ch == 0:
			return false
		case l.ch == '*' && l.peekByte() == '/':
			l.advance()
			l.advance()
			return true
		default:
			l.advance()
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

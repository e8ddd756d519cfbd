// Package token turns WebAssembly text source into a flat token stream.
package token

import (
	"strings"
	"unicode"
)

// Type classifies a token.
type Type int

const (
	LParen Type = iota
	RParen
	Ident
	String
	Number
)

func (t Type) String() string {
	switch t {
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	}
	return "unknown"
}

// Token is one lexical item together with the line it started on.
type Token struct {
	Value string
	Type  Type
	Line  int
}

// Tokenize scans the whole source in one pass. The scanner itself never
// fails: characters it cannot place are dropped, and the parser reports the
// resulting structural problems with line information.
func Tokenize(input string) []Token {
	lx := lexer{src: []rune(input), line: 1}
	return lx.run()
}

type lexer struct {
	src    []rune
	pos    int
	line   int
	tokens []Token
}

func (l *lexer) run() []Token {
	for l.pos < len(l.src) {
		switch r := l.src[l.pos]; {
		case r == '\n':
			l.line++
			l.pos++
		case unicode.IsSpace(r):
			l.pos++
		case r == ';' && l.peek(1) == ';':
			l.lineComment()
		case r == '(':
			if l.peek(1) == ';' {
				l.blockComment()
			} else {
				l.emit("(", LParen)
				l.pos++
			}
		case r == ')':
			l.emit(")", RParen)
			l.pos++
		case r == '"':
			l.stringLit()
		case r == '-' || r == '+' || unicode.IsDigit(r):
			l.number()
		case r == '$' || r == '_' || r == '.' || unicode.IsLetter(r):
			l.ident()
		default:
			l.pos++
		}
	}
	return l.tokens
}

func (l *lexer) peek(ahead int) rune {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

func (l *lexer) emit(value string, t Type) {
	l.tokens = append(l.tokens, Token{Value: value, Type: t, Line: l.line})
}

func (l *lexer) lineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
	l.pos++
	l.line++
}

// blockComment consumes a (; ... ;) comment, which may nest.
func (l *lexer) blockComment() {
	depth := 1
	l.pos += 2
	for l.pos < len(l.src) && depth > 0 {
		switch {
		case l.src[l.pos] == '(' && l.peek(1) == ';':
			depth++
			l.pos += 2
		case l.src[l.pos] == ';' && l.peek(1) == ')':
			depth--
			l.pos += 2
		default:
			if l.src[l.pos] == '\n' {
				l.line++
			}
			l.pos++
		}
	}
}

// stringLit emits the body of a quoted string with escape sequences left
// intact; the encoder expands them when the bytes matter.
func (l *lexer) stringLit() {
	start := l.pos + 1
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\\' {
			l.pos++
		}
		l.pos++
	}
	l.emit(string(l.src[start:l.pos]), String)
	l.pos++
}

// number scans integer and float literals in every text-format spelling:
// decimal, hex, underscore separators, exponents, and hex floats. A sign
// followed by inf or nan is an identifier, not a number.
func (l *lexer) number() {
	start := l.pos
	r := l.src[l.pos]

	if (r == '-' || r == '+') && l.pos+3 <= len(l.src) {
		end := l.pos + 4
		if end > len(l.src) {
			end = len(l.src)
		}
		rest := string(l.src[l.pos+1 : end])
		if strings.HasPrefix(rest, "inf") || strings.HasPrefix(rest, "nan") {
			l.pos++
			for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || l.src[l.pos] == ':' || unicode.IsDigit(l.src[l.pos])) {
				l.pos++
			}
			l.emit(string(l.src[start:l.pos]), Ident)
			return
		}
	}

	if r == '-' || r == '+' {
		l.pos++
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		signAfterExp := (c == '-' || c == '+') && l.pos > start &&
			(l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E' || l.src[l.pos-1] == 'p' || l.src[l.pos-1] == 'P')
		if unicode.IsDigit(c) || c == '.' || c == '_' ||
			c == 'e' || c == 'E' || c == 'x' || c == 'X' || c == 'p' || c == 'P' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || signAfterExp {
			l.pos++
		} else {
			break
		}
	}
	l.emit(string(l.src[start:l.pos]), Number)
}

// ident covers $names, keywords, instruction mnemonics with dots, and the
// offset=/align= memarg forms.
func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsLetter(c) || unicode.IsDigit(c) ||
			c == '_' || c == '.' || c == '$' || c == '-' || c == ':' || c == '=' {
			l.pos++
		} else {
			break
		}
	}
	l.emit(string(l.src[start:l.pos]), Ident)
}

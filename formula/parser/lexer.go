// Package parser turns formula text into an AST. The grammar is the usual
// spreadsheet one: literals, cell references, ranges, operators by
// precedence, function calls, and member access on dereferenced bases.
//
// Parsing is total in the sense the evaluator needs: a malformed formula
// produces a *ParseError carrying the offending position, which the
// evaluator maps to #NAME? rather than surfacing a Go error to callers.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a lexical or syntactic fault with its byte offset, so
// editors can point at the offending token.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Message)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp      // + - * / ^ & = < <= > >= <>
	tokLParen  // (
	tokRParen  // )
	tokComma   // ,
	tokColon   // :
	tokDot     // .
	tokLBrack  // [
	tokRBrack  // ]
)

type token struct {
	kind tokenKind
	pos  int
	text string  // ident text, operator text, or string payload
	num  float64 // tokNumber payload
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c >= '0' && c <= '9' || c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		return l.lexNumber()
	case c == '"':
		return l.lexString()
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, pos: start, text: l.src[start:l.pos]}, nil
	}

	l.pos++
	switch c {
	case '(':
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		return token{kind: tokRParen, pos: start}, nil
	case ',':
		return token{kind: tokComma, pos: start}, nil
	case ':':
		return token{kind: tokColon, pos: start}, nil
	case '.':
		return token{kind: tokDot, pos: start}, nil
	case '[':
		return token{kind: tokLBrack, pos: start}, nil
	case ']':
		return token{kind: tokRBrack, pos: start}, nil
	case '+', '-', '*', '/', '^', '&', '=':
		return token{kind: tokOp, pos: start, text: string(c)}, nil
	case '<':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, pos: start, text: "<="}, nil
		}
		if l.pos < len(l.src) && l.src[l.pos] == '>' {
			l.pos++
			return token{kind: tokOp, pos: start, text: "<>"}, nil
		}
		return token{kind: tokOp, pos: start, text: "<"}, nil
	case '>':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, pos: start, text: ">="}, nil
		}
		return token{kind: tokOp, pos: start, text: ">"}, nil
	}
	return token{}, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected character %q", string(c))}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &ParseError{Pos: start, Message: fmt.Sprintf("malformed number %q", text)}
	}
	return token{kind: tokNumber, pos: start, num: f}, nil
}

// lexString consumes a double-quoted literal. A doubled quote inside the
// literal escapes to a single quote. The payload is never re-scanned for
// member-access syntax: a literal containing '.' stays verbatim.
func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '"' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '"' {
				sb.WriteByte('"')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, pos: start, text: sb.String()}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, &ParseError{Pos: start, Message: "unterminated string literal"}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

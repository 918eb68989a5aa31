package parser

import (
	"fmt"
	"strings"

	"github.com/teranos/kalc/sheet"
)

// Parse parses formula text into an AST. A leading '=' is accepted and
// skipped. The empty formula parses to nil with no error.
func Parse(src string) (Node, error) {
	src = strings.TrimSpace(src)
	src = strings.TrimPrefix(src, "=")
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &ParseError{Pos: p.tok.pos, Message: "unexpected trailing input"}
	}
	return node, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// Binding strength, loosest first: & < comparison < additive <
// multiplicative < exponent < unary < member access < primary.

func (p *parser) parseConcat() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "&" {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{NodePos: pos, Op: "&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && isComparisonOp(p.tok.text) {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{NodePos: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{NodePos: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		left = &Binary{NodePos: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseExponent() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "^" {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{NodePos: pos, Op: "^", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{NodePos: pos, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary followed by any chain of member accesses.
func (p *parser) parsePostfix() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.tok.kind == tokDot:
			pos := p.tok.pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent {
				return nil, &ParseError{Pos: p.tok.pos, Message: "expected field name after '.'"}
			}
			field := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			base = &Member{NodePos: pos, Base: base, Field: field}
		case p.tok.kind == tokLBrack:
			pos := p.tok.pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokString {
				return nil, &ParseError{Pos: p.tok.pos, Message: `expected string field name inside [ ]`}
			}
			field := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokRBrack {
				return nil, &ParseError{Pos: p.tok.pos, Message: "expected ']'"}
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			base = &Member{NodePos: pos, Base: base, Field: field}
		default:
			return base, nil
		}
	}
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.tok.kind {
	case tokNumber:
		node := &NumberLit{NodePos: p.tok.pos, Value: p.tok.num}
		return node, p.advance()

	case tokString:
		node := &StringLit{NodePos: p.tok.pos, Value: p.tok.text}
		return node, p.advance()

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, &ParseError{Pos: p.tok.pos, Message: "expected ')'"}
		}
		return node, p.advance()

	case tokIdent:
		return p.parseIdent()

	case tokEOF:
		return nil, &ParseError{Pos: p.tok.pos, Message: "unexpected end of formula"}
	}
	return nil, &ParseError{Pos: p.tok.pos, Message: "unexpected token"}
}

// parseIdent disambiguates booleans, function calls, cell references, and
// ranges. An identifier followed by '(' is always a call; otherwise it must
// be TRUE/FALSE or a cell reference.
func (p *parser) parseIdent() (Node, error) {
	name := p.tok.text
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.tok.kind == tokLParen {
		return p.parseCall(name, pos)
	}

	switch strings.ToUpper(name) {
	case "TRUE":
		return &BoolLit{NodePos: pos, Value: true}, nil
	case "FALSE":
		return &BoolLit{NodePos: pos, Value: false}, nil
	}

	addr, err := sheet.ParseAddress(name)
	if err != nil {
		return nil, &ParseError{Pos: pos, Message: fmt.Sprintf("unknown name %q", name)}
	}
	ref := &CellRef{NodePos: pos, Addr: addr, Name: name}

	if p.tok.kind == tokColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent || !sheet.IsRef(p.tok.text) {
			return nil, &ParseError{Pos: p.tok.pos, Message: "expected cell reference after ':'"}
		}
		toAddr, _ := sheet.ParseAddress(p.tok.text)
		to := &CellRef{NodePos: p.tok.pos, Addr: toAddr, Name: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &RangeRef{NodePos: pos, From: ref, To: to}, nil
	}
	return ref, nil
}

func (p *parser) parseCall(name string, pos int) (Node, error) {
	// consume '('
	if err := p.advance(); err != nil {
		return nil, err
	}
	call := &Call{NodePos: pos, Name: name}
	if p.tok.kind == tokRParen {
		return call, p.advance()
	}
	for {
		arg, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.tok.kind {
		case tokComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokRParen:
			return call, p.advance()
		default:
			return nil, &ParseError{Pos: p.tok.pos, Message: "expected ',' or ')' in argument list"}
		}
	}
}

func isComparisonOp(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "=", "<>":
		return true
	}
	return false
}

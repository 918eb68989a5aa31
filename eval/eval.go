package eval

import (
	"math"
	"strings"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/formula/parser"
	"github.com/teranos/kalc/provider"
	"github.com/teranos/kalc/sheet"
)

func (e *Engine) evalNode(node parser.Node, ctx *Context) formula.Value {
	switch n := node.(type) {
	case *parser.NumberLit:
		return formula.Number(n.Value)
	case *parser.StringLit:
		return formula.Str(n.Value)
	case *parser.BoolLit:
		return formula.Boolean(n.Value)
	case *parser.CellRef:
		return e.resolveCell(n.Addr, ctx)
	case *parser.RangeRef:
		// Ranges are only meaningful as direct function arguments.
		return formula.ErrorValue(formula.ErrValue)
	case *parser.Unary:
		return e.evalUnary(n, ctx)
	case *parser.Binary:
		return e.evalBinary(n, ctx)
	case *parser.Member:
		return e.evalMember(n, ctx)
	case *parser.Call:
		return e.evalCall(n, ctx)
	default:
		return formula.ErrorValue(formula.ErrInternal)
	}
}

// resolveCell reads a referenced cell, recording the dependency edge. A
// formula-backed cell is evaluated recursively under the same reentrancy
// guard; a missing cell reads as null.
func (e *Engine) resolveCell(addr sheet.Address, ctx *Context) formula.Value {
	e.graph.Record(ctx.Current, addr)

	cell, ok := ctx.Sheet.Cell(addr)
	if !ok {
		return formula.Null()
	}
	if cell.HasFormula() {
		return e.evaluateAt(cell.Formula, addr, ctx)
	}
	return cell.Value
}

func (e *Engine) evalUnary(n *parser.Unary, ctx *Context) formula.Value {
	v := e.evalNode(n.X, ctx).Deref()
	if v.IsError() {
		return v
	}
	f, ok := asNumber(v)
	if !ok {
		return formula.ErrorValue(formula.ErrValue)
	}
	if n.Op == "-" {
		return formula.Number(-f)
	}
	return formula.Number(f)
}

func (e *Engine) evalBinary(n *parser.Binary, ctx *Context) formula.Value {
	left := e.evalNode(n.Left, ctx).Deref()
	if left.IsError() {
		return left
	}
	right := e.evalNode(n.Right, ctx).Deref()
	if right.IsError() {
		return right
	}

	switch n.Op {
	case "+", "-", "*", "/", "^":
		return evalArithmetic(n.Op, left, right)
	case "&":
		return formula.Str(concatText(left) + concatText(right))
	case "=", "<>", "<", "<=", ">", ">=":
		return evalComparison(n.Op, left, right)
	default:
		return formula.ErrorValue(formula.ErrInternal)
	}
}

func evalArithmetic(op string, left, right formula.Value) formula.Value {
	l, ok := asNumber(left)
	if !ok {
		return formula.ErrorValue(formula.ErrValue)
	}
	r, ok := asNumber(right)
	if !ok {
		return formula.ErrorValue(formula.ErrValue)
	}

	var out float64
	switch op {
	case "+":
		out = l + r
	case "-":
		out = l - r
	case "*":
		out = l * r
	case "/":
		if r == 0 {
			return formula.ErrorValue(formula.ErrDiv0)
		}
		out = l / r
	case "^":
		out = math.Pow(l, r)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return formula.ErrorValue(formula.ErrNum)
	}
	return formula.Number(out)
}

// evalComparison compares kind-first: equality across kinds is false (so
// `<>` is true), ordering across kinds is a type mismatch. Strings compare
// case-insensitively, the spreadsheet convention.
func evalComparison(op string, left, right formula.Value) formula.Value {
	if op == "=" || op == "<>" {
		eq := compareEqual(left, right)
		if op == "<>" {
			eq = !eq
		}
		return formula.Boolean(eq)
	}

	var cmp int
	switch {
	case left.IsNumber() && right.IsNumber():
		switch {
		case left.Num() < right.Num():
			cmp = -1
		case left.Num() > right.Num():
			cmp = 1
		}
	case left.IsString() && right.IsString():
		cmp = strings.Compare(strings.ToLower(left.Text()), strings.ToLower(right.Text()))
	default:
		return formula.ErrorValue(formula.ErrValue)
	}

	switch op {
	case "<":
		return formula.Boolean(cmp < 0)
	case "<=":
		return formula.Boolean(cmp <= 0)
	case ">":
		return formula.Boolean(cmp > 0)
	default:
		return formula.Boolean(cmp >= 0)
	}
}

func compareEqual(left, right formula.Value) bool {
	if left.IsString() && right.IsString() {
		return strings.EqualFold(left.Text(), right.Text())
	}
	return left.Equal(right)
}

// evalMember applies the field-access decision table. The base is evaluated
// first but not dereferenced: entities keep their identity here, since field
// access is the one context where fields are visible.
func (e *Engine) evalMember(n *parser.Member, ctx *Context) formula.Value {
	base := e.evalNode(n.Base, ctx)
	if base.IsError() {
		return base
	}

	switch base.Kind() {
	case formula.KindEntity:
		entity := base.Entity()
		if e.registry.HasProvider(entity.Type()) {
			// Provider takes priority over local fields, including when the
			// provider cannot resolve the id or field (#REF!).
			return e.registry.Value(entity.Type(), provider.EntityID(entity), n.Field, entity)
		}
		if v, ok := entity.Field(n.Field); ok {
			return v
		}
		return formula.ErrorValue(formula.ErrField)
	case formula.KindNull:
		return formula.ErrorValue(formula.ErrRef)
	default:
		// Primitives and arrays have no fields. Chained access on a prior
		// field result lands here too: entities cannot nest, so the
		// intermediate is always a primitive.
		return formula.ErrorValue(formula.ErrValue)
	}
}

// asNumber coerces operator operands: numbers pass through, null counts as
// zero, booleans as 1/0. Strings are a type mismatch.
func asNumber(v formula.Value) (float64, bool) {
	switch v.Kind() {
	case formula.KindNumber:
		return v.Num(), true
	case formula.KindNull:
		return 0, true
	case formula.KindBool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// concatText coerces concatenation operands: null renders empty, numbers and
// booleans render as displayed.
func concatText(v formula.Value) string {
	return v.Format()
}

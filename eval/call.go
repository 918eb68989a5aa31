package eval

import (
	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/formula/parser"
	"github.com/teranos/kalc/sheet"
)

// evalCall dispatches a function invocation. Arguments are evaluated left to
// right; a direct scalar argument that evaluates to an error short-circuits
// the call, while errors inside range expansions travel to the function as
// flagged values (numeric reducers filter them by type).
func (e *Engine) evalCall(n *parser.Call, ctx *Context) formula.Value {
	fn, ok := e.lookupFunc(n.Name)
	if !ok {
		return formula.ErrorValue(formula.ErrName)
	}

	var args []Arg
	for _, argNode := range n.Args {
		if rng, isRange := argNode.(*parser.RangeRef); isRange {
			expanded := e.expandRange(rng, ctx)
			args = append(args, expanded...)
			continue
		}
		v := e.evalNode(argNode, ctx).Deref()
		if v.IsError() {
			return v
		}
		args = append(args, Arg{Value: v})
	}
	return fn(args)
}

// expandRange flattens a range into one Arg per cell, row-major over the
// normalized rectangle. Formula cells are evaluated recursively under the
// current guard; entity cells contribute their display value; array values
// flatten recursively.
func (e *Engine) expandRange(rng *parser.RangeRef, ctx *Context) []Arg {
	r1, c1 := rng.From.Addr.Row, rng.From.Addr.Col
	r2, c2 := rng.To.Addr.Row, rng.To.Addr.Col
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}

	var args []Arg
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			v := e.resolveCell(sheet.Address{Row: row, Col: col}, ctx).Deref()
			args = appendFlat(args, v)
		}
	}
	return args
}

func appendFlat(args []Arg, v formula.Value) []Arg {
	if v.IsArray() {
		for _, item := range v.Items() {
			args = appendFlat(args, item.Deref())
		}
		return args
	}
	return append(args, Arg{Value: v, FromRange: true})
}

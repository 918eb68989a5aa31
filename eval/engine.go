// Package eval implements the formula evaluation core: a synchronous
// recursive evaluator over parsed formula text, the built-in function table,
// dependency-driven recalculation, and the two-phase provider orchestration
// entry point.
package eval

import (
	"strings"
	"sync"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/formula/parser"
	"github.com/teranos/kalc/graph"
	"github.com/teranos/kalc/logger"
	"github.com/teranos/kalc/provider"
	"github.com/teranos/kalc/sheet"
)

// Arg is one evaluated function argument. FromRange marks values produced by
// range expansion: numeric reducers filter those by type, while errors in
// direct scalar positions short-circuit the whole call.
type Arg struct {
	Value     formula.Value
	FromRange bool
}

// Func is a built-in or user-registered formula function. Arguments arrive
// evaluated left to right with ranges flattened; the implementation returns
// a formula value, never a Go error.
type Func func(args []Arg) formula.Value

// Engine owns the mutable evaluation state shared across passes: the
// function table, the provider registry, and the dependency graph. One
// engine serves one worksheet's evaluations; concurrent worksheets take
// independent engines.
type Engine struct {
	mu       sync.RWMutex
	funcs    map[string]Func
	registry *provider.Registry
	graph    *graph.DepGraph
}

// NewEngine returns an engine with the built-in function table, an empty
// provider registry, and an empty dependency graph.
func NewEngine() *Engine {
	e := &Engine{
		funcs:    make(map[string]Func),
		registry: provider.NewRegistry(),
		graph:    graph.New(),
	}
	registerBuiltins(e)
	return e
}

// RegisterFunction installs fn under the given name, case-insensitively,
// replacing any existing registration.
func (e *Engine) RegisterFunction(name string, fn Func) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[strings.ToUpper(name)] = fn
}

// lookupFunc returns the implementation for a function name, if registered.
func (e *Engine) lookupFunc(name string) (Func, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.funcs[strings.ToUpper(name)]
	return fn, ok
}

// Registry exposes the provider registry for provider registration and
// cache seeding.
func (e *Engine) Registry() *provider.Registry { return e.registry }

// Graph exposes the dependency graph for inspection and recalculation.
func (e *Engine) Graph() *graph.DepGraph { return e.graph }

// Context carries the per-call evaluation state: the worksheet being read,
// the cell whose formula is evaluated, and the reentrancy guard. The guard
// is call-local so independent passes cannot trip each other's cycle
// detection.
type Context struct {
	Sheet   sheet.Worksheet
	Current sheet.Address

	guard map[sheet.Address]struct{}
}

// NewContext builds a context for evaluating the formula of current against
// ws.
func NewContext(ws sheet.Worksheet, current sheet.Address) *Context {
	return &Context{Sheet: ws, Current: current}
}

// at returns a context for recursively evaluating the formula held at addr,
// sharing the guard of the current call stack.
func (c *Context) at(addr sheet.Address) *Context {
	return &Context{Sheet: c.Sheet, Current: addr, guard: c.guard}
}

func (c *Context) enter(addr sheet.Address) bool {
	if c.guard == nil {
		c.guard = make(map[sheet.Address]struct{})
	}
	if _, inFlight := c.guard[addr]; inFlight {
		return false
	}
	c.guard[addr] = struct{}{}
	return true
}

func (c *Context) leave(addr sheet.Address) {
	delete(c.guard, addr)
}

// Evaluate parses and evaluates formula text against the context, returning
// the resulting value. Every failure mode is a formula error value; as a
// last resort, an unexpected internal fault is recovered and mapped to
// #ERROR!.
func (e *Engine) Evaluate(formulaText string, ctx *Context) (result formula.Value) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("Evaluation panic recovered",
				"cell", ctx.Current.String(),
				"panic", r,
			)
			result = formula.ErrorValue(formula.ErrInternal)
		}
	}()
	return e.evaluateAt(formulaText, ctx.Current, ctx)
}

// evaluateAt evaluates formula text as the formula of addr: reentrancy is
// checked, stale outgoing edges are cleared, and fresh edges are recorded as
// references are encountered.
func (e *Engine) evaluateAt(formulaText string, addr sheet.Address, ctx *Context) formula.Value {
	if !ctx.enter(addr) {
		return formula.ErrorValue(formula.ErrCirc)
	}
	defer ctx.leave(addr)

	node, err := parser.Parse(formulaText)
	if err != nil {
		logger.Debugw("Formula parse failed",
			"cell", addr.String(),
			"error", err,
		)
		return formula.ErrorValue(formula.ErrName)
	}
	if node == nil {
		return formula.Null()
	}

	e.graph.ClearFrom(addr)
	return e.evalNode(node, ctx.at(addr))
}

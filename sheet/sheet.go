// Package sheet defines the worksheet abstraction the evaluator reads cells
// through, plus an in-memory reference grid. Canvas rendering, file formats,
// and collaborative editing live with the worksheet's real owners; the
// evaluator only ever needs Cell lookup by address.
package sheet

import (
	"sync"

	"github.com/teranos/kalc/formula"
)

// Cell is a single worksheet cell as the evaluator sees it. Value holds the
// stored (or last recalculated) value; Formula, when non-empty, holds the
// formula text that produces it.
type Cell struct {
	Value   formula.Value
	Formula string
}

// HasFormula reports whether the cell is formula-backed.
func (c Cell) HasFormula() bool { return c.Formula != "" }

// Worksheet is the read surface the evaluator consumes. A missing cell is
// reported via ok=false and treated as null by the evaluator.
type Worksheet interface {
	Cell(addr Address) (Cell, bool)
}

// Writer is the write-back surface the recalculation driver uses to persist
// non-error results.
type Writer interface {
	SetValue(addr Address, v formula.Value)
}

// Grid is the in-memory reference worksheet. It is safe for concurrent
// readers; writers must not race evaluation passes (the engine serializes
// its own access, callers serialize theirs).
type Grid struct {
	mu    sync.RWMutex
	cells map[Address]Cell
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{cells: make(map[Address]Cell)}
}

// Cell implements Worksheet.
func (g *Grid) Cell(addr Address) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.cells[addr]
	return c, ok
}

// SetValue stores a value at the address. Formula text, if any, is kept;
// recalculation uses this to write refreshed results back to formula cells.
func (g *Grid) SetValue(addr Address, v formula.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.cells[addr]
	c.Value = v
	g.cells[addr] = c
}

// SetFormula stores formula text at the address. The value is refreshed by
// the next evaluation or recalculation pass.
func (g *Grid) SetFormula(addr Address, formulaText string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := g.cells[addr]
	c.Formula = formulaText
	g.cells[addr] = c
}

// SetEntity stores an entity value at the address.
func (g *Grid) SetEntity(addr Address, e *formula.Entity) {
	g.SetValue(addr, formula.EntityVal(e))
}

// Clear removes the cell at the address entirely.
func (g *Grid) Clear(addr Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cells, addr)
}

// Addresses returns every populated address, in no particular order.
func (g *Grid) Addresses() []Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	addrs := make([]Address, 0, len(g.cells))
	for addr := range g.cells {
		addrs = append(addrs, addr)
	}
	return addrs
}

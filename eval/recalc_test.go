package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/sheet"
)

// prime evaluates every formula cell once so the dependency graph is
// populated, the way a worksheet load pass would.
func prime(e *Engine, grid *sheet.Grid, refs ...string) {
	for _, ref := range refs {
		cell, _ := grid.Cell(addr(ref))
		v := e.Evaluate(cell.Formula, NewContext(grid, addr(ref)))
		if !v.IsError() {
			grid.SetValue(addr(ref), v)
		}
	}
}

func TestRecalculateChain(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))
	grid.SetFormula(addr("B1"), "=A1*2")
	grid.SetFormula(addr("C1"), "=B1+1")
	prime(e, grid, "B1", "C1")

	grid.SetValue(addr("A1"), formula.Number(10))
	order := e.Recalculate(grid, addr("A1"))

	// B1 re-evaluates before C1.
	require.Equal(t, []sheet.Address{addr("B1"), addr("C1")}, order)

	b1, _ := grid.Cell(addr("B1"))
	c1, _ := grid.Cell(addr("C1"))
	assert.Equal(t, formula.Number(20), b1.Value)
	assert.Equal(t, formula.Number(21), c1.Value)
}

func TestRecalculateDiamond(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))
	grid.SetFormula(addr("B1"), "=A1+1")
	grid.SetFormula(addr("C1"), "=A1+2")
	grid.SetFormula(addr("D1"), "=B1+C1")
	prime(e, grid, "B1", "C1", "D1")

	grid.SetValue(addr("A1"), formula.Number(10))
	order := e.Recalculate(grid, addr("A1"))

	require.Len(t, order, 3)
	assert.Equal(t, addr("D1"), order[2])

	d1, _ := grid.Cell(addr("D1"))
	assert.Equal(t, formula.Number(23), d1.Value)
}

func TestRecalculateKeepsErrorsOutOfStoredState(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(2))
	grid.SetFormula(addr("B1"), "=10/A1")
	prime(e, grid, "B1")

	b1, _ := grid.Cell(addr("B1"))
	require.Equal(t, formula.Number(5), b1.Value)

	// A1 becomes zero: B1 now evaluates to #DIV/0!, which must not be
	// written back over the stored value.
	grid.SetValue(addr("A1"), formula.Number(0))
	order := e.Recalculate(grid, addr("A1"))

	assert.Equal(t, []sheet.Address{addr("B1")}, order)
	b1, _ = grid.Cell(addr("B1"))
	assert.Equal(t, formula.Number(5), b1.Value, "stored value must survive an error pass")
}

func TestRecalculateNoDependents(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))

	assert.Empty(t, e.Recalculate(grid, addr("A1")))
}

func TestRecalculateAfterFormulaEdit(t *testing.T) {
	e := NewEngine()
	grid := sheet.NewGrid()
	grid.SetValue(addr("A1"), formula.Number(1))
	grid.SetValue(addr("B1"), formula.Number(100))
	grid.SetFormula(addr("C1"), "=A1+1")
	prime(e, grid, "C1")

	// C1 is edited to read B1 instead of A1.
	grid.SetFormula(addr("C1"), "=B1+1")
	prime(e, grid, "C1")

	// Changing A1 no longer touches C1.
	grid.SetValue(addr("A1"), formula.Number(50))
	assert.Empty(t, e.Recalculate(grid, addr("A1")))

	// Changing B1 does.
	grid.SetValue(addr("B1"), formula.Number(200))
	order := e.Recalculate(grid, addr("B1"))
	require.Equal(t, []sheet.Address{addr("C1")}, order)
	c1, _ := grid.Cell(addr("C1"))
	assert.Equal(t, formula.Number(201), c1.Value)
}

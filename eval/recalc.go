package eval

import (
	"github.com/teranos/kalc/logger"
	"github.com/teranos/kalc/sheet"
)

// ReadWriteSheet is the worksheet surface recalculation needs: cell reads
// plus value write-back.
type ReadWriteSheet interface {
	sheet.Worksheet
	sheet.Writer
}

// Recalculate re-evaluates every formula cell affected by a change to
// changed, in dependency order: a cell runs only after every cell it reads
// has run. Non-error results are written back to the worksheet; error
// results become the evaluated value of the pass but are kept out of the
// stored cell state. The returned addresses, in evaluation order, are the
// caller's invalidation list.
func (e *Engine) Recalculate(ws ReadWriteSheet, changed sheet.Address) []sheet.Address {
	e.registry.ClearCache()

	order := e.graph.RecalcOrder(changed)
	recalculated := make([]sheet.Address, 0, len(order))

	for _, addr := range order {
		cell, ok := ws.Cell(addr)
		if !ok || !cell.HasFormula() {
			continue
		}
		v := e.Evaluate(cell.Formula, NewContext(ws, addr))
		if !v.IsError() {
			ws.SetValue(addr, v)
		} else {
			logger.Debugw("Recalculated cell holds error",
				"cell", addr.String(),
				"error", v.Format(),
			)
		}
		recalculated = append(recalculated, addr)
	}

	if len(recalculated) > 0 {
		logger.Debugw("Recalculation pass complete",
			"changed", changed.String(),
			"cells", len(recalculated),
		)
	}
	return recalculated
}

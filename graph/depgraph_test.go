package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kalc/sheet"
)

func addr(ref string) sheet.Address {
	a, err := sheet.ParseAddress(ref)
	if err != nil {
		panic(err)
	}
	return a
}

func TestRecordAndLookup(t *testing.T) {
	g := New()
	g.Record(addr("C1"), addr("B1"))
	g.Record(addr("C1"), addr("A1"))
	g.Record(addr("B1"), addr("A1"))

	assert.Equal(t, []sheet.Address{addr("A1"), addr("B1")}, g.Dependencies(addr("C1")))
	assert.Equal(t, []sheet.Address{addr("B1"), addr("C1")}, g.Dependents(addr("A1")))

	// Duplicate edges collapse.
	g.Record(addr("C1"), addr("B1"))
	assert.Len(t, g.Dependencies(addr("C1")), 2)
}

func TestClearFromRemovesStaleEdges(t *testing.T) {
	g := New()
	g.Record(addr("C1"), addr("A1"))
	g.Record(addr("C1"), addr("B1"))
	g.Record(addr("D1"), addr("A1"))

	// C1's formula was edited and no longer reads A1 or B1.
	g.ClearFrom(addr("C1"))

	assert.Empty(t, g.Dependencies(addr("C1")))
	assert.Equal(t, []sheet.Address{addr("D1")}, g.Dependents(addr("A1")))
	assert.Empty(t, g.Dependents(addr("B1")))
}

func TestRecalcOrderChain(t *testing.T) {
	// C1 reads B1 reads A1.
	g := New()
	g.Record(addr("B1"), addr("A1"))
	g.Record(addr("C1"), addr("B1"))

	order := g.RecalcOrder(addr("A1"))
	require.Equal(t, []sheet.Address{addr("B1"), addr("C1")}, order)
}

func TestRecalcOrderDiamond(t *testing.T) {
	// D1 reads B1 and C1; both read A1.
	g := New()
	g.Record(addr("B1"), addr("A1"))
	g.Record(addr("C1"), addr("A1"))
	g.Record(addr("D1"), addr("B1"))
	g.Record(addr("D1"), addr("C1"))

	order := g.RecalcOrder(addr("A1"))
	require.Len(t, order, 3)
	assert.Equal(t, addr("D1"), order[2], "joining cell must come after both arms")
	assert.ElementsMatch(t, []sheet.Address{addr("B1"), addr("C1")}, order[:2])
}

func TestRecalcOrderExcludesChangedCell(t *testing.T) {
	g := New()
	g.Record(addr("B1"), addr("A1"))

	order := g.RecalcOrder(addr("A1"))
	assert.NotContains(t, order, addr("A1"))
}

func TestRecalcOrderUnknownCell(t *testing.T) {
	g := New()
	assert.Empty(t, g.RecalcOrder(addr("Q99")))
}

func TestRecalcOrderToleratesCycle(t *testing.T) {
	// A1 and B1 read each other; the scheduler must terminate and emit both.
	g := New()
	g.Record(addr("A1"), addr("B1"))
	g.Record(addr("B1"), addr("A1"))

	order := g.RecalcOrder(addr("A1"))
	assert.ElementsMatch(t, []sheet.Address{addr("B1")}, order)
}

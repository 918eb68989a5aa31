// Package graph tracks which cells a formula reads, supporting reverse
// lookup ("who depends on this cell") and dependency-respecting recompute
// ordering for recalculation.
package graph

import (
	"sort"

	"github.com/teranos/kalc/sheet"
)

// DepGraph holds directed dependent→dependency edges as a pair of adjacency
// maps. Edges for a cell are fully cleared and rebuilt on every re-evaluation
// of that cell, so a formula edit can never leave stale reads behind.
//
// The graph is mutated only by the evaluator's single logical thread of
// control per evaluation pass; concurrent worksheets use independent graphs.
type DepGraph struct {
	forward map[sheet.Address]map[sheet.Address]struct{} // dependent -> cells it reads
	reverse map[sheet.Address]map[sheet.Address]struct{} // dependency -> cells reading it
}

// New returns an empty dependency graph.
func New() *DepGraph {
	return &DepGraph{
		forward: make(map[sheet.Address]map[sheet.Address]struct{}),
		reverse: make(map[sheet.Address]map[sheet.Address]struct{}),
	}
}

// Record adds the edge dependent→dependency. Recording the same edge twice
// is a no-op.
func (g *DepGraph) Record(dependent, dependency sheet.Address) {
	if g.forward[dependent] == nil {
		g.forward[dependent] = make(map[sheet.Address]struct{})
	}
	g.forward[dependent][dependency] = struct{}{}
	if g.reverse[dependency] == nil {
		g.reverse[dependency] = make(map[sheet.Address]struct{})
	}
	g.reverse[dependency][dependent] = struct{}{}
}

// ClearFrom removes every outgoing edge of the dependent. Called at the start
// of each evaluation of that cell, before edges are re-recorded.
func (g *DepGraph) ClearFrom(dependent sheet.Address) {
	for dependency := range g.forward[dependent] {
		delete(g.reverse[dependency], dependent)
		if len(g.reverse[dependency]) == 0 {
			delete(g.reverse, dependency)
		}
	}
	delete(g.forward, dependent)
}

// Dependencies returns the cells the dependent reads, sorted for determinism.
func (g *DepGraph) Dependencies(dependent sheet.Address) []sheet.Address {
	return sortedKeys(g.forward[dependent])
}

// Dependents returns the cells that read the dependency, sorted.
func (g *DepGraph) Dependents(dependency sheet.Address) []sheet.Address {
	return sortedKeys(g.reverse[dependency])
}

// RecalcOrder returns the transitive dependents of changed in an order where
// a cell appears only after every cell it reads (among the affected set) has
// appeared. changed itself is not included.
//
// Implemented as post-order DFS over the dependency relation restricted to
// the affected set; cycles are tolerated here (the visited set breaks them)
// because cycle reporting is the evaluator's job, not the scheduler's.
func (g *DepGraph) RecalcOrder(changed sheet.Address) []sheet.Address {
	affected := make(map[sheet.Address]struct{})
	g.collectDependents(changed, affected)
	delete(affected, changed)

	var order []sheet.Address
	emitted := make(map[sheet.Address]struct{})
	visiting := make(map[sheet.Address]struct{})

	var visit func(addr sheet.Address)
	visit = func(addr sheet.Address) {
		if _, done := emitted[addr]; done {
			return
		}
		if _, inFlight := visiting[addr]; inFlight {
			return
		}
		visiting[addr] = struct{}{}
		for _, dep := range sortedKeys(g.forward[addr]) {
			if _, ok := affected[dep]; ok {
				visit(dep)
			}
		}
		delete(visiting, addr)
		emitted[addr] = struct{}{}
		order = append(order, addr)
	}

	for _, addr := range sortedKeys(affected) {
		visit(addr)
	}
	return order
}

func (g *DepGraph) collectDependents(addr sheet.Address, into map[sheet.Address]struct{}) {
	if _, seen := into[addr]; seen {
		return
	}
	into[addr] = struct{}{}
	for dependent := range g.reverse[addr] {
		g.collectDependents(dependent, into)
	}
}

func sortedKeys(set map[sheet.Address]struct{}) []sheet.Address {
	addrs := make([]sheet.Address, 0, len(set))
	for addr := range set {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Row != addrs[j].Row {
			return addrs[i].Row < addrs[j].Row
		}
		return addrs[i].Col < addrs[j].Col
	})
	return addrs
}

package eval

import (
	"context"

	"github.com/teranos/kalc/errors"
	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/formula/parser"
	"github.com/teranos/kalc/logger"
	"github.com/teranos/kalc/provider"
)

// ScanProviderRefs statically walks the formula for field accesses whose
// base cell holds an entity with a registered provider type, returning the
// unique external refs the formula will need. Cells are read but no formula
// is evaluated and no dependency edges are recorded.
func (e *Engine) ScanProviderRefs(formulaText string, ectx *Context) []provider.Ref {
	node, err := parser.Parse(formulaText)
	if err != nil || node == nil {
		return nil
	}

	var refs []provider.Ref
	seen := make(map[string]struct{})

	parser.Walk(node, func(n parser.Node) bool {
		member, ok := n.(*parser.Member)
		if !ok {
			return true
		}
		cellRef, ok := member.Base.(*parser.CellRef)
		if !ok {
			return true
		}
		cell, ok := ectx.Sheet.Cell(cellRef.Addr)
		if !ok || !cell.Value.IsEntity() {
			return true
		}
		entity := cell.Value.Entity()
		if !e.registry.HasProvider(entity.Type()) {
			return true
		}
		ref := provider.Ref{
			Type:  entity.Type(),
			ID:    provider.EntityID(entity),
			Field: member.Field,
		}
		if _, dup := seen[ref.Key()]; !dup {
			seen[ref.Key()] = struct{}{}
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

// EvaluateWithProviders is the async-aware evaluation entry point: the one
// place suspension is permitted. It scans the formula for required external
// refs, resolves them through the batch resolver, seeds the registry cache
// with the outcomes, and only then runs the fully synchronous evaluator.
//
// Dedup is guaranteed end to end: a ref the formula uses twice reaches the
// resolver once.
//
// The formula value is always returned. A non-nil error reports a resolver
// transport fault (total batch failure); the value is still the evaluation
// result, with every unresolved ref surfacing as #REF!.
func (e *Engine) EvaluateWithProviders(ctx context.Context, formulaText string, ectx *Context, resolver provider.BatchResolver) (formula.Value, error) {
	refs := e.ScanProviderRefs(formulaText, ectx)

	// Fresh pass: resolved values from earlier passes are not guaranteed
	// current.
	e.registry.ClearCache()

	var resolveErr error
	if len(refs) > 0 {
		rctx := provider.NewResolutionContext()
		for _, ref := range refs {
			rctx.MarkPending(ref)
		}

		logger.Debugw("Resolving provider refs",
			"pass", rctx.PassID.String(),
			"refs", len(refs),
		)

		if err := resolver.Resolve(ctx, refs, rctx); err != nil {
			// Total batch failure: settle everything still pending so the
			// synchronous phase sees a uniform #REF! instead of limbo.
			resolveErr = errors.Wrap(err, "provider batch resolution failed")
			logger.Warnw("Provider batch resolution failed",
				"pass", rctx.PassID.String(),
				"error", err,
			)
			for _, ref := range rctx.Pending() {
				rctx.Fail(ref, &provider.ResolutionError{
					Kind:    provider.ErrKindAPIError,
					Message: err.Error(),
				})
			}
		}

		for _, ref := range refs {
			if rv, ok := rctx.Resolved(ref); ok {
				e.registry.SetCachedValue(ref.Type, ref.ID, ref.Field, rv.Value)
				continue
			}
			// Errored or abandoned: field access surfaces it uniformly.
			e.registry.SetCachedValue(ref.Type, ref.ID, ref.Field, formula.ErrorValue(formula.ErrRef))
		}
	}

	return e.Evaluate(formulaText, ectx), resolveErr
}

package provider

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/logger"
)

// BatchResolver fetches a batch of external refs and publishes every outcome
// into the resolution context before returning. Implementations must dedup
// refs by key before issuing any fetch, and must transition each unique ref
// from pending to exactly one of resolved or errored. A ref absent from the
// backing data resolves to a NOT_FOUND error.
//
// Resolve is the only suspension point in the evaluation core; the evaluator
// itself never blocks. A resolver needing bounded latency must enforce its
// own timeout and map it to the TIMEOUT error kind (see TimeoutResolver).
type BatchResolver interface {
	Resolve(ctx context.Context, refs []Ref, rctx *ResolutionContext) error
}

// ResolveOptions tunes a single batch. Currently only the TTL stamped onto
// resolved values.
type ResolveOptions struct {
	TTL time.Duration
}

// Dedup returns refs with duplicate keys removed, preserving first-seen
// order. Shared by resolver implementations.
func Dedup(refs []Ref) []Ref {
	seen := make(map[string]struct{}, len(refs))
	unique := refs[:0:0]
	for _, ref := range refs {
		key := ref.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, ref)
	}
	return unique
}

// StaticResolver is the reference BatchResolver: a fixed map from dedup keys
// to values, an optional artificial delay, and per-key call counting so
// tests can assert dedup without a live backend.
type StaticResolver struct {
	Delay time.Duration
	TTL   time.Duration

	mu    sync.Mutex
	data  map[string]formula.Value
	calls map[string]int
}

// NewStaticResolver wraps the backing data. Keys are dedup keys,
// "type|id|field".
func NewStaticResolver(data map[string]formula.Value) *StaticResolver {
	return &StaticResolver{
		data:  data,
		calls: make(map[string]int),
	}
}

// Resolve implements BatchResolver.
func (s *StaticResolver) Resolve(ctx context.Context, refs []Ref, rctx *ResolutionContext) error {
	unique := Dedup(refs)
	logger.Debugw("Static resolve batch", "refs", len(refs), "unique", len(unique))

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			for _, ref := range unique {
				rctx.Fail(ref, &ResolutionError{Kind: ErrKindTimeout, Message: ctx.Err().Error()})
			}
			return ctx.Err()
		}
	}

	for _, ref := range unique {
		s.mu.Lock()
		s.calls[ref.Key()]++
		value, ok := s.data[ref.Key()]
		s.mu.Unlock()

		if !ok {
			rctx.Fail(ref, &ResolutionError{Kind: ErrKindNotFound})
			continue
		}
		rctx.Resolve(ref, value, s.TTL)
	}
	return nil
}

// Calls returns how many times the ref was fetched across all batches.
func (s *StaticResolver) Calls(ref Ref) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[ref.Key()]
}

// TotalCalls returns the total fetch count across all refs.
func (s *StaticResolver) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

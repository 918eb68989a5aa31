package provider

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/kalc/formula"
)

// ResolvedValue is one settled lookup: the value, when it settled, and an
// optional time-to-live after which it counts as stale.
type ResolvedValue struct {
	Value      formula.Value
	ResolvedAt time.Time
	TTL        time.Duration // 0 = no expiry recorded
}

// ResolutionContext tracks the external lookups of one evaluation pass.
// Every ref is in exactly one of three states: pending, resolved, or errored.
//
// The context is written by a single resolver batch at a time; a resolver may
// fetch with internal concurrency, which is why state transitions take the
// lock. It is not safe for concurrent writers outside the resolver's own
// batch.
type ResolutionContext struct {
	PassID uuid.UUID

	mu       sync.Mutex
	pending  map[string]struct{}
	resolved map[string]ResolvedValue
	errs     map[string]*ResolutionError
}

// NewResolutionContext returns an empty context with a fresh pass ID.
func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{
		PassID:   uuid.New(),
		pending:  make(map[string]struct{}),
		resolved: make(map[string]ResolvedValue),
		errs:     make(map[string]*ResolutionError),
	}
}

// MarkPending registers a ref as awaiting resolution. A ref already settled
// in this pass is left alone.
func (c *ResolutionContext) MarkPending(ref Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := ref.Key()
	if c.settledLocked(key) {
		return
	}
	c.pending[key] = struct{}{}
}

// Resolve transitions a ref from pending to resolved. ttl of 0 records no
// expiry. The first settled outcome for a ref is final: a ref already
// resolved or errored in this pass is left alone, so a straggling resolver
// write cannot flip an outcome the orchestrator has already acted on.
func (c *ResolutionContext) Resolve(ref Ref, value formula.Value, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := ref.Key()
	if c.settledLocked(key) {
		return
	}
	delete(c.pending, key)
	c.resolved[key] = ResolvedValue{Value: value, ResolvedAt: time.Now(), TTL: ttl}
}

// Fail transitions a ref from pending to errored. Like Resolve, the first
// settled outcome is final.
func (c *ResolutionContext) Fail(ref Ref, rerr *ResolutionError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := ref.Key()
	if c.settledLocked(key) {
		return
	}
	delete(c.pending, key)
	c.errs[key] = rerr
}

func (c *ResolutionContext) settledLocked(key string) bool {
	if _, ok := c.resolved[key]; ok {
		return true
	}
	_, ok := c.errs[key]
	return ok
}

// Resolved returns the settled value for the ref, if it resolved.
func (c *ResolutionContext) Resolved(ref Ref) (ResolvedValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rv, ok := c.resolved[ref.Key()]
	return rv, ok
}

// Err returns the resolution error for the ref, if it errored.
func (c *ResolutionContext) Err(ref Ref) (*ResolutionError, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rerr, ok := c.errs[ref.Key()]
	return rerr, ok
}

// IsPending reports whether the ref is still awaiting resolution.
func (c *ResolutionContext) IsPending(ref Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[ref.Key()]
	return ok
}

// Pending returns the refs still awaiting resolution.
func (c *ResolutionContext) Pending() []Ref {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]Ref, 0, len(c.pending))
	for key := range c.pending {
		ref, err := ParseKey(key)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// IsExpired reports whether a resolved value has outlived its TTL at the
// given instant. A ref with no recorded TTL never expires; a ref that never
// resolved is not expired either.
func (c *ResolutionContext) IsExpired(ref Ref, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rv, ok := c.resolved[ref.Key()]
	if !ok || rv.TTL == 0 {
		return false
	}
	return now.Sub(rv.ResolvedAt) > rv.TTL
}

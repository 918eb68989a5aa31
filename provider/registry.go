package provider

import (
	"sort"
	"sync"

	"github.com/teranos/kalc/formula"
	"github.com/teranos/kalc/logger"
)

// Provider supplies field values for one entity type. Lookups are
// synchronous; anything remote goes through the batch resolution protocol
// and reaches the registry as seeded cache entries instead.
type Provider interface {
	// Type returns the entity type this provider serves, e.g. "stock".
	Type() string
	// FieldValue returns the value for (id, field). ok=false means the
	// provider has no match for the id or the field; the registry maps that
	// to #REF!.
	FieldValue(id, field string, entity *formula.Entity) (formula.Value, bool)
}

// Registry dispatches entity field access to registered providers and caches
// outcomes for the duration of one evaluation pass.
//
// Cache lifetime is one pass: callers must ClearCache between independent
// passes, and concurrent evaluations must use independent Registry instances
// or serialize access.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	cache     map[string]formula.Value
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		cache:     make(map[string]formula.Value),
	}
}

// Register installs a provider, replacing any previous provider for the same
// type.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
	logger.Debugw("Provider registered", "type", p.Type())
}

// Unregister removes the provider for the type, if any.
func (r *Registry) Unregister(typ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, typ)
}

// HasProvider reports whether a provider is registered for the type.
func (r *Registry) HasProvider(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[typ]
	return ok
}

// ProviderTypes returns the registered types, sorted.
func (r *Registry) ProviderTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.providers))
	for typ := range r.providers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// ClearCache drops every cached value. Must run once per independent
// evaluation pass; cached values are not guaranteed fresh across passes.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]formula.Value)
}

// SetCachedValue seeds the cache without consulting a provider. The
// orchestrator uses this to publish batch resolution outcomes before the
// synchronous evaluation starts.
func (r *Registry) SetCachedValue(typ, id, field string, v formula.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[cacheKey(typ, id, field)] = v
}

// Value resolves (type, id, field) for the given entity: cache first, then
// provider dispatch. Outcomes, including error values, are cached so
// repeated access within one pass costs one lookup. No provider for the
// type, or a provider miss on id/field, yields #REF!; providers never
// produce #FIELD!, which is reserved for local entity fields.
func (r *Registry) Value(typ, id, field string, entity *formula.Entity) formula.Value {
	key := cacheKey(typ, id, field)

	r.mu.RLock()
	if v, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return v
	}
	p, registered := r.providers[typ]
	r.mu.RUnlock()

	if !registered {
		return formula.ErrorValue(formula.ErrRef)
	}

	v, ok := p.FieldValue(id, field, entity)
	if !ok {
		logger.Debugw("Provider miss", "type", typ, "id", id, "field", field)
		v = formula.ErrorValue(formula.ErrRef)
	}

	r.mu.Lock()
	r.cache[key] = v
	r.mu.Unlock()
	return v
}

// cacheKey is "type:id.field", the registry-internal key shape (distinct
// from the batch dedup key "type|id|field").
func cacheKey(typ, id, field string) string {
	return typ + ":" + id + "." + field
}

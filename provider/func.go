package provider

import "github.com/teranos/kalc/formula"

// FuncProvider adapts a plain function to the Provider interface. A nil Fn
// makes a type-only provider: registered (so field access routes through the
// registry and its seeded cache) but never answering on its own.
type FuncProvider struct {
	ProviderType string
	Fn           func(id, field string, entity *formula.Entity) (formula.Value, bool)
}

// Type implements Provider.
func (p FuncProvider) Type() string { return p.ProviderType }

// FieldValue implements Provider.
func (p FuncProvider) FieldValue(id, field string, entity *formula.Entity) (formula.Value, bool) {
	if p.Fn == nil {
		return formula.Value{}, false
	}
	return p.Fn(id, field, entity)
}

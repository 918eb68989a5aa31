package formula

import (
	"sort"

	"github.com/teranos/kalc/errors"
)

// Entity is a typed, structured cell value: a display projection plus named
// fields. Entities are created through NewEntity and never mutated afterwards;
// the worksheet cell that holds one owns it.
//
// Entities cannot nest: the display value and every field value must be a
// primitive. This is what guarantees that a second chained field access
// always targets a primitive and answers #VALUE!.
type Entity struct {
	typ      string
	display  Value
	fields   map[string]Value
	metadata map[string]interface{}
}

// NewEntity validates and constructs an entity. The display value and every
// field value must be primitive (number, string, boolean, or null).
func NewEntity(typ string, display Value, fields map[string]Value) (*Entity, error) {
	return NewEntityWithMetadata(typ, display, fields, nil)
}

// NewEntityWithMetadata constructs an entity carrying opaque metadata the
// evaluator never inspects (provenance, source timestamps, etc).
func NewEntityWithMetadata(typ string, display Value, fields map[string]Value, metadata map[string]interface{}) (*Entity, error) {
	if typ == "" {
		return nil, errors.New("entity type must not be empty")
	}
	if !display.IsPrimitive() {
		return nil, errors.Newf("entity display must be primitive, got %s", display.Kind())
	}
	copied := make(map[string]Value, len(fields))
	for name, v := range fields {
		if !v.IsPrimitive() {
			return nil, errors.Newf("entity field %q must be primitive, got %s", name, v.Kind())
		}
		copied[name] = v
	}
	return &Entity{typ: typ, display: display, fields: copied, metadata: metadata}, nil
}

// MustEntity is NewEntity for fixtures and tests; it panics on invalid input.
func MustEntity(typ string, display Value, fields map[string]Value) *Entity {
	e, err := NewEntity(typ, display, fields)
	if err != nil {
		panic(err)
	}
	return e
}

// Type returns the entity type tag (e.g. "stock", "currency").
func (e *Entity) Type() string { return e.typ }

// Display returns the primitive an ordinary formula operation observes when
// the entity is referenced without explicit field access.
func (e *Entity) Display() Value { return e.display }

// Field returns the locally stored field value. The second result
// distinguishes an explicitly stored null from an absent field.
func (e *Entity) Field(name string) (Value, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// FieldNames returns the locally stored field names, sorted.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns the opaque metadata map, nil if none was attached.
func (e *Entity) Metadata() map[string]interface{} { return e.metadata }

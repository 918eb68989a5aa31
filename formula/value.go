package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the closed set of formula value variants.
//
// Every evaluation path in the engine produces exactly one of these kinds;
// there is no out-of-band error channel.
type Kind int

const (
	// KindNull is the zero kind, so the zero Value reads as null.
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindError
	KindArray
	KindEntity
)

// String returns the kind name for diagnostics and log fields.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindError:
		return "error"
	case KindArray:
		return "array"
	case KindEntity:
		return "entity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the tagged union flowing through the evaluator.
//
// The zero Value is the null value. Values are immutable by convention:
// nothing in the engine mutates a Value after construction, so they are safe
// to cache and to share between evaluation passes.
type Value struct {
	kind   Kind
	num    float64
	str    string
	b      bool
	code   ErrorCode
	arr    []Value
	entity *Entity
}

// Number constructs a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Str constructs a string value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Boolean constructs a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBool, b: b} }

// Null constructs the null value (empty cell, missing reference target).
func Null() Value { return Value{kind: KindNull} }

// Array constructs an array value. Arrays appear only as flattened range
// expansions inside function argument lists.
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// EntityVal wraps an entity so it can travel through the evaluator as a
// first-class operand. The entity's display projection is what ordinary
// operators observe.
func EntityVal(e *Entity) Value { return Value{kind: KindEntity, entity: e} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsError() bool  { return v.kind == KindError }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsEntity() bool { return v.kind == KindEntity }

// Num returns the numeric payload. Only meaningful when IsNumber.
func (v Value) Num() float64 { return v.num }

// Text returns the string payload. Only meaningful when IsString.
func (v Value) Text() string { return v.str }

// Bool returns the boolean payload. Only meaningful when IsBool.
func (v Value) Bool() bool { return v.b }

// Items returns the array payload. Only meaningful when IsArray.
func (v Value) Items() []Value { return v.arr }

// Entity returns the entity payload, nil unless IsEntity.
func (v Value) Entity() *Entity { return v.entity }

// IsPrimitive reports whether v is one of the four primitive kinds an entity
// may carry as display or field values.
func (v Value) IsPrimitive() bool {
	switch v.kind {
	case KindNumber, KindString, KindBool, KindNull:
		return true
	default:
		return false
	}
}

// Deref projects v for ordinary (non-field-access) operator positions: an
// entity contributes its display value, everything else passes through.
func (v Value) Deref() Value {
	if v.kind == KindEntity && v.entity != nil {
		return v.entity.Display()
	}
	return v
}

// Equal reports deep equality. Used by tests and by the `=` operator for
// same-kind operands.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindNull:
		return true
	case KindError:
		return v.code == o.code
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindEntity:
		return v.entity == o.entity
	default:
		return false
	}
}

// Format renders the value as it would appear in a cell. Numbers use the
// shortest round-trip representation, booleans render uppercase, null renders
// empty, errors render their code.
func (v Value) Format() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindNull:
		return ""
	case KindError:
		return string(v.code)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.Format()
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindEntity:
		if v.entity == nil {
			return ""
		}
		return v.entity.Display().Format()
	default:
		return ""
	}
}

// String implements fmt.Stringer for log fields and test failure output.
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	if v.kind == KindEntity && v.entity != nil {
		return fmt.Sprintf("entity(%s: %s)", v.entity.Type(), v.entity.Display().Format())
	}
	return v.Format()
}

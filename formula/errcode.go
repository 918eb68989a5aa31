package formula

// ErrorCode is the closed set of spreadsheet error codes. Evaluation never
// raises a Go error for formula-level failures; it produces one of these as
// the cell's value.
type ErrorCode string

const (
	// ErrValue signals a type mismatch: a non-numeric operand to a numeric
	// operator, a bare range outside a function argument, or field access on
	// a primitive base.
	ErrValue ErrorCode = "#VALUE!"
	// ErrRef signals a missing target: a null/empty cell used as a field
	// access base, or a provider that could not resolve an id or field.
	ErrRef ErrorCode = "#REF!"
	// ErrField signals a local entity field name that does not exist. Never
	// produced by provider-backed lookups.
	ErrField ErrorCode = "#FIELD!"
	// ErrDiv0 signals division by zero.
	ErrDiv0 ErrorCode = "#DIV/0!"
	// ErrName signals an unknown function name or a malformed token.
	ErrName ErrorCode = "#NAME?"
	// ErrCirc signals reentrant evaluation of a cell within one call stack.
	ErrCirc ErrorCode = "#CIRC!"
	// ErrNA signals a function-specific "no result" condition.
	ErrNA ErrorCode = "#N/A"
	// ErrNum signals a numeric domain error (e.g. SQRT of a negative).
	ErrNum ErrorCode = "#NUM!"
	// ErrInternal is the last-resort mapping for unexpected internal faults
	// recovered at the evaluation boundary.
	ErrInternal ErrorCode = "#ERROR!"
)

// ErrorValue wraps an error code as a formula value.
func ErrorValue(code ErrorCode) Value { return Value{kind: KindError, code: code} }

// Code returns the error code. Only meaningful when IsError.
func (v Value) Code() ErrorCode { return v.code }

// IsErrorCode reports whether v holds exactly the given code.
func (v Value) IsErrorCode(code ErrorCode) bool {
	return v.kind == KindError && v.code == code
}

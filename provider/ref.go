// Package provider implements pluggable external data sources for entity
// field access: a synchronous registry + per-pass cache consulted by the
// evaluator, and an asynchronous batch resolution protocol (dedup, TTL,
// error mapping) used by the orchestrator before evaluation begins.
package provider

import (
	"fmt"
	"strings"
)

// Ref identifies one external field lookup.
type Ref struct {
	Type  string
	ID    string
	Field string
}

// Key returns the dedup key "type|id|field". Two refs with equal keys are
// the same lookup and must trigger at most one fetch per batch.
func (r Ref) Key() string {
	return r.Type + "|" + r.ID + "|" + r.Field
}

// ParseKey inverts Key. Resolver backing maps are keyed this way.
func ParseKey(key string) (Ref, error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return Ref{}, fmt.Errorf("malformed ref key %q", key)
	}
	return Ref{Type: parts[0], ID: parts[1], Field: parts[2]}, nil
}

// String renders the ref for log fields.
func (r Ref) String() string { return r.Key() }

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	ErrKindNotFound     ErrorKind = "NOT_FOUND"
	ErrKindUnknownField ErrorKind = "UNKNOWN_FIELD"
	ErrKindNetwork      ErrorKind = "NETWORK"
	ErrKindTimeout      ErrorKind = "TIMEOUT"
	ErrKindRateLimit    ErrorKind = "RATE_LIMIT"
	ErrKindAPIError     ErrorKind = "API_ERROR"
)

// ResolutionError describes why a ref could not be resolved.
type ResolutionError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
}

func (e *ResolutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

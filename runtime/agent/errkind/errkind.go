// Package errkind defines the typed, cross-component error used everywhere in
// the runtime instead of ad-hoc error strings or panics. Every public
// operation returns this type (wrapped in a result or as the second return
// value) rather than throwing: callers branch on Kind the same way they would
// switch on a Goa ServiceError kind.
package errkind

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories the core runtime surfaces. Kinds are
// stable and meant to be branched on; Message is for humans.
type Kind string

const (
	// Validation reports bad input or a schema violation (tool payload, output schema).
	Validation Kind = "validation"
	// NotFound reports a missing run state or missing manifest.
	NotFound Kind = "not_found"
	// BadRequest reports an invalid state transition, an approvalId mismatch, or
	// a malformed manifest graph.
	BadRequest Kind = "bad_request"
	// Unauthorized reports a missing or invalid caller identity. Opaque to the core;
	// callers at the boundary decide when to produce it.
	Unauthorized Kind = "unauthorized"
	// Forbidden reports an authenticated caller lacking permission. Opaque to the core.
	Forbidden Kind = "forbidden"
	// Conflict reports that a run is already in flight (lock not acquired).
	Conflict Kind = "conflict"
	// Timeout reports the active-execution budget was exceeded.
	Timeout Kind = "timeout"
	// Cancelled reports a run terminated because of a cooperative cancellation signal.
	Cancelled Kind = "cancelled"
	// InternalServer reports a tool execution exception, LLM provider failure, or
	// cache/storage IO error.
	InternalServer Kind = "internal"
)

// Error is the structured error value returned across every component
// boundary in the runtime. It satisfies errors.Is/errors.As via Unwrap so
// standard library error handling keeps working.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]any
	Cause    error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that chains an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithMeta attaches structured metadata (e.g. offending manifest ids) and
// returns the same error for chaining at the construction site.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any, 1)
	}
	e.Metadata[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target carries the same Kind, allowing
// errors.Is(err, errkind.New(errkind.NotFound, "")) style checks when callers
// only care about the category.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Message == "" || other.Kind == e.Kind
}

// KindOf extracts the Kind from err, defaulting to InternalServer for
// errors that were never classified (unexpected panics recovered at the
// boundary, third-party errors that escaped a component).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return InternalServer
}

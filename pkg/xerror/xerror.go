// Package xerror defines the error taxonomy shared by the ocrdesk core.
//
// Every error surfaced by the core carries a Kind so callers can decide
// between recovering locally and reporting to the user. Recoverable kinds
// (BackendFailure, InvalidRegion) are logged and swallowed inside the core;
// the rest propagate.
package xerror

import (
	"errors"
	"fmt"
)

// Kind categorizes an error.
type Kind string

const (
	KindInputMissing       Kind = "input_missing"
	KindInvalidRegion      Kind = "invalid_region"
	KindIndexOutOfRange    Kind = "index_out_of_range"
	KindDuplicate          Kind = "duplicate"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindBackendFailure     Kind = "backend_failure"
	KindIO                 Kind = "io"
	KindExport             Kind = "export"
)

// Error is a structured core error with a kind, an optional entity identifier
// (page order, box id) and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Entity  string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Entity, e.Cause)
	case e.Entity != "":
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Entity)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithEntity attaches an entity identifier and returns the error.
func (e *Error) WithEntity(entity string) *Error {
	e.Entity = entity
	return e
}

// IsKind reports whether err (or anything it wraps) is a core error of kind k.
func IsKind(err error, k Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// Recoverable reports whether the core recovers from err locally instead of
// surfacing it to the caller.
func Recoverable(err error) bool {
	return IsKind(err, KindBackendFailure) || IsKind(err, KindInvalidRegion)
}

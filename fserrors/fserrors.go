// Package fserrors defines the typed error taxonomy shared across the
// engine: cancellation, query validation, I/O, and integrity failures.
package fserrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the engine's callers
// need to branch on.
type Kind int

const (
	// Cancelled means the operation's token was superseded; never logged
	// as an error.
	Cancelled Kind = iota
	// QuerySyntax means the query string could not be parsed.
	QuerySyntax
	// UnsupportedFilter means the parser accepted a filter the evaluator
	// does not implement.
	UnsupportedFilter
	// RegexInvalid means a regex: filter's pattern failed to compile.
	RegexInvalid
	// IoFailure means a persistent (non-transient) I/O error.
	IoFailure
	// IntegrityFailure means an invariant check failed; callers must
	// rebuild the cache.
	IntegrityFailure
)

func (k Kind) String() string {
	switch k {
	case Cancelled:
		return "Cancelled"
	case QuerySyntax:
		return "QuerySyntax"
	case UnsupportedFilter:
		return "UnsupportedFilter"
	case RegexInvalid:
		return "RegexInvalid"
	case IoFailure:
		return "IoFailure"
	case IntegrityFailure:
		return "IntegrityFailure"
	default:
		return "Unknown"
	}
}

// Error is a typed error carrying a Kind and, where available, a byte
// offset into the source the error refers to (queries).
type Error struct {
	Kind   Kind
	Msg    string
	Offset int // -1 if not applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no byte offset.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Offset: -1}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// At builds an *Error carrying a byte offset into the query string.
func At(kind Kind, offset int, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Offset: offset}
}

// Atf is At with formatting.
func Atf(kind Kind, offset int, format string, args ...interface{}) *Error {
	return At(kind, offset, fmt.Sprintf(format, args...))
}

// Wrap attaches a Kind to an underlying error.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: err.Error(), Offset: -1, Err: err}
}

// ErrCancelled is the sentinel returned by long operations whose token has
// been superseded.
var ErrCancelled = New(Cancelled, "operation cancelled")

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

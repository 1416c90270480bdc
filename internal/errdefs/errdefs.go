// Package errdefs defines the typed errors shared across the service.
// Units of work classify their failures with a Kind so the job runner
// and the HTTP layer can react without string matching.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// NotFound marks an expected persisted file or artifact that is absent.
	NotFound Kind = iota
	// Validation marks malformed input: missing columns, empty datasets,
	// out-of-range parameters.
	Validation
	// UpstreamFetch marks an unreachable external source or a malformed
	// upstream response.
	UpstreamFetch
	// Render marks a failure inside the chart rendering path.
	Render
	// Analysis marks a sentiment analysis failure (model call or protocol).
	Analysis
	// Persistence marks a local storage failure (CSV write, sqlite).
	Persistence
	// Internal marks everything else, including recovered panics.
	Internal
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Validation:
		return "Validation"
	case UpstreamFetch:
		return "UpstreamFetch"
	case Render:
		return "Render"
	case Analysis:
		return "Analysis"
	case Persistence:
		return "Persistence"
	case Internal:
		return "Internal"
	default:
		return "Internal"
	}
}

// Error carries a Kind, a human-readable message, optional key/value
// context, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind and message to an existing error, preserving it
// as the cause for errors.Is/As traversal.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
		Cause:   err,
	}
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message)}

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsKind reports whether any error in the chain is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in the chain, or Internal
// when the chain carries no typed error.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return Internal
}

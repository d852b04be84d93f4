// Package gcperr defines the single error type surfaced across the gcp
// engine. The core never returns rich per-call error codes; every failure
// carries a Kind (for callers that want to branch on category) and a
// human-readable message, wrapped with github.com/pkg/errors so a stack
// trace survives up to the CLI's top-level handler.
package gcperr

import "github.com/pkg/errors"

// Kind classifies the failure so callers can distinguish "this call was
// never going to work" (ShapeMismatch, UnsupportedConfig, InvalidArgument)
// from a numerical condition that may be locally recoverable
// (NumericalFailure).
type Kind int

const (
	// ShapeMismatch: a factor matrix's row count disagrees with the
	// corresponding tensor dimension, or a Ktensor fails isConsistent.
	ShapeMismatch Kind = iota
	// UnsupportedConfig: Single/Duplicated requested on a GPU backend,
	// Perm requested without a built permutation, unknown loss/sampler.
	UnsupportedConfig
	// NumericalFailure: divide-by-zero in inverse column scale, or a
	// non-SPD Cholesky factorization (the latter is usually recovered
	// locally by falling back to the indefinite solver).
	NumericalFailure
	// InvalidArgument: a CLI argument failed validation.
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case ShapeMismatch:
		return "shape mismatch"
	case UnsupportedConfig:
		return "unsupported configuration"
	case NumericalFailure:
		return "numerical failure"
	case InvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// Error is the sole exception type raised by the engine.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Kind.String() + ": " + e.msg + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.msg
}

// Unwrap allows errors.Is/errors.As (both stdlib and pkg/errors flavors)
// to see through to an underlying cause.
func (e *Error) Unwrap() error { return e.err }

// New builds a new Error of the given kind, with a stack trace attached.
func New(kind Kind, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg})
}

// Wrap attaches kind and msg to an existing error, preserving its stack
// if it already carries one.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return New(kind, msg)
	}
	return errors.WithStack(&Error{Kind: kind, msg: msg, err: cause})
}

// Is reports whether err is a gcperr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

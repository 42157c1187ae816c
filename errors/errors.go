package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skryldev/gltf-importer/validation"
)

// Kind classifies every failure the importer can report. The set is closed:
// no stage returns an error outside of it.
type Kind string

const (
	KindDecode               Kind = "decode"
	KindExtensionDisabled    Kind = "extension_disabled"
	KindExtensionUnsupported Kind = "extension_unsupported"
	KindIncompatibleVersion  Kind = "incompatible_version"
	KindIo                   Kind = "io"
	KindMalformedGlb         Kind = "malformed_glb"
	KindMalformedJSON        Kind = "malformed_json"
	KindShared               Kind = "shared"
	KindSource               Kind = "source"
	KindValidation           Kind = "validation"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	KindDecode,
	KindExtensionDisabled,
	KindExtensionUnsupported,
	KindIncompatibleVersion,
	KindIo,
	KindMalformedGlb,
	KindMalformedJSON,
	KindShared,
	KindSource,
	KindValidation,
}

// Description returns the short human-readable text for k.
func (k Kind) Description() string {
	switch k {
	case KindDecode:
		return "image decoding failed"
	case KindExtensionDisabled:
		return "asset requires a disabled extension"
	case KindExtensionUnsupported:
		return "asset requires an unsupported extension"
	case KindIncompatibleVersion:
		return "asset is not glTF version 2.0"
	case KindIo:
		return "I/O error"
	case KindMalformedGlb:
		return "malformed .glb file"
	case KindMalformedJSON:
		return "malformed .gltf / .glb JSON"
	case KindShared:
		return "shared error"
	case KindSource:
		return "data source error"
	case KindValidation:
		return "asset failed validation tests"
	}
	return "unknown error"
}

// ImportError is the structured error type returned by every import stage.
type ImportError struct {
	Kind Kind
	Op   string // operation name
	Err  error

	// Violations is populated for KindValidation only, in report order.
	Violations []validation.Violation
}

func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Kind)
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Description())
	switch {
	case len(e.Violations) > 0:
		fmt.Fprintf(&b, " (%d violations): ", len(e.Violations))
		for i, v := range e.Violations {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(v.String())
		}
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ImportError) Unwrap() error { return e.Err }

// Description returns the fixed description of the error's kind.
func (e *ImportError) Description() string { return e.Kind.Description() }

// Cause returns the wrapped error for the kinds that chain one (Io,
// MalformedJSON and Source) and nil for all others.
func (e *ImportError) Cause() error {
	switch e.Kind {
	case KindIo, KindMalformedJSON, KindSource:
		return e.Err
	}
	return nil
}

// New creates an ImportError.
func New(kind Kind, op string, err error) *ImportError {
	return &ImportError{Kind: kind, Op: op, Err: err}
}

// Wrap wraps err with context. A nil err stays nil and an err that already
// is an *ImportError is returned unchanged so its kind is preserved.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return err
	}
	return New(kind, op, err)
}

// Validation creates a KindValidation error carrying violations.
func Validation(op string, violations []validation.Violation) *ImportError {
	return &ImportError{Kind: KindValidation, Op: op, Violations: violations}
}

// Violation is a shorthand for a validation error with a single violation.
func Violation(op string, path validation.Path, kind validation.Kind, format string, args ...any) *ImportError {
	return Validation(op, []validation.Violation{{
		Path:    path,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}})
}

// Shared wraps err in the envelope used when an error is delivered through
// a shared fetch to any number of waiters.
func Shared(op string, err error) *ImportError {
	return &ImportError{Kind: KindShared, Op: op, Err: err}
}

// Unshare strips a Shared envelope whose cause is itself an *ImportError, so
// the original kind is what callers observe. Other errors are returned as is.
func Unshare(err error) error {
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Kind != KindShared {
		return err
	}
	var inner *ImportError
	if errors.As(ie.Err, &inner) {
		return inner
	}
	return err
}

// KindOf returns the kind of the outermost *ImportError in err's chain.
func KindOf(err error) (Kind, bool) {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

// IsKind reports whether any *ImportError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var ie *ImportError
		if !errors.As(err, &ie) {
			return false
		}
		if ie.Kind == kind {
			return true
		}
		err = ie.Err
	}
	return false
}

// ViolationsOf returns the violations carried by a validation error in err's chain.
func ViolationsOf(err error) []validation.Violation {
	var ie *ImportError
	if errors.As(err, &ie) && ie.Kind == KindValidation {
		return ie.Violations
	}
	return nil
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyInput        = errors.New("empty input")
	ErrWorkerPoolFull    = errors.New("worker pool queue full")
	ErrNotFound          = errors.New("resource not found")
	ErrResourceTooLarge  = errors.New("resource too large")
	ErrInvalidURI        = errors.New("invalid uri")
)

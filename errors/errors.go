package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // argument and handle validation
	PhaseEngine   Phase = "engine"   // native engine operation
	PhaseCallback Phase = "callback" // callback bridge
	PhaseResolve  Phase = "resolve"  // native module resolution
	PhaseLoad     Phase = "load"     // native module loading
	PhaseTeardown Phase = "teardown" // session destruction
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle Kind = "invalid_handle"
	KindNilArgument   Kind = "nil_argument"
	KindEmptyArray    Kind = "empty_array"
	KindEngineFault   Kind = "engine_fault"
	KindNotFound      Kind = "not_found"
	KindClosed        Kind = "closed"
	KindInvalidInput  Kind = "invalid_input"
	KindUnsupported   Kind = "unsupported"
	KindBadState      Kind = "bad_state"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap supports errors.Is/As chains
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Phase and Kind so sentinel comparisons work:
//
//	errors.Is(err, &Error{Phase: PhaseValidate, Kind: KindInvalidHandle})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return true
}

// New creates a structured error
func New(phase Phase, kind Kind, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// Newf creates a structured error with a formatted detail message
func Newf(phase Phase, kind Kind, format string, args ...any) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates a structured error with a cause
func Wrap(phase Phase, kind Kind, detail string, cause error) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail, Cause: cause}
}

// InvalidHandle reports a handle that was not minted by this session's
// allocator (or is zero, or belongs to a different resource kind).
// The message always contains "invalid" so callers can match on it.
func InvalidHandle(kind string, handle uint64) *Error {
	return Newf(PhaseValidate, KindInvalidHandle, "invalid %s handle %d", kind, handle)
}

// NilArgument reports a required argument that was nil
func NilArgument(name string) *Error {
	return Newf(PhaseValidate, KindNilArgument, "required argument %q is nil", name)
}

// EmptyArray reports a zero-length array where at least one element is required
func EmptyArray(name string) *Error {
	return Newf(PhaseValidate, KindEmptyArray, "array %q must have at least one element", name)
}

// EngineFault reports an engine-side rejection of a boundary operation
func EngineFault(op string, cause error) *Error {
	return Wrap(PhaseEngine, KindEngineFault, op+" failed", cause)
}

// Closed reports an operation attempted on a released object
func Closed(what string) *Error {
	return Newf(PhaseValidate, KindClosed, "%s is closed", what)
}

// NotFound reports a missing resource or file
func NotFound(phase Phase, detail string) *Error {
	return New(phase, KindNotFound, detail)
}

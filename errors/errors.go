package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // HAT file parsing
	PhaseSchema  Phase = "schema"  // schema validation
	PhaseLoad    Phase = "load"    // library/symbol loading
	PhaseResolve Phase = "resolve" // shape and size resolution
	PhaseBind    Phase = "bind"    // argument binding
	PhaseInvoke  Phase = "invoke"  // native invocation
	PhaseBench   Phase = "bench"   // benchmark session
	PhaseVerify  Phase = "verify"  // package verification
)

// Kind categorizes the error
type Kind string

const (
	KindUnresolvedSizeReference Kind = "unresolved_size_reference"
	KindInvalidSizeExpression   Kind = "invalid_size_expression"
	KindShapeMismatch           Kind = "shape_mismatch"
	KindUnspecifiedOwnership    Kind = "unspecified_ownership"
	KindInvalidData             Kind = "invalid_data"
	KindInvalidInput            Kind = "invalid_input"
	KindUnsupported             Kind = "unsupported"
	KindNotFound                Kind = "not_found"
	KindNotInitialized          Kind = "not_initialized"
	KindFieldMissing            Kind = "field_missing"
	KindAllocation              Kind = "allocation"
	KindIncomplete              Kind = "incomplete"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	Param    string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" || e.Param != "" {
		b.WriteString(" at ")
		if e.Function != "" {
			b.WriteString(e.Function)
			if e.Param != "" {
				b.WriteByte('.')
			}
		}
		b.WriteString(e.Param)
	}

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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Function sets the function name
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// Param sets the offending parameter name
func (b *Builder) Param(name string) *Builder {
	b.err.Param = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnresolvedSizeReference reports a size expression identifier that is not
// bound at the point of resolution.
func UnresolvedSizeReference(param, ident string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnresolvedSizeReference,
		Param:  param,
		Detail: fmt.Sprintf("size expression references %q, which is not bound yet", ident),
		Value:  ident,
	}
}

// InvalidSizeExpression reports a size expression that fails to parse or
// evaluates to an unusable value.
func InvalidSizeExpression(param, expr, reason string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidSizeExpression,
		Param:  param,
		Detail: fmt.Sprintf("size expression %q: %s", expr, reason),
		Value:  expr,
	}
}

// ShapeMismatch reports a supplied buffer whose element count does not match
// the resolved shape.
func ShapeMismatch(param string, want, got int64) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindShapeMismatch,
		Param:  param,
		Detail: fmt.Sprintf("expected %d elements but received %d", want, got),
		Value:  got,
	}
}

// UnspecifiedOwnership reports a callee-allocated output with no declared
// deallocation convention.
func UnspecifiedOwnership(function, param string) *Error {
	return &Error{
		Phase:    PhaseBind,
		Kind:     KindUnspecifiedOwnership,
		Function: function,
		Param:    param,
		Detail:   "package declares no deallocation function for callee-allocated output",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates a not-initialized error for a missing collaborator
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// FieldMissing creates a missing table entry error
func FieldMissing(phase Phase, table, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Detail: fmt.Sprintf("required entry %q not found in table %q", fieldName, table),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Incomplete tags a result gathered before a session ended early.
func Incomplete(function string, cause error) *Error {
	return &Error{
		Phase:    PhaseBench,
		Kind:     KindIncomplete,
		Function: function,
		Detail:   "session ended before both stopping conditions were satisfied",
		Cause:    cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

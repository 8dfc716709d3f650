// Package errors provides structured error types for the hat library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type carries the offending function and
// parameter names so a diagnostic always identifies which declared argument
// violated which constraint.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBind, errors.KindShapeMismatch).
//		Function("gemm").
//		Param("A").
//		Detail("expected 4096 elements but received 16").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ShapeMismatch("A", 4096, 16)
//	err := errors.UnresolvedSizeReference("out", "K")
//
// All errors implement the standard error interface and support
// errors.Is/As. Two *Error values match under errors.Is when their Phase and
// Kind agree, so callers can test for a category without constructing the
// full diagnostic:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindUnresolvedSizeReference}) {
//	    ...
//	}
package errors

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseBind,
				Kind:     KindShapeMismatch,
				Function: "gemm",
				Param:    "A",
				Detail:   "expected 4096 elements but received 16",
			},
			contains: []string{"[bind]", "shape_mismatch", "gemm.A", "4096", "16"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindUnresolvedSizeReference,
			},
			contains: []string{"[resolve]", "unresolved_size_reference"},
		},
		{
			name: "param without function",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindInvalidSizeExpression,
				Param: "out",
			},
			contains: []string{"[resolve]", "invalid_size_expression", "at out"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "open library",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "open library", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseBind,
		Kind:  KindShapeMismatch,
		Param: "A",
	}

	// Same phase and kind
	if !err.Is(&Error{Phase: PhaseBind, Kind: KindShapeMismatch}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindShapeMismatch}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhaseBind, Kind: KindUnspecifiedOwnership}) {
		t.Error("Is should not match different kind")
	}

	// errors.Is integration
	if !errors.Is(err, &Error{Phase: PhaseBind, Kind: KindShapeMismatch}) {
		t.Error("errors.Is should match same phase and kind")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("parse failed")
	err := New(PhaseResolve, KindInvalidSizeExpression).
		Function("range").
		Param("output").
		Value("(limit-start)/delta").
		Cause(cause).
		Detail("division by %s", "zero").
		Build()

	if err.Phase != PhaseResolve || err.Kind != KindInvalidSizeExpression {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Function != "range" || err.Param != "output" {
		t.Errorf("unexpected function/param: %s/%s", err.Function, err.Param)
	}
	if err.Detail != "division by zero" {
		t.Errorf("unexpected detail: %q", err.Detail)
	}
	if !errors.Is(err, err) {
		t.Error("builder error should match itself")
	}
	if err.Unwrap() != cause {
		t.Error("builder did not preserve cause")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err      *Error
		phase    Phase
		kind     Kind
		contains string
	}{
		{UnresolvedSizeReference("out", "K"), PhaseResolve, KindUnresolvedSizeReference, `"K"`},
		{InvalidSizeExpression("out", "a */ b", "parse error"), PhaseResolve, KindInvalidSizeExpression, "a */ b"},
		{ShapeMismatch("A", 4096, 16), PhaseBind, KindShapeMismatch, "4096"},
		{UnspecifiedOwnership("range", "output"), PhaseBind, KindUnspecifiedOwnership, "deallocation"},
		{Unsupported(PhaseInvoke, "devicecall"), PhaseInvoke, KindUnsupported, "devicecall"},
		{NotFound(PhaseLoad, "function", "gemm"), PhaseLoad, KindNotFound, `"gemm"`},
		{FieldMissing(PhaseParse, "functions", "name"), PhaseParse, KindFieldMissing, `"name"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase = %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

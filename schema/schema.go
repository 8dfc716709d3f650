package schema

import (
	"strings"

	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/sizeexpr"
)

// LogicalType classifies how a parameter's buffer is described.
type LogicalType string

const (
	AffineArray  LogicalType = "affine_array"
	RuntimeArray LogicalType = "runtime_array"
	Element      LogicalType = "element"
	Void         LogicalType = "void"
)

// UsageType declares the data-flow direction of a parameter.
type UsageType string

const (
	Input       UsageType = "input"
	Output      UsageType = "output"
	InputOutput UsageType = "input_output"
)

// CallingConvention is the ABI contract a function was compiled to use.
type CallingConvention string

const (
	CDecl      CallingConvention = "cdecl"
	StdCall    CallingConvention = "stdcall"
	FastCall   CallingConvention = "fastcall"
	VectorCall CallingConvention = "vectorcall"
	Device     CallingConvention = "devicecall"
)

// Valid reports whether c is a member of the recognized set.
func (c CallingConvention) Valid() bool {
	switch c {
	case CDecl, StdCall, FastCall, VectorCall, Device:
		return true
	}
	return false
}

// ElementType is the primitive numeric kind of a parameter's elements.
type ElementType string

const (
	Int8     ElementType = "int8"
	Int16    ElementType = "int16"
	Int32    ElementType = "int32"
	Int64    ElementType = "int64"
	Uint8    ElementType = "uint8"
	Uint16   ElementType = "uint16"
	Uint32   ElementType = "uint32"
	Uint64   ElementType = "uint64"
	Float16  ElementType = "float16"
	BFloat16 ElementType = "bfloat16"
	Float32  ElementType = "float32"
	Float64  ElementType = "float64"
	VoidType ElementType = "void"
)

var elementByteSizes = map[ElementType]int64{
	Int8:     1,
	Int16:    2,
	Int32:    4,
	Int64:    8,
	Uint8:    1,
	Uint16:   2,
	Uint32:   4,
	Uint64:   8,
	Float16:  2,
	BFloat16: 2,
	Float32:  4,
	Float64:  8,
}

// ByteSize returns the width of one element in bytes, or 0 for void.
func (e ElementType) ByteSize() int64 {
	return elementByteSizes[e]
}

// Valid reports whether e is a recognized numeric kind.
func (e ElementType) Valid() bool {
	_, ok := elementByteSizes[e]
	return ok
}

// IsFloat reports whether e is a floating-point kind.
func (e ElementType) IsFloat() bool {
	switch e {
	case Float16, BFloat16, Float32, Float64:
		return true
	}
	return false
}

// Parameter describes one declared argument or return value.
type Parameter struct {
	Name         string      `toml:"name"`
	Description  string      `toml:"description,omitempty"`
	LogicalType  LogicalType `toml:"logical_type"`
	DeclaredType string      `toml:"declared_type"`
	ElementType  ElementType `toml:"element_type"`
	Usage        UsageType   `toml:"usage"`

	// Affine array keys.
	Shape        []int64 `toml:"shape,omitempty"`
	AffineMap    []int64 `toml:"affine_map,omitempty"`
	AffineOffset int64   `toml:"affine_offset,omitempty"`

	// Runtime array key: a size expression over earlier parameters.
	Size string `toml:"size,omitempty"`
}

// VoidParameter returns the return-value descriptor of a void function.
func VoidParameter() Parameter {
	return Parameter{
		LogicalType:  Void,
		DeclaredType: "void",
		ElementType:  VoidType,
		Usage:        Output,
	}
}

// IsVoid reports whether the parameter carries no buffer.
func (p *Parameter) IsVoid() bool {
	return p.LogicalType == Void
}

// PointerLevel returns the pointer depth of the declared C type. Output
// runtime arrays are pointer-to-pointer: the callee allocates the buffer
// and writes its address through the outer pointer. An element declared
// without a pointer (e.g. "int64_t") is passed by value.
func (p *Parameter) PointerLevel() int {
	if n := strings.Count(p.DeclaredType, "*"); n > 0 {
		return n
	}
	switch {
	case p.LogicalType == Void:
		return 0
	case p.LogicalType == RuntimeArray && p.Usage == Output:
		return 2
	case p.LogicalType == Element && p.DeclaredType != "" && p.Usage == Input:
		return 0
	}
	return 1
}

// Validate checks the parameter's internal invariants.
func (p *Parameter) Validate() error {
	switch p.LogicalType {
	case AffineArray:
		if len(p.AffineMap) > 0 && len(p.AffineMap) != len(p.Shape) {
			return errors.New(errors.PhaseSchema, errors.KindInvalidData).
				Param(p.Name).
				Detail("affine_map has %d entries but shape has %d", len(p.AffineMap), len(p.Shape)).
				Build()
		}
		for _, s := range p.Shape {
			if s < 0 {
				return errors.New(errors.PhaseSchema, errors.KindInvalidData).
					Param(p.Name).
					Detail("negative shape entry %d", s).
					Build()
			}
		}
		if p.AffineOffset < 0 {
			return errors.New(errors.PhaseSchema, errors.KindInvalidData).
				Param(p.Name).
				Detail("negative affine_offset %d", p.AffineOffset).
				Build()
		}

	case RuntimeArray:
		if p.Size == "" {
			return errors.FieldMissing(errors.PhaseSchema, p.Name, "size")
		}
		if _, err := sizeexpr.Parse(p.Size); err != nil {
			return errors.New(errors.PhaseSchema, errors.KindInvalidSizeExpression).
				Param(p.Name).
				Cause(err).
				Detail("size expression %q does not parse", p.Size).
				Build()
		}

	case Element:
		if len(p.Shape) > 0 || len(p.AffineMap) > 0 {
			return errors.New(errors.PhaseSchema, errors.KindInvalidData).
				Param(p.Name).
				Detail("element parameter must not declare a shape").
				Build()
		}

	case Void:
		return nil

	default:
		return errors.New(errors.PhaseSchema, errors.KindInvalidData).
			Param(p.Name).
			Detail("unknown logical_type %q", p.LogicalType).
			Build()
	}

	if !p.ElementType.Valid() {
		return errors.New(errors.PhaseSchema, errors.KindInvalidData).
			Param(p.Name).
			Detail("unknown element_type %q", p.ElementType).
			Build()
	}
	switch p.Usage {
	case Input, Output, InputOutput:
	default:
		return errors.New(errors.PhaseSchema, errors.KindInvalidData).
			Param(p.Name).
			Detail("unknown usage %q", p.Usage).
			Build()
	}
	return nil
}

// Function describes one native function. Immutable after parse.
type Function struct {
	Name              string            `toml:"name"`
	Description       string            `toml:"description,omitempty"`
	CallingConvention CallingConvention `toml:"calling_convention"`
	Arguments         []Parameter       `toml:"arguments"`
	Return            Parameter         `toml:"return"`
	Launches          string            `toml:"launches,omitempty"`
	Auxiliary         map[string]any    `toml:"auxiliary,omitempty"`
}

// AuxiliaryKey names under which the library records metadata.
const (
	AuxMeanDuration = "mean_duration_in_sec"
	AuxDeallocate   = "deallocate_function"
)

// DeallocateFunction returns the paired deallocation function declared for
// callee-allocated outputs, or "" when the package declares none.
func (f *Function) DeallocateFunction() string {
	if s, ok := f.Auxiliary[AuxDeallocate].(string); ok {
		return s
	}
	return ""
}

// SetMeanDuration records the benchmarked mean duration, in seconds, in the
// function's auxiliary table.
func (f *Function) SetMeanDuration(seconds float64) {
	if f.Auxiliary == nil {
		f.Auxiliary = map[string]any{}
	}
	f.Auxiliary[AuxMeanDuration] = seconds
}

// Validate checks per-function invariants: unique argument names, valid
// parameters, a recognized calling convention, and size expressions that
// reference only parameters bound earlier in the evaluation order
// (arguments left to right, then the return value).
func (f *Function) Validate() error {
	if f.Name == "" {
		return errors.FieldMissing(errors.PhaseSchema, "function", "name")
	}
	if !f.CallingConvention.Valid() {
		return errors.New(errors.PhaseSchema, errors.KindInvalidData).
			Function(f.Name).
			Detail("unknown calling_convention %q", f.CallingConvention).
			Build()
	}

	bound := map[string]struct{}{}
	check := func(p *Parameter) error {
		if err := p.Validate(); err != nil {
			if e, ok := err.(*errors.Error); ok {
				e.Function = f.Name
			}
			return err
		}
		if p.LogicalType == RuntimeArray {
			expr, err := sizeexpr.Parse(p.Size)
			if err != nil {
				return err
			}
			for _, id := range expr.Idents() {
				if _, ok := bound[id]; !ok {
					return errors.New(errors.PhaseSchema, errors.KindUnresolvedSizeReference).
						Function(f.Name).
						Param(p.Name).
						Detail("size expression %q references %q, which is not declared earlier", p.Size, id).
						Build()
				}
			}
		}
		return nil
	}

	for i := range f.Arguments {
		p := &f.Arguments[i]
		if p.IsVoid() {
			return errors.New(errors.PhaseSchema, errors.KindInvalidData).
				Function(f.Name).
				Param(p.Name).
				Detail("void is only valid as a return value").
				Build()
		}
		if p.Name == "" {
			return errors.FieldMissing(errors.PhaseSchema, f.Name, "name")
		}
		if _, dup := bound[p.Name]; dup {
			return errors.New(errors.PhaseSchema, errors.KindInvalidData).
				Function(f.Name).
				Param(p.Name).
				Detail("duplicate argument name").
				Build()
		}
		if err := check(p); err != nil {
			return err
		}
		bound[p.Name] = struct{}{}
	}

	if !f.Return.IsVoid() {
		if err := check(&f.Return); err != nil {
			return err
		}
	}
	return nil
}

package bind

import (
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
	"github.com/microsoft/hat/sizeexpr"
)

// Resolved is one parameter with its concrete layout: logical element
// count, buffer extent, byte size, and element strides. For callee-allocated
// outputs (output runtime arrays), sizes stay unknown until after the call
// and Deferred is set.
type Resolved struct {
	Param *schema.Parameter

	// Count is the logical element count. For affine arrays it is the
	// product of the shape entries; an empty shape is a degenerate
	// single-element array.
	Count int64

	// BufferElems is the allocation extent in elements, covering the affine
	// offset and any stride padding beyond the dense logical count.
	BufferElems int64

	// ByteSize is BufferElems scaled by the element width.
	ByteSize int64

	// Strides holds the element strides, derived row-major when the schema
	// declares no affine_map. Byte addressing scales by the element width.
	Strides []int64

	// Deferred marks a callee-allocated output whose size is known only
	// after invocation.
	Deferred bool

	// expr is the parsed size expression of a runtime array.
	expr *sizeexpr.Expr
}

// ByteOffset returns the byte offset of the multi-index idx from the buffer
// base, following affine_offset plus the stride map.
func (r *Resolved) ByteOffset(idx ...int64) (int64, error) {
	if len(idx) != len(r.Strides) {
		return 0, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Param(r.Param.Name).
			Detail("index has %d dimensions, shape has %d", len(idx), len(r.Strides)).
			Build()
	}
	off := r.Param.AffineOffset
	for d, i := range idx {
		if i < 0 || i >= r.Param.Shape[d] {
			return 0, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
				Param(r.Param.Name).
				Detail("index %d out of range for dimension %d (size %d)", i, d, r.Param.Shape[d]).
				Build()
		}
		off += r.Strides[d] * i
	}
	return off * r.Param.ElementType.ByteSize(), nil
}

// Plan is a fully resolved function signature, ready for binding. Arguments
// appear in native call order; Return is last in evaluation order.
type Plan struct {
	Function *schema.Function
	Args     []Resolved
	Return   Resolved

	// Env snapshots the name bindings available before the call: supplied
	// element scalars and affine-array element counts.
	Env sizeexpr.Env

	// Footprint is the total pre-call buffer byte size of one bound
	// invocation, the unit the benchmark working set is sized against.
	Footprint int64
}

// Resolve computes concrete shapes and byte sizes for every parameter of fn.
// Parameters resolve left to right as declared, then the return value, so
// size expressions may reference any earlier parameter. scalars supplies
// values for element inputs that other parameters' size expressions
// reference (dimension arguments); it may be nil when no runtime-array
// input needs one.
func Resolve(fn *schema.Function, scalars sizeexpr.Env) (*Plan, error) {
	plan := &Plan{
		Function: fn,
		Args:     make([]Resolved, 0, len(fn.Arguments)),
		Env:      sizeexpr.Env{},
	}
	for name, v := range scalars {
		plan.Env[name] = v
	}

	for i := range fn.Arguments {
		r, err := resolveParam(fn, &fn.Arguments[i], plan.Env)
		if err != nil {
			return nil, err
		}
		bindEnv(plan.Env, &fn.Arguments[i], r, scalars)
		plan.Args = append(plan.Args, r)
		plan.Footprint += r.ByteSize
	}

	if !fn.Return.IsVoid() {
		// Element returns arrive in the integer return register; a float
		// comes back in a vector register the syscall path cannot read.
		if fn.Return.LogicalType == schema.Element && fn.Return.ElementType.IsFloat() {
			return nil, errors.New(errors.PhaseResolve, errors.KindUnsupported).
				Function(fn.Name).
				Detail("floating-point return values are not supported; return through an output parameter").
				Build()
		}
		r, err := resolveParam(fn, &fn.Return, plan.Env)
		if err != nil {
			return nil, err
		}
		plan.Return = r
		plan.Footprint += r.ByteSize
	} else {
		plan.Return = Resolved{Param: &fn.Return}
	}

	return plan, nil
}

// bindEnv publishes a resolved parameter into the evaluation environment:
// element scalars under their supplied value, arrays under their element
// count.
func bindEnv(env sizeexpr.Env, p *schema.Parameter, r Resolved, scalars sizeexpr.Env) {
	switch p.LogicalType {
	case schema.Element:
		if v, ok := scalars[p.Name]; ok {
			env[p.Name] = v
		}
	case schema.AffineArray:
		env[p.Name] = r.Count
	case schema.RuntimeArray:
		if !r.Deferred {
			env[p.Name] = r.Count
		}
	}
}

func resolveParam(fn *schema.Function, p *schema.Parameter, env sizeexpr.Env) (Resolved, error) {
	r := Resolved{Param: p}
	elemBytes := p.ElementType.ByteSize()

	switch p.LogicalType {
	case schema.Element:
		// The syscall trampoline passes call words in integer registers
		// only, so a floating-point scalar must travel behind a pointer.
		if p.PointerLevel() == 0 && p.ElementType.IsFloat() {
			return r, errors.New(errors.PhaseResolve, errors.KindUnsupported).
				Function(fn.Name).
				Param(p.Name).
				Detail("by-value floating-point elements are not supported; declare %q as a pointer", p.DeclaredType).
				Build()
		}
		r.Count = 1
		r.BufferElems = 1
		r.ByteSize = elemBytes

	case schema.AffineArray:
		r.Strides = p.AffineMap
		if len(r.Strides) == 0 {
			r.Strides = rowMajorStrides(p.Shape)
		}
		r.Count = 1
		for _, s := range p.Shape {
			r.Count *= s
		}
		switch lo, hi := affineBounds(p.AffineOffset, p.Shape, r.Strides); {
		case r.Count == 0:
			r.BufferElems = 0
		case lo < 0:
			return r, errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Function(fn.Name).
				Param(p.Name).
				Detail("affine map reaches element %d, before the buffer base", lo).
				Build()
		default:
			r.BufferElems = hi + 1
		}
		r.ByteSize = r.BufferElems * elemBytes

	case schema.RuntimeArray:
		expr, err := sizeexpr.Parse(p.Size)
		if err != nil {
			return r, tagResolveError(err, fn, p)
		}
		r.expr = expr

		if p.Usage == schema.Output {
			// Callee-allocated: the size inverts to a post-call harvest.
			r.Deferred = true
			r.Count = -1
			r.BufferElems = 0
			r.ByteSize = 0
			break
		}

		n, err := expr.Eval(env)
		if err != nil {
			return r, tagResolveError(err, fn, p)
		}
		if n < 0 {
			return r, errors.InvalidSizeExpression(p.Name, p.Size,
				"evaluates to a negative element count")
		}
		r.Count = n
		r.BufferElems = n
		r.ByteSize = n * elemBytes

	case schema.Void:
		// No buffer.

	default:
		return r, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Function(fn.Name).
			Param(p.Name).
			Detail("unknown logical_type %q", p.LogicalType).
			Build()
	}

	return r, nil
}

// rowMajorStrides derives C-contiguous strides from a shape.
func rowMajorStrides(shape []int64) []int64 {
	if len(shape) == 0 {
		return nil
	}
	strides := make([]int64, len(shape))
	stride := int64(1)
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= shape[d]
	}
	return strides
}

// affineBounds returns the lowest and highest element index reachable
// through the stride map. Negative strides walk down from the offset, so
// both ends constrain the allocation: a negative low bound means the map
// addresses memory before the buffer base.
func affineBounds(offset int64, shape, strides []int64) (int64, int64) {
	lo, hi := offset, offset
	for d := range shape {
		span := (shape[d] - 1) * strides[d]
		if span < 0 {
			lo += span
		} else {
			hi += span
		}
	}
	return lo, hi
}

// tagResolveError attaches function and parameter context to resolver
// errors coming out of sizeexpr.
func tagResolveError(err error, fn *schema.Function, p *schema.Parameter) error {
	if e, ok := err.(*errors.Error); ok {
		if e.Function == "" {
			e.Function = fn.Name
		}
		if e.Param == "" {
			e.Param = p.Name
		}
		return e
	}
	return err
}

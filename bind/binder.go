package bind

import (
	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
	"github.com/microsoft/hat/sizeexpr"
)

// Inputs supplies caller-provided buffers for input and input_output
// parameters, keyed by parameter name. Parameters without an entry get a
// fresh zeroed allocation from the binder.
type Inputs map[string][]byte

// Frame is one invocation's worth of bound arguments. A frame is
// single-goroutine and reusable: the working set recycles frames across
// iterations instead of rebinding.
type Frame struct {
	Plan   *Plan
	Args   []*Arg
	Ret    *Arg
	Policy hat.OwnershipPolicy

	// Warnings carries non-fatal conditions raised during binding, such as
	// unspecified ownership of callee-allocated outputs.
	Warnings []error

	words []uintptr
}

// Bind allocates or adopts a buffer for every parameter of the plan and
// returns a call-ready frame. Supplied input buffers are used in place, not
// copied; their element counts must match the resolved shapes.
func (p *Plan) Bind(inputs Inputs) (*Frame, error) {
	f := &Frame{
		Plan:   p,
		Args:   make([]*Arg, 0, len(p.Args)),
		Policy: hat.OwnershipCalleeOwned,
		words:  make([]uintptr, len(p.Args)),
	}

	for i := range p.Args {
		arg, err := bindArg(&p.Args[i], p, inputs)
		if err != nil {
			return nil, err
		}
		f.Args = append(f.Args, arg)
	}

	if !p.Return.Param.IsVoid() {
		// The return value travels in the native return register, so no
		// slot enters the argument vector; the frame still owns a buffer
		// to harvest it into.
		r := &p.Return
		f.Ret = &Arg{Spec: r, state: statePreBound}
		if !r.Deferred {
			f.Ret.buf = make([]byte, r.ByteSize)
		} else {
			f.Ret.state = statePendingCallee
		}
	}

	for _, a := range f.Args {
		if a.state == statePendingCallee && p.Function.DeallocateFunction() == "" {
			w := errors.UnspecifiedOwnership(p.Function.Name, a.Spec.Param.Name)
			f.Warnings = append(f.Warnings, w)
			Logger().Warn("callee-allocated output has no declared deallocator; buffers will not be freed",
				zapFunction(p.Function.Name), zapParam(a.Spec.Param.Name))
		}
	}

	return f, nil
}

func bindArg(r *Resolved, p *Plan, inputs Inputs) (*Arg, error) {
	param := r.Param
	arg := &Arg{Spec: r}

	switch {
	case r.Deferred:
		// Two-phase contract, pre-call half: pass an empty pointer slot the
		// callee writes its allocation through. Never pre-allocate.
		arg.state = statePendingCallee
		return arg, nil

	case param.LogicalType == schema.Element && param.PointerLevel() == 0:
		arg.state = stateScalar
		if v, ok := p.Env[param.Name]; ok {
			arg.cell = scalarWord(param.ElementType, float64(v))
		}
		return arg, nil
	}

	arg.state = statePreBound
	if buf, ok := inputs[param.Name]; ok {
		if param.Usage == schema.Output {
			return nil, errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Function(p.Function.Name).
				Param(param.Name).
				Detail("buffers may not be supplied for output-only parameters").
				Build()
		}
		want := r.BufferElems
		got := int64(len(buf)) / param.ElementType.ByteSize()
		if got != want {
			err := errors.ShapeMismatch(param.Name, want, got)
			err.Function = p.Function.Name
			return nil, err
		}
		arg.buf = buf
		arg.callerOwned = true
	} else {
		arg.buf = make([]byte, r.ByteSize)
	}

	// An element that doubles as a dimension argument carries its supplied
	// value in the buffer the callee reads through.
	if param.LogicalType == schema.Element {
		if v, ok := p.Env[param.Name]; ok && !arg.callerOwned {
			setElementAt(param.ElementType, arg.buf, 0, float64(v))
		}
	}

	return arg, nil
}

// Words collapses every argument to its native call word, in declared
// order. The slice is owned by the frame and rebuilt on each call.
func (f *Frame) Words() []uintptr {
	for i, a := range f.Args {
		f.words[i] = a.word()
	}
	return f.words
}

// Harvest completes the two-phase contract after a call: for every
// callee-allocated output it takes the pointer the callee wrote back and
// evaluates the size expression against post-call values, which may
// reference output elements the callee filled in.
func (f *Frame) Harvest() error {
	env := f.postCallEnv()

	for _, a := range f.Args {
		if a.state != statePendingCallee {
			continue
		}
		if err := harvestArg(a, f.Plan, env); err != nil {
			return err
		}
	}
	if f.Ret != nil && f.Ret.state == statePendingCallee {
		if err := harvestArg(f.Ret, f.Plan, env); err != nil {
			return err
		}
	}
	return nil
}

func harvestArg(a *Arg, p *Plan, env sizeexpr.Env) error {
	a.calleePtr = a.cell

	n, err := a.Spec.expr.Eval(env)
	if err != nil {
		return tagResolveError(err, p.Function, a.Spec.Param)
	}
	if n < 0 {
		return errors.InvalidSizeExpression(a.Spec.Param.Name, a.Spec.Param.Size,
			"evaluates to a negative element count after the call")
	}
	a.calleeCount = n

	if a.calleePtr == 0 && n > 0 {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidData).
			Function(p.Function.Name).
			Param(a.Spec.Param.Name).
			Detail("callee reported %d elements but wrote no buffer pointer", n).
			Build()
	}
	return nil
}

// postCallEnv extends the pre-call environment with element values the
// callee wrote back, so deferred size expressions can resolve.
func (f *Frame) postCallEnv() sizeexpr.Env {
	env := sizeexpr.Env{}
	for name, v := range f.Plan.Env {
		env[name] = v
	}
	for _, a := range f.Args {
		param := a.Spec.Param
		if param.LogicalType != schema.Element || a.state != statePreBound {
			continue
		}
		env[param.Name] = int64(elementAt(param.ElementType, a.buf, 0))
	}
	return env
}

// Release frees what the frame owns. Binder-allocated buffers are dropped
// for collection; callee-allocated buffers are released through dealloc
// when the ownership policy says this side frees, and deliberately leaked
// otherwise.
func (f *Frame) Release(dealloc hat.Callable) {
	for _, a := range f.Args {
		if a.state == statePendingCallee && a.calleePtr != 0 {
			if f.Policy == hat.OwnershipCallerFrees && dealloc != nil {
				dealloc.Call([]uintptr{a.calleePtr})
			}
			a.calleePtr = 0
			a.calleeCount = 0
			a.cell = 0
		}
		if !a.callerOwned {
			a.buf = nil
		}
	}
	if f.Ret != nil {
		f.Ret.buf = nil
	}
}

// Arg returns the bound argument for the named parameter.
func (f *Frame) Arg(name string) (*Arg, error) {
	for _, a := range f.Args {
		if a.Spec.Param.Name == name {
			return a, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseBind, "bound argument", name)
}

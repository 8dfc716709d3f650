package bind

import (
	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
)

// Invoke performs one synchronous call of fn with the frame's bound
// arguments and completes the post-call half of the binding contract.
//
// The callee's side effects are exactly the buffer mutations it performs.
// Native faults are not caught: a crash in the callee terminates the
// process, and callers needing isolation must run invocations in a
// separate process.
func Invoke(fn hat.Callable, f *Frame) error {
	if fn == nil {
		return errors.NotInitialized(errors.PhaseInvoke, "callable")
	}

	ret := fn.Call(f.Words())

	if f.Ret != nil {
		harvestReturn(f, ret)
	}
	return f.Harvest()
}

// harvestReturn files the native return register into the frame's return
// slot: element returns copy the value, array returns adopt the pointer.
func harvestReturn(f *Frame, ret uintptr) {
	spec := f.Ret.Spec
	switch spec.Param.LogicalType {
	case schema.Element:
		setElementAt(spec.Param.ElementType, f.Ret.buf, 0, wordToFloat(spec.Param.ElementType, ret))
	case schema.AffineArray, schema.RuntimeArray:
		f.Ret.cell = ret
	}
}

// wordToFloat undoes scalarWord's packing for a returned element value.
// Only integer kinds arrive here: the resolver rejects floating-point
// element returns.
func wordToFloat(et schema.ElementType, w uintptr) float64 {
	switch et {
	case schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint64:
		return float64(uint64(w))
	default:
		return float64(int64(w))
	}
}

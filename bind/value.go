package bind

import (
	"math"
	"unsafe"

	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
)

// argState distinguishes the three bound-argument variants. The variant is
// collapsed to one native call word just before the call and re-inspected
// just after.
type argState int

const (
	// statePreBound: a concrete buffer exists before the call; the call
	// word is its base address.
	statePreBound argState = iota

	// statePendingCallee: the callee allocates the buffer; the call word is
	// the address of a pointer slot the callee writes through.
	statePendingCallee

	// stateScalar: a by-value element; the call word is the value itself.
	stateScalar
)

// Arg pairs one resolved parameter with its concrete memory for a single
// invocation. Buffers the binder allocates are owned by the Arg and live
// until the owning frame is recycled; caller-supplied buffers stay
// caller-owned.
type Arg struct {
	Spec *Resolved

	state       argState
	buf         []byte
	callerOwned bool

	// cell is the collapsed call word: scalar value for stateScalar, callee
	// pointer slot for statePendingCallee.
	cell uintptr

	// Harvested state of a callee-allocated output, valid after Harvest.
	calleePtr   uintptr
	calleeCount int64
}

// Data returns the argument's buffer contents. For a harvested
// callee-allocated output this is a view over native memory, valid only as
// long as the callee keeps the buffer alive.
func (a *Arg) Data() []byte {
	if a.state == statePendingCallee {
		if a.calleePtr == 0 || a.calleeCount <= 0 {
			return nil
		}
		n := a.calleeCount * a.Spec.Param.ElementType.ByteSize()
		return unsafe.Slice((*byte)(unsafe.Pointer(a.calleePtr)), n)
	}
	return a.buf
}

// Count returns the element count: the resolved count for pre-bound
// arguments, the written-back count for harvested callee outputs.
func (a *Arg) Count() int64 {
	if a.state == statePendingCallee {
		return a.calleeCount
	}
	return a.Spec.Count
}

// CalleePointer returns the harvested native buffer address of a
// callee-allocated output, or 0 before Harvest.
func (a *Arg) CalleePointer() uintptr {
	return a.calleePtr
}

// word collapses the argument to its native call word.
func (a *Arg) word() uintptr {
	switch a.state {
	case stateScalar:
		return a.cell
	case statePendingCallee:
		return uintptr(unsafe.Pointer(&a.cell))
	default:
		if len(a.buf) == 0 {
			return 0
		}
		return uintptr(unsafe.Pointer(&a.buf[0]))
	}
}

// elementAt reads element i of buf as a float64, converting from the
// declared element type.
func elementAt(et schema.ElementType, buf []byte, i int64) float64 {
	switch et {
	case schema.Int8:
		return float64(int8(buf[i]))
	case schema.Int16:
		return float64(*(*int16)(unsafe.Pointer(&buf[i*2])))
	case schema.Int32:
		return float64(*(*int32)(unsafe.Pointer(&buf[i*4])))
	case schema.Int64:
		return float64(*(*int64)(unsafe.Pointer(&buf[i*8])))
	case schema.Uint8:
		return float64(buf[i])
	case schema.Uint16:
		return float64(*(*uint16)(unsafe.Pointer(&buf[i*2])))
	case schema.Uint32:
		return float64(*(*uint32)(unsafe.Pointer(&buf[i*4])))
	case schema.Uint64:
		return float64(*(*uint64)(unsafe.Pointer(&buf[i*8])))
	case schema.Float16:
		return float64(float16ToFloat32(*(*uint16)(unsafe.Pointer(&buf[i*2]))))
	case schema.BFloat16:
		return float64(bfloat16ToFloat32(*(*uint16)(unsafe.Pointer(&buf[i*2]))))
	case schema.Float32:
		return float64(*(*float32)(unsafe.Pointer(&buf[i*4])))
	case schema.Float64:
		return *(*float64)(unsafe.Pointer(&buf[i*8]))
	}
	return 0
}

// setElementAt writes v into element i of buf, converting to the declared
// element type.
func setElementAt(et schema.ElementType, buf []byte, i int64, v float64) {
	switch et {
	case schema.Int8:
		buf[i] = byte(int8(v))
	case schema.Int16:
		*(*int16)(unsafe.Pointer(&buf[i*2])) = int16(v)
	case schema.Int32:
		*(*int32)(unsafe.Pointer(&buf[i*4])) = int32(v)
	case schema.Int64:
		*(*int64)(unsafe.Pointer(&buf[i*8])) = int64(v)
	case schema.Uint8:
		buf[i] = byte(uint8(v))
	case schema.Uint16:
		*(*uint16)(unsafe.Pointer(&buf[i*2])) = uint16(v)
	case schema.Uint32:
		*(*uint32)(unsafe.Pointer(&buf[i*4])) = uint32(v)
	case schema.Uint64:
		*(*uint64)(unsafe.Pointer(&buf[i*8])) = uint64(v)
	case schema.Float16:
		*(*uint16)(unsafe.Pointer(&buf[i*2])) = float32ToFloat16(float32(v))
	case schema.BFloat16:
		*(*uint16)(unsafe.Pointer(&buf[i*2])) = float32ToBFloat16(float32(v))
	case schema.Float32:
		*(*float32)(unsafe.Pointer(&buf[i*4])) = float32(v)
	case schema.Float64:
		*(*float64)(unsafe.Pointer(&buf[i*8])) = v
	}
}

// Element reads element i of the argument's buffer as a float64.
func (a *Arg) Element(i int64) (float64, error) {
	data := a.Data()
	et := a.Spec.Param.ElementType
	if i < 0 || (i+1)*et.ByteSize() > int64(len(data)) {
		return 0, errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Param(a.Spec.Param.Name).
			Detail("element index %d out of range", i).
			Build()
	}
	return elementAt(et, data, i), nil
}

// SetElement writes element i of the argument's buffer.
func (a *Arg) SetElement(i int64, v float64) error {
	data := a.Data()
	et := a.Spec.Param.ElementType
	if i < 0 || (i+1)*et.ByteSize() > int64(len(data)) {
		return errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Param(a.Spec.Param.Name).
			Detail("element index %d out of range", i).
			Build()
	}
	setElementAt(et, data, i, v)
	return nil
}

// scalarWord packs a by-value element into a call word. Floating-point
// scalars never reach here: the resolver rejects them because the syscall
// trampoline passes arguments in integer registers only.
func scalarWord(et schema.ElementType, v float64) uintptr {
	switch et {
	case schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint64:
		return uintptr(uint64(v))
	default:
		return uintptr(int64(v))
	}
}

// float16ToFloat32 expands an IEEE 754 binary16 value.
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}

// float32ToFloat16 rounds a float32 to the nearest binary16 value.
func float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>31) << 15
	exp := int32(bits>>23)&0xff - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case exp >= 0x1f:
		// Overflow or Inf/NaN.
		if int32(bits>>23)&0xff == 0xff && frac != 0 {
			return sign | 0x7e00 // NaN
		}
		return sign | 0x7c00 // Inf
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		shift := uint32(14 - exp)
		return sign | uint16(frac>>shift)
	default:
		return sign | uint16(exp)<<10 | uint16(frac>>13)
	}
}

// bfloat16ToFloat32 expands a bfloat16 value (the high half of a float32).
func bfloat16ToFloat32(h uint16) float32 {
	return math.Float32frombits(uint32(h) << 16)
}

// float32ToBFloat16 truncates a float32 to bfloat16 with round-to-nearest.
func float32ToBFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7fffffff > 0x7f800000 {
		return uint16(bits>>16) | 0x40 // quiet NaN
	}
	return uint16((bits + 0x7fff + (bits>>16)&1) >> 16)
}

package bind

import (
	"math/rand/v2"

	"github.com/microsoft/hat/schema"
	"github.com/microsoft/hat/sizeexpr"
)

// FillRandom overwrites the frame's input and input_output buffers with
// randomized values appropriate to each element type. Floating-point
// buffers receive values in [0, 1), so no non-finite value can enter a
// benchmarked call path. Output-only buffers are left untouched.
func FillRandom(f *Frame, rng *rand.Rand) {
	for _, a := range f.Args {
		param := a.Spec.Param
		if param.Usage == schema.Output || a.state != statePreBound {
			continue
		}
		if param.LogicalType == schema.Element {
			// Dimension values supplied at resolution stay authoritative.
			if _, fixed := f.Plan.Env[param.Name]; fixed {
				continue
			}
		}
		fillBuffer(param.ElementType, a.buf, a.Spec.BufferElems, rng)
	}
}

// SynthesizeDims generates values for the input element parameters that
// size expressions of input and input_output runtime arrays reference, so
// dynamically shaped functions can be resolved without caller-supplied
// dimensions. Parameters no size expression references are left out.
func SynthesizeDims(fn *schema.Function, rng *rand.Rand) sizeexpr.Env {
	referenced := map[string]bool{}
	for i := range fn.Arguments {
		p := &fn.Arguments[i]
		if p.LogicalType != schema.RuntimeArray || p.Usage == schema.Output {
			continue
		}
		expr, err := sizeexpr.Parse(p.Size)
		if err != nil {
			continue
		}
		for _, id := range expr.Idents() {
			referenced[id] = true
		}
	}

	env := sizeexpr.Env{}
	for i := range fn.Arguments {
		p := &fn.Arguments[i]
		if p.LogicalType == schema.Element && p.Usage != schema.Output && referenced[p.Name] {
			// Dimensions land in [16, 256]: large enough to exercise the
			// buffer math, small enough to keep footprints bindable.
			env[p.Name] = 16 + rng.Int64N(241)
		}
	}
	return env
}

func fillBuffer(et schema.ElementType, buf []byte, n int64, rng *rand.Rand) {
	for i := int64(0); i < n; i++ {
		setElementAt(et, buf, i, randomValue(et, rng))
	}
}

// randomValue picks a value in a range that is representable and finite
// for the element type.
func randomValue(et schema.ElementType, rng *rand.Rand) float64 {
	switch et {
	case schema.Float16, schema.BFloat16, schema.Float32, schema.Float64:
		return rng.Float64()
	case schema.Int8:
		return float64(rng.IntN(256) - 128)
	case schema.Uint8:
		return float64(rng.IntN(256))
	case schema.Int16:
		return float64(rng.IntN(1<<16) - 1<<15)
	case schema.Uint16:
		return float64(rng.IntN(1 << 16))
	default:
		// Wider integers stay in a small positive range so products and
		// sums in size expressions cannot overflow.
		return float64(rng.IntN(1 << 16))
	}
}

package bind

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/microsoft/hat/schema"
	"github.com/microsoft/hat/sizeexpr"
)

// callableFunc adapts a Go function to the native Callable interface so
// binding and harvesting can be exercised without loading a real library.
type callableFunc func(args []uintptr) uintptr

func (f callableFunc) Call(args []uintptr) uintptr { return f(args) }

func float32Slice(ptr uintptr, n int64) []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(ptr)), n)
}

func TestInvoke_IdentityRoundTrip(t *testing.T) {
	// copy(src, dst): an identity-like function that copies its input to
	// its output unchanged.
	fn := funcOf(
		affineParam("src", schema.InputOutput, []int64{16, 16}, nil),
		affineParam("dst", schema.Output, []int64{16, 16}, nil),
	)
	plan := mustResolve(t, fn, nil)

	src := make([]byte, 16*16*4)
	for i := range src {
		src[i] = byte(i * 7)
	}
	original := bytes.Clone(src)

	f := mustBind(t, plan, Inputs{"src": src})

	identity := callableFunc(func(args []uintptr) uintptr {
		in := float32Slice(args[0], 256)
		out := float32Slice(args[1], 256)
		copy(out, in)
		return 0
	})

	if err := Invoke(identity, f); err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	// The input_output buffer is unchanged: binding introduced no copy or
	// alignment corruption.
	if !bytes.Equal(src, original) {
		t.Error("input_output buffer changed across an identity call")
	}

	dst, err := f.Arg("dst")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst.Data(), original) {
		t.Error("output buffer does not match the input")
	}
}

func TestInvoke_ScalarArguments(t *testing.T) {
	fn := funcOf(
		schema.Parameter{
			Name: "a", LogicalType: schema.Element, DeclaredType: "int64_t",
			ElementType: schema.Int64, Usage: schema.Input,
		},
		schema.Parameter{
			Name: "b", LogicalType: schema.Element, DeclaredType: "int64_t",
			ElementType: schema.Int64, Usage: schema.Input,
		},
		schema.Parameter{
			Name: "sum", LogicalType: schema.Element, DeclaredType: "int64_t*",
			ElementType: schema.Int64, Usage: schema.Output,
		},
	)
	plan := mustResolve(t, fn, sizeexpr.Env{"a": 19, "b": 23})
	f := mustBind(t, plan, nil)

	add := callableFunc(func(args []uintptr) uintptr {
		*(*int64)(unsafe.Pointer(args[2])) = int64(args[0]) + int64(args[1])
		return 0
	})

	if err := Invoke(add, f); err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	sum, err := f.Arg("sum")
	if err != nil {
		t.Fatal(err)
	}
	v, err := sum.Element(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("sum = %v, want 42", v)
	}
}

func TestInvoke_ElementReturn(t *testing.T) {
	fn := funcOf(elementParam("n", schema.Int64))
	fn.Return = schema.Parameter{
		Name: "doubled", LogicalType: schema.Element, DeclaredType: "int64_t",
		ElementType: schema.Int64, Usage: schema.Output,
	}
	plan := mustResolve(t, fn, sizeexpr.Env{"n": 21})
	f := mustBind(t, plan, nil)

	double := callableFunc(func(args []uintptr) uintptr {
		n := *(*int64)(unsafe.Pointer(args[0]))
		return uintptr(2 * n)
	})

	if err := Invoke(double, f); err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	v, err := f.Ret.Element(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("return = %v, want 42", v)
	}
}

// rangeFunction is the HAT description of a Range-like native function:
// three scalar inputs, a callee-allocated output array sized by
// (limit - start) / delta, and a count output the callee writes back.
func rangeFunction() *schema.Function {
	return &schema.Function{
		Name:              "range",
		CallingConvention: schema.CDecl,
		Arguments: []schema.Parameter{
			{
				Name: "start", LogicalType: schema.Element, DeclaredType: "int32_t*",
				ElementType: schema.Int32, Usage: schema.Input,
			},
			{
				Name: "limit", LogicalType: schema.Element, DeclaredType: "int32_t*",
				ElementType: schema.Int32, Usage: schema.Input,
			},
			{
				Name: "delta", LogicalType: schema.Element, DeclaredType: "int32_t*",
				ElementType: schema.Int32, Usage: schema.Input,
			},
			{
				Name: "output", LogicalType: schema.RuntimeArray, DeclaredType: "int32_t**",
				ElementType: schema.Int32, Usage: schema.Output,
				Size: "(limit - start) / delta",
			},
			{
				Name: "output_dim", LogicalType: schema.Element, DeclaredType: "int64_t*",
				ElementType: schema.Int64, Usage: schema.Output,
			},
		},
		Return: schema.VoidParameter(),
	}
}

func TestInvoke_CalleeAllocatedOutput(t *testing.T) {
	plan, err := Resolve(rangeFunction(), sizeexpr.Env{"start": 0, "limit": 100, "delta": 4})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	f := mustBind(t, plan, nil)

	out, err := f.Arg("output")
	if err != nil {
		t.Fatal(err)
	}
	if out.buf != nil || out.CalleePointer() != 0 {
		t.Fatal("output must have no buffer before the call")
	}

	// The fake callee allocates its own buffer and writes the pointer and
	// count back, as the native function would.
	var kept []int32
	rangeImpl := callableFunc(func(args []uintptr) uintptr {
		start := *(*int32)(unsafe.Pointer(args[0]))
		limit := *(*int32)(unsafe.Pointer(args[1]))
		delta := *(*int32)(unsafe.Pointer(args[2]))

		n := (limit - start) / delta
		kept = make([]int32, n)
		for i := int32(0); i < n; i++ {
			kept[i] = start + i*delta
		}

		*(*uintptr)(unsafe.Pointer(args[3])) = uintptr(unsafe.Pointer(&kept[0]))
		*(*int64)(unsafe.Pointer(args[4])) = int64(n)
		return 0
	})

	if err := Invoke(rangeImpl, f); err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	if out.Count() != 25 {
		t.Errorf("harvested count = %d, want 25", out.Count())
	}
	if out.CalleePointer() == 0 {
		t.Fatal("callee pointer was not harvested")
	}

	for i := int64(0); i < out.Count(); i++ {
		v, err := out.Element(i)
		if err != nil {
			t.Fatal(err)
		}
		if v != float64(i*4) {
			t.Errorf("output[%d] = %v, want %v", i, v, i*4)
		}
	}

	dim, err := f.Arg("output_dim")
	if err != nil {
		t.Fatal(err)
	}
	v, err := dim.Element(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 25 {
		t.Errorf("output_dim = %v, want 25", v)
	}
}

func TestInvoke_HarvestReportsMissingPointer(t *testing.T) {
	plan, err := Resolve(rangeFunction(), sizeexpr.Env{"start": 0, "limit": 100, "delta": 4})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	f := mustBind(t, plan, nil)

	// A callee that reports a count but never writes the pointer.
	broken := callableFunc(func(args []uintptr) uintptr {
		*(*int64)(unsafe.Pointer(args[4])) = 25
		return 0
	})

	if err := Invoke(broken, f); err == nil {
		t.Fatal("expected harvest error for missing callee pointer")
	}
}

func BenchmarkInvoke(b *testing.B) {
	fn := funcOf(affineParam("x", schema.InputOutput, []int64{64, 64}, nil))
	plan, err := Resolve(fn, nil)
	if err != nil {
		b.Fatal(err)
	}
	f, err := plan.Bind(nil)
	if err != nil {
		b.Fatal(err)
	}
	noop := callableFunc(func([]uintptr) uintptr { return 0 })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Invoke(noop, f); err != nil {
			b.Fatal(err)
		}
	}
}

func TestInvoke_NilCallable(t *testing.T) {
	plan := mustResolve(t, funcOf(affineParam("x", schema.Input, []int64{4}, nil)), nil)
	f := mustBind(t, plan, nil)

	if err := Invoke(nil, f); err == nil {
		t.Fatal("expected error for nil callable")
	}
}

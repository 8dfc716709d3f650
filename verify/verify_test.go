package verify

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"unsafe"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/loader"
	"github.com/microsoft/hat/schema"
)

type callableFunc func(args []uintptr) uintptr

func (f callableFunc) Call(args []uintptr) uintptr { return f(args) }

type fakeLibrary struct {
	symbols map[string]callableFunc
}

func (l *fakeLibrary) Symbol(name string) (hat.Callable, error) {
	fn, ok := l.symbols[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "symbol", name)
	}
	return fn, nil
}

func (l *fakeLibrary) Close() error { return nil }

func affineFn(name string, shape []int64) *schema.Function {
	return &schema.Function{
		Name:              name,
		CallingConvention: schema.CDecl,
		Arguments: []schema.Parameter{
			{
				Name: "input", LogicalType: schema.AffineArray, DeclaredType: "float*",
				ElementType: schema.Float32, Usage: schema.Input, Shape: shape,
			},
			{
				Name: "output", LogicalType: schema.AffineArray, DeclaredType: "float*",
				ElementType: schema.Float32, Usage: schema.Output, Shape: shape,
			},
		},
		Return: schema.VoidParameter(),
	}
}

func dynamicFn() *schema.Function {
	return &schema.Function{
		Name:              "dynamic",
		CallingConvention: schema.CDecl,
		Arguments: []schema.Parameter{
			{
				Name: "n", LogicalType: schema.Element, DeclaredType: "int64_t*",
				ElementType: schema.Int64, Usage: schema.Input,
			},
			{
				Name: "data", LogicalType: schema.RuntimeArray, DeclaredType: "float*",
				ElementType: schema.Float32, Usage: schema.InputOutput, Size: "n",
			},
		},
		Return: schema.VoidParameter(),
	}
}

func testPackage(t *testing.T) *loader.Package {
	t.Helper()
	hf := &schema.HATFile{
		Name: "pkg",
		Functions: map[string]*schema.Function{
			"dynamic": dynamicFn(),
			"scale":   affineFn("scale", []int64{4, 4}),
			"missing": affineFn("missing", []int64{4}),
		},
		Dependencies: schema.Dependencies{LinkTarget: "pkg.so"},
	}

	scale := callableFunc(func(args []uintptr) uintptr {
		in := unsafe.Slice((*float32)(unsafe.Pointer(args[0])), 16)
		out := unsafe.Slice((*float32)(unsafe.Pointer(args[1])), 16)
		for i := range in {
			out[i] = 2 * in[i]
		}
		return 0
	})
	dynamic := callableFunc(func(args []uintptr) uintptr {
		n := *(*int64)(unsafe.Pointer(args[0]))
		data := unsafe.Slice((*float32)(unsafe.Pointer(args[1])), n)
		for i := range data {
			data[i] = -data[i]
		}
		return 0
	})
	lib := &fakeLibrary{symbols: map[string]callableFunc{
		"scale":   scale,
		"dynamic": dynamic,
	}}
	return loader.NewPackage(hf, lib)
}

func TestPackage_ReportsEveryFunction(t *testing.T) {
	reports := Package(context.Background(), testPackage(t), rand.New(rand.NewPCG(3, 5)))

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}

	// FunctionNames is sorted, so "dynamic" comes first.
	if reports[0].Function != "dynamic" || reports[0].Err != nil {
		t.Errorf("report[0] = (%q, %v), want dynamic without error", reports[0].Function, reports[0].Err)
	}
	if reports[1].Function != "missing" || reports[1].Err == nil {
		t.Errorf("report[1] = (%q, %v), want missing with error", reports[1].Function, reports[1].Err)
	}
	if reports[2].Function != "scale" || reports[2].Err != nil {
		t.Errorf("report[2] = (%q, %v), want scale without error", reports[2].Function, reports[2].Err)
	}
}

func TestPackage_SnapshotsArguments(t *testing.T) {
	reports := Package(context.Background(), testPackage(t), rand.New(rand.NewPCG(3, 5)))
	rep := reports[2]

	if len(rep.Before) != 2 || len(rep.After) != 2 {
		t.Fatalf("snapshot lengths = (%d, %d), want (2, 2)", len(rep.Before), len(rep.After))
	}

	in, out := rep.Before[0], rep.Before[1]
	if in.Name != "input" || in.Usage != "input" || in.Count != 16 {
		t.Errorf("input state = %+v", in)
	}
	if out.Name != "output" || out.Usage != "output" {
		t.Errorf("output state = %+v", out)
	}

	// 16 elements, 8 shown.
	if !strings.Contains(in.Preview, "... 8 more") {
		t.Errorf("input preview not elided: %q", in.Preview)
	}

	// Output buffer starts zeroed and must change across the call.
	if rep.After[1].Preview == rep.Before[1].Preview {
		t.Error("output preview unchanged across the call")
	}
}

func TestPackage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := Package(ctx, testPackage(t), rand.New(rand.NewPCG(3, 5)))
	if len(reports) != 0 {
		t.Errorf("got %d reports after cancellation, want 0", len(reports))
	}
}

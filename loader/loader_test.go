package loader

import (
	stderrors "errors"
	"testing"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
)

type fakeCallable struct{}

func (fakeCallable) Call([]uintptr) uintptr { return 0 }

// fakeLibrary resolves any symbol in its set and records Close calls.
type fakeLibrary struct {
	symbols map[string]bool
	closed  bool
}

func (l *fakeLibrary) Symbol(name string) (hat.Callable, error) {
	if !l.symbols[name] {
		return nil, errors.NotFound(errors.PhaseLoad, "symbol", name)
	}
	return fakeCallable{}, nil
}

func (l *fakeLibrary) Close() error {
	l.closed = true
	return nil
}

func testHATFile() *schema.HATFile {
	gemm := &schema.Function{
		Name:              "gemm_128",
		CallingConvention: schema.CDecl,
		Arguments: []schema.Parameter{
			{
				Name: "A", LogicalType: schema.AffineArray, DeclaredType: "float*",
				ElementType: schema.Float32, Usage: schema.Input, Shape: []int64{128, 128},
			},
		},
		Return: schema.VoidParameter(),
	}
	dev := &schema.Function{
		Name:              "gemm_device",
		CallingConvention: schema.Device,
		Return:            schema.VoidParameter(),
	}
	return &schema.HATFile{
		Name: "gemm",
		Functions: map[string]*schema.Function{
			"gemm_128":    gemm,
			"gemm_device": dev,
		},
		Dependencies: schema.Dependencies{LinkTarget: "gemm.so"},
	}
}

func loadFake(t *testing.T, hf *schema.HATFile) (*Package, *fakeLibrary) {
	t.Helper()
	lib := &fakeLibrary{symbols: map[string]bool{
		"gemm_128":    true,
		"gemm_device": true,
		"hat_free":    true,
	}}
	pkg, err := loadWith(hf, func(string) (hat.Library, error) { return lib, nil })
	if err != nil {
		t.Fatalf("loadWith error: %v", err)
	}
	return pkg, lib
}

func TestPackage_Function(t *testing.T) {
	pkg, _ := loadFake(t, testHATFile())

	fn, sym, err := pkg.Function("gemm_128")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	if fn.Name != "gemm_128" {
		t.Errorf("resolved %q, want gemm_128", fn.Name)
	}
	if sym == nil {
		t.Error("nil callable for resolved function")
	}
}

func TestPackage_FunctionPrefix(t *testing.T) {
	pkg, _ := loadFake(t, testHATFile())

	fn, _, err := pkg.Function("gemm_1")
	if err != nil {
		t.Fatalf("prefix resolution error: %v", err)
	}
	if fn.Name != "gemm_128" {
		t.Errorf("resolved %q, want gemm_128", fn.Name)
	}

	// "gemm_" matches both functions and must be rejected as ambiguous.
	if _, _, err := pkg.Function("gemm_"); err == nil {
		t.Error("expected error for ambiguous prefix")
	}
}

func TestPackage_RejectsDeviceFunction(t *testing.T) {
	pkg, _ := loadFake(t, testHATFile())

	_, _, err := pkg.Function("gemm_device")
	if err == nil {
		t.Fatal("expected error for device calling convention")
	}
	want := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindUnsupported}
	if !stderrors.Is(err, want) {
		t.Errorf("error = %v, want load/unsupported", err)
	}
}

func TestPackage_Deallocator(t *testing.T) {
	hf := testHATFile()
	fn := hf.Functions["gemm_128"]

	pkg, _ := loadFake(t, hf)

	dealloc, err := pkg.Deallocator(fn)
	if err != nil || dealloc != nil {
		t.Fatalf("Deallocator() = (%v, %v), want (nil, nil) when undeclared", dealloc, err)
	}

	fn.Auxiliary = map[string]any{schema.AuxDeallocate: "hat_free"}
	dealloc, err = pkg.Deallocator(fn)
	if err != nil {
		t.Fatalf("Deallocator error: %v", err)
	}
	if dealloc == nil {
		t.Error("nil deallocator for declared name")
	}
}

func TestLoadWith_MissingLinkTarget(t *testing.T) {
	hf := testHATFile()
	hf.Dependencies.LinkTarget = ""

	lib := &fakeLibrary{}
	_, err := loadWith(hf, func(string) (hat.Library, error) { return lib, nil })
	if err == nil {
		t.Fatal("expected error for missing link_target")
	}
	want := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindFieldMissing}
	if !stderrors.Is(err, want) {
		t.Errorf("error = %v, want load/field_missing", err)
	}
}

func TestPackage_Close(t *testing.T) {
	pkg, lib := loadFake(t, testHATFile())

	if err := pkg.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !lib.closed {
		t.Error("underlying library was not closed")
	}
	if err := pkg.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("/nonexistent/library.so")
	if err == nil {
		t.Fatal("expected error for missing library file")
	}
	want := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound}
	if !stderrors.Is(err, want) {
		t.Errorf("error = %v, want load/not_found", err)
	}
}

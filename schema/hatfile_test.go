package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleHATFile() *HATFile {
	return &HATFile{
		Name: "sample_gemm_library",
		Description: Description{
			Author:     "John Doe",
			Version:    "1.2.3.5",
			LicenseURL: "https://www.apache.org/licenses/LICENSE-2.0.html",
		},
		Functions: map[string]*Function{
			"gemm": validFunction(),
		},
		Target: Target{
			Required: TargetRequired{
				OS:  "linux",
				CPU: CPU{Architecture: "x86_64", Extensions: []string{"AVX2"}},
			},
		},
		Dependencies: Dependencies{LinkTarget: "libgemm.so"},
		CompiledWith: CompiledWith{Compiler: "clang"},
		Declaration:  Declaration{Code: "void gemm(float*, float*);"},
	}
}

func TestHATFile_SerializeDeserialize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample_gemm_library.hat")

	h1 := sampleHATFile()
	if err := h1.Serialize(path); err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	h2, err := Deserialize(path)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}

	if h2.Name != "sample_gemm_library" {
		t.Errorf("Name = %q, want %q", h2.Name, "sample_gemm_library")
	}
	if h2.Description.Author != h1.Description.Author {
		t.Errorf("Author = %q, want %q", h2.Description.Author, h1.Description.Author)
	}
	if h2.Dependencies.LinkTarget != "libgemm.so" {
		t.Errorf("LinkTarget = %q, want %q", h2.Dependencies.LinkTarget, "libgemm.so")
	}

	fn, err := h2.Function("gemm")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	if fn.CallingConvention != CDecl {
		t.Errorf("CallingConvention = %q, want %q", fn.CallingConvention, CDecl)
	}
	if len(fn.Arguments) != 2 {
		t.Fatalf("len(Arguments) = %d, want 2", len(fn.Arguments))
	}
	if got := fn.Arguments[0].Shape; len(got) != 2 || got[0] != 16 || got[1] != 16 {
		t.Errorf("Shape = %v, want [16 16]", got)
	}
	if !fn.Return.IsVoid() {
		t.Error("expected void return")
	}
}

func TestHATFile_DualSyntaxFraming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framed.hat")

	if err := sampleHATFile().Serialize(path); err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	text := string(raw)

	// The C half: include guard and TOML fence, fence closed before the guard.
	for _, marker := range []string{"#ifndef __framed__", "#define __framed__", "#ifdef TOML", "#endif // TOML", "#endif // __framed__"} {
		if !strings.Contains(text, marker) {
			t.Errorf("serialized file missing %q", marker)
		}
	}
	if strings.Index(text, "#endif // TOML") > strings.Index(text, "#endif // __framed__") {
		t.Error("TOML fence closes after the include guard")
	}
}

func TestParse_UnframedTOML(t *testing.T) {
	doc := `
[description]
author = "me"
version = "0.0.1"
license_url = ""

[functions.scale]
name = "scale"
calling_convention = "cdecl"
arguments = [
    { name = "x", logical_type = "affine_array", declared_type = "float*", element_type = "float32", usage = "input_output", shape = [256], affine_map = [1] },
]

[functions.scale.return]
logical_type = "void"
declared_type = "void"
element_type = "void"
usage = "output"

[target.required]
os = "linux"

[target.required.CPU]
architecture = "x86_64"

[dependencies]
link_target = "libscale.so"

[compiled_with]
compiler = "gcc"

[declaration]
code = "void scale(float*);"
`
	h, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	fn, err := h.Function("scale")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	if fn.Arguments[0].Usage != InputOutput {
		t.Errorf("usage = %q, want input_output", fn.Arguments[0].Usage)
	}
}

func TestParse_MissingFunctions(t *testing.T) {
	if _, err := Parse([]byte("[description]\nauthor = \"x\"\nversion = \"1\"\nlicense_url = \"\"\n")); err == nil {
		t.Fatal("expected error for document without functions")
	}
}

func TestHATFile_FunctionPrefixLookup(t *testing.T) {
	h := sampleHATFile()
	h.Functions = map[string]*Function{}

	a := validFunction()
	a.Name = "test_function_698b5e5c"
	h.Functions[a.Name] = a

	fn, err := h.Function("test_function")
	if err != nil {
		t.Fatalf("prefix lookup error: %v", err)
	}
	if fn.Name != "test_function_698b5e5c" {
		t.Errorf("resolved %q, want %q", fn.Name, "test_function_698b5e5c")
	}

	b := validFunction()
	b.Name = "test_function_11aa22bb"
	h.Functions[b.Name] = b

	if _, err := h.Function("test_function"); err == nil {
		t.Error("ambiguous prefix should fail")
	}
	if _, err := h.Function("missing"); err == nil {
		t.Error("unknown name should fail")
	}
}

func TestHATFile_LinkTargetPath(t *testing.T) {
	h := sampleHATFile()
	h.Path = "/pkg/dir/sample.hat"
	if got := h.LinkTargetPath(); got != filepath.Join("/pkg/dir", "libgemm.so") {
		t.Errorf("LinkTargetPath() = %q", got)
	}

	h.Dependencies.LinkTarget = "/abs/libgemm.so"
	if got := h.LinkTargetPath(); got != "/abs/libgemm.so" {
		t.Errorf("LinkTargetPath() = %q, want absolute passthrough", got)
	}
}

func TestHATFile_WriteBackMeanDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timed.hat")

	if err := sampleHATFile().Serialize(path); err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	h, err := Deserialize(path)
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	fn, err := h.Function("gemm")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	fn.SetMeanDuration(0.004)
	if err := h.Serialize(""); err != nil {
		t.Fatalf("re-Serialize error: %v", err)
	}

	h2, err := Deserialize(path)
	if err != nil {
		t.Fatalf("second Deserialize error: %v", err)
	}
	fn2, err := h2.Function("gemm")
	if err != nil {
		t.Fatalf("Function error: %v", err)
	}
	if v, ok := fn2.Auxiliary[AuxMeanDuration].(float64); !ok || v != 0.004 {
		t.Errorf("auxiliary mean duration = %v (%t), want 0.004", v, ok)
	}
}

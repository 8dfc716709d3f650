package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/microsoft/hat/errors"
)

// Description is the package-level descriptive table.
type Description struct {
	Author     string         `toml:"author"`
	Version    string         `toml:"version"`
	LicenseURL string         `toml:"license_url"`
	Auxiliary  map[string]any `toml:"auxiliary,omitempty"`
}

// CPU describes the host processor requirements of the package.
type CPU struct {
	Architecture string   `toml:"architecture"`
	Extensions   []string `toml:"extensions,omitempty"`
}

// GPU describes the device requirements of a package with device functions.
type GPU struct {
	Model              string `toml:"model,omitempty"`
	Runtime            string `toml:"runtime,omitempty"`
	MinThreadsPerBlock int    `toml:"min_threads_per_block,omitempty"`
}

// TargetRequired is the hard requirement half of the target table.
type TargetRequired struct {
	OS  string `toml:"os"`
	CPU CPU    `toml:"CPU"`
	GPU *GPU   `toml:"GPU,omitempty"`
}

// Target describes the machine the package was compiled for.
type Target struct {
	Required TargetRequired `toml:"required"`
}

// Dependencies names the binaries a package needs at runtime.
type Dependencies struct {
	LinkTarget  string         `toml:"link_target"`
	DeployFiles []string       `toml:"deploy_files,omitempty"`
	Auxiliary   map[string]any `toml:"auxiliary,omitempty"`
}

// CompiledWith records the toolchain that produced the binary.
type CompiledWith struct {
	Compiler string `toml:"compiler"`
	Flags    string `toml:"flags,omitempty"`
	CRuntime string `toml:"crt,omitempty"`
}

// Declaration carries the C declaration block of the header half.
type Declaration struct {
	Code string `toml:"code,multiline"`
}

// HATFile is the parsed metadata document of one HAT package. A HAT file is
// simultaneously a C header and a TOML document: the TOML body is fenced
// behind an `#ifdef TOML` block that the C preprocessor never takes.
type HATFile struct {
	Name string `toml:"-"`
	Path string `toml:"-"`

	Description     Description          `toml:"description"`
	Functions       map[string]*Function `toml:"functions"`
	DeviceFunctions map[string]*Function `toml:"device_functions,omitempty"`
	Target          Target               `toml:"target"`
	Dependencies    Dependencies         `toml:"dependencies"`
	CompiledWith    CompiledWith         `toml:"compiled_with"`
	Declaration     Declaration          `toml:"declaration"`
}

const (
	prologueFormat = "\n#ifndef __%[1]s__\n#define __%[1]s__\n\n#ifdef TOML\n"
	epilogueFormat = "\n#endif // TOML\n\n#endif // __%[1]s__\n"

	tomlOpen  = "#ifdef TOML"
	tomlClose = "#endif // TOML"
)

// Deserialize reads and validates a HAT file from disk.
func Deserialize(path string) (*HATFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseFailed(path, err)
	}

	h, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	h.Path = path
	h.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return h, nil
}

// Parse decodes HAT file contents. The TOML body may stand alone or be
// framed inside the C-header `#ifdef TOML` fence.
func Parse(raw []byte) (*HATFile, error) {
	body := string(raw)
	if i := strings.Index(body, tomlOpen); i >= 0 {
		body = body[i+len(tomlOpen):]
		if j := strings.Index(body, tomlClose); j >= 0 {
			body = body[:j]
		}
	}

	var h HATFile
	if err := toml.Unmarshal([]byte(body), &h); err != nil {
		return nil, errors.ParseFailed("HAT document", err)
	}

	if err := h.normalize(); err != nil {
		return nil, err
	}
	return &h, nil
}

// normalize fills derived fields and validates every function.
func (h *HATFile) normalize() error {
	if len(h.Functions) == 0 {
		return errors.FieldMissing(errors.PhaseParse, "hat", "functions")
	}
	for _, table := range []map[string]*Function{h.Functions, h.DeviceFunctions} {
		for key, fn := range table {
			if fn.Name == "" {
				fn.Name = key
			}
			if fn.Return.DeclaredType == "" && fn.Return.LogicalType == "" {
				fn.Return = VoidParameter()
			}
			if err := fn.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize writes the HAT file to path, or to its own Path when path is
// empty, framed as a dual-syntax C header.
func (h *HATFile) Serialize(path string) error {
	if path == "" {
		path = h.Path
	}
	if path == "" {
		return errors.InvalidInput(errors.PhaseSchema, "no destination path for HAT file")
	}

	body, err := toml.Marshal(h)
	if err != nil {
		return errors.Wrap(errors.PhaseSchema, errors.KindInvalidData, err, "encode HAT document")
	}

	// MSVC does not allow "." in macro definitions.
	guard := strings.ReplaceAll(h.Name, ".", "_")

	var b strings.Builder
	fmt.Fprintf(&b, prologueFormat, guard)
	b.Write(body)
	fmt.Fprintf(&b, epilogueFormat, guard)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(errors.PhaseSchema, errors.KindInvalidData, err, "write HAT file")
	}
	h.Path = path
	return nil
}

// Function returns the named function. An exact match wins; otherwise a
// unique prefix match is accepted, so callers can use a base name for
// functions suffixed with a hash by the emitting compiler.
func (h *HATFile) Function(name string) (*Function, error) {
	if fn, ok := h.Functions[name]; ok {
		return fn, nil
	}
	var match *Function
	for key, fn := range h.Functions {
		if strings.HasPrefix(key, name) {
			if match != nil {
				return nil, errors.New(errors.PhaseSchema, errors.KindInvalidInput).
					Detail("function prefix %q is ambiguous", name).
					Build()
			}
			match = fn
		}
	}
	if match == nil {
		return nil, errors.NotFound(errors.PhaseSchema, "function", name)
	}
	return match, nil
}

// FunctionNames returns the declared function names in sorted order.
func (h *HATFile) FunctionNames() []string {
	names := make([]string, 0, len(h.Functions))
	for name := range h.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LinkTargetPath resolves the dependency binary relative to the HAT file.
func (h *HATFile) LinkTargetPath() string {
	if h.Dependencies.LinkTarget == "" {
		return ""
	}
	if filepath.IsAbs(h.Dependencies.LinkTarget) || h.Path == "" {
		return h.Dependencies.LinkTarget
	}
	return filepath.Join(filepath.Dir(h.Path), h.Dependencies.LinkTarget)
}

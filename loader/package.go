package loader

import (
	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
	"github.com/microsoft/hat/schema"
)

// Package is a loaded HAT package: the parsed metadata plus the shared
// library its link target points at, with symbols resolved on demand.
type Package struct {
	HAT *schema.HATFile

	lib hat.Library
}

// LoadPackage parses the HAT file at path and maps the shared library its
// dependencies.link_target names, resolved relative to the HAT file.
func LoadPackage(path string) (*Package, error) {
	hf, err := schema.Deserialize(path)
	if err != nil {
		return nil, err
	}
	return loadWith(hf, Open)
}

// loadWith is the seam tests use to substitute a fake library opener.
func loadWith(hf *schema.HATFile, open func(string) (hat.Library, error)) (*Package, error) {
	target := hf.LinkTargetPath()
	if target == "" {
		return nil, errors.FieldMissing(errors.PhaseLoad, "dependencies", "link_target")
	}
	lib, err := open(target)
	if err != nil {
		return nil, err
	}

	Logger().Info("loaded package",
		zapPath(hf.Path),
		zapTarget(target),
		zapFunctionCount(len(hf.Functions)))
	return NewPackage(hf, lib), nil
}

// NewPackage wraps already-loaded metadata and an open library. Most
// callers want LoadPackage; this entry point serves embedders that manage
// library lifetime themselves.
func NewPackage(hf *schema.HATFile, lib hat.Library) *Package {
	return &Package{HAT: hf, lib: lib}
}

// Function resolves the named function's metadata and native entry point.
// Names may be shortened to any unique prefix. Functions declaring a
// device calling convention cannot be called from the host and are
// rejected here, at resolution rather than call time.
func (p *Package) Function(name string) (*schema.Function, hat.Callable, error) {
	fn, err := p.HAT.Function(name)
	if err != nil {
		return nil, nil, err
	}
	if fn.CallingConvention == schema.Device {
		return nil, nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Function(fn.Name).
			Detail("device functions are not host-callable").
			Build()
	}

	sym, err := p.lib.Symbol(fn.Name)
	if err != nil {
		return nil, nil, err
	}
	return fn, sym, nil
}

// Deallocator resolves the function's declared deallocator, if any.
// Returns nil with no error when the package declares none.
func (p *Package) Deallocator(fn *schema.Function) (hat.Callable, error) {
	name := fn.DeallocateFunction()
	if name == "" {
		return nil, nil
	}
	return p.lib.Symbol(name)
}

// Close unmaps the shared library. Callables resolved from the package
// must not be invoked afterwards.
func (p *Package) Close() error {
	if p.lib == nil {
		return nil
	}
	err := p.lib.Close()
	p.lib = nil
	return err
}

package loader

import (
	"os"

	"github.com/ebitengine/purego"

	hat "github.com/microsoft/hat"
	"github.com/microsoft/hat/errors"
)

// dynamicLibrary wraps a dlopen handle behind the hat.Library interface.
type dynamicLibrary struct {
	handle uintptr
	path   string
}

// Open loads the shared library at path. The library stays mapped until
// Close; symbols resolved from it are invalid afterwards.
func Open(path string) (hat.Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Cause(err).
			Detail("shared library %q", path).
			Build()
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Load(path, err)
	}

	Logger().Debug("loaded shared library", zapPath(path))
	return &dynamicLibrary{handle: handle, path: path}, nil
}

func (l *dynamicLibrary) Symbol(name string) (hat.Callable, error) {
	if l.handle == 0 {
		return nil, errors.NotInitialized(errors.PhaseLoad, "library handle")
	}
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Function(name).
			Cause(err).
			Detail("symbol not exported by %q", l.path).
			Build()
	}
	return symbol(addr), nil
}

func (l *dynamicLibrary) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	if err != nil {
		return errors.Load(l.path, err)
	}
	return nil
}

// symbol is a resolved native entry point. Call trampolines the word
// vector straight into the C calling convention.
type symbol uintptr

func (s symbol) Call(args []uintptr) uintptr {
	r1, _, _ := purego.SyscallN(uintptr(s), args...)
	return r1
}

package hat

// Callable is a loaded native function. Args is the flattened argument
// vector in declared order; every slot is a pointer-width word. The call is
// synchronous and returns after the callee returns. Native code provides no
// structured error channel: a fault in the callee is fatal to the process.
type Callable interface {
	Call(args []uintptr) uintptr
}

// Library is a loaded native binary that resolves symbols into Callables.
type Library interface {
	Symbol(name string) (Callable, error)
	Close() error
}

// OwnershipPolicy decides who releases buffers allocated by the callee
// (runtime-array outputs). The schema may declare a paired deallocation
// function; when it does not, the binder surfaces the ambiguity instead of
// guessing.
type OwnershipPolicy int

const (
	// OwnershipCalleeOwned leaves callee-allocated buffers to the callee.
	// The harvested view stays readable but is never freed by this side;
	// absent a declared deallocator this leaks rather than double-frees.
	OwnershipCalleeOwned OwnershipPolicy = iota

	// OwnershipCallerFrees releases callee-allocated buffers through the
	// package's declared deallocation function.
	OwnershipCallerFrees
)

func (p OwnershipPolicy) String() string {
	switch p {
	case OwnershipCalleeOwned:
		return "callee_owned"
	case OwnershipCallerFrees:
		return "caller_frees"
	default:
		return "unknown"
	}
}

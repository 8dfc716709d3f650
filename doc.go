// Package hat loads HAT packages and calls the native functions they
// describe without hand-written bindings.
//
// A HAT package is a compiled static or dynamic library plus a metadata file
// (a TOML document framed as a C header) describing every exported
// function: its calling convention, the logical type of each parameter
// (affine array, runtime array, element, void), element types, shapes,
// affine layouts, and size expressions. Given only that metadata, this
// library binds concrete buffers to each parameter, invokes the function
// through its symbol, and drives a cache-eviction-aware benchmark loop over
// the result.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	hat/             Root package with Callable and Library interfaces
//	├── schema/      HAT metadata model, validation, TOML (de)serialization
//	├── sizeexpr/    Arithmetic size-expression parser and evaluator
//	├── bind/        Shape resolution, argument binding, native invocation
//	├── loader/      Dynamic library loading and symbol resolution
//	├── bench/       Working-set benchmark harness and timing statistics
//	├── verify/      One-shot randomized execution of package functions
//	└── errors/      Structured error types for diagnostics
//
// # Quick Start
//
// Load a package and benchmark a function:
//
//	pkg, err := loader.LoadPackage("my_package.hat")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pkg.Close()
//
//	fn, sym, err := pkg.Function("my_func")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	plan, err := bind.Resolve(fn, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := bench.Run(ctx, sym, plan, bench.Options{
//	    MinIterations:      100,
//	    MinTime:            10 * time.Second,
//	    MinWorkingSetBytes: 50 << 20,
//	})
//	fmt.Println(result.Mean)
//
// # Binding Model
//
// Arguments are resolved left to right as declared, then the return value.
// Element parameters bind a single scalar cell; affine arrays bind a buffer
// whose extent follows the declared shape and stride map; runtime arrays
// bind a buffer whose length is the value of a size expression over
// previously bound parameters. Output runtime arrays are callee-allocated:
// the binder passes an empty pointer slot before the call and harvests the
// returned pointer and written-back count after it.
//
// # Benchmarking Model
//
// The harness pre-allocates enough independent argument replicas that the
// total footprint exceeds the configured working-set floor, then rotates
// through them so successive calls touch cold memory. The loop stops only
// after both the iteration floor and the wall-clock floor are satisfied,
// timed against the monotonic clock.
//
// # Thread Safety
//
// A bound frame and a benchmark session are single-goroutine. Independent
// functions may be benchmarked in parallel sessions, each owning a disjoint
// working set.
package hat

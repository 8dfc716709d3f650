// Package schema models the metadata half of a HAT package.
//
// A HAT file describes compiled native functions in machine-readable form:
// for every function, its calling convention and an ordered list of
// parameter descriptors covering logical type (affine_array, runtime_array,
// element, void), element type, shape, affine layout, and runtime size
// expressions. The document is a TOML body framed inside a C header so the
// same file parses under both a C compiler and a TOML parser.
//
// Parsed schemas are constructed once at package load and treated as
// immutable; binding and benchmarking consume them read-only. The one
// sanctioned mutation path is the auxiliary table, where benchmark results
// (mean_duration_in_sec) are written back before re-serialization.
package schema

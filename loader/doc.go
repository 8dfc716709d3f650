// Package loader maps HAT packages into the process.
//
// A package is a HAT metadata file plus the shared library its link
// target names. LoadPackage parses the metadata, dlopens the binary, and
// hands out native entry points as hat.Callable values that the bind
// package can invoke. Device functions are rejected at resolution time
// since they cannot be entered from host code.
package loader

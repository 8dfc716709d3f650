// Package bind turns HAT parameter metadata into native-call arguments.
//
// Binding happens in three steps that mirror the call lifecycle:
//
//  1. Resolve: walk the declared parameters left to right (then the return
//     value) and compute each one's concrete element count, buffer extent,
//     and strides. Runtime-array sizes evaluate their size expression
//     against parameters already bound, so the declaration order is also
//     the dependency order.
//  2. Bind: allocate or adopt one buffer per parameter and collapse each to
//     a tagged bound argument: a pre-bound buffer, a pending
//     callee-allocated slot, or a by-value scalar.
//  3. Invoke and harvest: make the call, then re-inspect pending slots.
//     Callee-allocated outputs invert the normal order of things: their
//     size is known only after the call, when the binder takes ownership of
//     the pointer the callee wrote back and evaluates the size expression
//     against post-call values.
//
// The binder never fabricates input data; callers supply input buffers or
// ask FillRandom to populate binder-allocated ones. Buffers the binder
// allocates belong to the frame. Buffers the callee allocates follow the
// package's declared deallocation function; when a package declares none,
// the frame records an unspecified-ownership warning and the default
// policy leaks rather than risking a double free.
package bind

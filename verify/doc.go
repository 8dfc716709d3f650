// Package verify smoke-tests a HAT package by calling every function
// once with random finite inputs and snapshotting argument contents
// before and after each call.
package verify

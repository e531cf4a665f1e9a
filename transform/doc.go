// Package transform implements the pass pipeline that lowers a validated
// ir.Module into the canonical form a backend (HLSL, MSL, GLSL, SPIR-V)
// expects: buffer accesses rewritten over a fixed-width element array,
// discard turned into a side-effect mask, matrix arithmetic decomposed into
// per-column operations, and the handful of smaller structural cleanups
// described alongside each transform's doc comment.
//
// Every transform has the shape of Transform: it validates its input
// against the capabilities it requires, mutates the module in place, and
// returns without validating its own output — the next pass's prologue (or
// the caller, for the last pass) does that. Pipeline strings transforms
// together with exactly that contract.
package transform

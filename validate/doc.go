// Package validate checks whether an *ir.Module is well-formed against a
// Capabilities set: the invariant checker every transform pass's prologue
// runs before mutating, and the contract a reader (WGSL, SPIR-V) must
// satisfy before handing a Module to the transform pipeline.
//
// Validate never mutates the module it inspects. It returns a Result
// carrying zero or more Diagnostics; an empty Result is success. Diagnostics
// name the offending instruction and its enclosing function, and
// Result.Dump renders the whole module as disassembly text for a caller
// that wants to print both together (a debug aid, not part of the returned
// error value).
package validate

// Package ir defines the core intermediate representation shared by every
// shading-language front end and backend in this module family.
//
// The IR is a control-flow-graph form: a Module owns a root block of
// module-scope variables and an ordered list of Functions, each of which
// owns a single root Block. Blocks hold an intrusive doubly-linked list of
// Instructions terminated by exactly one Terminator. Every Value an
// instruction produces tracks its own consumers in a use-list, so operand
// rewriting (SetOperand, ReplaceAllUsesWith) keeps producer and consumer in
// sync without a separate def-use pass.
//
// # Structure
//
//   - Type / TypeManager: an interned, structurally-deduplicated type graph
//     with WGSL-compatible size and alignment rules.
//   - Value: the common base of Constant, InstructionResult, FunctionParam,
//     BlockParam and Function, each carrying a use-list.
//   - Instruction / Block / Function / Module: the control-flow skeleton.
//   - Builder: the only supported way to construct and insert instructions.
//
// # Translation pipeline
//
// A reader (WGSL, SPIR-V — outside this package) produces a Module. The
// module is checked by the validate package, mutated by an ordered sequence
// of transform package passes (each re-validated by the next pass's
// prologue), and finally handed to a target-specific printer (also outside
// this package).
//
// # References
//
// This design follows the Tint/Dawn WebGPU shader compiler's core IR
// (src/tint/lang/core/ir in the Chromium/Dawn source tree), adapted to
// idiomatic Go.
package ir

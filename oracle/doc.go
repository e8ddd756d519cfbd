// Package oracle abstracts the execution backends a conformance case runs
// against.
//
// An Oracle produces Sessions; a Session holds instantiated modules and is
// scoped to one fixture so scripts cannot leak state into each other. Two
// wazero-backed oracles cover the wast dialect: Interpreter() executes
// through wazero's interpreter engine and Compiler() through its native
// code-generating engine, giving two independent execution paths for the
// same input. External() adapts an out-of-process interpreter or compiler
// (the CLIF toolchain) over a line-delimited JSON protocol.
//
// Traps are caught at the invocation boundary and reported as an Outcome,
// never as a harness error: a trapped case is data, not a defect.
package oracle

// Package golden compares compiled-code disassembly against the expected
// block embedded in a fixture.
//
// A fixture may end with a run of ";;" comment lines holding the expected
// disassembly for its declared target. The comparator compiles the fixture's
// module through a Backend, disassembles the result, and diffs the two blocks
// structurally:
//
//	fixture text ── ExtractBlock ──▶ stored lines ─┐
//	                                               ├─▶ Compare ──▶ Diff
//	Backend.Compile + Disassemble ─▶ fresh lines ──┘
//
// Byte offsets and absolute call/jump targets shift whenever unrelated code
// changes size, so Normalize strips offsets and raw byte columns and rewrites
// absolute control-flow targets to a symbolic form before lines are compared.
// Divergence after a matched terminal ud2 is tolerated: whatever the
// disassembler prints for padding bytes is not part of the contract.
//
// Update writes a regenerated block back into the fixture file. It is a
// separate call from Compare and nothing in this package invokes it
// implicitly; a failing comparison never rewrites its own expectation.
package golden

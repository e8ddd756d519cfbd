// Package conformance provides a dual-oracle conformance harness for
// compiler test fixtures.
//
// The harness parses fixture files in two dialects (CLIF-style run tests and
// WebAssembly .wast scripts), executes each extracted case through an
// interpreter oracle and a compiled-code oracle, and cross-checks both
// outcomes against the fixture's expectations. Fixtures carrying an embedded
// golden-disassembly block are additionally checked against a deterministic
// disassembly of the compiled output.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	wasm-conformance/    Root package with the Value model shared by all dialects
//	├── fixture/         CLIF-dialect front-end: header directives and run: cases
//	├── wast/            Wast-dialect front-end: S-expression scripts and ;;! metadata
//	├── wat/             WAT text format to WASM binary compiler
//	├── oracle/          Oracle abstraction; wazero interpreter/compiler oracles
//	├── golden/          Golden-disassembly extraction, comparison and update
//	├── harness/         Worker-pool executor, target applicability, aggregation
//	├── report/          Result rendering: summaries, diffs, terminal color
//	├── errors/          Structured error types for debugging
//	└── cmd/conformance/ CLI: path globs, filters, golden update, TUI browser
//
// # Value Model
//
// Every literal in a fixture (arguments, expected results, lane elements)
// is normalized into the Value union defined here. Comparison is bitwise:
// float values preserve their exact bit patterns, so NaN payloads and signed
// zero stay distinct rather than collapsing under IEEE equality.
//
// # Quick Start
//
// Run fixtures against both wazero oracles:
//
//	r := harness.NewRunner(harness.Config{Workers: 4, Timeout: 10 * time.Second})
//	summary, err := r.Run(ctx, []string{"testdata/simd.wast"})
//	if err != nil {
//		return err
//	}
//	os.Exit(summary.ExitCode())
package conformance

// Package wat compiles WebAssembly text-format source into binary modules.
//
// Conformance scripts quote their modules in text form, so every module an
// oracle instantiates passes through here first:
//
//	wasm, err := wat.Compile(`(module
//		(func (export "add") (param i32 i32) (result i32)
//			(i32.add (local.get 0) (local.get 1)))
//	)`)
//
// The front end covers the WASM 2.0 surface the harness exercises:
//   - functions with params, results, and named or indexed locals
//   - multi-value returns and block parameters
//   - memory, global, and table declarations, imported or exported
//   - control flow: block, loop, if/then/else, br, br_if, br_table, return
//   - call and call_indirect with type references
//   - the full i32/i64/f32/f64 numeric instruction set
//   - loads and stores with offset/align memargs, including a memory index
//   - bulk memory: memory.copy/fill/init, data.drop
//   - table instructions and elem.drop
//   - reference types: funcref, externref, ref.null, ref.func, ref.is_null
//   - saturating truncations and sign-extension instructions
//   - typed select
//   - data and elem segments in active, passive, and declarative modes
//   - line (;;) and nestable block (; ;) comments
//
// Not supported: SIMD (v128), tail calls, threads/atomics, exception
// handling, GC types.
package wat

// Package wast parses WebAssembly .wast conformance scripts.
//
// A script is a sequence of S-expression commands over one or more text
// modules:
//
//	(module
//	  (func (export "add") (param i32 i32) (result i32)
//	    (i32.add (local.get 0) (local.get 1))))
//	(assert_return (invoke "add" (i32.const 1) (i32.const 2)) (i32.const 3))
//	(assert_trap (invoke "div" (i32.const 1) (i32.const 0)) "integer divide by zero")
//	(assert_invalid (module (func (result i32))) "type mismatch")
//
// An optional ;;! metadata header configures target, test kind and feature
// flags as key = "value" pairs. Assertions are normalized into the shared
// conformance.Case representation; module bodies are kept as verbatim source
// slices for the wat compiler. assert_invalid, assert_malformed and
// assert_unlinkable record load-time failure cases that must be rejected
// before any invocation happens.
package wast

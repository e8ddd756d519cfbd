// Package fixture parses CLIF-dialect run-test fixtures.
//
// A fixture file opens with header directives that configure execution:
//
//	test interpret
//	test run
//	set enable_llvm_abi_extensions=true
//	target x86_64 has_avx
//	target aarch64
//
// followed by function definitions and ;-prefixed assertion lines:
//
//	function %icmp_slt_i8(i8, i8) -> i8 { ... }
//	; run: %icmp_slt_i8(0, 1) == 1
//	; run: %icmp_slt_i8(-1, 0) == 1
//
// Directive order matters: set lines accumulate and are captured by the next
// target line, then reset. Assertion lines are extracted into the shared
// conformance.Case representation; any malformed directive, signature or
// literal aborts the file with a hard parse error rather than skipping the
// case silently.
package fixture

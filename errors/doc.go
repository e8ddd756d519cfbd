// Package errors provides structured error types for the conformance harness.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries fixture context: file, line, case name,
// target, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindMalformedLiteral).
//		File("icmp-slt.clif").
//		Line(42).
//		Detail("bad hex float %q", lit).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MalformedLiteral(file, line, lit)
//	err := errors.Timeout(caseName, target, elapsed)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

// Package harness drives a conformance run end to end: it parses fixture
// and script files, fans the resulting work out over a worker pool, executes
// each case against the configured oracles, and aggregates the outcomes.
//
// Work is split per (file, target) pair and every pair runs to completion
// independently. A failing case never suppresses its siblings, and a target
// the host cannot execute is reported as skipped rather than silently
// dropped:
//
//	paths ──▶ parse ──▶ tasks (file × target)
//	                       │
//	                  worker pool ──▶ records channel ──▶ Summary
//
// Run-mode fixture cases execute through the configured oracles and their
// outcomes are checked against the case expectation and against each other;
// the two oracles disagreeing is a failure even when the case itself is
// unconstrained. Compile-mode fixtures go through the golden comparator
// instead.
//
// A panic inside a worker is converted to an errored record for the task it
// was running; harness defects surface in the summary, not as a crashed run.
package harness

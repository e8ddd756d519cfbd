package harness

import (
	"fmt"
	"strings"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/oracle"
)

// trapAliases maps expectation trap wording onto the engine's phrasing.
// Fixtures use the reference interpreter's messages; wazero words some of
// them differently.
var trapAliases = map[string][]string{
	"undefined element":           {"invalid table access"},
	"uninitialized element":       {"invalid table access"},
	"call stack exhausted":        {"stack overflow"},
	"out of bounds memory access": {"memory out of bounds"},
	"out of bounds table access":  {"table out of bounds", "invalid table access"},
}

// loadAliases maps the assert_invalid family's expected wording onto the
// diagnostics the wat front end and the engine validator actually emit.
var loadAliases = map[string][]string{
	"unknown operator":             {"unknown instruction"},
	"unexpected token":             {"expected", "unexpected"},
	"unexpected end":               {"unexpected end"},
	"multiple memories":            {"at most one memory"},
	"unknown import":               {"not instantiated", "not exported", "unknown import"},
	"incompatible import type":     {"mismatch"},
	"constant expression required": {"constant expression", "invalid opcode"},
	"type mismatch":                {"type mismatch", "expected", "cannot"},
}

// loadFailureMatches checks an assert_invalid family message against the
// diagnostic the loader produced, by substring first and alias second.
func loadFailureMatches(want, got string) bool {
	if want == "" || strings.Contains(got, want) {
		return true
	}
	for _, alias := range loadAliases[want] {
		if strings.Contains(got, alias) {
			return true
		}
	}
	return false
}

// matchOutcome checks an invocation outcome against the case expectation.
// The returned detail is empty on success and human-readable on failure.
func matchOutcome(expect conformance.Expectation, out oracle.Outcome) (bool, string) {
	if out.Status == oracle.StatusErrored {
		return false, fmt.Sprintf("invocation error: %v", out.Err)
	}

	switch expect.Kind {
	case conformance.ExpectUnconstrained:
		if out.Status == oracle.StatusTrapped {
			return false, fmt.Sprintf("unexpected trap: %s", out.TrapMessage)
		}
		return true, ""

	case conformance.ExpectValues:
		if out.Status == oracle.StatusTrapped {
			return false, fmt.Sprintf("expected %s, trapped: %s", formatValues(expect.Values), out.TrapMessage)
		}
		return matchValues(expect.Values, out.Values)

	case conformance.ExpectTrap:
		if out.Status != oracle.StatusTrapped {
			return false, fmt.Sprintf("expected trap %q, returned %s", expect.Message, formatValues(out.Values))
		}
		if !trapMatches(expect.Message, out.TrapMessage) {
			return false, fmt.Sprintf("expected trap %q, got %q", expect.Message, out.TrapMessage)
		}
		return true, ""
	}

	// Load-failure expectations are settled before invocation.
	return false, fmt.Sprintf("expectation %s cannot be checked against an invocation", expect.Kind)
}

// matchValues compares positionally. A count mismatch is always a failure
// regardless of content. Non-null funcref expectations are relaxed to a
// non-null check: the engine returns opaque function pointers, not indices.
func matchValues(want, got []conformance.Value) (bool, string) {
	if len(want) != len(got) {
		return false, fmt.Sprintf("expected %d value(s) %s, got %d %s",
			len(want), formatValues(want), len(got), formatValues(got))
	}
	for i := range want {
		if !valueMatches(want[i], got[i]) {
			return false, fmt.Sprintf("value %d: expected %s, got %s",
				i, want[i].Format(), got[i].Format())
		}
	}
	return true, ""
}

func valueMatches(want, got conformance.Value) bool {
	if want.Kind == conformance.KindFuncRef && !want.Null {
		return got.Kind == conformance.KindFuncRef && !got.Null
	}
	return want.Equal(got)
}

func trapMatches(want, got string) bool {
	if strings.Contains(got, want) {
		return true
	}
	for _, alias := range trapAliases[want] {
		if strings.Contains(got, alias) {
			return true
		}
	}
	return false
}

// oraclesAgree cross-checks two outcomes for the same case. Agreement is a
// property of its own: both sides must return the same values or both must
// trap, whatever the case expectation says.
func oraclesAgree(a, b oracle.Outcome) (bool, string) {
	if a.Status == oracle.StatusErrored || b.Status == oracle.StatusErrored {
		// An errored side is reported on its own record.
		return true, ""
	}
	if a.Status != b.Status {
		return false, fmt.Sprintf("one oracle %s, the other %s", describeOutcome(a), describeOutcome(b))
	}
	if a.Status == oracle.StatusTrapped {
		// Both trapped; message wording may differ between engines.
		return true, ""
	}
	if len(a.Values) != len(b.Values) {
		return false, fmt.Sprintf("oracles returned %d vs %d values", len(a.Values), len(b.Values))
	}
	for i := range a.Values {
		x, y := a.Values[i], b.Values[i]
		if x.Kind == conformance.KindFuncRef && y.Kind == conformance.KindFuncRef {
			if x.Null != y.Null {
				return false, fmt.Sprintf("value %d: funcref nullness differs", i)
			}
			continue
		}
		if !x.Equal(y) {
			return false, fmt.Sprintf("value %d: %s vs %s", i, x.Format(), y.Format())
		}
	}
	return true, ""
}

func describeOutcome(o oracle.Outcome) string {
	switch o.Status {
	case oracle.StatusReturned:
		return "returned " + formatValues(o.Values)
	case oracle.StatusTrapped:
		return "trapped: " + o.TrapMessage
	}
	return "errored"
}

func formatValues(vals []conformance.Value) string {
	if len(vals) == 0 {
		return "[]"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Format()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

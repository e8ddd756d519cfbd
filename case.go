package conformance

import (
	"fmt"
	"strings"
)

// ExpectKind discriminates what a test case demands of an invocation.
type ExpectKind uint8

const (
	// ExpectUnconstrained requires only that the call completes without
	// trapping; the return value is unchecked.
	ExpectUnconstrained ExpectKind = iota
	// ExpectValues requires the returned values to match positionally and
	// bitwise.
	ExpectValues
	// ExpectTrap requires a trap whose message contains a substring.
	ExpectTrap
	// ExpectLoadFailure requires module load or link to fail with a message
	// containing a substring; the case never reaches invocation.
	ExpectLoadFailure
)

func (k ExpectKind) String() string {
	switch k {
	case ExpectValues:
		return "values"
	case ExpectTrap:
		return "trap"
	case ExpectLoadFailure:
		return "load-failure"
	}
	return "unconstrained"
}

// Expectation is the predicate a case's outcome is checked against.
type Expectation struct {
	Values  []Value
	Message string // substring for ExpectTrap / ExpectLoadFailure
	Kind    ExpectKind
}

func Unconstrained() Expectation { return Expectation{Kind: ExpectUnconstrained} }

func ExpectValuesOf(vals ...Value) Expectation {
	return Expectation{Kind: ExpectValues, Values: vals}
}

func ExpectTrapWith(msg string) Expectation {
	return Expectation{Kind: ExpectTrap, Message: msg}
}

func ExpectLoadFailureWith(msg string) Expectation {
	return Expectation{Kind: ExpectLoadFailure, Message: msg}
}

// Case is the dialect-independent test case both front-ends normalize into.
type Case struct {
	Func   string
	Args   []Value
	Expect Expectation
	Line   int
}

// Name renders the case as its call expression, matching fixture syntax.
func (c Case) Name() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Format()
	}
	return fmt.Sprintf("%%%s(%s)", strings.TrimPrefix(c.Func, "%"), strings.Join(args, ", "))
}

// Target names an ISA a fixture wants to run on, with the feature set and
// setting overrides accumulated for it.
type Target struct {
	Settings map[string]string
	Arch     string
	Features []string
}

func (t Target) String() string {
	if len(t.Features) == 0 {
		return t.Arch
	}
	return t.Arch + "+" + strings.Join(t.Features, "+")
}

// HasFeature reports whether the target declares a feature flag.
func (t Target) HasFeature(name string) bool {
	for _, f := range t.Features {
		if f == name {
			return true
		}
	}
	return false
}

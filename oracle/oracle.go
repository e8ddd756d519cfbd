package oracle

import (
	"context"

	conformance "github.com/wippyai/wasm-conformance"
)

// Status classifies how an invocation ended.
type Status uint8

const (
	// StatusReturned means the call completed and produced values.
	StatusReturned Status = iota
	// StatusTrapped means the call ended in a controlled runtime fault.
	StatusTrapped
	// StatusErrored means the oracle itself failed: timeout, crash, or a
	// harness defect. Distinct from a trap, which is valid program behavior.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusReturned:
		return "returned"
	case StatusTrapped:
		return "trapped"
	}
	return "errored"
}

// Outcome is the result of one invocation through one oracle.
type Outcome struct {
	Err         error
	TrapMessage string
	Values      []conformance.Value
	Status      Status
}

func Returned(vals ...conformance.Value) Outcome {
	return Outcome{Status: StatusReturned, Values: vals}
}

func Trapped(msg string) Outcome {
	return Outcome{Status: StatusTrapped, TrapMessage: msg}
}

func Errored(err error) Outcome {
	return Outcome{Status: StatusErrored, Err: err}
}

// Oracle is one independent execution path.
type Oracle interface {
	// Name identifies the oracle in reports ("interpreter", "compiler", ...).
	Name() string
	// NewSession creates an isolated module store for one fixture.
	NewSession(ctx context.Context) (Session, error)
}

// Session holds the modules of one fixture run.
//
// Instantiate compiles and instantiates module source text under a name;
// later modules may import the exports of earlier ones by that name. A
// load, validation or link failure is returned as an error whose message
// the caller matches against load-failure expectations.
type Session interface {
	Instantiate(ctx context.Context, name, source string) error
	// Invoke calls an export of a named module ("" is the most recently
	// instantiated). results carries declared result types for backends
	// that cannot introspect signatures; introspecting backends ignore it.
	Invoke(ctx context.Context, module, fn string, args []conformance.Value, results []conformance.Type) Outcome
	Close(ctx context.Context) error
}

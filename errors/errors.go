package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // fixture/directive/literal parsing
	PhaseLoad    Phase = "load"    // module compilation and instantiation
	PhaseExecute Phase = "execute" // oracle invocation
	PhaseCompare Phase = "compare" // expectation and golden comparison
	PhaseReport  Phase = "report"  // result aggregation and rendering
)

// Kind categorizes the error
type Kind string

const (
	KindUnrecognizedDirective Kind = "unrecognized_directive"
	KindMalformedLiteral      Kind = "malformed_literal"
	KindMalformedCase         Kind = "malformed_case"
	KindArityMismatch         Kind = "arity_mismatch"
	KindTypeMismatch          Kind = "type_mismatch"
	KindMismatch              Kind = "mismatch"
	KindTrapMismatch          Kind = "trap_mismatch"
	KindGoldenMismatch        Kind = "golden_mismatch"
	KindTimeout               Kind = "timeout"
	KindUnsupported           Kind = "unsupported"
	KindNotFound              Kind = "not_found"
	KindInvalidData           Kind = "invalid_data"
	KindInternal              Kind = "internal"
	KindIO                    Kind = "io"
)

// Error is the structured error type used throughout the harness
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	File   string
	Case   string
	Target string
	Detail string
	Line   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" {
		b.WriteString(" at ")
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Case != "" {
		b.WriteString(" case ")
		b.WriteString(e.Case)
	}
	if e.Target != "" {
		b.WriteString(" target ")
		b.WriteString(e.Target)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// File sets the fixture file path
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Line sets the fixture line number
func (b *Builder) Line(n int) *Builder {
	b.err.Line = n
	return b
}

// Case sets the test case name
func (b *Builder) Case(name string) *Builder {
	b.err.Case = name
	return b
}

// Target sets the target name
func (b *Builder) Target(name string) *Builder {
	b.err.Target = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnrecognizedDirective creates an error for an unknown header pragma
func UnrecognizedDirective(file string, line int, keyword string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindUnrecognizedDirective,
		File:   file,
		Line:   line,
		Detail: fmt.Sprintf("unrecognized directive %q", keyword),
	}
}

// MalformedLiteral creates an error for literal syntax the grammar rejects
func MalformedLiteral(file string, line int, lit string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMalformedLiteral,
		File:   file,
		Line:   line,
		Detail: fmt.Sprintf("malformed literal %q", lit),
	}
}

// MalformedCase creates an error for an assertion line the extractor rejects
func MalformedCase(file string, line int, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMalformedCase,
		File:   file,
		Line:   line,
		Detail: detail,
	}
}

// ArityMismatch creates an error for argument/result count disagreement
func ArityMismatch(file, caseName string, want, got int) *Error {
	return &Error{
		Phase:  PhaseCompare,
		Kind:   KindArityMismatch,
		File:   file,
		Case:   caseName,
		Detail: fmt.Sprintf("expected %d value(s), got %d", want, got),
	}
}

// TypeMismatch creates an error for a literal that does not fit the declared type
func TypeMismatch(file, caseName, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindTypeMismatch,
		File:   file,
		Case:   caseName,
		Detail: detail,
	}
}

// Timeout creates an error for a wall-clock expired oracle invocation
func Timeout(caseName, target string, elapsed time.Duration) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindTimeout,
		Case:   caseName,
		Target: target,
		Detail: fmt.Sprintf("invocation exceeded %s", elapsed),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Internal creates an error for a harness defect (panic, broken invariant)
func Internal(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase: PhaseParse,
		Kind:  KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// IsKind reports whether err or any error it wraps carries the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

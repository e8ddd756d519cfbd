package fixture

import (
	"strings"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
)

// Mode is an execution mode requested by a "test" directive.
type Mode string

const (
	ModeInterpret Mode = "interpret"
	ModeRun       Mode = "run"
	ModeCompile   Mode = "compile" // golden-disassembly comparison
)

// Signature is a function's declared parameter and result types.
type Signature struct {
	Params  []conformance.Type
	Results []conformance.Type
}

// File is a parsed fixture: directives, signatures and extracted cases.
// Immutable once parsed.
type File struct {
	Functions map[string]Signature
	Path      string
	Text      string
	Modes     []Mode
	Targets   []conformance.Target
	Cases     []conformance.Case
}

// HasMode reports whether a "test" directive requested the given mode.
func (f *File) HasMode(m Mode) bool {
	for _, mode := range f.Modes {
		if mode == m {
			return true
		}
	}
	return false
}

// Signature returns the declared signature for a case's function.
func (f *File) Signature(name string) (Signature, bool) {
	sig, ok := f.Functions[strings.TrimPrefix(name, "%")]
	return sig, ok
}

// Parse extracts directives, function signatures and run cases from fixture
// text. The first error aborts the file; a fixture with malformed syntax
// produces no cases at all.
func Parse(path, text string) (*File, error) {
	f := &File{
		Path:      path,
		Text:      text,
		Functions: make(map[string]Signature),
	}

	pending := make(map[string]string) // set lines awaiting the next target
	var lastFunc string
	inBody := 0

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if inBody > 0 {
			// Inside a function body only track nesting.
			inBody += strings.Count(line, "{") - strings.Count(line, "}")
			continue
		}

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "function"):
			name, sig, err := parseSignature(path, lineNo, line)
			if err != nil {
				return nil, err
			}
			f.Functions[name] = sig
			lastFunc = name
			inBody = strings.Count(line, "{") - strings.Count(line, "}")

		case strings.HasPrefix(line, ";"):
			c, ok, err := parseRunLine(f, path, lineNo, line, lastFunc)
			if err != nil {
				return nil, err
			}
			if ok {
				f.Cases = append(f.Cases, c)
			}

		default:
			if err := parseDirective(f, pending, path, lineNo, line); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func parseDirective(f *File, pending map[string]string, path string, lineNo int, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "test":
		if len(fields) < 2 {
			return errors.MalformedCase(path, lineNo, "test directive needs a mode")
		}
		f.Modes = append(f.Modes, Mode(fields[1]))

	case "set":
		for _, kv := range fields[1:] {
			if k, v, ok := strings.Cut(kv, "="); ok {
				pending[k] = v
			} else {
				pending[kv] = "true"
			}
		}

	case "target":
		if len(fields) < 2 {
			return errors.MalformedCase(path, lineNo, "target directive needs an architecture")
		}
		settings := make(map[string]string, len(pending))
		for k, v := range pending {
			settings[k] = v
		}
		clear(pending)
		f.Targets = append(f.Targets, conformance.Target{
			Arch:     fields[1],
			Features: fields[2:],
			Settings: settings,
		})

	default:
		return errors.UnrecognizedDirective(path, lineNo, fields[0])
	}
	return nil
}

// parseSignature handles lines of the form
//
//	function %name(i8, i64 sext) -> i8, f32 system_v {
//
// Parameter annotations (sext, uext, sarg) and the trailing calling
// convention are skipped; only type names survive.
func parseSignature(path string, lineNo int, line string) (string, Signature, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "function"))
	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return "", Signature{}, errors.MalformedCase(path, lineNo, "function line without parameter list")
	}
	name := strings.TrimPrefix(strings.TrimSpace(rest[:open]), "%")
	if name == "" {
		return "", Signature{}, errors.MalformedCase(path, lineNo, "function line without a name")
	}

	end := matchingParen(rest, open)
	if end < 0 {
		return "", Signature{}, errors.MalformedCase(path, lineNo, "unterminated parameter list")
	}

	var sig Signature
	for _, p := range splitTopLevel(rest[open+1 : end]) {
		t, err := conformance.ParseType(strings.Fields(p)[0])
		if err != nil {
			return "", Signature{}, errors.New(errors.PhaseParse, errors.KindTypeMismatch).
				File(path).Line(lineNo).Cause(err).Detail("parameter type in %q", p).Build()
		}
		sig.Params = append(sig.Params, t)
	}

	tail := rest[end+1:]
	if arrow := strings.Index(tail, "->"); arrow >= 0 {
		results := tail[arrow+2:]
		if brace := strings.IndexByte(results, '{'); brace >= 0 {
			results = results[:brace]
		}
		for _, r := range splitTopLevel(results) {
			t, err := conformance.ParseType(strings.Fields(r)[0])
			if err != nil {
				return "", Signature{}, errors.New(errors.PhaseParse, errors.KindTypeMismatch).
					File(path).Line(lineNo).Cause(err).Detail("result type in %q", r).Build()
			}
			sig.Results = append(sig.Results, t)
		}
	}

	return name, sig, nil
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits a comma-separated list, ignoring commas nested in
// brackets or parens, and drops empty entries.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

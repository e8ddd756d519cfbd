package fixture

import (
	"strings"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
)

// parseRunLine extracts a case from a ;-comment, if the comment is an
// assertion line. Recognized forms:
//
//	; run: %f(args) == expect      value equality
//	; run: %f(args) == [a b]       multi-value tuple
//	; run: %f(args) traps [msg]    trap with optional message substring
//	; run: %f(args)                unconstrained
//	; run                          unconstrained call of the last function
//	; print: %f(args)              unconstrained (legacy alias)
//
// Ordinary comments return ok=false. Anything that starts like an assertion
// but fails the grammar is a hard error.
func parseRunLine(f *File, path string, lineNo int, line, lastFunc string) (conformance.Case, bool, error) {
	body := strings.TrimSpace(strings.TrimLeft(line, ";"))

	var rest string
	switch {
	case body == "run" || body == "print":
		if lastFunc == "" {
			return conformance.Case{}, false, errors.MalformedCase(path, lineNo, "bare run before any function")
		}
		return conformance.Case{Func: lastFunc, Expect: conformance.Unconstrained(), Line: lineNo}, true, nil
	case strings.HasPrefix(body, "run:"):
		rest = strings.TrimSpace(body[len("run:"):])
	case strings.HasPrefix(body, "print:"):
		rest = strings.TrimSpace(body[len("print:"):])
	default:
		return conformance.Case{}, false, nil // ordinary comment
	}

	callExpr := rest
	var expectText string
	hasExpect := false
	if eq := strings.Index(rest, "=="); eq >= 0 {
		callExpr = strings.TrimSpace(rest[:eq])
		expectText = strings.TrimSpace(rest[eq+2:])
		hasExpect = true
	}

	var trapText string
	expectsTrap := false
	if !hasExpect {
		if expr, after, ok := strings.Cut(callExpr, " traps"); ok {
			callExpr = strings.TrimSpace(expr)
			trapText = strings.TrimSpace(after)
			expectsTrap = true
		}
	}

	name, args, err := parseCall(f, path, lineNo, callExpr)
	if err != nil {
		return conformance.Case{}, false, err
	}

	c := conformance.Case{Func: name, Args: args, Line: lineNo}
	switch {
	case expectsTrap:
		c.Expect = conformance.ExpectTrapWith(trapText)
	case !hasExpect:
		c.Expect = conformance.Unconstrained()
	default:
		sig, _ := f.Signature(name)
		vals, err := parseExpected(path, lineNo, expectText, sig.Results)
		if err != nil {
			return conformance.Case{}, false, err
		}
		c.Expect = conformance.ExpectValuesOf(vals...)
	}
	return c, true, nil
}

func parseCall(f *File, path string, lineNo int, expr string) (string, []conformance.Value, error) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return "", nil, errors.MalformedCase(path, lineNo, "run line needs a call expression")
	}
	name := strings.TrimPrefix(strings.TrimSpace(expr[:open]), "%")
	sig, ok := f.Signature(name)
	if !ok {
		return "", nil, errors.NotFound(errors.PhaseParse, "function", name)
	}

	argText := splitTopLevel(expr[open+1 : len(expr)-1])
	if len(argText) != len(sig.Params) {
		return "", nil, errors.New(errors.PhaseParse, errors.KindArityMismatch).
			File(path).Line(lineNo).Case("%" + name).
			Detail("call has %d argument(s), signature wants %d", len(argText), len(sig.Params)).
			Build()
	}

	args := make([]conformance.Value, len(argText))
	for i, a := range argText {
		v, err := conformance.ParseValue(a, sig.Params[i])
		if err != nil {
			return "", nil, errors.New(errors.PhaseParse, errors.KindMalformedLiteral).
				File(path).Line(lineNo).Case("%" + name).Cause(err).
				Detail("argument %d", i).Build()
		}
		args[i] = v
	}
	return name, args, nil
}

// parseExpected reads the right side of ==. For a single-result function the
// whole text is one literal (which may itself be a bracketed vector); for
// multi-result functions it is a bracketed tuple matched positionally.
func parseExpected(path string, lineNo int, text string, results []conformance.Type) ([]conformance.Value, error) {
	if len(results) == 0 {
		return nil, errors.MalformedCase(path, lineNo, "== on a function with no results")
	}

	if len(results) == 1 {
		v, err := conformance.ParseValue(text, results[0])
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindMalformedLiteral).
				File(path).Line(lineNo).Cause(err).Detail("expected value").Build()
		}
		return []conformance.Value{v}, nil
	}

	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, errors.MalformedCase(path, lineNo, "multi-result expectation must be a bracketed tuple")
	}
	fields := splitTupleFields(text[1 : len(text)-1])
	if len(fields) != len(results) {
		return nil, errors.New(errors.PhaseParse, errors.KindArityMismatch).
			File(path).Line(lineNo).
			Detail("tuple has %d value(s), signature returns %d", len(fields), len(results)).
			Build()
	}
	vals := make([]conformance.Value, len(fields))
	for i, field := range fields {
		v, err := conformance.ParseValue(field, results[i])
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindMalformedLiteral).
				File(path).Line(lineNo).Cause(err).Detail("tuple value %d", i).Build()
		}
		vals[i] = v
	}
	return vals, nil
}

// splitTupleFields splits a tuple body on top-level whitespace or commas,
// keeping bracketed vector values like [1 2] intact.
func splitTupleFields(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		sep := depth == 0 && (c == ' ' || c == '\t' || c == ',')
		switch {
		case sep:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
			if c == '[' {
				depth++
			} else if c == ']' {
				depth--
			}
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

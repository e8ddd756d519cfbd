package wast

import (
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-conformance/errors"
)

// Meta is the parsed ;;! metadata header of a wast fixture.
type Meta struct {
	// ResultTypes maps an exported function to a declared WIT result type,
	// used by reports to render values with their intended interpretation.
	ResultTypes map[string]wit.Type
	Test        string
	Targets     []string
	Flags       []string
}

// ParseMeta reads the ;;! header lines at the top of a script. Lines have
// the form
//
//	;;! target = "x86_64"
//	;;! test = "winch"
//	;;! flags = "-Ccranelift-has-avx"
//	;;! result add = "s32"
//
// Reading stops at the first line that is not blank and not a ;;! comment.
func ParseMeta(path, text string) (Meta, error) {
	m := Meta{}
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";;!") {
			break
		}
		entry := strings.TrimSpace(line[3:])
		if entry == "" {
			continue
		}

		key, value, err := splitMetaEntry(entry)
		if err != nil {
			return Meta{}, errors.New(errors.PhaseParse, errors.KindMalformedCase).
				File(path).Line(i + 1).Cause(err).Detail("metadata entry %q", entry).Build()
		}

		switch {
		case key == "target":
			m.Targets = append(m.Targets, value)
		case key == "test":
			m.Test = value
		case key == "flags":
			m.Flags = append(m.Flags, strings.Fields(value)...)
		case strings.HasPrefix(key, "result "):
			name := strings.TrimSpace(strings.TrimPrefix(key, "result "))
			t, err := wit.ParseType(value)
			if err != nil {
				return Meta{}, errors.New(errors.PhaseParse, errors.KindMalformedCase).
					File(path).Line(i + 1).Cause(err).Detail("WIT type %q", value).Build()
			}
			if m.ResultTypes == nil {
				m.ResultTypes = make(map[string]wit.Type)
			}
			m.ResultTypes[name] = t
		default:
			return Meta{}, errors.UnrecognizedDirective(path, i+1, key)
		}
	}
	return m, nil
}

func splitMetaEntry(entry string) (key, value string, err error) {
	k, v, ok := strings.Cut(entry, "=")
	if !ok {
		return "", "", strconv.ErrSyntax
	}
	v = strings.TrimSpace(v)
	unquoted, err := strconv.Unquote(v)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(k), unquoted, nil
}


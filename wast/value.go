package wast

import (
	"strconv"
	"strings"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
	"github.com/wippyai/wasm-conformance/wast/internal/sexpr"
)

// nodeValue converts a wast constant expression into the shared Value union.
// expected selects the looser result grammar: nan:canonical and
// nan:arithmetic are legal only in expected positions.
func nodeValue(path string, n *sexpr.Node, expected bool) (conformance.Value, error) {
	if !n.IsList() || len(n.List) == 0 {
		return conformance.Value{}, errors.MalformedCase(path, n.Line, "constant must be a list")
	}

	head := n.Head()
	switch head {
	case "ref.null":
		if len(n.List) != 2 {
			return conformance.Value{}, errors.MalformedCase(path, n.Line, "ref.null needs a heap type")
		}
		switch n.List[1].Atom {
		case "func":
			return conformance.NullRef(conformance.KindFuncRef), nil
		case "extern":
			return conformance.NullRef(conformance.KindExternRef), nil
		}
		return conformance.Value{}, errors.MalformedCase(path, n.Line, "unknown ref.null heap type")

	case "ref.func", "ref.extern":
		kind := conformance.KindFuncRef
		lit := "ref.func"
		if head == "ref.extern" {
			kind = conformance.KindExternRef
			lit = "ref.extern"
		}
		if len(n.List) != 2 {
			return conformance.Value{}, errors.MalformedCase(path, n.Line, head+" needs an index")
		}
		v, err := conformance.ParseValue(lit+" "+n.List[1].Atom, conformance.Type{Kind: kind})
		if err != nil {
			return conformance.Value{}, errors.MalformedLiteral(path, n.Line, n.List[1].Atom)
		}
		return v, nil

	case "v128.const":
		if len(n.List) < 2 {
			return conformance.Value{}, errors.MalformedCase(path, n.Line, "v128.const needs a lane shape")
		}
		shape, err := conformance.ParseType(n.List[1].Atom)
		if err != nil || shape.Kind != conformance.KindV128 {
			return conformance.Value{}, errors.MalformedCase(path, n.Line, "bad v128 lane shape")
		}
		lanes := n.List[2:]
		if len(lanes) != shape.LaneCount {
			return conformance.Value{}, errors.New(errors.PhaseParse, errors.KindArityMismatch).
				File(path).Line(n.Line).
				Detail("v128.const has %d lane(s), shape %s wants %d", len(lanes), shape, shape.LaneCount).
				Build()
		}
		vals := make([]conformance.Value, len(lanes))
		for i, lane := range lanes {
			v, err := atomValue(path, lane.Line, lane.Atom, conformance.Type{Kind: shape.Lane}, expected)
			if err != nil {
				return conformance.Value{}, err
			}
			vals[i] = v
		}
		return conformance.V128(vals), nil
	}

	tname, op, ok := strings.Cut(head, ".")
	if !ok || op != "const" {
		return conformance.Value{}, errors.MalformedCase(path, n.Line, "unknown constant form "+head)
	}
	t, err := conformance.ParseType(tname)
	if err != nil {
		return conformance.Value{}, errors.MalformedLiteral(path, n.Line, head)
	}
	if len(n.List) != 2 {
		return conformance.Value{}, errors.MalformedCase(path, n.Line, head+" needs one literal")
	}
	return atomValue(path, n.Line, n.List[1].Atom, t, expected)
}

// atomValue maps wast literal spellings onto the shared grammar: lowercase
// nan/inf become the NaN/Inf spellings, and the nan:canonical /
// nan:arithmetic result patterns become AnyNaN values.
func atomValue(path string, line int, atom string, t conformance.Type, expected bool) (conformance.Value, error) {
	if t.Kind == conformance.KindF32 || t.Kind == conformance.KindF64 {
		body, neg := strings.CutPrefix(atom, "-")
		if body == "nan:canonical" || body == "nan:arithmetic" {
			if !expected {
				return conformance.Value{}, errors.MalformedCase(path, line, atom+" is only legal as an expected result")
			}
			return conformance.AnyNaNOf(t.Kind), nil
		}
		// Wast nan:0xP sets the raw mantissa; the shared grammar's NaN:0xP
		// adds the quiet bit on top, so payload NaNs are built here.
		if payload, ok := strings.CutPrefix(body, "nan:0x"); ok {
			return nanFromMantissa(path, line, atom, payload, neg, t.Kind)
		}
		atom = rewriteFloatSpelling(atom)
	}
	v, err := conformance.ParseValue(atom, t)
	if err != nil {
		// Wast admits the unsigned decimal range for integer constants; the
		// shared grammar keeps decimals signed, so 4294967295 is folded here.
		if u, ok := unsignedDecimal(atom, t.Kind); ok {
			return conformance.Value{Kind: t.Kind, Bits: u}, nil
		}
		return conformance.Value{}, errors.New(errors.PhaseParse, errors.KindMalformedLiteral).
			File(path).Line(line).Cause(err).Detail("literal %q", atom).Build()
	}
	return v, nil
}

func unsignedDecimal(atom string, k conformance.Kind) (uint64, bool) {
	u, err := strconv.ParseUint(strings.ReplaceAll(atom, "_", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	switch k {
	case conformance.KindI32:
		return u, u <= 0xffffffff
	case conformance.KindI64:
		return u, true
	}
	return 0, false
}

func nanFromMantissa(path string, line int, atom, payload string, neg bool, k conformance.Kind) (conformance.Value, error) {
	p, err := strconv.ParseUint(strings.ReplaceAll(payload, "_", ""), 16, 64)
	if err != nil {
		return conformance.Value{}, errors.MalformedLiteral(path, line, atom)
	}
	if k == conformance.KindF32 {
		if p == 0 || p >= 1<<23 {
			return conformance.Value{}, errors.MalformedLiteral(path, line, atom)
		}
		bits := uint32(0x7f800000) | uint32(p)
		if neg {
			bits |= 1 << 31
		}
		return conformance.F32Bits(bits), nil
	}
	if p == 0 || p >= 1<<52 {
		return conformance.Value{}, errors.MalformedLiteral(path, line, atom)
	}
	bits := uint64(0x7ff0000000000000) | p
	if neg {
		bits |= 1 << 63
	}
	return conformance.F64Bits(bits), nil
}

func rewriteFloatSpelling(atom string) string {
	out := atom
	for _, r := range [...][2]string{{"nan", "NaN"}, {"inf", "Inf"}} {
		out = strings.ReplaceAll(out, r[0], r[1])
	}
	return out
}

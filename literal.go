package conformance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseValue parses a fixture literal under the declared type t.
//
// Accepted forms:
//   - decimal integers in the signed range and 0x-prefixed integers in the
//     full unsigned range, optionally signed, with _ separators
//   - true/false for integer kinds
//   - hex floats (0x1.8p3), decimal floats, Inf/-Inf
//   - NaN variants: NaN, -NaN, sNaN, -sNaN, each with an optional explicit
//     payload such as NaN:0x4000001
//   - bracketed vectors: [1 2 3 4], lane-typed by t
//   - reference literals: null, ref.func N, ref.extern N
//
// Malformed syntax is a hard error; callers must not skip it silently.
func ParseValue(s string, t Type) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, fmt.Errorf("empty literal")
	}

	switch t.Kind {
	case KindV128:
		return parseVector(s, t)
	case KindF32, KindF64:
		return parseFloat(s, t.Kind)
	case KindFuncRef, KindExternRef:
		return parseRef(s, t.Kind)
	case KindI8, KindI16, KindI32, KindI64, KindI128:
		return parseInt(s, t.Kind)
	}
	return Value{}, fmt.Errorf("cannot parse literal %q: invalid type", s)
}

func parseVector(s string, t Type) (Value, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return Value{}, fmt.Errorf("vector literal %q must be bracketed", s)
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) != t.LaneCount {
		return Value{}, fmt.Errorf("vector literal %q has %d lanes, type %s wants %d",
			s, len(fields), t, t.LaneCount)
	}
	lanes := make([]Value, len(fields))
	for i, f := range fields {
		lane, err := ParseValue(f, Type{Kind: t.Lane})
		if err != nil {
			return Value{}, fmt.Errorf("lane %d: %w", i, err)
		}
		lanes[i] = lane
	}
	return V128(lanes), nil
}

func parseRef(s string, k Kind) (Value, error) {
	switch {
	case s == "null":
		return NullRef(k), nil
	case strings.HasPrefix(s, "ref.func "):
		if k != KindFuncRef {
			return Value{}, fmt.Errorf("ref.func literal for %s", k)
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(s, "ref.func "), 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("bad funcref index in %q", s)
		}
		return FuncRef(uint32(n)), nil
	case strings.HasPrefix(s, "ref.extern "):
		if k != KindExternRef {
			return Value{}, fmt.Errorf("ref.extern literal for %s", k)
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(s, "ref.extern "), 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("bad externref index in %q", s)
		}
		return ExternRef(uint32(n)), nil
	}
	return Value{}, fmt.Errorf("bad reference literal %q", s)
}

func parseInt(s string, k Kind) (Value, error) {
	switch s {
	case "true":
		return Value{Kind: k, Bits: 1}, nil
	case "false":
		return Value{Kind: k, Bits: 0}, nil
	}

	clean := strings.ReplaceAll(s, "_", "")
	if k == KindI128 {
		return parseI128(clean)
	}

	bits := k.Bits()
	// Decimal literals take the signed range of the width. Hex literals
	// additionally admit the full unsigned range, so -1 and 0xff spell the
	// same i8 but 128 does not.
	hex := strings.HasPrefix(strings.TrimLeft(clean, "+-"), "0x") ||
		strings.HasPrefix(strings.TrimLeft(clean, "+-"), "0X")
	if v, err := strconv.ParseInt(clean, 0, 64); err == nil {
		if fitsSigned(v, bits) || (hex && v > 0 && fitsUnsigned(uint64(v), bits)) {
			return Value{Kind: k, Bits: uint64(v) & widthMask(k)}, nil
		}
		return Value{}, fmt.Errorf("literal %q out of range for %s", s, k)
	}
	if v, err := strconv.ParseUint(clean, 0, 64); err == nil {
		if hex && fitsUnsigned(v, bits) {
			return Value{Kind: k, Bits: v}, nil
		}
		return Value{}, fmt.Errorf("literal %q out of range for %s", s, k)
	}
	return Value{}, fmt.Errorf("bad integer literal %q", s)
}

func parseI128(s string) (Value, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")

	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		digits := body[2:]
		if digits == "" || len(digits) > 32 {
			return Value{}, fmt.Errorf("bad i128 literal %q", s)
		}
		var hi, lo uint64
		var err error
		if len(digits) > 16 {
			hi, err = strconv.ParseUint(digits[:len(digits)-16], 16, 64)
			if err == nil {
				lo, err = strconv.ParseUint(digits[len(digits)-16:], 16, 64)
			}
		} else {
			lo, err = strconv.ParseUint(digits, 16, 64)
		}
		if err != nil {
			return Value{}, fmt.Errorf("bad i128 literal %q", s)
		}
		if neg {
			hi, lo = negate128(hi, lo)
		}
		return I128(hi, lo), nil
	}

	v, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("bad i128 literal %q", s)
	}
	if neg {
		v = -v
	}
	var hi uint64
	if v < 0 {
		hi = ^uint64(0) // sign extension
	}
	return I128(hi, uint64(v)), nil
}

func negate128(hi, lo uint64) (uint64, uint64) {
	lo = ^lo + 1
	hi = ^hi
	if lo == 0 {
		hi++
	}
	return hi, lo
}

func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	limit := int64(1) << (bits - 1)
	return v >= -limit && v < limit
}

func fitsUnsigned(v uint64, bits int) bool {
	if bits >= 64 {
		return true
	}
	return v < uint64(1)<<bits
}

func parseFloat(s string, k Kind) (Value, error) {
	if v, ok, err := parseSpecialFloat(s, k); ok {
		return v, err
	}

	bitSize := 32
	if k == KindF64 {
		bitSize = 64
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), bitSize)
	if err != nil {
		return Value{}, fmt.Errorf("bad float literal %q", s)
	}
	if k == KindF32 {
		return F32(float32(f)), nil
	}
	return F64(f), nil
}

// parseSpecialFloat handles Inf and the NaN family. The quiet bit is the top
// mantissa bit; sNaN spellings leave it clear and require a payload (an all
// zero mantissa would read back as infinity).
func parseSpecialFloat(s string, k Kind) (Value, bool, error) {
	body := s
	sign := uint64(0)
	if strings.HasPrefix(body, "-") {
		sign = 1
		body = body[1:]
	} else {
		body = strings.TrimPrefix(body, "+")
	}

	lower := strings.ToLower(body)
	if lower == "inf" || lower == "infinity" {
		if k == KindF32 {
			return F32Bits(uint32(sign<<31) | 0x7f800000), true, nil
		}
		return F64Bits(sign<<63 | 0x7ff0000000000000), true, nil
	}

	signaling := false
	if strings.HasPrefix(lower, "snan") {
		signaling = true
		body = body[1:]
		lower = lower[1:]
	}
	if !strings.HasPrefix(lower, "nan") {
		return Value{}, false, nil
	}
	rest := body[3:]

	var payload uint64
	havePayload := false
	if rest != "" {
		p, ok := strings.CutPrefix(rest, ":")
		if !ok {
			return Value{}, true, fmt.Errorf("bad NaN literal %q", s)
		}
		var err error
		payload, err = strconv.ParseUint(strings.ReplaceAll(p, "_", ""), 0, 64)
		if err != nil {
			return Value{}, true, fmt.Errorf("bad NaN payload in %q", s)
		}
		havePayload = true
	}

	if k == KindF32 {
		const quiet, mantissa = uint32(1) << 22, uint32(1)<<23 - 1
		bits := uint32(sign<<31) | 0x7f800000
		if !signaling {
			bits |= quiet
		}
		if havePayload {
			if payload == 0 || payload > uint64(mantissa) {
				return Value{}, true, fmt.Errorf("NaN payload out of range in %q", s)
			}
			bits |= uint32(payload) & mantissa
		} else if signaling {
			bits |= 1
		}
		return F32Bits(bits), true, nil
	}

	const quiet, mantissa = uint64(1) << 51, uint64(1)<<52 - 1
	bits := sign<<63 | 0x7ff0000000000000
	if !signaling {
		bits |= quiet
	}
	if havePayload {
		if payload == 0 || payload > mantissa {
			return Value{}, true, fmt.Errorf("NaN payload out of range in %q", s)
		}
		bits |= payload & mantissa
	} else if signaling {
		bits |= 1
	}
	return F64Bits(bits), true, nil
}

// Format renders v in the same literal syntax the fixtures use, so a failure
// report can be pasted back into a scratch fixture unchanged.
func (v Value) Format() string {
	if v.AnyNaN {
		return "nan:any"
	}
	switch v.Kind {
	case KindV128:
		parts := make([]string, len(v.Lanes))
		for i, lane := range v.Lanes {
			parts[i] = lane.Format()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindFuncRef:
		if v.Null {
			return "null"
		}
		return fmt.Sprintf("ref.func %d", uint32(v.Bits))
	case KindExternRef:
		if v.Null {
			return "null"
		}
		return fmt.Sprintf("ref.extern %d", uint32(v.Bits))
	case KindI128:
		return fmt.Sprintf("0x%016x_%016x", v.Hi, v.Bits)
	case KindF32:
		return formatFloatBits(uint64(uint32(v.Bits)), 32)
	case KindF64:
		return formatFloatBits(v.Bits, 64)
	case KindInvalid:
		return "<invalid>"
	default:
		return strconv.FormatInt(v.Int(), 10)
	}
}

func (v Value) String() string { return v.Format() }

func formatFloatBits(bits uint64, size int) string {
	var sign string
	var expMask, quiet, mantissa, payload uint64
	var f float64
	if size == 32 {
		b := uint32(bits)
		if b>>31 == 1 {
			sign = "-"
		}
		expMask = uint64(b) & 0x7f800000
		quiet = uint64(b) & (1 << 22)
		mantissa = uint64(b) & (1<<23 - 1)
		payload = mantissa &^ (1 << 22)
		expMask >>= 23
		f = float64(math.Float32frombits(b))
		if expMask == 0xff && mantissa == 0 {
			return sign + "Inf"
		}
		if expMask == 0xff {
			return formatNaN(sign, quiet != 0, payload)
		}
	} else {
		if bits>>63 == 1 {
			sign = "-"
		}
		expMask = bits & 0x7ff0000000000000 >> 52
		quiet = bits & (1 << 51)
		mantissa = bits & (1<<52 - 1)
		payload = mantissa &^ (1 << 51)
		f = math.Float64frombits(bits)
		if expMask == 0x7ff && mantissa == 0 {
			return sign + "Inf"
		}
		if expMask == 0x7ff {
			return formatNaN(sign, quiet != 0, payload)
		}
	}

	out := strconv.FormatFloat(f, 'x', -1, size)
	// Go spells the exponent p+NN; fixtures use the bare p3 form.
	out = strings.Replace(out, "p+0", "p", 1)
	out = strings.Replace(out, "p-0", "p-", 1)
	out = strings.Replace(out, "p+", "p", 1)
	return out
}

func formatNaN(sign string, quiet bool, payload uint64) string {
	name := "NaN"
	if !quiet {
		name = "sNaN"
	}
	if payload == 0 || (!quiet && payload == 1) {
		// canonical payloads elide
		return sign + name
	}
	return fmt.Sprintf("%s%s:0x%x", sign, name, payload)
}

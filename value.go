package conformance

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindF32
	KindF64
	KindV128
	KindFuncRef
	KindExternRef
)

func (k Kind) String() string {
	switch k {
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindI128:
		return "i128"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindV128:
		return "v128"
	case KindFuncRef:
		return "funcref"
	case KindExternRef:
		return "externref"
	}
	return "invalid"
}

// Bits returns the width of a scalar kind in bits, or 0 for non-scalars.
func (k Kind) Bits() int {
	switch k {
	case KindI8:
		return 8
	case KindI16:
		return 16
	case KindI32, KindF32:
		return 32
	case KindI64, KindF64:
		return 64
	case KindI128, KindV128:
		return 128
	}
	return 0
}

// Type describes a declared parameter or result type: a scalar kind, or a
// vector kind with a lane shape such as i32x4.
type Type struct {
	Kind      Kind
	Lane      Kind // lane kind when Kind == KindV128
	LaneCount int  // lane count when Kind == KindV128
}

func (t Type) String() string {
	if t.Kind == KindV128 {
		return fmt.Sprintf("%sx%d", t.Lane, t.LaneCount)
	}
	return t.Kind.String()
}

// ParseType parses a fixture type name: i8 through i128, f32, f64, funcref,
// externref, or a vector shape like i16x8 or f64x2. The legacy b1/b8/b16/b32/b64
// boolean spellings map onto the same-width integer kinds.
func ParseType(s string) (Type, error) {
	if lane, count, ok := strings.Cut(s, "x"); ok && count != "" {
		lk, err := parseScalarKind(lane)
		if err == nil {
			var n int
			if _, err := fmt.Sscanf(count, "%d", &n); err != nil {
				return Type{}, fmt.Errorf("bad lane count in type %q", s)
			}
			if lk.Bits()*n != 128 {
				return Type{}, fmt.Errorf("vector type %q is not 128 bits", s)
			}
			return Type{Kind: KindV128, Lane: lk, LaneCount: n}, nil
		}
		// fall through: "externref" contains no valid lane split
	}
	k, err := parseScalarKind(s)
	if err != nil {
		return Type{}, err
	}
	return Type{Kind: k}, nil
}

func parseScalarKind(s string) (Kind, error) {
	switch s {
	case "i8", "b1", "b8":
		return KindI8, nil
	case "i16", "b16":
		return KindI16, nil
	case "i32", "b32":
		return KindI32, nil
	case "i64", "b64":
		return KindI64, nil
	case "i128":
		return KindI128, nil
	case "f32":
		return KindF32, nil
	case "f64":
		return KindF64, nil
	case "funcref":
		return KindFuncRef, nil
	case "externref":
		return KindExternRef, nil
	}
	return KindInvalid, fmt.Errorf("unknown value type %q", s)
}

// Value is the closed literal union shared by both fixture dialects.
// Scalars store their exact bit pattern in Bits (f32 occupies the low 32
// bits); an i128 additionally uses Hi for the upper half. Vector values hold
// per-lane scalar Values. Reference values use Null plus an opaque index.
type Value struct {
	Lanes []Value
	Bits  uint64
	Hi    uint64
	Kind  Kind
	Null  bool
	// AnyNaN marks a float expectation that accepts every NaN bit pattern
	// (wast nan:canonical / nan:arithmetic results). Only expected values
	// carry it; oracle outputs never do.
	AnyNaN bool
}

func I8(v int8) Value   { return Value{Kind: KindI8, Bits: uint64(uint8(v))} }
func I16(v int16) Value { return Value{Kind: KindI16, Bits: uint64(uint16(v))} }
func I32(v int32) Value { return Value{Kind: KindI32, Bits: uint64(uint32(v))} }
func I64(v int64) Value { return Value{Kind: KindI64, Bits: uint64(v)} }

// I128 builds a 128-bit integer from its high and low 64-bit halves.
func I128(hi, lo uint64) Value { return Value{Kind: KindI128, Bits: lo, Hi: hi} }

// F32Bits builds an f32 from its exact bit pattern, preserving NaN payloads.
func F32Bits(bits uint32) Value { return Value{Kind: KindF32, Bits: uint64(bits)} }

// F64Bits builds an f64 from its exact bit pattern, preserving NaN payloads.
func F64Bits(bits uint64) Value { return Value{Kind: KindF64, Bits: bits} }

func F32(v float32) Value { return F32Bits(math.Float32bits(v)) }
func F64(v float64) Value { return F64Bits(math.Float64bits(v)) }

// V128 builds a vector value. All lanes must share one scalar kind.
func V128(lanes []Value) Value { return Value{Kind: KindV128, Lanes: lanes} }

// AnyNaNOf builds a float expectation matching every NaN variant of kind k.
func AnyNaNOf(k Kind) Value { return Value{Kind: k, AnyNaN: true} }

func FuncRef(index uint32) Value   { return Value{Kind: KindFuncRef, Bits: uint64(index)} }
func ExternRef(index uint32) Value { return Value{Kind: KindExternRef, Bits: uint64(index)} }
func NullRef(k Kind) Value         { return Value{Kind: k, Null: true} }

// Type returns the declared-type shape of v.
func (v Value) Type() Type {
	if v.Kind == KindV128 {
		t := Type{Kind: KindV128, LaneCount: len(v.Lanes)}
		if len(v.Lanes) > 0 {
			t.Lane = v.Lanes[0].Kind
		}
		return t
	}
	return Type{Kind: v.Kind}
}

// Equal reports bitwise equality. Floats compare by bit pattern, never by
// IEEE ==: 0.0 and -0.0 differ, and every NaN payload is its own state.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.AnyNaN || o.AnyNaN {
		return v.IsNaN() || o.IsNaN() || v.AnyNaN && o.AnyNaN
	}
	switch v.Kind {
	case KindV128:
		if len(v.Lanes) != len(o.Lanes) {
			return false
		}
		for i := range v.Lanes {
			if !v.Lanes[i].Equal(o.Lanes[i]) {
				return false
			}
		}
		return true
	case KindFuncRef, KindExternRef:
		if v.Null || o.Null {
			return v.Null == o.Null
		}
		return v.Bits == o.Bits
	case KindI128:
		return v.Bits == o.Bits && v.Hi == o.Hi
	case KindF32:
		return uint32(v.Bits) == uint32(o.Bits)
	case KindF64:
		return v.Bits == o.Bits
	default:
		mask := widthMask(v.Kind)
		return v.Bits&mask == o.Bits&mask
	}
}

// IsNaN reports whether a float value is any NaN variant.
func (v Value) IsNaN() bool {
	switch v.Kind {
	case KindF32:
		bits := uint32(v.Bits)
		return bits&0x7f800000 == 0x7f800000 && bits&0x007fffff != 0
	case KindF64:
		return v.Bits&0x7ff0000000000000 == 0x7ff0000000000000 && v.Bits&0x000fffffffffffff != 0
	}
	return false
}

// Int returns the scalar integer value sign-extended to 64 bits.
func (v Value) Int() int64 {
	switch v.Kind {
	case KindI8:
		return int64(int8(v.Bits))
	case KindI16:
		return int64(int16(v.Bits))
	case KindI32:
		return int64(int32(v.Bits))
	default:
		return int64(v.Bits)
	}
}

// SignedLess orders two same-kind integer values as two's-complement,
// treating an i128 as its 128-bit pattern.
func (v Value) SignedLess(o Value) bool {
	if v.Kind == KindI128 {
		if v.Hi != o.Hi {
			return int64(v.Hi) < int64(o.Hi)
		}
		return v.Bits < o.Bits
	}
	return v.Int() < o.Int()
}

func widthMask(k Kind) uint64 {
	switch k.Bits() {
	case 8:
		return 0xff
	case 16:
		return 0xffff
	case 32:
		return 0xffffffff
	}
	return ^uint64(0)
}

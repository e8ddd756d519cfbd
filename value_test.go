package conformance

import (
	"math"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"i8", Type{Kind: KindI8}},
		{"i16", Type{Kind: KindI16}},
		{"i32", Type{Kind: KindI32}},
		{"i64", Type{Kind: KindI64}},
		{"i128", Type{Kind: KindI128}},
		{"f32", Type{Kind: KindF32}},
		{"f64", Type{Kind: KindF64}},
		{"b1", Type{Kind: KindI8}},
		{"funcref", Type{Kind: KindFuncRef}},
		{"externref", Type{Kind: KindExternRef}},
		{"i8x16", Type{Kind: KindV128, Lane: KindI8, LaneCount: 16}},
		{"i16x8", Type{Kind: KindV128, Lane: KindI16, LaneCount: 8}},
		{"i32x4", Type{Kind: KindV128, Lane: KindI32, LaneCount: 4}},
		{"i64x2", Type{Kind: KindV128, Lane: KindI64, LaneCount: 2}},
		{"f32x4", Type{Kind: KindV128, Lane: KindF32, LaneCount: 4}},
		{"f64x2", Type{Kind: KindV128, Lane: KindF64, LaneCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if err != nil {
				t.Fatalf("ParseType(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	for _, in := range []string{"", "i7", "i32x2", "f32x2", "v128x4", "bogus"} {
		if _, err := ParseType(in); err == nil {
			t.Errorf("ParseType(%q) should fail", in)
		}
	}
}

func TestValueEqualBitwise(t *testing.T) {
	t.Run("signed_zero_distinct", func(t *testing.T) {
		if F64(0.0).Equal(F64Bits(1 << 63)) {
			t.Error("0.0 must not equal -0.0 bitwise")
		}
		if F32(0.0).Equal(F32Bits(1 << 31)) {
			t.Error("f32 0.0 must not equal -0.0 bitwise")
		}
	})

	t.Run("nan_payload_distinct", func(t *testing.T) {
		quiet := F64Bits(0x7ff8000000000000)
		payload1 := F64Bits(0x7ff8000000000001)
		if quiet.Equal(payload1) {
			t.Error("NaN and NaN:0x1 must differ")
		}
		if !payload1.Equal(F64Bits(0x7ff8000000000001)) {
			t.Error("identical NaN payloads must be equal")
		}
	})

	t.Run("nan_never_ieee", func(t *testing.T) {
		// IEEE == would say NaN != NaN; bitwise says equal for same bits.
		n := F64(math.NaN())
		if !n.Equal(n) {
			t.Error("a NaN must equal its own bit pattern")
		}
	})

	t.Run("width_masking", func(t *testing.T) {
		a := Value{Kind: KindI8, Bits: 0x1ff}
		b := Value{Kind: KindI8, Bits: 0xff}
		if !a.Equal(b) {
			t.Error("i8 comparison must mask to 8 bits")
		}
	})

	t.Run("kind_mismatch", func(t *testing.T) {
		if I32(1).Equal(I64(1)) {
			t.Error("i32 and i64 must never compare equal")
		}
		if F32Bits(0).Equal(I32(0)) {
			t.Error("f32 and i32 must never compare equal")
		}
	})

	t.Run("vectors_positional", func(t *testing.T) {
		a := V128([]Value{I32(1), I32(2), I32(3), I32(4)})
		b := V128([]Value{I32(1), I32(2), I32(3), I32(4)})
		c := V128([]Value{I32(1), I32(2), I32(3), I32(5)})
		if !a.Equal(b) {
			t.Error("identical vectors must be equal")
		}
		if a.Equal(c) {
			t.Error("vectors differing in one lane must differ")
		}
	})

	t.Run("refs", func(t *testing.T) {
		if !NullRef(KindFuncRef).Equal(NullRef(KindFuncRef)) {
			t.Error("null funcrefs must be equal")
		}
		if NullRef(KindFuncRef).Equal(FuncRef(0)) {
			t.Error("null must not equal ref.func 0")
		}
		if !FuncRef(3).Equal(FuncRef(3)) {
			t.Error("same funcref index must be equal")
		}
	})
}

func TestValueIsNaN(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"quiet_f64", F64Bits(0x7ff8000000000000), true},
		{"signaling_f64", F64Bits(0x7ff0000000000001), true},
		{"negative_payload_f64", F64Bits(0xfff8000000080001), true},
		{"inf_f64", F64Bits(0x7ff0000000000000), false},
		{"normal_f64", F64(1.5), false},
		{"quiet_f32", F32Bits(0x7fc00000), true},
		{"signaling_f32", F32Bits(0x7f800001), true},
		{"inf_f32", F32Bits(0x7f800000), false},
		{"int", I32(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsNaN(); got != tt.want {
				t.Errorf("IsNaN = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestI128Semantics(t *testing.T) {
	// -1 as i128 is all ones across both halves; iconcat(-1, -1).
	minusOne := I128(^uint64(0), ^uint64(0))
	zero := I128(0, 0)

	if !minusOne.SignedLess(zero) {
		t.Error("i128 -1 < 0 under two's-complement ordering")
	}
	if zero.SignedLess(minusOne) {
		t.Error("i128 0 must not be < -1")
	}
	if minusOne.Equal(zero) {
		t.Error("-1 and 0 must differ")
	}

	// High halves dominate the ordering.
	a := I128(1, 0)
	b := I128(2, 0)
	if !a.SignedLess(b) || b.SignedLess(a) {
		t.Error("i128 ordering must compare high halves first")
	}
}

func TestValueInt(t *testing.T) {
	tests := []struct {
		v    Value
		want int64
	}{
		{I8(-1), -1},
		{I16(-2), -2},
		{I32(-3), -3},
		{I64(-4), -4},
		{Value{Kind: KindI8, Bits: 0x80}, -128},
		{Value{Kind: KindI32, Bits: 0x7fffffff}, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := tt.v.Int(); got != tt.want {
			t.Errorf("Int() of %v = %d, want %d", tt.v, got, tt.want)
		}
	}
}

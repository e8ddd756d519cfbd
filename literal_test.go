package conformance

import (
	"strings"
	"testing"
)

func mustType(t *testing.T, s string) Type {
	t.Helper()
	ty, err := ParseType(s)
	if err != nil {
		t.Fatalf("ParseType(%q) failed: %v", s, err)
	}
	return ty
}

func TestParseValueIntegers(t *testing.T) {
	tests := []struct {
		lit  string
		typ  string
		want Value
	}{
		{"0", "i32", I32(0)},
		{"-1", "i32", I32(-1)},
		{"+42", "i32", I32(42)},
		{"0xff", "i8", Value{Kind: KindI8, Bits: 0xff}},
		{"-128", "i8", I8(-128)},
		{"127", "i8", I8(127)},
		{"0x7fff_ffff", "i32", I32(0x7fffffff)},
		{"0xffffffffffffffff", "i64", I64(-1)},
		{"true", "i8", I8(1)},
		{"false", "i8", I8(0)},
		{"-1", "i128", I128(^uint64(0), ^uint64(0))},
		{"0x00000000000000010000000000000000", "i128", I128(1, 0)},
		{"42", "i128", I128(0, 42)},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.lit, func(t *testing.T) {
			got, err := ParseValue(tt.lit, mustType(t, tt.typ))
			if err != nil {
				t.Fatalf("ParseValue failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseValue(%q, %s) = %v, want %v", tt.lit, tt.typ, got, tt.want)
			}
		})
	}
}

func TestParseValueIntegerRange(t *testing.T) {
	bad := []struct{ lit, typ string }{
		{"128", "i8"},
		{"-129", "i8"},
		{"0x100", "i8"},
		{"65536", "i16"},
		{"0x1_0000_0000", "i32"},
		{"", "i32"},
		{"0xZZ", "i32"},
		{"1.5", "i32"},
	}
	for _, tt := range bad {
		if _, err := ParseValue(tt.lit, mustType(t, tt.typ)); err == nil {
			t.Errorf("ParseValue(%q, %s) should fail", tt.lit, tt.typ)
		}
	}
}

func TestParseValueFloats(t *testing.T) {
	tests := []struct {
		lit  string
		typ  string
		want Value
	}{
		{"0x1.8p3", "f64", F64(12.0)},
		{"-0x1.8p3", "f64", F64(-12.0)},
		{"0x1.8p3", "f32", F32(12.0)},
		{"1.5", "f64", F64(1.5)},
		{"-0.0", "f64", F64Bits(1 << 63)},
		{"0.0", "f64", F64Bits(0)},
		{"Inf", "f64", F64Bits(0x7ff0000000000000)},
		{"-Inf", "f64", F64Bits(0xfff0000000000000)},
		{"Inf", "f32", F32Bits(0x7f800000)},
		{"NaN", "f64", F64Bits(0x7ff8000000000000)},
		{"-NaN", "f64", F64Bits(0xfff8000000000000)},
		{"NaN:0x1", "f64", F64Bits(0x7ff8000000000001)},
		{"+NaN:0x1", "f64", F64Bits(0x7ff8000000000001)},
		{"sNaN", "f64", F64Bits(0x7ff0000000000001)},
		{"-sNaN:0x80001", "f64", F64Bits(0xfff0000000080001)},
		{"NaN", "f32", F32Bits(0x7fc00000)},
		{"sNaN:0x200001", "f32", F32Bits(0x7fa00001)},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.lit, func(t *testing.T) {
			got, err := ParseValue(tt.lit, mustType(t, tt.typ))
			if err != nil {
				t.Fatalf("ParseValue failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseValue(%q, %s) = %#x, want %#x", tt.lit, tt.typ, got.Bits, tt.want.Bits)
			}
		})
	}
}

func TestParseValueFloatErrors(t *testing.T) {
	bad := []string{"NaN:", "NaN:0xqq", "NaN:0x10000000000000", "NaNx", "0x1.8q3", "sNaN:0x0"}
	for _, lit := range bad {
		if _, err := ParseValue(lit, mustType(t, "f64")); err == nil {
			t.Errorf("ParseValue(%q, f64) should fail", lit)
		}
	}
}

func TestParseValueVectors(t *testing.T) {
	got, err := ParseValue("[1 2 3 4]", mustType(t, "i32x4"))
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	want := V128([]Value{I32(1), I32(2), I32(3), I32(4)})
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseValue("[1 2 3]", mustType(t, "i32x4")); err == nil {
		t.Error("lane count mismatch should fail")
	}
	if _, err := ParseValue("1 2 3 4", mustType(t, "i32x4")); err == nil {
		t.Error("unbracketed vector should fail")
	}

	got, err = ParseValue("[0x1.8p3 NaN]", mustType(t, "f64x2"))
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	want = V128([]Value{F64(12.0), F64Bits(0x7ff8000000000000)})
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseValueRefs(t *testing.T) {
	tests := []struct {
		lit  string
		typ  string
		want Value
	}{
		{"null", "funcref", NullRef(KindFuncRef)},
		{"null", "externref", NullRef(KindExternRef)},
		{"ref.func 0", "funcref", FuncRef(0)},
		{"ref.extern 7", "externref", ExternRef(7)},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.lit, mustType(t, tt.typ))
		if err != nil {
			t.Fatalf("ParseValue(%q) failed: %v", tt.lit, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.lit, got, tt.want)
		}
	}

	if _, err := ParseValue("ref.func 0", mustType(t, "externref")); err == nil {
		t.Error("ref.func must be rejected for externref")
	}
}

// Format output must re-parse to the same bits under the same grammar, so
// failure reports are directly reusable as fixture text.
func TestFormatRoundTrip(t *testing.T) {
	values := []struct {
		typ string
		v   Value
	}{
		{"i32", I32(-1)},
		{"i8", I8(127)},
		{"i64", I64(1 << 40)},
		{"i128", I128(1, 0)},
		{"f64", F64(12.0)},
		{"f64", F64Bits(1 << 63)},
		{"f64", F64Bits(0x7ff8000000000001)},
		{"f64", F64Bits(0xfff0000000080001)},
		{"f32", F32Bits(0x7fc00000)},
		{"f32", F32(0.5)},
		{"f64", F64Bits(0x7ff0000000000000)},
		{"i32x4", V128([]Value{I32(1), I32(-2), I32(3), I32(4)})},
		{"funcref", FuncRef(0)},
		{"funcref", NullRef(KindFuncRef)},
	}
	for _, tt := range values {
		t.Run(tt.typ+"/"+tt.v.Format(), func(t *testing.T) {
			text := tt.v.Format()
			back, err := ParseValue(text, mustType(t, tt.typ))
			if err != nil {
				t.Fatalf("re-parse of %q failed: %v", text, err)
			}
			if !back.Equal(tt.v) {
				t.Errorf("round trip of %q lost bits: got %v", text, back)
			}
		})
	}
}

func TestFormatSpellings(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{F64(12.0), "0x1.8p3"},
		{F64Bits(0x7ff8000000000000), "NaN"},
		{F64Bits(0xfff8000000000000), "-NaN"},
		{F64Bits(0x7ff0000000000001), "sNaN"},
		{F64Bits(0x7ff8000000000001), "NaN:0x1"},
		{F64Bits(0x7ff0000000000000), "Inf"},
		{F64Bits(0xfff0000000000000), "-Inf"},
		{I32(-1), "-1"},
		{V128([]Value{I8(1), I8(2)}), "[1 2]"},
	}
	for _, tt := range tests {
		if got := tt.v.Format(); got != tt.want {
			t.Errorf("Format() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatI128(t *testing.T) {
	got := I128(^uint64(0), ^uint64(0)).Format()
	if !strings.HasPrefix(got, "0x") || !strings.Contains(got, "ffffffffffffffff") {
		t.Errorf("i128 -1 formatted as %q", got)
	}
}

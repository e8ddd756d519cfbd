package fixture

import (
	"errors"
	"strings"
	"testing"

	conformance "github.com/wippyai/wasm-conformance"
	harnesserr "github.com/wippyai/wasm-conformance/errors"
)

const icmpFixture = `test interpret
test run
set enable_llvm_abi_extensions=true
target x86_64 has_avx
set opt_level=speed
target aarch64
target riscv64

function %icmp_slt_i8(i8, i8) -> i8 {
block0(v0: i8, v1: i8):
    v2 = icmp slt v0, v1
    return v2
}
; run: %icmp_slt_i8(0, 1) == 1
; run: %icmp_slt_i8(-1, 0) == 1
; run: %icmp_slt_i8(1, 0) == 0
`

func TestParseDirectives(t *testing.T) {
	f, err := Parse("icmp-slt.clif", icmpFixture)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !f.HasMode(ModeInterpret) || !f.HasMode(ModeRun) {
		t.Errorf("modes = %v, want interpret and run", f.Modes)
	}
	if f.HasMode(ModeCompile) {
		t.Error("compile mode not declared")
	}

	if len(f.Targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(f.Targets))
	}

	x86 := f.Targets[0]
	if x86.Arch != "x86_64" || !x86.HasFeature("has_avx") {
		t.Errorf("first target = %v, want x86_64+has_avx", x86)
	}
	if x86.Settings["enable_llvm_abi_extensions"] != "true" {
		t.Errorf("x86_64 settings = %v, want enable_llvm_abi_extensions captured", x86.Settings)
	}

	// Settings reset at each target line: opt_level was set after x86_64 and
	// must reach only aarch64.
	if _, ok := x86.Settings["opt_level"]; ok {
		t.Error("opt_level leaked backwards into x86_64")
	}
	arm := f.Targets[1]
	if arm.Settings["opt_level"] != "speed" {
		t.Errorf("aarch64 settings = %v, want opt_level=speed", arm.Settings)
	}
	if _, ok := arm.Settings["enable_llvm_abi_extensions"]; ok {
		t.Error("consumed setting must not carry into the next target")
	}
	if len(f.Targets[2].Settings) != 0 {
		t.Errorf("riscv64 settings = %v, want empty", f.Targets[2].Settings)
	}
}

func TestParseCases(t *testing.T) {
	f, err := Parse("icmp-slt.clif", icmpFixture)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(f.Cases) != 3 {
		t.Fatalf("got %d cases, want 3", len(f.Cases))
	}

	c := f.Cases[1]
	if c.Func != "icmp_slt_i8" {
		t.Errorf("Func = %q, want icmp_slt_i8", c.Func)
	}
	if len(c.Args) != 2 || !c.Args[0].Equal(conformance.I8(-1)) || !c.Args[1].Equal(conformance.I8(0)) {
		t.Errorf("args = %v, want (-1, 0)", c.Args)
	}
	if c.Expect.Kind != conformance.ExpectValues {
		t.Fatalf("expect kind = %v, want values", c.Expect.Kind)
	}
	if len(c.Expect.Values) != 1 || !c.Expect.Values[0].Equal(conformance.I8(1)) {
		t.Errorf("expected values = %v, want [1]", c.Expect.Values)
	}

	if c.Name() != "%icmp_slt_i8(-1, 0)" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestParseUnconstrained(t *testing.T) {
	text := `test run
target x86_64

function %notrap(i32) {
block0(v0: i32):
    return
}
; run: %notrap(4)
; run
`
	f, err := Parse("notrap.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(f.Cases))
	}
	for i, c := range f.Cases {
		if c.Expect.Kind != conformance.ExpectUnconstrained {
			t.Errorf("case %d expect = %v, want unconstrained", i, c.Expect.Kind)
		}
	}
	if f.Cases[1].Func != "notrap" {
		t.Errorf("bare run bound to %q, want notrap", f.Cases[1].Func)
	}
	if len(f.Cases[1].Args) != 0 {
		t.Errorf("bare run must carry no arguments, got %v", f.Cases[1].Args)
	}
}

func TestParseTrapCase(t *testing.T) {
	text := `test run
target x86_64

function %div(i32, i32) -> i32 {
block0(v0: i32, v1: i32):
    v2 = udiv v0, v1
    return v2
}
; run: %div(1, 0) traps integer division by zero
`
	f, err := Parse("div.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := f.Cases[0]
	if c.Expect.Kind != conformance.ExpectTrap {
		t.Fatalf("expect kind = %v, want trap", c.Expect.Kind)
	}
	if c.Expect.Message != "integer division by zero" {
		t.Errorf("trap message = %q", c.Expect.Message)
	}
}

func TestParseMultiValue(t *testing.T) {
	text := `test run
target aarch64

function %swap(i32, i64) -> i64, i32 {
block0(v0: i32, v1: i64):
    return v1, v0
}
; run: %swap(1, 2) == [2 1]
`
	f, err := Parse("swap.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := f.Cases[0]
	want := []conformance.Value{conformance.I64(2), conformance.I32(1)}
	if len(c.Expect.Values) != 2 {
		t.Fatalf("got %d expected values, want 2", len(c.Expect.Values))
	}
	for i := range want {
		if !c.Expect.Values[i].Equal(want[i]) {
			t.Errorf("value %d = %v, want %v", i, c.Expect.Values[i], want[i])
		}
	}
}

func TestParseVectorInTuple(t *testing.T) {
	text := `test run
target x86_64

function %pair() -> i64x2, i32 {
block0:
    v0 = vconst.i64x2 [1 2]
    v1 = iconst.i32 3
    return v0, v1
}
; run: %pair() == [[1 2] 3]
`
	f, err := Parse("pair.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vals := f.Cases[0].Expect.Values
	if len(vals) != 2 {
		t.Fatalf("got %d expected values, want 2", len(vals))
	}
	if vals[0].Kind != conformance.KindV128 || len(vals[0].Lanes) != 2 {
		t.Fatalf("first tuple value = %v, want i64x2 vector", vals[0])
	}
	if !vals[0].Lanes[1].Equal(conformance.I64(2)) || !vals[1].Equal(conformance.I32(3)) {
		t.Errorf("tuple values = %v", vals)
	}
}

func TestParseVectorAndFloat(t *testing.T) {
	text := `test interpret
target x86_64

function %fadd(f64, f64) -> f64 {
block0(v0: f64, v1: f64):
    v2 = fadd v0, v1
    return v2
}
; run: %fadd(0x1.0p0, 0x1.0p1) == 0x1.8p1
; run: %fadd(NaN:0x1, 0x1.0p0) == NaN:0x1

function %splat(i32) -> i32x4 {
block0(v0: i32):
    v1 = splat.i32x4 v0
    return v1
}
; run: %splat(7) == [7 7 7 7]
`
	f, err := Parse("fadd.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Cases) != 3 {
		t.Fatalf("got %d cases, want 3", len(f.Cases))
	}
	if !f.Cases[1].Args[0].Equal(conformance.F64Bits(0x7ff8000000000001)) {
		t.Errorf("NaN payload argument lost: %v", f.Cases[1].Args[0])
	}
	vec := f.Cases[2].Expect.Values[0]
	if vec.Kind != conformance.KindV128 || len(vec.Lanes) != 4 {
		t.Errorf("splat expectation = %v, want i32x4 vector", vec)
	}
}

func TestParseSignatureAnnotations(t *testing.T) {
	text := `test run
target x86_64

function %f(i64 sext, i32 uext) -> i8 system_v {
block0(v0: i64, v1: i32):
    v2 = iconst.i8 0
    return v2
}
; run: %f(1, 2) == 0
`
	f, err := Parse("annot.clif", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sig, ok := f.Signature("f")
	if !ok {
		t.Fatal("signature not recorded")
	}
	if len(sig.Params) != 2 || sig.Params[0].Kind != conformance.KindI64 || sig.Params[1].Kind != conformance.KindI32 {
		t.Errorf("params = %v", sig.Params)
	}
	if len(sig.Results) != 1 || sig.Results[0].Kind != conformance.KindI8 {
		t.Errorf("results = %v", sig.Results)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    harnesserr.Kind
		wantErr string
	}{
		{
			"unknown directive",
			"tset run\n",
			harnesserr.KindUnrecognizedDirective,
			`"tset"`,
		},
		{
			"malformed literal",
			"test run\ntarget x86_64\nfunction %f(i32) -> i32 {\n}\n; run: %f(0xZZ) == 0\n",
			harnesserr.KindMalformedLiteral,
			"argument 0",
		},
		{
			"arity mismatch",
			"test run\ntarget x86_64\nfunction %f(i32, i32) -> i32 {\n}\n; run: %f(1) == 0\n",
			harnesserr.KindArityMismatch,
			"1 argument",
		},
		{
			"unknown function",
			"test run\ntarget x86_64\n; run: %missing(1) == 0\n",
			harnesserr.KindNotFound,
			"missing",
		},
		{
			"tuple count",
			"test run\ntarget x86_64\nfunction %f() -> i32, i32 {\n}\n; run: %f() == [1]\n",
			harnesserr.KindArityMismatch,
			"tuple",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.clif", tt.text)
			if err == nil {
				t.Fatal("expected error")
			}
			var herr *harnesserr.Error
			if !errors.As(err, &herr) {
				t.Fatalf("error type %T, want *errors.Error", err)
			}
			if herr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", herr.Kind, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q missing %q", err, tt.wantErr)
			}
		})
	}
}

// Unknown architectures are recorded, not rejected; applicability is decided
// at run time so cross-arch fixtures stay parseable everywhere.
func TestParseUnknownArch(t *testing.T) {
	f, err := Parse("cross.clif", "test run\ntarget mips64\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Targets) != 1 || f.Targets[0].Arch != "mips64" {
		t.Errorf("targets = %v, want recorded mips64", f.Targets)
	}
}

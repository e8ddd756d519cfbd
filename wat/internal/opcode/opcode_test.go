package opcode

import (
	"strings"
	"testing"
)

func TestLookupEncodings(t *testing.T) {
	tests := []struct {
		name     string
		opcode   byte
		operands int
		imm      ImmKind
	}{
		{"unreachable", 0x00, 0, ImmNone},
		{"nop", 0x01, 0, ImmNone},
		{"return", 0x0F, -1, ImmNone},
		{"br", 0x0C, -1, ImmU32},
		{"br_if", 0x0D, -1, ImmU32},
		{"call", 0x10, -1, ImmU32},
		{"drop", 0x1A, 1, ImmNone},
		{"local.get", 0x20, 0, ImmU32},
		{"local.tee", 0x22, 1, ImmU32},
		{"global.set", 0x24, 1, ImmU32},
		{"i32.const", 0x41, 0, ImmI32},
		{"i64.const", 0x42, 0, ImmI64},
		{"f32.const", 0x43, 0, ImmF32},
		{"f64.const", 0x44, 0, ImmF64},
		{"i32.eqz", 0x45, 1, ImmNone},
		{"i32.add", 0x6A, 2, ImmNone},
		{"i64.rotr", 0x8A, 2, ImmNone},
		{"f32.copysign", 0x98, 2, ImmNone},
		{"f64.nearest", 0x9E, 1, ImmNone},
		{"i32.wrap_i64", 0xA7, 1, ImmNone},
		{"i64.extend_i32_u", 0xAD, 1, ImmNone},
		{"f64.promote_f32", 0xBB, 1, ImmNone},
		{"i64.reinterpret_f64", 0xBD, 1, ImmNone},
		{"i32.extend8_s", 0xC0, 1, ImmNone},
		{"i64.extend32_s", 0xC4, 1, ImmNone},
		{"memory.size", 0x3F, 0, ImmMemIdx},
		{"memory.grow", 0x40, 1, ImmMemIdx},
		{"ref.is_null", 0xD1, 1, ImmNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := Lookup(tt.name)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.name)
			}
			if info.Opcode != tt.opcode || info.Operands != tt.operands || info.ImmType != tt.imm {
				t.Errorf("info = %+v, want {0x%02X %d %d}", info, tt.opcode, tt.operands, tt.imm)
			}
		})
	}

	if _, ok := Lookup("no.such.op"); ok {
		t.Error("Lookup accepted an unknown mnemonic")
	}
}

func TestLookupMemoryEncodings(t *testing.T) {
	tests := []struct {
		name     string
		opcode   byte
		align    uint32
		operands int
	}{
		{"i32.load", 0x28, 2, 1},
		{"i64.load", 0x29, 3, 1},
		{"f32.load", 0x2A, 2, 1},
		{"f64.load", 0x2B, 3, 1},
		{"i32.load8_u", 0x2D, 0, 1},
		{"i64.load16_s", 0x32, 1, 1},
		{"i64.load32_u", 0x35, 2, 1},
		{"i32.store", 0x36, 2, 2},
		{"i64.store", 0x37, 3, 2},
		{"i32.store8", 0x3A, 0, 2},
		{"i64.store32", 0x3E, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := LookupMemory(tt.name)
			if !ok {
				t.Fatalf("LookupMemory(%q) not found", tt.name)
			}
			if op.Opcode != tt.opcode || op.NaturalAlign != tt.align || op.Operands != tt.operands {
				t.Errorf("op = %+v, want {0x%02X %d %d}", op, tt.opcode, tt.align, tt.operands)
			}
		})
	}
}

func TestLookupPrefixedEncodings(t *testing.T) {
	tests := []struct {
		name     string
		subop    uint32
		operands int
	}{
		{"i32.trunc_sat_f32_s", 0, 1},
		{"i64.trunc_sat_f64_u", 7, 1},
		{"memory.init", 8, 3},
		{"data.drop", 9, 0},
		{"memory.copy", 10, 3},
		{"memory.fill", 11, 3},
		{"table.init", 12, 3},
		{"elem.drop", 13, 0},
		{"table.copy", 14, 5},
		{"table.grow", 15, 2},
		{"table.size", 16, 0},
		{"table.fill", 17, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := LookupPrefixed(tt.name)
			if !ok {
				t.Fatalf("LookupPrefixed(%q) not found", tt.name)
			}
			if op.Subop != tt.subop || op.Operands != tt.operands {
				t.Errorf("op = %+v, want {%d %d}", op, tt.subop, tt.operands)
			}
		})
	}
}

func TestTablesAreDisjoint(t *testing.T) {
	for name := range memoryOps {
		if _, ok := table[name]; ok {
			t.Errorf("%q appears in both the plain and memory tables", name)
		}
	}
	for name := range prefixedOps {
		if _, ok := table[name]; ok {
			t.Errorf("%q appears in both the plain and prefixed tables", name)
		}
	}
}

func TestNumericFamiliesComplete(t *testing.T) {
	families := map[string][]string{
		"i32": {"eqz", "eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u",
			"clz", "ctz", "popcnt", "add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u",
			"and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr"},
		"i64": {"eqz", "eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u",
			"clz", "ctz", "popcnt", "add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u",
			"and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr"},
		"f32": {"eq", "ne", "lt", "gt", "le", "ge", "abs", "neg", "ceil", "floor", "trunc",
			"nearest", "sqrt", "add", "sub", "mul", "div", "min", "max", "copysign"},
		"f64": {"eq", "ne", "lt", "gt", "le", "ge", "abs", "neg", "ceil", "floor", "trunc",
			"nearest", "sqrt", "add", "sub", "mul", "div", "min", "max", "copysign"},
	}
	for prefix, ops := range families {
		for _, op := range ops {
			name := prefix + "." + op
			if _, ok := Lookup(name); !ok {
				t.Errorf("missing instruction %s", name)
			}
		}
	}

	conversions := []string{
		"i32.wrap_i64", "i64.extend_i32_s", "i64.extend_i32_u",
		"i32.trunc_f32_s", "i32.trunc_f64_u", "i64.trunc_f32_u", "i64.trunc_f64_s",
		"f32.convert_i32_s", "f32.convert_i64_u", "f64.convert_i32_u", "f64.convert_i64_s",
		"f32.demote_f64", "f64.promote_f32",
		"i32.reinterpret_f32", "i64.reinterpret_f64", "f32.reinterpret_i32", "f64.reinterpret_i64",
	}
	for _, name := range conversions {
		if _, ok := Lookup(name); !ok {
			t.Errorf("missing conversion %s", name)
		}
	}
}

func TestStoreAlignmentWithinAccessWidth(t *testing.T) {
	// Natural alignment is log2 of the access width, so it never exceeds 3.
	for name, op := range memoryOps {
		if op.NaturalAlign > 3 {
			t.Errorf("%s natural alignment = %d", name, op.NaturalAlign)
		}
		if op.Operands != 1 && op.Operands != 2 {
			t.Errorf("%s operands = %d", name, op.Operands)
		}
		if strings.HasPrefix(name, "i32.") || strings.HasPrefix(name, "f32.") {
			if op.NaturalAlign > 2 {
				t.Errorf("%s natural alignment %d exceeds a 32-bit access", name, op.NaturalAlign)
			}
		}
	}
}

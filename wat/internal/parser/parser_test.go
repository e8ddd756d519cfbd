package parser

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/wasm-conformance/wat/internal/ast"
	"github.com/wippyai/wasm-conformance/wat/internal/token"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := New(token.Tokenize(src)).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return mod
}

func bodyOf(t *testing.T, src string) []ast.Instr {
	t.Helper()
	mod := parse(t, src)
	if len(mod.Code) == 0 {
		t.Fatal("no function body")
	}
	return mod.Code[0].Code
}

func opcodes(instrs []ast.Instr) []byte {
	out := make([]byte, len(instrs))
	for i, ins := range instrs {
		out[i] = ins.Opcode
	}
	return out
}

func TestParseModuleShapes(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		types    int
		funcs    int
		memories int
		tables   int
	}{
		{"empty", "(module)", 0, 0, 0, 0},
		{"named", "(module $m)", 0, 0, 0, 0},
		{"one func", "(module (func))", 1, 1, 0, 0},
		{"two funcs share a type", "(module (func) (func))", 1, 2, 0, 0},
		{"two memories", "(module (memory 1) (memory 2 4))", 0, 0, 2, 0},
		{"two tables", "(module (table 1 funcref) (table 2 externref))", 0, 0, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := parse(t, tt.src)
			if len(mod.Types) != tt.types || len(mod.Funcs) != tt.funcs ||
				len(mod.Memories) != tt.memories || len(mod.Tables) != tt.tables {
				t.Errorf("types/funcs/memories/tables = %d/%d/%d/%d, want %d/%d/%d/%d",
					len(mod.Types), len(mod.Funcs), len(mod.Memories), len(mod.Tables),
					tt.types, tt.funcs, tt.memories, tt.tables)
			}
		})
	}
}

func TestParseSignatures(t *testing.T) {
	mod := parse(t, `(module
	  (func (param i32 i64) (result f64) (f64.const 0))
	  (func $named (param $x i32) (local $tmp i64)
	    (drop (local.get $x)) (drop (local.get $tmp))))`)

	first := mod.Types[mod.Funcs[0].TypeIdx]
	if len(first.Params) != 2 || first.Params[0] != ast.ValTypeI32 || first.Params[1] != ast.ValTypeI64 {
		t.Errorf("params = %v", first.Params)
	}
	if len(first.Results) != 1 || first.Results[0] != ast.ValTypeF64 {
		t.Errorf("results = %v", first.Results)
	}

	// Named parameter resolves to index 0, the named local to index 1.
	body := mod.Code[1].Code
	var gets []uint32
	for _, ins := range body {
		if ins.Opcode == ast.OpLocalGet {
			gets = append(gets, ins.Imm.(uint32))
		}
	}
	if len(gets) != 2 || gets[0] != 0 || gets[1] != 1 {
		t.Errorf("local.get indices = %v", gets)
	}
	if len(mod.Code[1].Locals) != 1 || mod.Code[1].Locals[0] != ast.ValTypeI64 {
		t.Errorf("locals = %v", mod.Code[1].Locals)
	}
}

func TestParseTypeUse(t *testing.T) {
	mod := parse(t, `(module
	  (type $sig (func (param i32) (result i32)))
	  (func (type $sig) (local.get 0)))`)
	if len(mod.Types) != 1 {
		t.Fatalf("types = %d", len(mod.Types))
	}
	if mod.Funcs[0].TypeIdx != 0 {
		t.Errorf("type index = %d", mod.Funcs[0].TypeIdx)
	}
}

func TestParseImports(t *testing.T) {
	mod := parse(t, `(module
	  (import "env" "f" (func $f (param i32)))
	  (import "env" "mem" (memory 1 2))
	  (import "env" "g" (global i32))
	  (import "env" "tab" (table 1 funcref)))`)

	if len(mod.Imports) != 4 {
		t.Fatalf("imports = %d", len(mod.Imports))
	}
	kinds := []byte{ast.KindFunc, ast.KindMemory, ast.KindGlobal, ast.KindTable}
	for i, want := range kinds {
		if mod.Imports[i].Desc.Kind != want {
			t.Errorf("import %d kind = %d, want %d", i, mod.Imports[i].Desc.Kind, want)
		}
	}
	mem := mod.Imports[1].Desc.MemLimits
	if mem.Min != 1 || mem.Max == nil || *mem.Max != 2 {
		t.Errorf("memory limits = %+v", mem)
	}
	if g := mod.Imports[2].Desc.GlobalTyp; g.ValType != ast.ValTypeI32 || g.Mutable {
		t.Errorf("global type = %+v", g)
	}
}

func TestParseExports(t *testing.T) {
	mod := parse(t, `(module
	  (func $f)
	  (memory 1)
	  (global $g i32 (i32.const 0))
	  (table 1 funcref)
	  (export "fn" (func $f))
	  (export "mem" (memory 0))
	  (export "gl" (global $g))
	  (export "tab" (table 0)))`)

	want := []struct {
		name string
		kind byte
	}{
		{"fn", ast.KindFunc},
		{"mem", ast.KindMemory},
		{"gl", ast.KindGlobal},
		{"tab", ast.KindTable},
	}
	if len(mod.Exports) != len(want) {
		t.Fatalf("exports = %d", len(mod.Exports))
	}
	for i, w := range want {
		e := mod.Exports[i]
		if e.Name != w.name || e.Kind != w.kind || e.Idx != 0 {
			t.Errorf("export %d = %+v", i, e)
		}
	}
}

func TestParseInlineExportAndImport(t *testing.T) {
	mod := parse(t, `(module (func (export "f") (export "alias")))`)
	if len(mod.Exports) != 2 || mod.Exports[0].Name != "f" || mod.Exports[1].Name != "alias" {
		t.Errorf("inline exports = %+v", mod.Exports)
	}

	mod = parse(t, `(module (func $f (import "env" "f") (param i32)))`)
	if len(mod.Imports) != 1 || mod.Imports[0].Module != "env" {
		t.Fatalf("inline import = %+v", mod.Imports)
	}
	if len(mod.Funcs) != 0 {
		t.Error("imported function also declared locally")
	}
}

func TestParseGlobals(t *testing.T) {
	mod := parse(t, `(module
	  (global i32 (i32.const 7))
	  (global $m (mut f64) (f64.const 0)))`)
	if len(mod.Globals) != 2 {
		t.Fatalf("globals = %d", len(mod.Globals))
	}
	if mod.Globals[0].Type.Mutable {
		t.Error("first global parsed as mutable")
	}
	if !mod.Globals[1].Type.Mutable || mod.Globals[1].Type.ValType != ast.ValTypeF64 {
		t.Errorf("second global type = %+v", mod.Globals[1].Type)
	}
	if imm := mod.Globals[0].Init[0].Imm.(int32); imm != 7 {
		t.Errorf("init = %d", imm)
	}
}

func TestParseStart(t *testing.T) {
	mod := parse(t, `(module (func $main) (start $main))`)
	if mod.Start == nil || *mod.Start != 0 {
		t.Errorf("start = %v", mod.Start)
	}
}

func TestParseDataSegments(t *testing.T) {
	mod := parse(t, `(module
	  (memory 1)
	  (data (i32.const 8) "ab")
	  (data "passive")
	  (data (memory 0) (i32.const 0) "x"))`)
	if len(mod.Data) != 3 {
		t.Fatalf("segments = %d", len(mod.Data))
	}
	if mod.Data[0].Passive || !bytes.Equal(mod.Data[0].Init, []byte("ab")) {
		t.Errorf("active segment = %+v", mod.Data[0])
	}
	if !mod.Data[1].Passive {
		t.Error("second segment not passive")
	}
	if mod.Data[2].Passive {
		t.Error("indexed segment parsed as passive")
	}
}

func TestParseElemSegments(t *testing.T) {
	mod := parse(t, `(module
	  (table 4 funcref)
	  (func $f)
	  (elem (i32.const 0) $f)
	  (elem func $f)
	  (elem declare func $f))`)
	if len(mod.Elems) != 3 {
		t.Fatalf("segments = %d", len(mod.Elems))
	}
	modes := []int{ast.ElemModeActive, ast.ElemModePassive, ast.ElemModeDeclarative}
	for i, want := range modes {
		if mod.Elems[i].Mode != want {
			t.Errorf("segment %d mode = %d, want %d", i, mod.Elems[i].Mode, want)
		}
	}
}

func TestParseElemRefExpressions(t *testing.T) {
	mod := parse(t, `(module
	  (table 2 funcref)
	  (func $f)
	  (elem funcref (ref.func $f) (ref.null func)))`)
	if len(mod.Elems) != 1 {
		t.Fatalf("segments = %d", len(mod.Elems))
	}
	e := mod.Elems[0]
	if len(e.Exprs) != 2 {
		t.Fatalf("exprs = %d", len(e.Exprs))
	}
	if e.Exprs[0][0].Opcode != ast.OpRefFunc || e.Exprs[1][0].Opcode != ast.OpRefNull {
		t.Errorf("expr opcodes = %02X %02X", e.Exprs[0][0].Opcode, e.Exprs[1][0].Opcode)
	}
}

func TestFoldedFormFlattens(t *testing.T) {
	body := bodyOf(t, `(module (func (result i32)
	  (i32.add (i32.const 1) (i32.const 2))))`)
	want := []byte{ast.OpI32Const, ast.OpI32Const, 0x6A, ast.OpEnd}
	if !bytes.Equal(opcodes(body), want) {
		t.Errorf("opcodes = % X, want % X", opcodes(body), want)
	}
}

func TestParseControlFlow(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []byte
	}{
		{
			"block",
			`(module (func (block (nop))))`,
			[]byte{ast.OpBlock, ast.OpNop, ast.OpEnd, ast.OpEnd},
		},
		{
			"loop with branch",
			`(module (func (loop $l (br $l))))`,
			[]byte{ast.OpLoop, ast.OpBr, ast.OpEnd, ast.OpEnd},
		},
		{
			"if then else",
			`(module (func (result i32)
			  (if (result i32) (i32.const 1)
			    (then (i32.const 2))
			    (else (i32.const 3)))))`,
			[]byte{ast.OpI32Const, ast.OpIf, ast.OpI32Const, ast.OpElse, ast.OpI32Const, ast.OpEnd, ast.OpEnd},
		},
		{
			"if without else",
			`(module (func (if (i32.const 1) (then (nop)))))`,
			[]byte{ast.OpI32Const, ast.OpIf, ast.OpNop, ast.OpEnd, ast.OpEnd},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bodyOf(t, tt.src)
			if !bytes.Equal(opcodes(body), tt.want) {
				t.Errorf("opcodes = % X, want % X", opcodes(body), tt.want)
			}
		})
	}
}

func TestParseBrTableLabels(t *testing.T) {
	body := bodyOf(t, `(module (func
	  (block $outer (block $inner
	    (br_table $inner $outer (i32.const 0))))))`)
	for _, ins := range body {
		if ins.Opcode == ast.OpBrTable {
			labels := ins.Imm.([]uint32)
			if len(labels) != 2 || labels[0] != 0 || labels[1] != 1 {
				t.Errorf("br_table labels = %v", labels)
			}
			return
		}
	}
	t.Fatal("no br_table in body")
}

func TestParseCallIndirect(t *testing.T) {
	body := bodyOf(t, `(module
	  (table 1 funcref)
	  (type $sig (func (result i32)))
	  (func (result i32)
	    (call_indirect (type $sig) (i32.const 0))))`)
	for _, ins := range body {
		if ins.Opcode == ast.OpCallIndirect {
			pair := ins.Imm.([]uint32)
			if pair[0] != 0 {
				t.Errorf("type index = %d", pair[0])
			}
			return
		}
	}
	t.Fatal("no call_indirect in body")
}

func TestParseMemargs(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ast.Memarg
	}{
		{"defaults", "(i32.load (i32.const 0))", ast.Memarg{Align: 2}},
		{"offset", "(i32.load offset=4 (i32.const 0))", ast.Memarg{Align: 2, Offset: 4}},
		{"align", "(i32.load align=1 (i32.const 0))", ast.Memarg{Align: 0}},
		{"both", "(i64.load offset=8 align=4 (i32.const 0))", ast.Memarg{Align: 2, Offset: 8}},
		{"narrow load", "(i32.load8_u (i32.const 0))", ast.Memarg{Align: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bodyOf(t, "(module (memory 1) (func (drop "+tt.src+")))")
			for _, ins := range body {
				if ma, ok := ins.Imm.(ast.Memarg); ok {
					if ma != tt.want {
						t.Errorf("memarg = %+v, want %+v", ma, tt.want)
					}
					return
				}
			}
			t.Fatal("no memory instruction in body")
		})
	}
}

func TestParsePrefixedOps(t *testing.T) {
	body := bodyOf(t, `(module
	  (memory 1)
	  (data "seed")
	  (func
	    (memory.copy (i32.const 0) (i32.const 8) (i32.const 4))
	    (memory.init 0 (i32.const 0) (i32.const 0) (i32.const 4))
	    (data.drop 0)))`)
	var subops []uint32
	for _, ins := range body {
		if ins.Opcode != ast.OpPrefixMisc {
			continue
		}
		switch v := ins.Imm.(type) {
		case uint32:
			subops = append(subops, v)
		case []uint32:
			subops = append(subops, v[0])
		}
	}
	want := []uint32{ast.MiscOpMemoryCopy, ast.MiscOpMemoryInit, ast.MiscOpDataDrop}
	if len(subops) != len(want) {
		t.Fatalf("prefixed ops = %v, want %v", subops, want)
	}
	for i := range want {
		if subops[i] != want[i] {
			t.Errorf("subop %d = %d, want %d", i, subops[i], want[i])
		}
	}
}

func TestParseConstants(t *testing.T) {
	body := bodyOf(t, `(module (func
	  (drop (i32.const -2147483648))
	  (drop (i64.const 0x7FFF_FFFF_FFFF_FFFF))
	  (drop (f32.const 1.5))
	  (drop (f64.const -inf))))`)
	var imms []interface{}
	for _, ins := range body {
		switch ins.Opcode {
		case ast.OpI32Const, ast.OpI64Const, ast.OpF32Const, ast.OpF64Const:
			imms = append(imms, ins.Imm)
		}
	}
	if len(imms) != 4 {
		t.Fatalf("constants = %d", len(imms))
	}
	if imms[0].(int32) != -2147483648 {
		t.Errorf("i32 = %v", imms[0])
	}
	if imms[1].(int64) != 0x7FFFFFFFFFFFFFFF {
		t.Errorf("i64 = %v", imms[1])
	}
	if imms[2].(float32) != 1.5 {
		t.Errorf("f32 = %v", imms[2])
	}
	if f := imms[3].(float64); !math.IsInf(f, -1) {
		t.Errorf("f64 = %v, want -inf", f)
	}
}

func TestDecodeStringLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"plain", []byte("plain")},
		{`a\nb`, []byte("a\nb")},
		{`tab\there`, []byte("tab\there")},
		{`\"quoted\"`, []byte(`"quoted"`)},
		{`\00\ff`, []byte{0x00, 0xFF}},
		{`\u{48}\u{49}`, []byte("HI")},
	}
	for _, tt := range tests {
		if got := DecodeStringLiteral(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("DecodeStringLiteral(%q) = % X, want % X", tt.in, got, tt.want)
		}
	}
}

func TestLabelResolution(t *testing.T) {
	p := New(nil)
	p.pushLabel("$a")
	p.pushLabel("$b")
	p.pushLabel("$c")

	if depth, ok := p.resolveLabel("$c"); !ok || depth != 0 {
		t.Errorf("$c depth = %d, %v", depth, ok)
	}
	if depth, ok := p.resolveLabel("$a"); !ok || depth != 2 {
		t.Errorf("$a depth = %d, %v", depth, ok)
	}
	if _, ok := p.resolveLabel("$missing"); ok {
		t.Error("resolved a label that was never pushed")
	}

	p.popLabel()
	if _, ok := p.resolveLabel("$c"); ok {
		t.Error("popped label still resolves")
	}
}

func TestFindOrAddTypeDeduplicates(t *testing.T) {
	p := New(nil)
	p.mod = &ast.Module{}

	sig := ast.FuncType{Params: []ast.ValType{ast.ValTypeI32}}
	a := p.findOrAddType(sig)
	b := p.findOrAddType(ast.FuncType{Params: []ast.ValType{ast.ValTypeI32}})
	c := p.findOrAddType(ast.FuncType{Params: []ast.ValType{ast.ValTypeI64}})

	if a != b {
		t.Errorf("identical signatures got indices %d and %d", a, b)
	}
	if c == a {
		t.Error("distinct signature shares an index")
	}
	if len(p.mod.Types) != 2 {
		t.Errorf("type section has %d entries", len(p.mod.Types))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown instruction", "(module (func (bogus)))", "unknown instruction"},
		{"unknown value type", "(module (func (param v128)))", "unknown value type"},
		{"unknown identifier", "(module (func (call $missing)))", "unknown identifier"},
		{"truncated", "(module (func", "unexpected end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(token.Tokenize(tt.src)).Parse()
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

package golden

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	conformance "github.com/wippyai/wasm-conformance"
)

const fixtureWithBlock = `test compile
target x86_64

function %add(i32, i32) -> i32 {
block0(v0: i32, v1: i32):
    v2 = iadd v0, v1
    return v2
}

;;   0: 55              push rbp
;;   1: 48 89 e5        mov rbp, rsp
;;   4: 01 f7           add edi, esi
;;   6: 89 f8           mov eax, edi
;;   8: 5d              pop rbp
;;   9: c3              ret
`

func TestExtractBlock(t *testing.T) {
	b := ExtractBlock(fixtureWithBlock)
	if !b.Found() {
		t.Fatal("no block found")
	}
	if len(b.Lines) != 6 {
		t.Fatalf("got %d lines: %q", len(b.Lines), b.Lines)
	}
	if b.Lines[0] != "0: 55              push rbp" {
		t.Errorf("first line = %q", b.Lines[0])
	}
	if b.Lines[5] != "9: c3              ret" {
		t.Errorf("last line = %q", b.Lines[5])
	}
}

func TestExtractBlockAbsent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no comments", "function %f() {\n}\n"},
		{"run lines only", "function %f() -> i32 {\n}\n; run: %f() == 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if b := ExtractBlock(tt.text); b.Found() {
				t.Errorf("found block %q", b.Lines)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"   1c: 48 83 ec 10   sub rsp, 0x10", "sub rsp, 0x10"},
		{"push rbp", "push rbp"},
		{"0: 55 push rbp", "push rbp"},
		{"e8 00 00 00 00  call 0x30", "call <rel>"},
		{"jne 0x1c", "jne <rel>"},
		{"jmp rax", "jmp rax"},
		{"bl 0x4010", "bl <rel>"},
		{"b.ne 0x48", "b.ne <rel>"},
		{"mov eax, 0x10", "mov eax, 0x10"},
		{"  ", ""},
		{"0f 0b", "0f 0b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompareEqualAfterOffsetShift(t *testing.T) {
	stored := []string{
		"0: 55        push rbp",
		"1: e8 00     call 0x40",
		"6: c3        ret",
	}
	fresh := []string{
		"10: 55        push rbp",
		"11: e8 00     call 0x80",
		"16: c3        ret",
	}
	if d := Compare(stored, fresh); !d.Empty() {
		t.Errorf("diff:\n%s", d.Render())
	}
}

func TestCompareStructuralChangeFails(t *testing.T) {
	stored := []string{"push rbp", "add edi, esi", "ret"}
	fresh := []string{"push rbp", "sub edi, esi", "ret"}
	d := Compare(stored, fresh)
	if d.Empty() {
		t.Fatal("mnemonic change not detected")
	}
	r := d.Render()
	if !strings.Contains(r, "-add edi, esi") || !strings.Contains(r, "+sub edi, esi") {
		t.Errorf("diff rendering:\n%s", r)
	}
}

func TestCompareToleratesPaddingAfterUd2(t *testing.T) {
	stored := []string{"push rbp", "ud2"}
	fresh := []string{"push rbp", "ud2", "0f 0b", "int3", "int3"}
	if d := Compare(stored, fresh); !d.Empty() {
		t.Errorf("padding after ud2 reported:\n%s", d.Render())
	}
}

func TestCompareDivergenceBeforeUd2Fails(t *testing.T) {
	stored := []string{"push rbp", "ud2"}
	fresh := []string{"pop rbp", "ud2"}
	if d := Compare(stored, fresh); d.Empty() {
		t.Error("divergence before ud2 not detected")
	}
}

func TestRenderCompareIdempotent(t *testing.T) {
	fresh := []string{
		"0: 55          push rbp",
		"1: e8 00 00    call 0x20",
		"6: c3          ret",
	}
	rendered := Render(fresh)
	block := ExtractBlock("function %f() {\n}\n\n" + rendered)
	if !block.Found() {
		t.Fatal("rendered block not extractable")
	}
	if d := Compare(block.Lines, fresh); !d.Empty() {
		t.Errorf("round trip not clean:\n%s", d.Render())
	}
}

func TestUpdateRewritesBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.clif")
	if err := os.WriteFile(path, []byte(fixtureWithBlock), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := []string{"0: 55  push rbp", "1: c3  ret"}
	if err := Update(path, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.Contains(text, "function %add") {
		t.Error("module text lost")
	}
	if strings.Contains(text, "add edi, esi") {
		t.Error("old block survived")
	}

	b := ExtractBlock(text)
	if !b.Found() || len(b.Lines) != 2 {
		t.Fatalf("updated block = %q", b.Lines)
	}
	if d := Compare(b.Lines, fresh); !d.Empty() {
		t.Errorf("updated block does not re-pass:\n%s", d.Render())
	}
}

func TestUpdateAppendsWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.clif")
	if err := os.WriteFile(path, []byte("function %f() {\n}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Update(path, []string{"ret"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	raw, _ := os.ReadFile(path)
	b := ExtractBlock(string(raw))
	if !b.Found() || len(b.Lines) != 1 || b.Lines[0] != "ret" {
		t.Fatalf("appended block = %q", b.Lines)
	}
}

func TestStubBackendDefaults(t *testing.T) {
	ctx := context.Background()
	s := &StubBackend{}
	a, err := s.Compile(ctx, "text", conformance.Target{Arch: "x86_64"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Disassemble(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if out != "text" {
		t.Errorf("stub round trip = %q", out)
	}
}

package report

import (
	"strings"
	"testing"

	"github.com/wippyai/wasm-conformance/harness"
)

func TestRenderFailuresAndSummary(t *testing.T) {
	sum := &harness.Summary{}
	var b strings.Builder

	sum.Records = []harness.Record{
		{File: "a.clif", Case: "%id(7)", Target: "x86_64", Oracle: "clif", Status: harness.Failed,
			Detail: "value 0: expected 7, got 8"},
		{File: "a.clif", Case: "%id(9)", Target: "x86_64", Oracle: "clif", Status: harness.Passed},
		{File: "b.clif", Case: "disassembly", Target: "x86_64", Oracle: "golden", Status: harness.Failed,
			Detail: "-push rbp\n+pop rbp\n ret\n"},
	}
	sum.Failed = 2
	sum.Passed = 1

	r := &Renderer{Out: &b}
	if err := r.Render(sum); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	if strings.Contains(out, "%id(9)") {
		t.Error("passed record rendered without Verbose")
	}
	for _, want := range []string{
		"FAIL a.clif [x86_64] %id(7) (clif)",
		"value 0: expected 7, got 8",
		"-push rbp",
		"+pop rbp",
		"1 passed, 2 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderVerboseIncludesSkips(t *testing.T) {
	sum := &harness.Summary{}
	sum.Records = []harness.Record{
		{File: "a.clif", Case: "%f()", Target: "s390x", Status: harness.Skipped,
			Detail: "target not executable on this host"},
	}
	sum.Skipped = 1

	var b strings.Builder
	r := &Renderer{Out: &b, Verbose: true}
	if err := r.Render(sum); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.Contains(out, "SKIP") || !strings.Contains(out, "not executable") {
		t.Errorf("verbose output:\n%s", out)
	}
	if !strings.Contains(out, "0 passed, 1 skipped") {
		t.Errorf("summary line:\n%s", out)
	}
}

func TestRenderPlainWithoutColor(t *testing.T) {
	sum := &harness.Summary{Passed: 1}
	sum.Records = []harness.Record{{File: "a.wast", Status: harness.Passed}}

	var b strings.Builder
	if err := (&Renderer{Out: &b}).Render(sum); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "\x1b[") {
		t.Errorf("escape sequences without color enabled: %q", b.String())
	}
}

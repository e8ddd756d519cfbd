package harness

import (
	"context"
	"sort"
	"strings"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/fixture"
	"github.com/wippyai/wasm-conformance/golden"
	"github.com/wippyai/wasm-conformance/oracle"
)

// runFixture executes one fixture on one target: invocation cases through
// the configured oracles, then golden comparison when the fixture compiles.
func (r *Runner) runFixture(ctx context.Context, f *fixture.File, tgt conformance.Target) []Record {
	var records []Record
	if f.HasMode(fixture.ModeInterpret) || f.HasMode(fixture.ModeRun) {
		records = append(records, r.runFixtureCases(ctx, f, tgt)...)
	}
	if f.HasMode(fixture.ModeCompile) {
		records = append(records, r.runGolden(ctx, f, tgt))
	}
	return records
}

// runFixtureCases drives the invocation cases through the interpreter
// oracle, and in run mode additionally through the compiled oracle when the
// target can execute here. Both lanes answer every case in lockstep and
// their outcomes are cross-checked.
func (r *Runner) runFixtureCases(ctx context.Context, f *fixture.File, tgt conformance.Target) []Record {
	target := tgt.String()

	if r.cfg.CLIFInterp == nil {
		var records []Record
		for _, c := range f.Cases {
			if r.caseSelected(c) {
				records = append(records, skipRecord(f.Path, c.Name(), target, "no interpreter oracle configured"))
			}
		}
		return records
	}

	oracles := []oracle.Oracle{r.cfg.CLIFInterp}
	compiledSkip := ""
	if f.HasMode(fixture.ModeRun) && r.cfg.CLIFCompile != nil {
		if executableOnHost(tgt) {
			oracles = append(oracles, r.cfg.CLIFCompile)
		} else {
			compiledSkip = "target not executable on this host"
		}
	}

	type lane struct {
		name    string
		session oracle.Session
	}
	lanes := make([]lane, 0, len(oracles))
	for _, o := range oracles {
		session, err := o.NewSession(ctx)
		if err != nil {
			return []Record{{File: f.Path, Target: target, Oracle: o.Name(), Status: Errored, Err: err}}
		}
		defer func() { _ = session.Close(ctx) }()

		if err := session.Instantiate(ctx, "", f.Text); err != nil {
			return []Record{{File: f.Path, Target: target, Oracle: o.Name(), Status: Errored, Err: err}}
		}
		lanes = append(lanes, lane{name: o.Name(), session: session})
	}

	var records []Record
	for _, c := range f.Cases {
		if !r.caseSelected(c) {
			continue
		}
		if compiledSkip != "" {
			rec := skipRecord(f.Path, c.Name(), target, compiledSkip)
			rec.Oracle = r.cfg.CLIFCompile.Name()
			records = append(records, rec)
		}

		var results []conformance.Type
		if sig, ok := f.Signature(c.Func); ok {
			results = sig.Results
		}

		outs := make([]oracle.Outcome, 0, len(lanes))
		for _, ln := range lanes {
			callCtx, cancel := r.invokeCtx(ctx)
			out := ln.session.Invoke(callCtx, "", strings.TrimPrefix(c.Func, "%"), c.Args, results)
			cancel()
			outs = append(outs, out)

			rec := Record{File: f.Path, Case: c.Name(), Target: target, Oracle: ln.name}
			if ok, detail := matchOutcome(c.Expect, out); ok {
				rec.Status = Passed
			} else if out.Err != nil {
				rec.Status = Errored
				rec.Err = out.Err
				rec.Detail = detail
			} else {
				rec.Status = Failed
				rec.Detail = detail
			}
			records = append(records, rec)
		}

		for i := 1; i < len(outs); i++ {
			if ok, detail := oraclesAgree(outs[0], outs[i]); !ok {
				records = append(records, Record{
					File:   f.Path,
					Case:   c.Name(),
					Target: target,
					Oracle: lanes[0].name + "/" + lanes[i].name,
					Status: Failed,
					Detail: "oracle disagreement: " + detail,
				})
			}
		}
	}
	return records
}

func (r *Runner) runGolden(ctx context.Context, f *fixture.File, tgt conformance.Target) Record {
	return r.compareGolden(ctx, f.Path, f.Text, f.Text, tgt, targetFlags(tgt))
}

// compareGolden compiles moduleText for the target, disassembles the result
// and checks it against the golden block stored in the file at path. The
// fileText carries the stored block; for clif fixtures it is the module text
// itself, for wast scripts the whole script source.
func (r *Runner) compareGolden(ctx context.Context, path, fileText, moduleText string, tgt conformance.Target, flags []string) Record {
	target := tgt.String()
	rec := Record{File: path, Case: "disassembly", Target: target, Oracle: "golden"}

	if r.cfg.Backend == nil {
		return skipRecord(path, rec.Case, target, "no golden backend configured")
	}

	block := golden.ExtractBlock(fileText)
	if !block.Found() && !r.cfg.UpdateGolden {
		return skipRecord(path, rec.Case, target, "no stored disassembly block")
	}

	artifact, err := r.cfg.Backend.Compile(ctx, moduleText, tgt, flags)
	if err != nil {
		rec.Status = Errored
		rec.Err = err
		return rec
	}
	text, err := r.cfg.Backend.Disassemble(ctx, artifact)
	if err != nil {
		rec.Status = Errored
		rec.Err = err
		return rec
	}
	fresh := golden.SplitLines(text)

	if r.cfg.UpdateGolden {
		if err := golden.Update(path, fresh); err != nil {
			rec.Status = Errored
			rec.Err = err
			return rec
		}
		rec.Status = Passed
		rec.Detail = "golden block updated"
		return rec
	}

	if diff := golden.Compare(block.Lines, fresh); !diff.Empty() {
		rec.Status = Failed
		rec.Detail = diff.Render()
		return rec
	}
	rec.Status = Passed
	return rec
}

// targetFlags renders a target's settings and features as compiler flags.
func targetFlags(t conformance.Target) []string {
	var flags []string
	for _, f := range t.Features {
		flags = append(flags, "-Ccranelift-"+strings.ReplaceAll(f, "_", "-"))
	}
	keys := make([]string, 0, len(t.Settings))
	for k := range t.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flags = append(flags, "--set", k+"="+t.Settings[k])
	}
	return flags
}

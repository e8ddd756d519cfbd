package harness

import (
	"context"
	"fmt"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/oracle"
	"github.com/wippyai/wasm-conformance/wast"
)

// scriptState tracks one oracle's progress through a script.
type scriptState struct {
	session oracle.Session
	oracle  string
	// names maps $identifiers to the instantiated wazero module name, which
	// differs when a module is registered under an import namespace.
	names map[string]string
	// current is the name of the most recently instantiated module.
	current string
	// broken is set when the current module failed to instantiate; asserts
	// against it are reported as errored instead of cascading failures.
	broken bool
}

// runScript steps every oracle through the script in lockstep so each assert
// can be checked against its expectation and across oracles.
func (r *Runner) runScript(ctx context.Context, s *wast.Script) []Record {
	var records []Record

	if !r.scriptSelected(s) {
		return []Record{skipRecord(s.Path, "", "", "script targets filtered out")}
	}

	states := make([]*scriptState, 0, len(r.cfg.Oracles))
	for _, o := range r.cfg.Oracles {
		session, err := o.NewSession(ctx)
		if err != nil {
			records = append(records, Record{File: s.Path, Oracle: o.Name(), Status: Errored, Err: err})
			continue
		}
		defer func() { _ = session.Close(ctx) }()
		states = append(states, &scriptState{session: session, oracle: o.Name(), names: make(map[string]string)})
	}
	if len(states) == 0 {
		return records
	}

	registered := registrationNames(s)
	for i, cmd := range s.Commands {
		switch cmd.Kind {
		case wast.CmdModule:
			name := cmd.Name
			if as, ok := registered[i]; ok {
				name = as
			}
			for _, st := range states {
				err := st.session.Instantiate(ctx, name, cmd.ModuleText)
				st.broken = err != nil
				st.current = name
				if cmd.Name != "" {
					st.names[cmd.Name] = name
				}
				if err != nil {
					records = append(records, Record{
						File: s.Path, Case: fmt.Sprintf("module:%d", cmd.Line),
						Oracle: st.oracle, Status: Errored, Err: err,
					})
				}
			}

		case wast.CmdRegister:
			// Registration happened at instantiation time; nothing to do
			// beyond checking the module exists.
			for _, st := range states {
				if cmd.Name != "" {
					if _, ok := st.names[cmd.Name]; !ok {
						records = append(records, Record{
							File: s.Path, Case: fmt.Sprintf("register:%d", cmd.Line),
							Oracle: st.oracle, Status: Errored,
							Detail: fmt.Sprintf("module %s never instantiated", cmd.Name),
						})
					}
				}
			}

		case wast.CmdAssert:
			if !r.caseSelected(cmd.Case) {
				continue
			}
			records = append(records, r.runAssert(ctx, s, states, cmd)...)

		case wast.CmdAssertUninstantiable:
			records = append(records, r.runLoadExpectation(ctx, s, states, cmd, "uninstantiable")...)

		case wast.CmdAssertLoadFailure:
			records = append(records, r.runLoadExpectation(ctx, s, states, cmd, "invalid")...)
		}
	}

	if s.Meta.Test != "" {
		records = append(records, r.runScriptGolden(ctx, s))
	}
	return records
}

// runScriptGolden handles scripts whose ;;! test header names a compiling
// backend: the first module is compiled with the declared flags and its
// disassembly is checked against the stored golden block.
func (r *Runner) runScriptGolden(ctx context.Context, s *wast.Script) Record {
	var tgt conformance.Target
	if len(s.Meta.Targets) > 0 {
		tgt = conformance.Target{Arch: s.Meta.Targets[0]}
	}

	moduleText := s.Text
	for _, cmd := range s.Commands {
		if cmd.Kind == wast.CmdModule {
			moduleText = cmd.ModuleText
			break
		}
	}
	return r.compareGolden(ctx, s.Path, s.Text, moduleText, tgt, s.Meta.Flags)
}

func (r *Runner) runAssert(ctx context.Context, s *wast.Script, states []*scriptState, cmd wast.Command) []Record {
	type attempt struct {
		oracle string
		out    oracle.Outcome
	}
	var records []Record
	attempts := make([]attempt, 0, len(states))

	for _, st := range states {
		rec := Record{File: s.Path, Case: cmd.Case.Name(), Oracle: st.oracle}
		if st.broken && cmd.TargetModule == "" {
			rec.Status = Errored
			rec.Detail = "current module failed to instantiate"
			records = append(records, rec)
			continue
		}

		module := cmd.TargetModule
		if module != "" {
			if mapped, ok := st.names[module]; ok {
				module = mapped
			}
		}

		callCtx, cancel := r.invokeCtx(ctx)
		out := st.session.Invoke(callCtx, module, cmd.Case.Func, cmd.Case.Args, nil)
		cancel()
		attempts = append(attempts, attempt{oracle: st.oracle, out: out})

		if ok, detail := matchOutcome(cmd.Case.Expect, out); ok {
			rec.Status = Passed
		} else if out.Err != nil {
			rec.Status = Errored
			rec.Err = out.Err
			rec.Detail = detail
		} else {
			rec.Status = Failed
			rec.Detail = detail
			if t, ok := s.Meta.ResultTypes[cmd.Case.Func]; ok {
				rec.Detail += fmt.Sprintf("\ndeclared result type: %s", witTypeName(t))
			}
		}
		records = append(records, rec)
	}

	for i := 1; i < len(attempts); i++ {
		if ok, detail := oraclesAgree(attempts[0].out, attempts[i].out); !ok {
			records = append(records, Record{
				File:   s.Path,
				Case:   cmd.Case.Name(),
				Oracle: attempts[0].oracle + "/" + attempts[i].oracle,
				Status: Failed,
				Detail: "oracle disagreement: " + detail,
			})
		}
	}
	return records
}

// runLoadExpectation checks the assert_invalid family: instantiation of the
// quoted module must fail, with a diagnostic mentioning the expected message.
// The engines word some diagnostics differently; loadFailureMatches aliases
// the known phrasings.
func (r *Runner) runLoadExpectation(ctx context.Context, s *wast.Script, states []*scriptState, cmd wast.Command, what string) []Record {
	var records []Record
	for _, st := range states {
		rec := Record{File: s.Path, Case: fmt.Sprintf("%s:%d", what, cmd.Line), Oracle: st.oracle}
		switch err := st.session.Instantiate(ctx, "", cmd.ModuleText); {
		case err == nil:
			rec.Status = Failed
			rec.Detail = fmt.Sprintf("module expected to be %s (%q) but loaded cleanly", what, cmd.Message)
		case !loadFailureMatches(cmd.Message, err.Error()):
			rec.Status = Failed
			rec.Detail = fmt.Sprintf("module rejected, but the diagnostic does not mention %q: %v", cmd.Message, err)
		default:
			rec.Status = Passed
		}
		records = append(records, rec)
	}
	return records
}

// scriptSelected applies the target filter to a script's declared targets.
// A script with no target metadata always runs.
func (r *Runner) scriptSelected(s *wast.Script) bool {
	if len(r.cfg.Targets) == 0 || len(s.Meta.Targets) == 0 {
		return true
	}
	for _, declared := range s.Meta.Targets {
		for _, want := range r.cfg.Targets {
			if declared == want {
				return true
			}
		}
	}
	return false
}

// registrationNames maps each CmdModule index to the namespace a later
// register command exposes it under. Imports resolve against the engine's
// registry by that name, so the module must be instantiated under it.
func registrationNames(s *wast.Script) map[int]string {
	byID := make(map[string]int)
	lastModule := -1
	out := make(map[int]string)

	for i, cmd := range s.Commands {
		switch cmd.Kind {
		case wast.CmdModule:
			lastModule = i
			if cmd.Name != "" {
				byID[cmd.Name] = i
			}
		case wast.CmdRegister:
			idx := lastModule
			if cmd.Name != "" {
				if j, ok := byID[cmd.Name]; ok {
					idx = j
				}
			}
			if idx >= 0 {
				out[idx] = cmd.As
			}
		}
	}
	return out
}

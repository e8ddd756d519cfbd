package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
	"github.com/wippyai/wasm-conformance/fixture"
	"github.com/wippyai/wasm-conformance/golden"
	"github.com/wippyai/wasm-conformance/oracle"
	"github.com/wippyai/wasm-conformance/wast"
)

// Config controls a conformance run.
type Config struct {
	// Workers is the worker pool size; 0 means GOMAXPROCS.
	Workers int
	// Timeout bounds a single invocation; 0 means no limit.
	Timeout time.Duration
	// Targets filters fixtures to the named targets ("x86_64",
	// "x86_64+has_avx"). Empty runs everything.
	Targets []string
	// Run filters cases by name. Nil runs everything.
	Run *regexp.Regexp
	// UpdateGolden rewrites stored disassembly blocks instead of failing on
	// a diff. Never enabled implicitly.
	UpdateGolden bool
	// Oracles execute wast scripts and run-mode cases. Empty defaults to the
	// wazero interpreter plus, where the host supports it, the compiler.
	Oracles []oracle.Oracle
	// CLIFInterp executes fixture cases under the reference interpreter
	// command. It runs for every interpret and run fixture, on any host.
	// Nil skips them.
	CLIFInterp oracle.Oracle
	// CLIFCompile executes run-mode fixture cases under the compiled
	// backend command. It joins in only when the target is executable on
	// this host, and its outcomes are cross-checked against CLIFInterp.
	CLIFCompile oracle.Oracle
	// Backend compiles and disassembles compile-mode fixtures. Nil skips
	// golden comparison.
	Backend golden.Backend
}

// Status classifies one record.
type Status uint8

const (
	Passed Status = iota
	Failed
	Skipped
	Errored
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "pass"
	case Failed:
		return "fail"
	case Skipped:
		return "skip"
	}
	return "error"
}

// Record is the outcome of one case on one target under one oracle.
type Record struct {
	File   string
	Case   string
	Target string
	Oracle string
	Detail string // expected/actual rendering or diff for failures
	Err    error
	Status Status
}

// Summary aggregates a whole run.
type Summary struct {
	Records []Record
	Passed  int
	Failed  int
	Skipped int
	Errored int
}

func (s *Summary) add(r Record) {
	s.Records = append(s.Records, r)
	switch r.Status {
	case Passed:
		s.Passed++
	case Failed:
		s.Failed++
	case Skipped:
		s.Skipped++
	default:
		s.Errored++
	}
}

// ExitCode is 0 only when nothing failed or errored. Skips never affect it.
func (s *Summary) ExitCode() int {
	if s.Failed > 0 || s.Errored > 0 {
		return 1
	}
	return 0
}

// Failures returns the failed and errored records, in file order.
func (s *Summary) Failures() []Record {
	var out []Record
	for _, r := range s.Records {
		if r.Status == Failed || r.Status == Errored {
			out = append(out, r)
		}
	}
	return out
}

// Runner executes conformance files per its Config.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if len(cfg.Oracles) == 0 {
		cfg.Oracles = []oracle.Oracle{oracle.Interpreter()}
		if oracle.CompilerSupported() {
			cfg.Oracles = append(cfg.Oracles, oracle.Compiler())
		}
	}
	return &Runner{cfg: cfg}
}

type task func(ctx context.Context) []Record

// Run parses every path and executes the resulting work. File-level
// parse errors become errored records; they never abort the other files.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{}

	var tasks []task
	for _, path := range paths {
		ts, errRec := r.loadFile(path)
		if errRec != nil {
			summary.add(*errRec)
			continue
		}
		tasks = append(tasks, ts...)
	}

	start := time.Now()
	for rec := range r.fanOut(ctx, tasks) {
		summary.add(rec)
	}
	sortRecords(summary.Records)

	Logger().Debug("run complete",
		zap.Int("files", len(paths)),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Duration("elapsed", time.Since(start)))
	return summary, nil
}

func (r *Runner) loadFile(path string) ([]task, *Record) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Record{File: path, Status: Errored,
			Err: errors.Wrap(errors.PhaseParse, errors.KindIO, err, "read file")}
	}
	text := string(raw)

	start := time.Now()
	defer func() {
		Logger().Debug("file loaded", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	}()

	if filepath.Ext(path) == ".wast" {
		script, err := wast.ParseScript(path, text)
		if err != nil {
			return nil, &Record{File: path, Status: Errored, Err: err}
		}
		t := func(ctx context.Context) []Record {
			return r.guard(path, "", func() []Record {
				return r.runScript(ctx, script)
			})
		}
		return []task{t}, nil
	}

	f, err := fixture.Parse(path, text)
	if err != nil {
		return nil, &Record{File: path, Status: Errored, Err: err}
	}

	targets := f.Targets
	if len(targets) == 0 {
		targets = []conformance.Target{{}}
	}
	var tasks []task
	for _, tgt := range targets {
		if !r.targetSelected(tgt) {
			continue
		}
		tgt := tgt
		tasks = append(tasks, func(ctx context.Context) []Record {
			return r.guard(path, tgt.String(), func() []Record {
				return r.runFixture(ctx, f, tgt)
			})
		})
	}
	return tasks, nil
}

// guard converts a panic in task code into a single errored record.
func (r *Runner) guard(file, scope string, fn func() []Record) (out []Record) {
	defer func() {
		if p := recover(); p != nil {
			out = []Record{{
				File:   file,
				Target: scope,
				Status: Errored,
				Err:    errors.Internal(errors.PhaseExecute, fmt.Sprintf("panic: %v", p), nil),
			}}
		}
	}()
	return fn()
}

func (r *Runner) fanOut(ctx context.Context, tasks []task) <-chan Record {
	in := make(chan task)
	out := make(chan Record)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range in {
				for _, rec := range t(ctx) {
					out <- rec
				}
			}
		}()
	}

	go func() {
		for _, t := range tasks {
			in <- t
		}
		close(in)
		wg.Wait()
		close(out)
	}()
	return out
}

func (r *Runner) targetSelected(t conformance.Target) bool {
	if len(r.cfg.Targets) == 0 {
		return true
	}
	for _, want := range r.cfg.Targets {
		if want == t.Arch || want == t.String() {
			return true
		}
	}
	return false
}

func (r *Runner) caseSelected(c conformance.Case) bool {
	return r.cfg.Run == nil || r.cfg.Run.MatchString(c.Name())
}

func (r *Runner) invokeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

// hostArch maps fixture target ISA names onto GOARCH values.
var hostArch = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
	"s390x":   "s390x",
	"riscv64": "riscv64",
}

// executableOnHost reports whether code generated for the target could run
// here. Golden comparison is pure cross-compilation and does not consult it.
func executableOnHost(t conformance.Target) bool {
	if t.Arch == "" {
		return true
	}
	return hostArch[t.Arch] == runtime.GOARCH
}

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].File != recs[j].File {
			return recs[i].File < recs[j].File
		}
		if recs[i].Target != recs[j].Target {
			return recs[i].Target < recs[j].Target
		}
		return recs[i].Case < recs[j].Case
	})
}

func skipRecord(file, caseName, target, reason string) Record {
	return Record{File: file, Case: caseName, Target: target, Status: Skipped, Detail: reason}
}

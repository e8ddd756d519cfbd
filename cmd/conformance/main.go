package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-conformance/golden"
	"github.com/wippyai/wasm-conformance/harness"
	"github.com/wippyai/wasm-conformance/oracle"
	"github.com/wippyai/wasm-conformance/report"
)

func main() {
	var (
		targets      = flag.String("target", "", "Comma-separated target filter (x86_64, x86_64+has_avx)")
		runFilter    = flag.String("run", "", "Regexp filtering case names")
		jobs         = flag.Int("jobs", 0, "Worker count (default GOMAXPROCS)")
		timeout      = flag.Duration("timeout", 10*time.Second, "Per-invocation timeout")
		updateGolden = flag.Bool("update-golden", false, "Rewrite stored disassembly blocks from current output")
		oracleCmd    = flag.String("oracle", "", "External interpreter-oracle command for clif fixtures")
		compOracle   = flag.String("compile-oracle", "", "External compiled-oracle command for run-mode clif fixtures")
		compileCmd   = flag.String("golden-compile", "", "Compile command for golden comparison")
		disasCmd     = flag.String("golden-disas", "", "Disassemble command for golden comparison")
		interactive  = flag.Bool("i", false, "Interactive failure browser")
		verbose      = flag.Bool("v", false, "Verbose output and debug logging")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: conformance [flags] <fixture.clif|script.wast|glob>...")
		fmt.Fprintln(os.Stderr, "       conformance -update-golden -golden-compile <cmd> -golden-disas <cmd> <fixtures>")
		fmt.Fprintln(os.Stderr, "       conformance -i <fixtures>  (interactive failure browser)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	paths, err := expandPaths(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			oracle.SetLogger(logger)
			golden.SetLogger(logger)
			harness.SetLogger(logger)
			defer func() { _ = logger.Sync() }()
		}
	}

	cfg := harness.Config{
		Workers:      *jobs,
		Timeout:      *timeout,
		UpdateGolden: *updateGolden,
	}
	if *targets != "" {
		cfg.Targets = strings.Split(*targets, ",")
	}
	if *runFilter != "" {
		re, err := regexp.Compile(*runFilter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad -run pattern: %v\n", err)
			os.Exit(1)
		}
		cfg.Run = re
	}
	if *oracleCmd != "" {
		cfg.CLIFInterp = oracle.External("clif-interp", strings.Fields(*oracleCmd))
	}
	if *compOracle != "" {
		cfg.CLIFCompile = oracle.External("clif-compile", strings.Fields(*compOracle))
	}
	if *compileCmd != "" && *disasCmd != "" {
		cfg.Backend = &golden.ExecBackend{
			CompileCmd:     strings.Fields(*compileCmd),
			DisassembleCmd: strings.Fields(*disasCmd),
		}
	}

	sum, err := harness.NewRunner(cfg).Run(context.Background(), paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive && len(sum.Failures()) > 0 {
		if err := runInteractive(sum); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(sum.ExitCode())
	}

	r := report.NewRenderer(os.Stdout)
	r.Verbose = *verbose
	if err := r.Render(sum); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(sum.ExitCode())
}

// expandPaths resolves glob patterns, keeping literal paths as given so a
// typo surfaces as a file error rather than vanishing.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched nothing", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

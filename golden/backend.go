package golden

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
)

// Artifact is compiled machine code produced by a Backend.
type Artifact struct {
	Bytes []byte
}

// Backend abstracts the code-generating compiler and its disassembler so the
// comparator can be exercised against a stub.
type Backend interface {
	Compile(ctx context.Context, moduleText string, target conformance.Target, flags []string) (Artifact, error)
	Disassemble(ctx context.Context, a Artifact) (string, error)
}

// ExecBackend shells out for both steps. The compile command reads module
// text on stdin and writes the artifact to stdout; the target and flags are
// appended as arguments. The disassemble command reads the artifact on stdin
// and writes text to stdout.
type ExecBackend struct {
	CompileCmd     []string
	DisassembleCmd []string
}

func (b *ExecBackend) Compile(ctx context.Context, moduleText string, target conformance.Target, flags []string) (Artifact, error) {
	if len(b.CompileCmd) == 0 {
		return Artifact{}, errors.Internal(errors.PhaseLoad, "exec backend has no compile command", nil)
	}

	args := append([]string(nil), b.CompileCmd[1:]...)
	if target.Arch != "" {
		args = append(args, "--target", target.String())
	}
	args = append(args, flags...)

	out, err := runPiped(ctx, b.CompileCmd[0], args, strings.NewReader(moduleText))
	if err != nil {
		return Artifact{}, errors.Load("compile for golden comparison", err)
	}
	Logger().Debug("golden compile",
		zap.String("target", target.String()), zap.Int("artifact_bytes", len(out)))
	return Artifact{Bytes: out}, nil
}

func (b *ExecBackend) Disassemble(ctx context.Context, a Artifact) (string, error) {
	if len(b.DisassembleCmd) == 0 {
		return "", errors.Internal(errors.PhaseLoad, "exec backend has no disassemble command", nil)
	}
	out, err := runPiped(ctx, b.DisassembleCmd[0], b.DisassembleCmd[1:], bytes.NewReader(a.Bytes))
	if err != nil {
		return "", errors.Wrap(errors.PhaseCompare, errors.KindIO, err, "disassemble artifact")
	}
	return string(out), nil
}

func runPiped(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindIO, err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// StubBackend satisfies Backend with canned functions for tests.
type StubBackend struct {
	CompileFn     func(moduleText string, target conformance.Target, flags []string) (Artifact, error)
	DisassembleFn func(a Artifact) (string, error)
}

func (s *StubBackend) Compile(_ context.Context, moduleText string, target conformance.Target, flags []string) (Artifact, error) {
	if s.CompileFn == nil {
		return Artifact{Bytes: []byte(moduleText)}, nil
	}
	return s.CompileFn(moduleText, target, flags)
}

func (s *StubBackend) Disassemble(_ context.Context, a Artifact) (string, error) {
	if s.DisassembleFn == nil {
		return string(a.Bytes), nil
	}
	return s.DisassembleFn(a)
}

package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
)

// External returns an oracle that delegates to a child process speaking the
// line protocol below on stdin/stdout. Each request and each response is one
// JSON object per line.
//
// Requests:
//
//	{"op":"instantiate","name":"m","source":"..."}
//	{"op":"invoke","module":"m","func":"f","args":[{"type":"i32","value":"5"}]}
//	{"op":"close"}
//
// Responses:
//
//	{"status":"ok"}
//	{"status":"returned","values":[{"type":"i64","value":"0x10"}]}
//	{"status":"trapped","message":"integer divide by zero"}
//	{"status":"error","message":"..."}
//
// Values travel in the fixture literal syntax, so both sides share one codec.
func External(name string, argv []string) Oracle {
	return &externOracle{name: name, argv: argv}
}

type externOracle struct {
	name string
	argv []string
}

func (o *externOracle) Name() string { return o.name }

func (o *externOracle) NewSession(ctx context.Context) (Session, error) {
	if len(o.argv) == 0 {
		return nil, errors.Internal(errors.PhaseLoad, fmt.Sprintf("external oracle %q has no command", o.name), nil)
	}

	cmd := exec.CommandContext(ctx, o.argv[0], o.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Load("open oracle stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Load("open oracle stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Load("start oracle process", err)
	}

	Logger().Debug("external oracle started",
		zap.String("oracle", o.name), zap.String("command", o.argv[0]), zap.Int("pid", cmd.Process.Pid))

	return &externSession{
		oracle: o.name,
		cmd:    cmd,
		in:     stdin,
		out:    bufio.NewScanner(stdout),
	}, nil
}

type externSession struct {
	cmd    *exec.Cmd
	in     io.WriteCloser
	out    *bufio.Scanner
	mu     sync.Mutex
	oracle string
	// killed is set after a timed-out request forced the child down; the
	// session cannot be trusted for further requests.
	killed bool
}

type externRequest struct {
	Op     string        `json:"op"`
	Name   string        `json:"name,omitempty"`
	Source string        `json:"source,omitempty"`
	Module string        `json:"module,omitempty"`
	Func   string        `json:"func,omitempty"`
	Args   []externValue `json:"args,omitempty"`
}

type externResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Values  []externValue `json:"values,omitempty"`
}

type externValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *externSession) Instantiate(ctx context.Context, name, source string) error {
	resp, err := s.roundTrip(ctx, externRequest{Op: "instantiate", Name: name, Source: source})
	if err != nil {
		return err
	}
	switch resp.Status {
	case "ok":
		return nil
	case "error":
		return errors.Load(resp.Message, nil)
	}
	return s.protocolError("instantiate", resp.Status)
}

func (s *externSession) Invoke(ctx context.Context, module, fn string, args []conformance.Value, results []conformance.Type) Outcome {
	req := externRequest{Op: "invoke", Module: module, Func: fn, Args: make([]externValue, len(args))}
	for i, a := range args {
		req.Args[i] = externValue{Type: a.Kind.String(), Value: a.Format()}
	}

	resp, err := s.roundTrip(ctx, req)
	if err != nil {
		return Errored(err)
	}

	switch resp.Status {
	case "returned":
		vals, err := s.decodeValues(resp.Values, results)
		if err != nil {
			return Errored(err)
		}
		return Returned(vals...)
	case "trapped":
		return Trapped(resp.Message)
	case "error":
		return Errored(errors.Wrap(errors.PhaseExecute, errors.KindInternal, nil, resp.Message))
	}
	return Errored(s.protocolError("invoke", resp.Status))
}

func (s *externSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.killed {
		_ = s.cmd.Wait()
		return nil
	}
	_, _ = fmt.Fprintln(s.in, `{"op":"close"}`)
	_ = s.in.Close()
	if err := s.cmd.Wait(); err != nil {
		return errors.Wrap(errors.PhaseExecute, errors.KindInternal, err, "oracle process exited abnormally")
	}
	return nil
}

func (s *externSession) roundTrip(ctx context.Context, req externRequest) (*externResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.killed {
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindIO, nil,
			"oracle process was killed after an earlier timeout")
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Internal(errors.PhaseExecute, "encode oracle request", err)
	}
	if _, err := fmt.Fprintf(s.in, "%s\n", line); err != nil {
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindIO, err, "write to oracle process")
	}

	// The read runs aside so a runaway case cannot pin the worker: once the
	// deadline passes, the child is killed, which also unblocks the scanner.
	scanned := make(chan bool, 1)
	go func() { scanned <- s.out.Scan() }()

	var ok bool
	select {
	case ok = <-scanned:
	case <-ctx.Done():
		s.killed = true
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		Logger().Debug("external oracle killed on timeout",
			zap.String("oracle", s.oracle))
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindTimeout, ctx.Err(),
			"oracle did not answer before the deadline")
	}

	if !ok {
		err := s.out.Err()
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindIO, err, "read from oracle process")
	}

	var resp externResponse
	if err := json.Unmarshal(s.out.Bytes(), &resp); err != nil {
		return nil, errors.Wrap(errors.PhaseExecute, errors.KindInvalidData, err, "decode oracle response")
	}
	return &resp, nil
}

func (s *externSession) decodeValues(in []externValue, results []conformance.Type) ([]conformance.Value, error) {
	vals := make([]conformance.Value, len(in))
	for i, ev := range in {
		t, err := conformance.ParseType(ev.Type)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExecute, errors.KindInvalidData, err, "oracle result type")
		}
		if i < len(results) && results[i] != t && results[i].Kind != conformance.KindInvalid {
			return nil, errors.New(errors.PhaseExecute, errors.KindTypeMismatch).
				Detail("oracle returned %s where %s was declared", t, results[i]).Build()
		}
		v, err := conformance.ParseValue(ev.Value, t)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExecute, errors.KindInvalidData, err, "oracle result value")
		}
		vals[i] = v
	}
	return vals, nil
}

func (s *externSession) protocolError(op, status string) error {
	return errors.Internal(errors.PhaseExecute,
		fmt.Sprintf("oracle %q: unexpected status %q for %s", s.oracle, status, op), nil)
}

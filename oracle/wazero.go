package oracle

import (
	"context"
	goerrors "errors"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
	"github.com/wippyai/wasm-conformance/wat"
)

// Interpreter returns the oracle backed by wazero's interpreter engine.
// It runs on every platform.
func Interpreter() Oracle {
	return &wazeroOracle{
		name: "interpreter",
		cfg: func() wazero.RuntimeConfig {
			return wazero.NewRuntimeConfigInterpreter().
				WithCoreFeatures(api.CoreFeaturesV2).
				WithCloseOnContextDone(true)
		},
	}
}

// Compiler returns the oracle backed by wazero's native code-generating
// engine. Callers must check CompilerSupported before using it.
func Compiler() Oracle {
	return &wazeroOracle{
		name: "compiler",
		cfg: func() wazero.RuntimeConfig {
			return wazero.NewRuntimeConfigCompiler().
				WithCoreFeatures(api.CoreFeaturesV2).
				WithCloseOnContextDone(true)
		},
	}
}

// CompilerSupported reports whether the compiling engine can generate code
// for the host.
func CompilerSupported() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	}
	return false
}

// wazero's api package names every value type except funcref, which shows up
// in function definitions as its raw binary tag.
const valueTypeFuncref = api.ValueType(0x70)

type wazeroOracle struct {
	cfg  func() wazero.RuntimeConfig
	name string
}

func (o *wazeroOracle) Name() string { return o.name }

func (o *wazeroOracle) NewSession(ctx context.Context) (Session, error) {
	r := wazero.NewRuntimeWithConfig(ctx, o.cfg())
	s := &wazeroSession{
		oracle:  o.name,
		runtime: r,
		modules: make(map[string]api.Module),
	}
	if err := s.Instantiate(ctx, "spectest", spectestModule); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate spectest module", err)
	}
	return s, nil
}

type wazeroSession struct {
	runtime wazero.Runtime
	modules map[string]api.Module
	last    api.Module
	oracle  string
}

func (s *wazeroSession) Instantiate(ctx context.Context, name, source string) error {
	bin, err := wat.Compile(source)
	if err != nil {
		return errors.Load("compile module text", err)
	}

	compiled, err := s.runtime.CompileModule(ctx, bin)
	if err != nil {
		return errors.Load("validate module", err)
	}

	mod, err := s.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return errors.Load("instantiate module", err)
	}

	if name != "" {
		s.modules[name] = mod
	}
	s.last = mod
	Logger().Debug("module instantiated",
		zap.String("oracle", s.oracle), zap.String("module", name))
	return nil
}

func (s *wazeroSession) Invoke(ctx context.Context, module, fn string, args []conformance.Value, _ []conformance.Type) Outcome {
	target := s.last
	if module != "" {
		target = s.modules[module]
	}
	if target == nil {
		return Errored(errors.NotFound(errors.PhaseExecute, "module", module))
	}

	f := target.ExportedFunction(fn)
	if f == nil {
		return Errored(errors.NotFound(errors.PhaseExecute, "export", fn))
	}

	def := f.Definition()
	params, err := encodeParams(args, def.ParamTypes())
	if err != nil {
		return Errored(err)
	}

	raw, err := f.Call(ctx, params...)
	if err != nil {
		return classifyCallError(ctx, err)
	}

	vals, err := decodeResults(raw, def.ResultTypes())
	if err != nil {
		return Errored(err)
	}
	return Returned(vals...)
}

func (s *wazeroSession) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// classifyCallError separates traps from harness-level failures. Context
// expiry is a timeout; a closed-module exit is surfaced as a trap with the
// exit reason; anything else is the engine reporting a runtime fault, whose
// first line carries the trap message.
func classifyCallError(ctx context.Context, err error) Outcome {
	if ctx.Err() != nil {
		return Errored(errors.Wrap(errors.PhaseExecute, errors.KindTimeout, err, "invocation cancelled"))
	}

	var exitErr *sys.ExitError
	if goerrors.As(err, &exitErr) {
		return Trapped(exitErr.Error())
	}

	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	return Trapped(strings.TrimPrefix(msg, "wasm error: "))
}

func encodeParams(args []conformance.Value, types []api.ValueType) ([]uint64, error) {
	if len(args) != len(types) {
		return nil, errors.New(errors.PhaseExecute, errors.KindArityMismatch).
			Detail("call has %d argument(s), export wants %d", len(args), len(types)).Build()
	}
	params := make([]uint64, len(args))
	for i, a := range args {
		p, err := encodeParam(a, types[i])
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return params, nil
}

func encodeParam(v conformance.Value, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		if v.Kind != conformance.KindI32 {
			return 0, typeClash(v, "i32")
		}
		return uint64(uint32(v.Bits)), nil
	case api.ValueTypeI64:
		if v.Kind != conformance.KindI64 {
			return 0, typeClash(v, "i64")
		}
		return v.Bits, nil
	case api.ValueTypeF32:
		if v.Kind != conformance.KindF32 {
			return 0, typeClash(v, "f32")
		}
		return uint64(uint32(v.Bits)), nil
	case api.ValueTypeF64:
		if v.Kind != conformance.KindF64 {
			return 0, typeClash(v, "f64")
		}
		return v.Bits, nil
	case valueTypeFuncref:
		if v.Kind != conformance.KindFuncRef || !v.Null {
			// Host code cannot synthesize a guest function pointer.
			return 0, errors.Unsupported(errors.PhaseExecute, "non-null funcref argument")
		}
		return 0, nil
	case api.ValueTypeExternref:
		if v.Kind != conformance.KindExternRef {
			return 0, typeClash(v, "externref")
		}
		if v.Null {
			return 0, nil
		}
		// Opaque to the guest; identity round-trips through table ops.
		return v.Bits + 1, nil
	}
	return 0, errors.Unsupported(errors.PhaseExecute, "v128 parameters through the wazero oracles")
}

func decodeResults(raw []uint64, types []api.ValueType) ([]conformance.Value, error) {
	if len(raw) != len(types) {
		return nil, errors.New(errors.PhaseExecute, errors.KindArityMismatch).
			Detail("engine returned %d value(s) for %d declared result(s)", len(raw), len(types)).Build()
	}
	vals := make([]conformance.Value, len(raw))
	for i, r := range raw {
		switch types[i] {
		case api.ValueTypeI32:
			vals[i] = conformance.I32(int32(uint32(r)))
		case api.ValueTypeI64:
			vals[i] = conformance.I64(int64(r))
		case api.ValueTypeF32:
			vals[i] = conformance.F32Bits(uint32(r))
		case api.ValueTypeF64:
			vals[i] = conformance.F64Bits(r)
		case valueTypeFuncref:
			// Engine function pointers are opaque; keep the raw value so two
			// reads of the same slot compare equal.
			if r == 0 {
				vals[i] = conformance.NullRef(conformance.KindFuncRef)
			} else {
				vals[i] = conformance.Value{Kind: conformance.KindFuncRef, Bits: r}
			}
		case api.ValueTypeExternref:
			// Undo the null-avoiding offset applied on the way in.
			if r == 0 {
				vals[i] = conformance.NullRef(conformance.KindExternRef)
			} else {
				vals[i] = conformance.Value{Kind: conformance.KindExternRef, Bits: r - 1}
			}
		default:
			return nil, errors.Unsupported(errors.PhaseExecute, "v128 results through the wazero oracles")
		}
	}
	return vals, nil
}

func typeClash(v conformance.Value, want string) error {
	return errors.New(errors.PhaseExecute, errors.KindTypeMismatch).
		Detail("argument %s is %s, export wants %s", v.Format(), v.Kind, want).Build()
}

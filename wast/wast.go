package wast

import (
	conformance "github.com/wippyai/wasm-conformance"
	"github.com/wippyai/wasm-conformance/errors"
	"github.com/wippyai/wasm-conformance/wast/internal/sexpr"
)

// CommandKind discriminates script commands.
type CommandKind uint8

const (
	// CmdModule instantiates a module and makes it current.
	CmdModule CommandKind = iota
	// CmdRegister exposes the current (or named) module's exports under an
	// import name for later modules.
	CmdRegister
	// CmdAssert runs an invocation case against the current module.
	CmdAssert
	// CmdAssertUninstantiable requires instantiation of a module to trap.
	CmdAssertUninstantiable
	// CmdAssertLoadFailure requires validation or linking of a module to
	// fail before any code runs (assert_invalid, assert_malformed,
	// assert_unlinkable).
	CmdAssertLoadFailure
)

func (k CommandKind) String() string {
	switch k {
	case CmdModule:
		return "module"
	case CmdRegister:
		return "register"
	case CmdAssert:
		return "assert"
	case CmdAssertUninstantiable:
		return "assert_uninstantiable"
	case CmdAssertLoadFailure:
		return "assert_load_failure"
	}
	return "unknown"
}

// Command is one script step, in source order.
type Command struct {
	// ModuleText is the verbatim (module ...) source for CmdModule,
	// CmdAssertUninstantiable and CmdAssertLoadFailure.
	ModuleText string
	// Name is the $identifier of a module, when present.
	Name string
	// As is the registered import namespace for CmdRegister.
	As string
	// Message is the required failure substring for the load-failure and
	// uninstantiable kinds.
	Message string
	// TargetModule is the $identifier an invoke addresses, or "" for the
	// current module.
	TargetModule string
	Case         conformance.Case
	Kind         CommandKind
	Line         int
}

// Script is a parsed wast fixture. Immutable once parsed. Text keeps the
// raw source so golden disassembly blocks can be located and rewritten.
type Script struct {
	Path     string
	Text     string
	Meta     Meta
	Commands []Command
}

// ParseScript parses the ;;! header and every command of a wast script.
// The first malformed command aborts the whole file.
func ParseScript(path, text string) (*Script, error) {
	meta, err := ParseMeta(path, text)
	if err != nil {
		return nil, err
	}

	nodes, err := sexpr.Read(text)
	if err != nil {
		return nil, errors.ParseFailed("wast script", err)
	}

	s := &Script{Path: path, Text: text, Meta: meta}
	for _, n := range nodes {
		cmd, err := parseCommand(path, text, n)
		if err != nil {
			return nil, err
		}
		s.Commands = append(s.Commands, cmd)
	}
	return s, nil
}

func parseCommand(path, src string, n *sexpr.Node) (Command, error) {
	if !n.IsList() {
		return Command{}, errors.MalformedCase(path, n.Line, "top-level atom in script")
	}

	switch head := n.Head(); head {
	case "module":
		name := moduleName(n)
		return Command{Kind: CmdModule, Line: n.Line, Name: name, ModuleText: src[n.Start:n.End]}, nil

	case "register":
		cmd := Command{Kind: CmdRegister, Line: n.Line}
		if len(n.List) < 2 || !n.List[1].Str {
			return Command{}, errors.MalformedCase(path, n.Line, "register needs a namespace string")
		}
		cmd.As = n.List[1].Atom
		if len(n.List) > 2 {
			cmd.Name = n.List[2].Atom
		}
		return cmd, nil

	case "invoke":
		c, target, err := parseInvoke(path, n)
		if err != nil {
			return Command{}, err
		}
		c.Expect = conformance.Unconstrained()
		return Command{Kind: CmdAssert, Line: n.Line, Case: c, TargetModule: target}, nil

	case "assert_return":
		if len(n.List) < 2 {
			return Command{}, errors.MalformedCase(path, n.Line, "assert_return needs an action")
		}
		c, target, err := parseInvoke(path, n.List[1])
		if err != nil {
			return Command{}, err
		}
		vals := make([]conformance.Value, 0, len(n.List)-2)
		for _, res := range n.List[2:] {
			v, err := nodeValue(path, res, true)
			if err != nil {
				return Command{}, err
			}
			vals = append(vals, v)
		}
		c.Expect = conformance.ExpectValuesOf(vals...)
		return Command{Kind: CmdAssert, Line: n.Line, Case: c, TargetModule: target}, nil

	case "assert_trap", "assert_exhaustion":
		if len(n.List) < 3 || !n.List[2].Str {
			return Command{}, errors.MalformedCase(path, n.Line, head+" needs an action and a message")
		}
		msg := n.List[2].Atom
		if n.List[1].Head() == "module" {
			// Instantiation (start function) trap.
			return Command{
				Kind:       CmdAssertUninstantiable,
				Line:       n.Line,
				Name:       moduleName(n.List[1]),
				ModuleText: src[n.List[1].Start:n.List[1].End],
				Message:    msg,
			}, nil
		}
		c, target, err := parseInvoke(path, n.List[1])
		if err != nil {
			return Command{}, err
		}
		c.Expect = conformance.ExpectTrapWith(msg)
		return Command{Kind: CmdAssert, Line: n.Line, Case: c, TargetModule: target, Message: msg}, nil

	case "assert_invalid", "assert_malformed", "assert_unlinkable":
		if len(n.List) < 3 || !n.List[2].Str {
			return Command{}, errors.MalformedCase(path, n.Line, head+" needs a module and a message")
		}
		mod := n.List[1]
		if mod.Head() != "module" {
			return Command{}, errors.MalformedCase(path, n.Line, head+" subject must be a module")
		}
		return Command{
			Kind:       CmdAssertLoadFailure,
			Line:       n.Line,
			Name:       moduleName(mod),
			ModuleText: src[mod.Start:mod.End],
			Message:    n.List[2].Atom,
		}, nil

	case "assert_uninstantiable":
		if len(n.List) < 3 || !n.List[2].Str {
			return Command{}, errors.MalformedCase(path, n.Line, "assert_uninstantiable needs a module and a message")
		}
		mod := n.List[1]
		return Command{
			Kind:       CmdAssertUninstantiable,
			Line:       n.Line,
			Name:       moduleName(mod),
			ModuleText: src[mod.Start:mod.End],
			Message:    n.List[2].Atom,
		}, nil

	default:
		return Command{}, errors.UnrecognizedDirective(path, n.Line, head)
	}
}

// parseInvoke reads (invoke $mod? "field" args...) into a Case plus the
// optional target module name.
func parseInvoke(path string, n *sexpr.Node) (conformance.Case, string, error) {
	if n.Head() != "invoke" {
		return conformance.Case{}, "", errors.MalformedCase(path, n.Line, "action must be an invoke")
	}
	rest := n.List[1:]
	var target string
	if len(rest) > 0 && !rest[0].Str && !rest[0].IsList() {
		target = rest[0].Atom
		rest = rest[1:]
	}
	if len(rest) == 0 || !rest[0].Str {
		return conformance.Case{}, "", errors.MalformedCase(path, n.Line, "invoke needs an export name")
	}

	c := conformance.Case{Func: rest[0].Atom, Line: n.Line}
	for _, arg := range rest[1:] {
		v, err := nodeValue(path, arg, false)
		if err != nil {
			return conformance.Case{}, "", err
		}
		c.Args = append(c.Args, v)
	}
	return c, target, nil
}

func moduleName(n *sexpr.Node) string {
	if len(n.List) > 1 && !n.List[1].IsList() && !n.List[1].Str {
		if name := n.List[1].Atom; len(name) > 0 && name[0] == '$' {
			return name
		}
	}
	return ""
}

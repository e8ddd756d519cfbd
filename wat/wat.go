package wat

import (
	"github.com/wippyai/wasm-conformance/wat/internal/encoder"
	"github.com/wippyai/wasm-conformance/wat/internal/parser"
	"github.com/wippyai/wasm-conformance/wat/internal/token"
)

// Compile turns text-format source into a binary module. Errors carry the
// source line of the offending token.
func Compile(source string) ([]byte, error) {
	mod, err := parser.New(token.Tokenize(source)).Parse()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(mod), nil
}

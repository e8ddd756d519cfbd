package golden

import (
	"os"
	"strings"

	"github.com/wippyai/wasm-conformance/errors"
)

// Block is the expected-disassembly text stored at the tail of a fixture.
type Block struct {
	Lines []string
	start int
	found bool
}

// Found reports whether the fixture carried a stored block at all.
func (b Block) Found() bool { return b.found }

// ExtractBlock returns the trailing run of ";;" comment lines from a fixture.
// Single-semicolon lines are run directives, not disassembly, and never join
// the block. A blank line inside the run is kept so spacing survives a
// Render round trip.
func ExtractBlock(text string) Block {
	lines := strings.Split(text, "\n")

	// Walk backward past trailing empties, then collect the ";;" run.
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	start := end
	for start > 0 {
		s := strings.TrimSpace(lines[start-1])
		if s == "" || strings.HasPrefix(s, ";;") {
			start--
			continue
		}
		break
	}
	// Trim blank lines at the head of the run.
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start >= end {
		return Block{}
	}

	b := Block{found: true, start: offsetOfLine(text, start)}
	for _, raw := range lines[start:end] {
		s := strings.TrimSpace(raw)
		s = strings.TrimSpace(strings.TrimPrefix(s, ";;"))
		b.Lines = append(b.Lines, s)
	}
	return b
}

// Render formats fresh disassembly lines as the comment block a fixture
// stores. It is pure; pair it with Update to write the result back.
func Render(lines []string) string {
	var sb strings.Builder
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			sb.WriteString(";;\n")
			continue
		}
		sb.WriteString(";; ")
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Update replaces the stored block in the fixture at path with the given
// lines, appending one if the fixture had none. Callers gate this behind an
// explicit flag; a comparison failure must never trigger it.
func Update(path string, lines []string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseReport, errors.KindIO, err, "read fixture for golden update")
	}
	text := string(raw)

	var head string
	if b := ExtractBlock(text); b.found {
		head = text[:b.start]
	} else {
		head = text
		if !strings.HasSuffix(head, "\n") {
			head += "\n"
		}
		head += "\n"
	}

	if err := os.WriteFile(path, []byte(head+Render(lines)), 0o644); err != nil {
		return errors.Wrap(errors.PhaseReport, errors.KindIO, err, "write updated golden block")
	}
	return nil
}

// SplitLines breaks disassembler output into comparison units, dropping
// blank lines.
func SplitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func offsetOfLine(text string, line int) int {
	off := 0
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text[off:], '\n')
		if nl < 0 {
			return len(text)
		}
		off += nl + 1
	}
	return off
}

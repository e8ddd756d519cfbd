package golden

import (
	"strings"
)

// Diff is the line-level comparison result. Empty means the fresh
// disassembly matches the stored block.
type Diff struct {
	Edits []Edit
}

type EditOp int

const (
	OpEqual EditOp = iota
	OpDelete
	OpInsert
)

// Edit is one line of the comparison: kept, missing from the fresh output,
// or new in the fresh output.
type Edit struct {
	Line string
	Op   EditOp
}

func (d Diff) Empty() bool {
	for _, e := range d.Edits {
		if e.Op != OpEqual {
			return false
		}
	}
	return true
}

// Render formats the diff with -/+ markers, stored block first.
func (d Diff) Render() string {
	var sb strings.Builder
	for _, e := range d.Edits {
		switch e.Op {
		case OpDelete:
			sb.WriteString("-")
		case OpInsert:
			sb.WriteString("+")
		default:
			sb.WriteString(" ")
		}
		sb.WriteString(e.Line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Compare diffs the stored block against fresh disassembly lines. Both sides
// are normalized first, and once a ud2 line has matched, the comparison
// stops: trailing padding may diverge freely.
func Compare(stored, fresh []string) Diff {
	a := normalizeAll(stored)
	b := normalizeAll(fresh)
	a = truncateAfterUd2(a)
	b = truncateAfterUd2(b)

	return Diff{Edits: lcsDiff(a, b)}
}

// Normalize reduces a disassembly line to its comparable core: the leading
// "<offset>:" label and the raw byte column go away, absolute call and jump
// targets become a symbolic placeholder, and interior whitespace collapses.
func Normalize(line string) string {
	s := strings.TrimSpace(line)
	if s == "" {
		return ""
	}

	// "1c: 48 83 ec 10  sub rsp, 0x10" -> "48 83 ec 10  sub rsp, 0x10"
	if i := strings.IndexByte(s, ':'); i > 0 && isHex(s[:i]) {
		s = strings.TrimSpace(s[i+1:])
	}

	// Drop the hex byte column, if present, by skipping leading 2-digit
	// hex pairs.
	fields := strings.Fields(s)
	start := 0
	for start < len(fields) && len(fields[start]) == 2 && isHex(fields[start]) {
		start++
	}
	if start == len(fields) {
		// Pure byte padding line.
		return strings.Join(fields, " ")
	}
	fields = fields[start:]

	if isControlTransfer(fields[0]) {
		for i := 1; i < len(fields); i++ {
			t := strings.TrimSuffix(fields[i], ",")
			if strings.HasPrefix(t, "0x") && isHex(t[2:]) {
				fields[i] = "<rel>"
			}
		}
	}
	return strings.Join(fields, " ")
}

func normalizeAll(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if n := Normalize(l); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// truncateAfterUd2 keeps everything through the first ud2 instruction.
func truncateAfterUd2(lines []string) []string {
	for i, l := range lines {
		if l == "ud2" || strings.HasPrefix(l, "ud2 ") {
			return lines[:i+1]
		}
	}
	return lines
}

func isControlTransfer(mnemonic string) bool {
	switch {
	case mnemonic == "call", mnemonic == "jmp", mnemonic == "b", mnemonic == "bl":
		return true
	case strings.HasPrefix(mnemonic, "j") && len(mnemonic) <= 4:
		return true
	case strings.HasPrefix(mnemonic, "b.") || strings.HasPrefix(mnemonic, "cb") || strings.HasPrefix(mnemonic, "tb"):
		return true
	}
	return false
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			continue
		}
		return false
	}
	return true
}

// lcsDiff produces a minimal edit script between two normalized line slices.
func lcsDiff(a, b []string) []Edit {
	n, m := len(a), len(b)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	var edits []Edit
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			edits = append(edits, Edit{Op: OpEqual, Line: a[i]})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			edits = append(edits, Edit{Op: OpDelete, Line: a[i]})
			i++
		default:
			edits = append(edits, Edit{Op: OpInsert, Line: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, Edit{Op: OpDelete, Line: a[i]})
	}
	for ; j < m; j++ {
		edits = append(edits, Edit{Op: OpInsert, Line: b[j]})
	}
	return edits
}

func (op EditOp) String() string {
	switch op {
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	}
	return "equal"
}

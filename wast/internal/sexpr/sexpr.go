// Package sexpr reads S-expression trees from wast script source, keeping
// source offsets so module bodies can be quoted back verbatim.
package sexpr

import (
	"fmt"
	"strings"
)

// Node is one S-expression: a list or an atom. Str is true for quoted-string
// atoms, with Atom holding the unescaped contents. Start/End are byte offsets
// into the source covering the whole node.
type Node struct {
	List  []*Node
	Atom  string
	Line  int
	Start int
	End   int
	Str   bool
}

// IsList reports whether n is a parenthesized list.
func (n *Node) IsList() bool { return n.Atom == "" && !n.Str }

// Head returns the leading atom of a list, or "" if there is none.
func (n *Node) Head() string {
	if len(n.List) > 0 && !n.List[0].IsList() {
		return n.List[0].Atom
	}
	return ""
}

// Read parses all top-level S-expressions in src. Line comments (;;),
// block comments ((; ;)) and whitespace separate nodes.
func Read(src string) ([]*Node, error) {
	r := &reader{src: src, line: 1}
	var nodes []*Node
	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			return nodes, nil
		}
		n, err := r.node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

type reader struct {
	src  string
	pos  int
	line int
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '\n':
			r.line++
			r.pos++
		case c == ' ' || c == '\t' || c == '\r':
			r.pos++
		case c == ';' && r.pos+1 < len(r.src) && r.src[r.pos+1] == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case c == '(' && r.pos+1 < len(r.src) && r.src[r.pos+1] == ';':
			depth := 1
			r.pos += 2
			for r.pos < len(r.src) && depth > 0 {
				switch {
				case r.src[r.pos] == '(' && r.pos+1 < len(r.src) && r.src[r.pos+1] == ';':
					depth++
					r.pos++
				case r.src[r.pos] == ';' && r.pos+1 < len(r.src) && r.src[r.pos+1] == ')':
					depth--
					r.pos++
				case r.src[r.pos] == '\n':
					r.line++
				}
				r.pos++
			}
		default:
			return
		}
	}
}

func (r *reader) node() (*Node, error) {
	start := r.pos
	startLine := r.line

	if r.src[r.pos] == '(' {
		r.pos++
		n := &Node{Line: startLine, Start: start}
		for {
			r.skipSpace()
			if r.pos >= len(r.src) {
				return nil, fmt.Errorf("line %d: unexpected end of input in list", startLine)
			}
			if r.src[r.pos] == ')' {
				r.pos++
				n.End = r.pos
				return n, nil
			}
			child, err := r.node()
			if err != nil {
				return nil, err
			}
			n.List = append(n.List, child)
		}
	}

	if r.src[r.pos] == '"' {
		return r.str(start, startLine)
	}
	if r.src[r.pos] == ')' {
		return nil, fmt.Errorf("line %d: unexpected ')'", startLine)
	}

	for r.pos < len(r.src) && !isDelim(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		// A delimiter that no rule above consumed, such as a lone ';'.
		return nil, fmt.Errorf("line %d: unexpected character %q", startLine, r.src[start])
	}
	return &Node{Atom: r.src[start:r.pos], Line: startLine, Start: start, End: r.pos}, nil
}

func (r *reader) str(start, startLine int) (*Node, error) {
	var b strings.Builder
	r.pos++ // opening quote
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch c {
		case '"':
			r.pos++
			return &Node{Atom: b.String(), Str: true, Line: startLine, Start: start, End: r.pos}, nil
		case '\\':
			if r.pos+1 >= len(r.src) {
				return nil, fmt.Errorf("line %d: unterminated escape", startLine)
			}
			r.pos++
			switch e := r.src[r.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\', '\'':
				b.WriteByte(e)
			default:
				// Hex byte escapes pass through untouched; the wat
				// compiler re-reads module text from source anyway.
				b.WriteByte('\\')
				b.WriteByte(e)
			}
			r.pos++
		case '\n':
			return nil, fmt.Errorf("line %d: newline in string", startLine)
		default:
			b.WriteByte(c)
			r.pos++
		}
	}
	return nil, fmt.Errorf("line %d: unterminated string", startLine)
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '"', ';':
		return true
	}
	return false
}

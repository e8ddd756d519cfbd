// Package report renders a run summary for humans: one line per failure
// with expected and actual values in fixture literal syntax, the diff for
// golden mismatches, and a closing count line. Colors are applied only when
// writing to a terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-conformance/harness"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	detailPad  = "    "
	diffDelete = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	diffInsert = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
)

// Renderer writes run results to Out.
type Renderer struct {
	Out io.Writer
	// Color enables lipgloss styling. NewRenderer sets it from the
	// destination; zero-value Renderers print plain text.
	Color bool
	// Verbose lists passed and skipped records too.
	Verbose bool
}

// NewRenderer builds a renderer for w, enabling color when w is a terminal.
func NewRenderer(w io.Writer) *Renderer {
	r := &Renderer{Out: w}
	if f, ok := w.(*os.File); ok {
		r.Color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

// Render writes every failure, optionally every record, and the summary
// line. It returns the first write error.
func (r *Renderer) Render(sum *harness.Summary) error {
	for _, rec := range sum.Records {
		switch rec.Status {
		case harness.Passed, harness.Skipped:
			if !r.Verbose {
				continue
			}
		}
		if err := r.renderRecord(rec); err != nil {
			return err
		}
	}
	return r.renderSummary(sum)
}

func (r *Renderer) renderRecord(rec harness.Record) error {
	var head strings.Builder
	head.WriteString(r.paint(statusStyle(rec.Status), strings.ToUpper(rec.Status.String())))
	head.WriteString(" ")
	head.WriteString(r.paint(fileStyle, rec.File))
	if rec.Target != "" {
		head.WriteString(" [" + rec.Target + "]")
	}
	if rec.Case != "" {
		head.WriteString(" " + rec.Case)
	}
	if rec.Oracle != "" {
		head.WriteString(" (" + rec.Oracle + ")")
	}
	if _, err := fmt.Fprintln(r.Out, head.String()); err != nil {
		return err
	}

	if rec.Err != nil {
		if _, err := fmt.Fprintf(r.Out, "%s%v\n", detailPad, rec.Err); err != nil {
			return err
		}
	}
	if rec.Detail != "" {
		for _, line := range strings.Split(strings.TrimRight(rec.Detail, "\n"), "\n") {
			if _, err := fmt.Fprintf(r.Out, "%s%s\n", detailPad, r.paintDiffLine(line)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) renderSummary(sum *harness.Summary) error {
	parts := []string{
		r.paint(passStyle, fmt.Sprintf("%d passed", sum.Passed)),
	}
	if sum.Failed > 0 {
		parts = append(parts, r.paint(failStyle, fmt.Sprintf("%d failed", sum.Failed)))
	}
	if sum.Errored > 0 {
		parts = append(parts, r.paint(errStyle, fmt.Sprintf("%d errored", sum.Errored)))
	}
	if sum.Skipped > 0 {
		parts = append(parts, r.paint(skipStyle, fmt.Sprintf("%d skipped", sum.Skipped)))
	}
	_, err := fmt.Fprintln(r.Out, strings.Join(parts, ", "))
	return err
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if !r.Color {
		return s
	}
	return style.Render(s)
}

// paintDiffLine colors -/+ prefixed lines from a golden diff.
func (r *Renderer) paintDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "-"):
		return r.paint(diffDelete, line)
	case strings.HasPrefix(line, "+"):
		return r.paint(diffInsert, line)
	}
	return line
}

func statusStyle(s harness.Status) lipgloss.Style {
	switch s {
	case harness.Passed:
		return passStyle
	case harness.Failed:
		return failStyle
	case harness.Skipped:
		return skipStyle
	}
	return errStyle
}

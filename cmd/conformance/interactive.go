package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-conformance/harness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	caseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	failLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	addLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserModel struct {
	failures []harness.Record
	visible  []int
	filter   textinput.Model
	selected int
	state    browserState
}

type browserState int

const (
	stateList browserState = iota
	stateFilter
	stateDetail
)

func newBrowserModel(failures []harness.Record) *browserModel {
	ti := textinput.New()
	ti.Placeholder = "case or file substring"
	ti.Prompt = "/"
	ti.Width = 40

	m := &browserModel{failures: failures, filter: ti}
	m.applyFilter("")
	return m
}

func (m *browserModel) applyFilter(q string) {
	m.visible = m.visible[:0]
	q = strings.ToLower(q)
	for i, f := range m.failures {
		if q == "" ||
			strings.Contains(strings.ToLower(f.File), q) ||
			strings.Contains(strings.ToLower(f.Case), q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "enter", "esc":
				m.state = stateList
				m.filter.Blur()
				return m, nil
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter(m.filter.Value())
				return m, cmd
			}
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
			}

		case "enter":
			if m.state == stateList && len(m.visible) > 0 {
				m.state = stateDetail
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateList
			}
		}
	}
	return m, nil
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Conformance Failures"))
	b.WriteString(fmt.Sprintf(" %d of %d shown\n\n", len(m.visible), len(m.failures)))

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No failures match the filter.\n")
		}
		for i, idx := range m.visible {
			line := m.formatFailure(m.failures[idx])
			if i == m.selected && m.state == stateList {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter detail • / filter • q quit"))

	case stateDetail:
		f := m.failures[m.visible[m.selected]]
		b.WriteString(fileStyle.Render(f.File))
		if f.Target != "" {
			b.WriteString(" [" + f.Target + "]")
		}
		b.WriteString(" ")
		b.WriteString(caseStyle.Render(f.Case))
		if f.Oracle != "" {
			b.WriteString(" (" + f.Oracle + ")")
		}
		b.WriteString("\n\n")

		if f.Err != nil {
			b.WriteString(failLineStyle.Render(fmt.Sprintf("%v", f.Err)))
			b.WriteString("\n")
		}
		for _, line := range strings.Split(strings.TrimRight(f.Detail, "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, "-"):
				b.WriteString(failLineStyle.Render(line))
			case strings.HasPrefix(line, "+"):
				b.WriteString(addLineStyle.Render(line))
			default:
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func (m *browserModel) formatFailure(f harness.Record) string {
	var parts []string
	parts = append(parts, fileStyle.Render(f.File))
	if f.Target != "" {
		parts = append(parts, "["+f.Target+"]")
	}
	if f.Case != "" {
		parts = append(parts, caseStyle.Render(f.Case))
	}
	if f.Oracle != "" {
		parts = append(parts, "("+f.Oracle+")")
	}
	parts = append(parts, failLineStyle.Render(strings.ToUpper(f.Status.String())))
	return strings.Join(parts, " ")
}

func runInteractive(sum *harness.Summary) error {
	p := tea.NewProgram(newBrowserModel(sum.Failures()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

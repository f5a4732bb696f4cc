// Package tui is an interactive terminal host for the composition
// engine, built on bubbletea.
package tui

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"composed/internal/ime"
)

// Options configures a Model.
type Options struct {
	// Modes are cycled by Ctrl+T. Empty disables mode switching.
	Modes []string

	// Initial is the starting document.
	Initial string

	Observer ime.Observer
	Logger   *slog.Logger
}

// Model owns a text buffer and an engine. It is the engine's host: display
// updates are forwarded to the buffer's marked text.
type Model struct {
	engine *ime.Engine
	buf    *ime.BufferClient
	modes  []string
	logger *slog.Logger

	highlight int
	status    string
	width     int
	quitting  bool
}

// New creates a model driving composer.
func New(composer ime.Composer, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		buf:       ime.NewBufferClient(opts.Initial),
		modes:     opts.Modes,
		logger:    logger.With("component", "tui"),
		highlight: -1,
	}
	m.engine = ime.NewEngine(composer, m, ime.WithObserver(opts.Observer))
	return m
}

// Run starts an interactive program and returns the final document.
func Run(m *Model, opts ...tea.ProgramOption) (string, error) {
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return "", fmt.Errorf("run terminal host: %w", err)
	}
	return m.Text(), nil
}

// UpdateComposition implements ime.Host.
func (m *Model) UpdateComposition(c ime.Composition) {
	m.highlight = -1
	if c.Composed != c.Original {
		m.highlight = slices.Index(c.Candidates, c.Composed)
	}
	m.buf.UpdateComposition(c)
}

// CancelComposition implements ime.Host.
func (m *Model) CancelComposition() {
	m.highlight = -1
	m.buf.CancelComposition()
}

// Text returns the committed document.
func (m *Model) Text() string {
	return m.buf.Text()
}

// Composition returns the displayed composition.
func (m *Model) Composition() ime.Composition {
	return m.buf.Marked()
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.commit()
		m.quitting = true
		return tea.Quit
	case tea.KeyCtrlS:
		m.commit()
		return nil
	case tea.KeyCtrlT:
		m.cycleMode()
		return nil
	}

	cands := m.engine.Candidates()
	if len(cands) > 0 && !msg.Alt && msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		if r := msg.Runes[0]; r >= '1' && r <= '9' && int(r-'1') < len(cands) {
			m.selectCandidate(cands[r-'1'])
			return nil
		}
	}
	if len(cands) > 0 && msg.Type == tea.KeyTab {
		m.engine.CandidateSelectionChanged(cands[(m.highlight+1)%len(cands)])
		return nil
	}

	ev, ok := keyEvent(msg)
	if !ok {
		return nil
	}
	res, err := m.engine.HandleEvent(ev, m.buf)
	if err != nil {
		m.logger.Error("key event failed", "event", ev.String(), "error", err)
		m.status = err.Error()
		return nil
	}
	if !res.Consumed() {
		m.buf.ApplyDefault(ev)
	}
	m.status = res.String()
	return nil
}

func (m *Model) commit() {
	if _, err := m.engine.CommitComposition(m.buf); err != nil {
		m.logger.Error("commit failed", "error", err)
	}
	m.status = "committed"
}

func (m *Model) selectCandidate(c string) {
	if _, err := m.engine.CandidateSelected(c, m.buf); err != nil {
		m.logger.Error("candidate commit failed", "error", err)
		return
	}
	m.status = "selected " + c
}

func (m *Model) cycleMode() {
	if len(m.modes) == 0 {
		return
	}
	next := m.modes[0]
	if i := slices.Index(m.modes, m.engine.InputMode()); i >= 0 {
		next = m.modes[(i+1)%len(m.modes)]
	}
	if err := m.engine.SetValue(ime.TagInputMode, next, m.buf); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "mode " + next
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	preeditStyle   = lipgloss.NewStyle().Underline(true)
	caretStyle     = lipgloss.NewStyle().Reverse(true)
	candidateStyle = lipgloss.NewStyle().PaddingRight(2)
	activeStyle    = lipgloss.NewStyle().Reverse(true).PaddingRight(2)
	statusStyle    = lipgloss.NewStyle().Faint(true)
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("composed " + m.engine.InputMode()))
	b.WriteString("\n\n")
	doc := m.renderDocument()
	if m.width > 0 {
		doc = lipgloss.NewStyle().Width(m.width).Render(doc)
	}
	b.WriteString(doc)
	b.WriteString("\n\n")
	if line := m.renderCandidates(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("1-9 select  tab preview  ctrl+t mode  ctrl+s commit  ctrl+c quit"))
	return b.String()
}

// renderDocument shows the text with the composition at the caret, or in
// place of the selection.
func (m *Model) renderDocument() string {
	text := []rune(m.buf.Text())
	sel := m.buf.SelectionRange()
	start, end := sel.Location, sel.Location+sel.Length
	start, end = min(max(start, 0), len(text)), min(max(end, 0), len(text))

	var b strings.Builder
	b.WriteString(string(text[:start]))
	if comp := m.buf.Marked().Composed; comp != "" {
		b.WriteString(preeditStyle.Render(comp))
	} else if end > start {
		b.WriteString(caretStyle.Render(string(text[start:end])))
	} else {
		b.WriteString(caretStyle.Render(" "))
	}
	b.WriteString(string(text[end:]))
	return b.String()
}

func (m *Model) renderCandidates() string {
	cands := m.buf.Marked().Candidates
	if len(cands) == 0 {
		return ""
	}
	cells := make([]string, 0, len(cands))
	for i, c := range cands {
		label := fmt.Sprintf("%d %s", i+1, c)
		if i == m.highlight {
			cells = append(cells, activeStyle.Render(label))
			continue
		}
		cells = append(cells, candidateStyle.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

var (
	_ tea.Model = (*Model)(nil)
	_ ime.Host  = (*Model)(nil)
)

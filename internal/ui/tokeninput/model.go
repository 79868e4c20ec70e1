package tokeninput

import (
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/theme"
)

// SuggestFunc returns address suggestions for a typed prefix.
type SuggestFunc func(prefix string) ([]model.Suggestion, error)

var lastID atomic.Int64

// suggestionsMsg carries the answer to a suggestion lookup back to the
// input that asked for it.
type suggestionsMsg struct {
	id    int64
	query string
	items []model.Suggestion
}

// Model is the Bubble Tea recipient field.
type Model struct {
	id      int64
	label   string
	machine Machine
	input   textinput.Model
	suggest SuggestFunc
	err     error
	width   int
}

// New creates a recipient field labelled label.
func New(label string, suggest SuggestFunc) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "name or address"
	return Model{
		id:      lastID.Add(1),
		label:   label,
		machine: NewMachine(),
		input:   ti,
		suggest: suggest,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Machine exposes the underlying token state.
func (m Model) Machine() Machine { return m.machine }

// Err is the last commit error, cleared by the next keystroke.
func (m Model) Err() error { return m.err }

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Blur removes focus and commits any pending draft.
func (m *Model) Blur() {
	m.input.Blur()
	if m.machine.Draft() != "" {
		if _, err := m.machine.Commit(); err != nil {
			m.err = err
			return
		}
		m.input.SetValue("")
	}
}

// Focused reports whether the field has focus.
func (m Model) Focused() bool { return m.input.Focused() }

// SetValue replaces all tokens with a parsed address list.
func (m *Model) SetValue(list string) error {
	m.machine = NewMachine()
	m.input.SetValue("")
	return m.machine.Add(list)
}

// SetWidth updates the rendering width.
func (m *Model) SetWidth(width int) {
	m.width = width
	m.input.Width = width - lipgloss.Width(m.label) - 4
}

// Update handles messages for the field. Tab with an empty draft and esc
// with no suggestions open are left to the parent.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case suggestionsMsg:
		if msg.id == m.id {
			m.machine.SetSuggestions(msg.query, msg.items)
		}
		return m, nil

	case tea.KeyMsg:
		if !m.input.Focused() {
			return m, nil
		}
		m.err = nil
		switch msg.String() {
		case "enter", "tab", ",":
			if m.machine.Draft() == "" && !m.machine.Open() {
				return m, nil
			}
			if _, err := m.machine.Commit(); err != nil {
				m.err = err
				return m, nil
			}
			m.input.SetValue("")
			return m, nil
		case "down", "ctrl+n":
			m.machine.Next()
			return m, nil
		case "up", "ctrl+p":
			m.machine.Prev()
			return m, nil
		case "esc":
			m.machine.Dismiss()
			return m, nil
		case "backspace":
			if m.input.Value() == "" {
				m.machine.Backspace()
				return m, nil
			}
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.machine.Type(after)
		return m, tea.Batch(cmd, m.lookup(after))
	}
	return m, cmd
}

// lookup asks the suggest function for matches off the update loop.
func (m Model) lookup(text string) tea.Cmd {
	query := strings.TrimSpace(text)
	if m.suggest == nil || query == "" {
		return nil
	}
	id, suggest := m.id, m.suggest
	return func() tea.Msg {
		items, err := suggest(query)
		if err != nil {
			return nil
		}
		return suggestionsMsg{id: id, query: query, items: items}
	}
}

// View renders tokens, the draft and any open suggestions.
func (m Model) View() string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(5)
	if m.input.Focused() {
		labelStyle = labelStyle.Foreground(theme.ColorBlue).Bold(true)
	}

	parts := []string{labelStyle.Render(m.label)}
	for _, t := range m.machine.Tokens() {
		parts = append(parts, theme.TokenStyle.Render(t.String()))
	}
	parts = append(parts, m.input.View())
	line := strings.Join(parts, " ")

	lines := []string{line}
	if m.err != nil {
		lines = append(lines, theme.ErrorStyle.Render("  "+m.err.Error()))
	}
	for i, s := range m.machine.Suggestions() {
		style := theme.ListItemStyle
		if i == m.machine.Highlight() {
			style = theme.SelectedItemStyle
		}
		lines = append(lines, style.Render(s.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

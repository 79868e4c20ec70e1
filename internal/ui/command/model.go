// Package command is the ':' palette.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/theme"
)

// Command names understood by the palette.
const (
	Import     = "import"
	Export     = "export"
	Harvest    = "harvest"
	Offline    = "offline"
	Online     = "online"
	NewContact = "new"
	Compose    = "compose"
	Settings   = "settings"
	Quit       = "quit"
)

type def struct {
	name    string
	usage   string
	needArg bool
}

var commands = []def{
	{Import, "import <file.vcf>", true},
	{Export, "export <file.vcf>", true},
	{Harvest, "harvest", false},
	{Offline, "offline", false},
	{Online, "online", false},
	{NewContact, "new", false},
	{Compose, "compose [address, ...]", false},
	{Settings, "settings", false},
	{Quit, "quit", false},
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Arg  string
}

// Parse splits a palette line into a command and its argument. Unique
// prefixes select a command, so "imp x.vcf" is an import.
func Parse(line string) (CommandMsg, error) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)

	var match *def
	for i, c := range commands {
		if c.name == name {
			match = &commands[i]
			break
		}
		if strings.HasPrefix(c.name, name) {
			if match != nil {
				return CommandMsg{}, fmt.Errorf("ambiguous command %q", name)
			}
			match = &commands[i]
		}
	}
	if name == "" || match == nil {
		return CommandMsg{}, fmt.Errorf("unknown command %q", name)
	}
	if match.needArg && arg == "" {
		return CommandMsg{}, fmt.Errorf("usage: %s", match.usage)
	}
	return CommandMsg{Name: match.name, Arg: arg}, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	ti.SetSuggestions(names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		if line == "" {
			return m, nil
		}
		cmd, err := Parse(line)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.input.Reset()
		return m, func() tea.Msg { return cmd }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	lines := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		lines = append(lines, theme.ErrorStyle.Render(m.err.Error()))
	}

	usage := make([]string, len(commands))
	for i, c := range commands {
		usage[i] = c.usage
	}
	lines = append(lines, "", theme.HelpStyle.Render(strings.Join(usage, " · ")))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.err = nil
	return m.input.Focus()
}

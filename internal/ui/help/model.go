package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/theme"
)

// recipientKeys are handled inside the token input and are not part of the
// global key map.
var recipientKeys = []key.Binding{
	key.NewBinding(key.WithKeys("enter", "tab", ","), key.WithHelp("enter/tab/,", "add recipient")),
	key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "pick suggestion")),
	key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "remove last")),
	key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close suggestions")),
}

type section struct {
	title    string
	bindings []key.Binding
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) sections() []section {
	groups := m.keys.FullHelp()
	titles := []string{"Navigation", "General", "Contacts", "Editor"}
	out := make([]section, 0, len(groups)+1)
	for i, g := range groups {
		title := ""
		if i < len(titles) {
			title = titles[i]
		}
		out = append(out, section{title: title, bindings: g})
	}
	return append(out, section{title: "Recipients", bindings: recipientKeys})
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	var cols []string
	for _, s := range m.sections() {
		col := lipgloss.JoinVertical(lipgloss.Left,
			theme.LabelStyle.Bold(true).Render(s.title),
			m.help.FullHelpView([][]key.Binding{s.bindings}),
		)
		cols = append(cols, lipgloss.NewStyle().MarginRight(4).MarginBottom(1).Render(col))
	}

	var rows []string
	for i := 0; i < len(cols); i += 3 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cols[i:min(i+3, len(cols))]...))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

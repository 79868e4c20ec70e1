// Package compose is the mail draft view. Recipients are token inputs fed by
// contact and correspondent suggestions; the result is saved as a draft file.
package compose

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/addressbook/internal/draft"
	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/theme"
	"github.com/nhle/addressbook/internal/ui/tokeninput"
)

// ClosedMsg signals the parent to close the compose view.
type ClosedMsg struct{}

// DraftSavedMsg is sent after a draft file was written.
type DraftSavedMsg struct {
	Path string
}

type savedResultMsg struct {
	path string
	err  error
}

const (
	fieldTo = iota
	fieldCc
	fieldSubject
	fieldBody
	fieldCount
)

// Model is the compose view.
type Model struct {
	to      tokeninput.Model
	cc      tokeninput.Model
	subject textinput.Model
	body    textarea.Model
	focus   int

	writer *draft.Writer
	from   *mail.Address
	keys   *keys.KeyMap

	err    error
	width  int
	height int
}

// New creates a compose view. from may be nil.
func New(w *draft.Writer, from *mail.Address, suggest tokeninput.SuggestFunc, k *keys.KeyMap, width, height int) Model {
	subj := textinput.New()
	subj.Prompt = ""
	subj.Placeholder = "subject"

	body := textarea.New()
	body.Placeholder = "Write your message…"
	body.ShowLineNumbers = false

	m := Model{
		to:      tokeninput.New("To", suggest),
		cc:      tokeninput.New("Cc", suggest),
		subject: subj,
		body:    body,
		writer:  w,
		from:    from,
		keys:    k,
	}
	m.SetSize(width, height)
	return m
}

// SetRecipients prefills the To field with an address list.
func (m *Model) SetRecipients(list string) error {
	return m.to.SetValue(list)
}

// Init focuses the first empty field.
func (m *Model) Init() tea.Cmd {
	if len(m.to.Machine().Tokens()) > 0 {
		return m.setFocus(fieldSubject)
	}
	return m.setFocus(fieldTo)
}

// Update handles messages for the compose view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedResultMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		path := msg.path
		return m, func() tea.Msg { return DraftSavedMsg{Path: path} }

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Save):
			cmd := m.save()
			return m, cmd
		case msg.String() == "esc" && !m.suggesting():
			return m, func() tea.Msg { return ClosedMsg{} }
		case msg.String() == "tab" && m.canLeave():
			cmd := m.setFocus((m.focus + 1) % fieldCount)
			return m, cmd
		case msg.String() == "shift+tab":
			cmd := m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTo:
		m.to, cmd = m.to.Update(msg)
		m.err = m.to.Err()
	case fieldCc:
		m.cc, cmd = m.cc.Update(msg)
		m.err = m.cc.Err()
	case fieldSubject:
		m.subject, cmd = m.subject.Update(msg)
	case fieldBody:
		m.body, cmd = m.body.Update(msg)
	}

	// Suggestion answers are routed by id inside the token inputs, so the
	// unfocused one gets a look as well.
	if _, ok := msg.(tea.KeyMsg); !ok {
		var other tea.Cmd
		if m.focus == fieldTo {
			m.cc, other = m.cc.Update(msg)
		} else {
			m.to, other = m.to.Update(msg)
		}
		cmd = tea.Batch(cmd, other)
	}
	return m, cmd
}

func (m Model) recipientField() *tokeninput.Model {
	switch m.focus {
	case fieldTo:
		return &m.to
	case fieldCc:
		return &m.cc
	}
	return nil
}

// canLeave reports whether tab should move focus rather than commit a token.
func (m Model) canLeave() bool {
	f := m.recipientField()
	return f == nil || (f.Machine().Draft() == "" && !f.Machine().Open())
}

func (m Model) suggesting() bool {
	f := m.recipientField()
	return f != nil && f.Machine().Open()
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.to.Blur()
	m.cc.Blur()
	m.subject.Blur()
	m.body.Blur()
	if err := errors.Join(m.to.Err(), m.cc.Err()); err != nil {
		m.err = err
	}

	m.focus = i
	switch i {
	case fieldTo:
		return m.to.Focus()
	case fieldCc:
		return m.cc.Focus()
	case fieldSubject:
		return m.subject.Focus()
	default:
		return m.body.Focus()
	}
}

// Draft assembles the message from the current fields. A draft still being
// typed into a recipient field is committed first.
func (m *Model) Draft() draft.Draft {
	m.to.Blur()
	m.cc.Blur()
	return draft.Draft{
		From:    m.from,
		To:      m.to.Machine().Addresses(),
		Cc:      m.cc.Machine().Addresses(),
		Subject: strings.TrimSpace(m.subject.Value()),
		Body:    m.body.Value(),
	}
}

func (m *Model) save() tea.Cmd {
	m.err = nil
	d := m.Draft()
	m.setFocus(m.focus)
	if m.err != nil {
		return nil
	}
	w := m.writer
	return func() tea.Msg {
		path, err := w.Save(d)
		return savedResultMsg{path: path, err: err}
	}
}

// View renders the compose view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(5)
	if m.focus == fieldSubject {
		label = label.Foreground(theme.ColorBlue).Bold(true)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("New Message"))
	b.WriteString("\n")
	if m.from != nil {
		b.WriteString(theme.DimmedStyle.Render("From " + m.from.String()))
		b.WriteString("\n")
	}
	b.WriteString(m.to.View())
	b.WriteString("\n")
	b.WriteString(m.cc.View())
	b.WriteString("\n")
	b.WriteString(label.Render("Subj") + " " + m.subject.View())
	b.WriteString("\n\n")
	b.WriteString(m.body.View())
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(theme.ErrorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("tab next field • ctrl+s save draft • esc cancel"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	inner := max(width-6, 20)
	m.to.SetWidth(inner)
	m.cc.SetWidth(inner)
	m.subject.Width = inner - 6
	m.body.SetWidth(inner)
	m.body.SetHeight(max(height-14, 3))
}

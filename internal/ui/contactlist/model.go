package contactlist

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
	"github.com/nhle/addressbook/internal/theme"
)

// ContactsLoadedMsg is sent when contacts have been loaded from the store.
type ContactsLoadedMsg struct {
	Contacts []model.Contact
	Err      error
}

// ViewContactMsg asks the parent to show a contact's card.
type ViewContactMsg struct {
	Contact model.Contact
}

// EditContactMsg asks the parent to open a contact in the editor.
type EditContactMsg struct {
	Contact model.Contact
}

// NewContactMsg asks the parent to open an empty editor.
type NewContactMsg struct{}

// ComposeToMsg asks the parent to start a draft addressed to a contact.
type ComposeToMsg struct {
	Contact model.Contact
}

// ContactDeletedMsg is sent after a contact was removed.
type ContactDeletedMsg struct {
	ID  string
	Err error
}

// Model is the contact list view.
type Model struct {
	list        list.Model
	store       store.Store
	keys        *keys.KeyMap
	filter      model.ContactFilter
	searchMode  bool
	searchInput textinput.Model

	confirm       *huh.Form
	confirmDelete *bool
	pending       *model.Contact

	err    error
	width  int
	height int
}

// New creates a new contact list model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Contacts"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search contacts..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:          l,
		store:         s,
		keys:          k,
		searchInput:   si,
		confirmDelete: new(bool),
		width:         width,
		height:        height,
	}
}

// Init returns a command that loads the initial set of contacts.
func (m Model) Init() tea.Cmd {
	return m.LoadContacts()
}

// Searching reports whether the search input holds focus.
func (m Model) Searching() bool {
	return m.searchMode || m.confirm != nil
}

// Update handles messages for the contact list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ContactsLoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Contacts))
		for i, c := range msg.Contacts {
			items[i] = ContactItem{Contact: c}
		}
		return m, m.list.SetItems(items)

	case ContactDeletedMsg:
		m.err = msg.Err
		return m, m.LoadContacts()

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	if m.confirm != nil {
		return m.updateConfirm(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filter.Query = m.searchInput.Value()
		return m, m.LoadContacts()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = ""
		return m, m.LoadContacts()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ViewContactMsg{Contact: c} }

	case key.Matches(msg, m.keys.Edit):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return EditContactMsg{Contact: c} }

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewContactMsg{} }

	case key.Matches(msg, m.keys.Compose):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return ComposeToMsg{Contact: c} }

	case key.Matches(msg, m.keys.Delete):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.pending = &c
		*m.confirmDelete = false
		m.confirm = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s?", c.DisplayName())).
					Affirmative("Delete").
					Negative("Cancel").
					Value(m.confirmDelete),
			),
		).WithWidth(min(m.width-4, 60))
		return m, m.confirm.Init()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateAborted:
		m.confirm = nil
		m.pending = nil
		return m, nil
	case huh.StateCompleted:
		m.confirm = nil
		c := m.pending
		m.pending = nil
		if !*m.confirmDelete || c == nil {
			return m, nil
		}
		return m, m.deleteContact(c.ID)
	}
	return m, cmd
}

func (m Model) deleteContact(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return ContactDeletedMsg{ID: id, Err: s.DeleteContact(context.Background(), id)}
	}
}

func (m Model) selected() (model.Contact, bool) {
	item, ok := m.list.SelectedItem().(ContactItem)
	if !ok {
		return model.Contact{}, false
	}
	return item.Contact, true
}

// Selected returns the highlighted contact.
func (m Model) Selected() (model.Contact, bool) {
	return m.selected()
}

// View renders the contact list view.
func (m Model) View() string {
	if m.confirm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirm.View())
	}

	var errLine string
	if m.err != nil {
		errLine = theme.ErrorStyle.Render(m.err.Error())
	}

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View(), errLine)
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	if errLine != "" {
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), errLine)
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when no contacts are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter.Query != "" {
		return style.Render("No matching contacts.\nPress / to change the search.")
	}

	return style.Render(
		"No contacts yet.\n\n" +
			"Press n to add one, or : then 'import' to read a vCard file.",
	)
}

// LoadContacts returns a tea.Cmd that queries the store with the current filter.
func (m Model) LoadContacts() tea.Cmd {
	filter := m.filter
	s := m.store
	return func() tea.Msg {
		contacts, err := s.ListContacts(context.Background(), filter)
		return ContactsLoadedMsg{Contacts: contacts, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}

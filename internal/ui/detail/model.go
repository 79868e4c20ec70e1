// Package detail is the read-only contact card.
package detail

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// EditMsg asks the parent to open the shown contact in the editor.
type EditMsg struct {
	Contact model.Contact
}

// ComposeMsg asks the parent to start a draft to the shown contact.
type ComposeMsg struct {
	Contact model.Contact
}

// CertLoadedMsg carries the parsed certificate of the shown contact.
type CertLoadedMsg struct {
	ContactID string
	Result    *model.CertResult
	Err       error
}

// CertParser parses certificate data.
type CertParser interface {
	Handle(ctx context.Context, req model.CertRequest) (*model.CertResult, error)
}

// Model is the contact card view component.
type Model struct {
	contact  *model.Contact
	cert     *model.CertResult
	certErr  error
	certs    CertParser
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new card view model.
func New(certs CertParser, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		certs:    certs,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init parses the contact's certificate, if it has one.
func (m Model) Init() tea.Cmd {
	if m.contact == nil || m.certs == nil {
		return nil
	}
	data := strings.TrimSpace(m.contact.Attributes[fields.Certificate])
	if data == "" {
		return nil
	}
	certs, id := m.certs, m.contact.ID
	return func() tea.Msg {
		res, err := certs.Handle(context.Background(), model.CertRequest{
			Operation: model.CertOperationGet,
			CertData:  data,
		})
		return CertLoadedMsg{ContactID: id, Result: res, Err: err}
	}
}

// Update handles messages for the card view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CertLoadedMsg:
		if m.contact == nil || msg.ContactID != m.contact.ID {
			return m, nil
		}
		m.cert, m.certErr = msg.Result, msg.Err
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Edit):
			if m.contact != nil {
				c := *m.contact
				return m, func() tea.Msg { return EditMsg{Contact: c} }
			}

		case key.Matches(msg, m.keys.Compose):
			if m.contact != nil {
				c := *m.contact
				return m, func() tea.Msg { return ComposeMsg{Contact: c} }
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the card.
func (m Model) View() string {
	if m.contact == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No contact selected")
	}
	return m.viewport.View()
}

// entry is one labelled line of the card.
type entry struct {
	group    fields.Group
	order    int
	position int
	label    string
	value    string
}

// groupOrder is the order sections appear on the card.
var groupOrder = map[fields.Group]int{
	fields.GroupEmail:   0,
	fields.GroupPhone:   1,
	fields.GroupIM:      2,
	fields.GroupAddress: 3,
	fields.GroupSingle:  4,
	fields.GroupNone:    5,
}

// header fields are rendered above the sections.
var header = map[string]bool{
	fields.FirstName:   true,
	fields.LastName:    true,
	fields.Company:     true,
	fields.JobTitle:    true,
	fields.Image:       true,
	fields.Certificate: true,
}

var plainOrder = []string{fields.Nickname, fields.Website, fields.Notes}

// entries flattens a contact's attributes into card lines. Address members
// are joined into one line per instance.
func entries(attrs map[string]string) []entry {
	var out []entry
	seenAddr := map[string]bool{}
	for k, v := range attrs {
		if header[k] || strings.TrimSpace(v) == "" {
			continue
		}
		info := fields.Classify(k)
		e := entry{group: info.Group, position: info.Position}
		switch {
		case info.IsAddressField:
			ph := fields.AddressPlaceholder(info.Prefix, info.Position)
			if seenAddr[ph] {
				continue
			}
			seenAddr[ph] = true
			var parts []string
			for _, mk := range fields.AddressMembers(info.Prefix, info.Position) {
				if p := strings.TrimSpace(attrs[mk]); p != "" {
					parts = append(parts, p)
				}
			}
			e.label = fields.Title(fields.AddressPlaceholder(info.Prefix, 1))
			e.order = fields.LabelIndex(fields.AddressPlaceholder(info.Prefix, 1))
			e.value = strings.Join(parts, ", ")
		case info.Group == fields.GroupIM:
			e.label = fields.Title(info.Label)
			e.order = fields.LabelIndex(info.Label)
			_, id, found := strings.Cut(v, "://")
			if !found {
				id = v
			}
			e.value = id
		case info.Group == fields.GroupNone:
			e.label = fields.Title(info.Label)
			e.order = slices.Index(plainOrder, info.Label)
			if e.order < 0 {
				e.order = len(plainOrder)
			}
			e.value = v
		default:
			e.label = fields.Title(info.Label)
			e.order = fields.LabelIndex(info.Label)
			e.value = v
		}
		if e.position > 1 {
			e.label += " " + fields.SuffixString(e.position)
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b entry) int {
		return cmp.Or(
			cmp.Compare(groupOrder[a.group], groupOrder[b.group]),
			cmp.Compare(a.order, b.order),
			cmp.Compare(a.position, b.position),
			cmp.Compare(a.label, b.label),
		)
	})
	return out
}

// renderContent builds the full card string for the viewport.
func (m Model) renderContent() string {
	if m.contact == nil {
		return ""
	}
	c := m.contact
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(c.DisplayName()))

	role := c.Attributes[fields.JobTitle]
	if org := c.Attributes[fields.Company]; org != "" {
		if role != "" {
			role += " at "
		}
		role += org
	}
	if role != "" {
		sections = append(sections, theme.DimmedStyle.Render(role))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(16)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	last := fields.Group(-1)
	for _, e := range entries(c.Attributes) {
		if e.group != last && last != -1 {
			sections = append(sections, "")
		}
		last = e.group
		label := metaStyle.Foreground(theme.GroupStyle(e.group.String()).GetForeground()).Render(e.label)
		sections = append(sections, label+valStyle.Render(e.value))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	sections = append(sections, metaStyle.Render("Certificate")+m.certLine())
	if c.Attributes[fields.Image] != "" {
		sections = append(sections, metaStyle.Render("Photo")+valStyle.Render("attached"))
	}
	if !c.CreatedAt.IsZero() {
		sections = append(sections, metaStyle.Render("Created")+valStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")))
	}
	if !c.UpdatedAt.IsZero() {
		sections = append(sections, metaStyle.Render("Updated")+valStyle.Render(c.UpdatedAt.Format("2006-01-02 15:04")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) certLine() string {
	switch {
	case strings.TrimSpace(m.contact.Attributes[fields.Certificate]) == "":
		return theme.DimmedStyle.Render("none")
	case m.certErr != nil:
		return theme.ErrorStyle.Render("unreadable: " + m.certErr.Error())
	case m.cert == nil:
		return theme.DimmedStyle.Render("checking…")
	}
	cert := m.cert.Certificate
	summary := cert.Email
	if summary == "" {
		summary = cert.Subject
	}
	summary += fmt.Sprintf(" until %s", cert.NotAfter.Format("2006-01-02"))
	if m.cert.IsExpired {
		summary += " (expired)"
	}
	return theme.CertStyle(m.cert.IsExpired).Render(summary)
}

// SetContact updates the contact being displayed and re-renders the content.
// Call Init afterwards to parse its certificate.
func (m *Model) SetContact(c model.Contact) {
	m.contact = &c
	m.cert = nil
	m.certErr = nil
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Contact returns the shown contact.
func (m Model) Contact() (model.Contact, bool) {
	if m.contact == nil {
		return model.Contact{}, false
	}
	return *m.contact, true
}

// SetSize updates the card dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.contact != nil {
		m.viewport.SetContent(m.renderContent())
	}
}

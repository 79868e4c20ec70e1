package contactlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/theme"
)

// ContactItem wraps a model.Contact so it can be used in a bubbles/list.
type ContactItem struct {
	Contact model.Contact
}

// FilterValue returns the string used for fuzzy filtering.
func (i ContactItem) FilterValue() string {
	return i.Contact.DisplayName() + " " + i.Contact.PrimaryEmail()
}

// Title returns the contact's display name.
func (i ContactItem) Title() string { return i.Contact.DisplayName() }

// Description returns a short summary line for the list.
func (i ContactItem) Description() string {
	var parts []string
	if e := i.Contact.PrimaryEmail(); e != "" {
		parts = append(parts, e)
	}
	if c := strings.TrimSpace(i.Contact.Attributes[fields.Company]); c != "" {
		parts = append(parts, c)
	}
	parts = append(parts, relativeTime(i.Contact.UpdatedAt))
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering contacts.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single contact line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(ContactItem)
	if !ok {
		return
	}
	c := ci.Contact

	name := c.DisplayName()

	email := ""
	if e := c.PrimaryEmail(); e != "" {
		email = theme.GroupStyle("email").UnsetBold().Render(" <" + e + ">")
	}

	company := ""
	if v := strings.TrimSpace(c.Attributes[fields.Company]); v != "" {
		company = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("  " + v)
	}

	certBadge := ""
	if strings.TrimSpace(c.Attributes[fields.Certificate]) != "" {
		certBadge = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render(" [smime]")
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(c.UpdatedAt))

	line := fmt.Sprintf("%s%s%s%s  %s", name, email, certBadge, company, timeStr)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02 2006")
	}
}

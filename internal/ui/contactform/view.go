package contactform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/contact/fields"
	"github.com/nhle/addressbook/internal/theme"
)

// View renders the editor.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := "New Contact"
	if !m.session.IsNew() {
		title = "Edit Contact"
		if name := m.displayName(); name != "" {
			title += ": " + name
		}
	}
	if m.session.Dirty() {
		title += " *"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if m.modal != "" {
		b.WriteString(theme.BannerStyle.Render(m.modal))
		b.WriteString("\n\n")
		b.WriteString(theme.HelpStyle.Render("press any key"))
		return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	}

	if m.mode != modeEdit && m.form != nil {
		b.WriteString(m.form.View())
		return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	}

	if m.banner != "" {
		b.WriteString(theme.BannerStyle.Render(m.banner))
		b.WriteString("\n")
	}
	if m.showIssues {
		for _, issue := range m.session.Validation().Issues {
			if issue.Field != "" {
				continue
			}
			b.WriteString(issueLine(issue))
			b.WriteString("\n")
		}
	}

	lines := m.rowLines()
	start, end := m.window(len(lines))
	for _, l := range lines[start:end] {
		b.WriteString(l)
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.DimmedStyle.Render(m.statusMsg))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// rowLines renders one line per row plus any inline issues directly below
// the row they belong to.
func (m Model) rowLines() []string {
	var lines []string
	for i, r := range m.rows {
		focused := i == m.focus

		label := ""
		if r.first {
			label = r.label
		}
		labelStyle := theme.LabelStyle
		if focused {
			labelStyle = theme.FocusedLabelStyle
		}
		if r.first && !r.sentinel() {
			info := fields.Classify(r.owner)
			if info.Group != fields.GroupNone {
				labelStyle = labelStyle.Foreground(theme.GroupStyle(info.Group.String()).GetForeground())
			}
		}

		var value string
		switch {
		case r.owner == editor.CertificateSentinel:
			value = m.certSummary()
		case r.sentinel():
			value = theme.DimmedStyle.Render("enter to choose")
		default:
			value = m.inputs[r.key].View()
		}

		line := labelStyle.Render(label) + " " + value
		if focused {
			line = theme.SelectedItemStyle.Render(line)
		}
		lines = append(lines, line)

		if m.showIssues && r.key != "" {
			for _, issue := range m.session.Validation().FieldIssues(r.key) {
				lines = append(lines, theme.LabelStyle.Render("")+" "+issueLine(issue))
			}
		}
	}
	return lines
}

func issueLine(issue editor.Issue) string {
	if issue.Blocking() {
		return theme.ErrorStyle.Render("✗ " + issue.Message)
	}
	return theme.WarningStyle.Render("! " + issue.Message)
}

func (m Model) certSummary() string {
	cert, expired := m.session.Certificate()
	if cert == nil {
		if v, _ := m.session.State().Value(fields.Certificate); strings.TrimSpace(v) != "" {
			return theme.DimmedStyle.Render("stored, not parsed")
		}
		return theme.DimmedStyle.Render("none (enter to paste)")
	}
	summary := cert.Email
	if summary == "" {
		summary = cert.Subject
	}
	summary += fmt.Sprintf(" until %s", cert.NotAfter.Format("2006-01-02"))
	if expired {
		summary += " (expired)"
	}
	return theme.CertStyle(expired).Render(summary)
}

func (m Model) displayName() string {
	st := m.session.State()
	first, _ := st.Value(fields.FirstName)
	last, _ := st.Value(fields.LastName)
	return strings.TrimSpace(first + " " + last)
}

// window returns the slice of lines that fits the height with the focused
// row visible.
func (m Model) window(n int) (int, int) {
	avail := m.height - 8
	if avail <= 0 || n <= avail {
		return 0, n
	}
	// Row index and line index differ when issues are shown; the focused
	// row's line is at least m.focus.
	start := m.focus - avail/2
	if start < 0 {
		start = 0
	}
	end := start + avail
	if end > n {
		end = n
		start = end - avail
	}
	return start, end
}

// Package config is the settings view for the harvest account and the
// drafts sender.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/addressbook/internal/credential"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/theme"
)

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeForm           ConfigMode = iota // Editing settings
	ModeValidating                       // Testing the IMAP login
	ModeValidateResult                   // Showing the test result
)

// ConfigDoneMsg signals the settings view should close without changes.
type ConfigDoneMsg struct{}

// ConfigSavedMsg carries the configuration that was written.
type ConfigSavedMsg struct {
	Config *model.AppConfig
}

// ValidateResultMsg carries the result of a connection test.
type ValidateResultMsg struct {
	Err error
}

type savedInternalMsg struct {
	cfg *model.AppConfig
	err error
}

// ValidateFunc tests an IMAP login.
type ValidateFunc func(ctx context.Context, cfg model.HarvestConfig, password string) error

// formValues holds huh bindings on the heap so Model copies share them.
type formValues struct {
	enabled   bool
	host      string
	port      string
	username  string
	password  string
	tls       bool
	mailboxes string
	from      string
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode     ConfigMode
	cfg      *model.AppConfig
	path     string
	vault    *credential.Vault
	validate ValidateFunc

	form    *huh.Form
	values  *formValues
	spinner spinner.Model

	validError error
	statusMsg  string

	width  int
	height int
}

// New creates a settings view that writes cfg to path. vault may be nil, in
// which case passwords cannot be stored.
func New(cfg *model.AppConfig, path string, vault *credential.Vault, validate ValidateFunc, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		cfg:      cfg,
		path:     path,
		vault:    vault,
		validate: validate,
		values:   &formValues{},
		spinner:  sp,
		width:    width,
		height:   height,
	}
}

// Init fills the form from the current configuration.
func (m *Model) Init() tea.Cmd {
	h := m.cfg.Harvest
	*m.values = formValues{
		enabled:   h.Enabled,
		host:      h.Host,
		port:      strconv.Itoa(h.Port),
		username:  h.Username,
		tls:       h.TLS,
		mailboxes: strings.Join(h.Mailboxes, ", "),
		from:      m.cfg.Drafts.From,
	}
	m.mode = ModeForm
	m.validError = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the settings view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.mode = ModeValidateResult
		m.validError = msg.Err
		return m, nil

	case savedInternalMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		if msg.err != nil {
			m.mode = ModeValidateResult
			m.validError = msg.err
			return m, nil
		}
		cfg := msg.cfg
		return m, func() tea.Msg { return ConfigSavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if msg.String() == "esc" {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeValidateResult:
			switch msg.String() {
			case "r":
				return m.startSave()
			case "enter", "esc":
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		}
	}

	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m.startSave()
	case huh.StateAborted:
		return m, func() tea.Msg { return ConfigDoneMsg{} }
	}
	return m, cmd
}

func (m Model) buildForm() *huh.Form {
	v := m.values
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Harvest correspondents").
				Description("Read recent mail headers to suggest recipients").
				Affirmative("Yes").
				Negative("No").
				Value(&v.enabled),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&v.host).
				Validate(m.whenEnabled(validateRequired("IMAP Host"))),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&v.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&v.username).
				Validate(m.whenEnabled(validateRequired("Username"))),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring; leave empty to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&v.password),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&v.tls),
			huh.NewInput().
				Title("Mailboxes").
				Description("Comma separated").
				Placeholder("INBOX, Sent").
				Value(&v.mailboxes),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Draft sender").
				Description("From address written on drafts").
				Placeholder("Jo Doe <jo@example.com>").
				Value(&v.from).
				Validate(validateAddress),
		),
	).WithWidth(m.formWidth())
}

func (m Model) whenEnabled(fn func(string) error) func(string) error {
	return func(s string) error {
		if !m.values.enabled {
			return nil
		}
		return fn(s)
	}
}

// result builds the configuration the form describes.
func (m Model) result() *model.AppConfig {
	v := m.values
	cfg := *m.cfg
	cfg.Harvest.Enabled = v.enabled
	cfg.Harvest.Host = strings.TrimSpace(v.host)
	cfg.Harvest.Username = strings.TrimSpace(v.username)
	cfg.Harvest.TLS = v.tls
	if port, err := strconv.Atoi(strings.TrimSpace(v.port)); err == nil {
		cfg.Harvest.Port = port
	}
	cfg.Harvest.Mailboxes = nil
	for _, mb := range strings.Split(v.mailboxes, ",") {
		if mb = strings.TrimSpace(mb); mb != "" {
			cfg.Harvest.Mailboxes = append(cfg.Harvest.Mailboxes, mb)
		}
	}
	cfg.Drafts.From = strings.TrimSpace(v.from)
	return &cfg
}

// startSave tests the login when harvesting is enabled, then stores the
// password and writes the config file.
func (m Model) startSave() (Model, tea.Cmd) {
	cfg := m.result()
	password := m.values.password
	vault, path, validate := m.vault, m.path, m.validate

	m.mode = ModeValidating
	save := func() tea.Msg {
		if cfg.Harvest.Enabled {
			key := credential.IMAPKey(cfg.Harvest)
			typed := password != ""
			if !typed && vault != nil {
				stored, err := vault.Get(key)
				if err != nil {
					return ValidateResultMsg{Err: fmt.Errorf("no stored password for %s: %w", cfg.Harvest.Username, err)}
				}
				password = stored
			}
			if password != "" && validate != nil {
				if err := validate(context.Background(), cfg.Harvest, password); err != nil {
					return ValidateResultMsg{Err: err}
				}
			}
			if typed && vault != nil {
				if err := vault.Set(key, password); err != nil {
					return savedInternalMsg{err: err}
				}
			}
		}
		if err := model.SaveConfig(path, cfg); err != nil {
			return savedInternalMsg{err: err}
		}
		return savedInternalMsg{cfg: cfg}
	}
	return m, tea.Batch(m.spinner.Tick, save)
}

// View renders the settings view.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	title := titleStyle.Render("Settings")

	switch m.mode {
	case ModeValidating:
		return style.Render(title + "\n" + m.spinner.View() + " Testing connection...\n\nPress esc to cancel.")
	case ModeValidateResult:
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
		return style.Render(title + "\n" +
			errStyle.Render("Settings not saved") + "\n\n" +
			m.validError.Error() + "\n\n" +
			theme.HelpStyle.Render("r retry | enter/esc back"))
	}

	if m.form == nil {
		return ""
	}
	return style.Render(title + "\n" + m.form.View())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateAddress(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("not a valid address")
	}
	return nil
}

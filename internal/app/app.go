package app

import (
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/cert"
	"github.com/nhle/addressbook/internal/contact/session"
	"github.com/nhle/addressbook/internal/credential"
	"github.com/nhle/addressbook/internal/draft"
	"github.com/nhle/addressbook/internal/harvest"
	"github.com/nhle/addressbook/internal/keys"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
	"github.com/nhle/addressbook/internal/ui"
	"github.com/nhle/addressbook/internal/ui/command"
	"github.com/nhle/addressbook/internal/ui/compose"
	"github.com/nhle/addressbook/internal/ui/config"
	"github.com/nhle/addressbook/internal/ui/contactform"
	"github.com/nhle/addressbook/internal/ui/contactlist"
	"github.com/nhle/addressbook/internal/ui/detail"
	helpview "github.com/nhle/addressbook/internal/ui/help"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewForm
	ViewCompose
	ViewHelp
	ViewCommand
	ViewSettings
)

// Options are the collaborators the application is built from.
type Options struct {
	Store  *store.SQLiteStore
	Config *model.AppConfig
	Logger *zap.Logger

	// ConfigPath is where the settings view writes changes.
	ConfigPath string

	// Vault holds the IMAP password. Harvesting is disabled without it.
	Vault *credential.Vault
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the persistence layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *store.SQLiteStore
	cfg          *model.AppConfig
	configPath   string
	vault        *credential.Vault
	log          *zap.Logger
	keys         *keys.KeyMap

	contactList contactlist.Model
	detailView  detail.Model
	form        contactform.Model
	composeView compose.Model
	helpView    helpview.Model
	commandView command.Model
	configView  config.Model

	certs  *cert.Handler
	drafts *draft.Writer
	from   *mail.Address
	poller *harvest.Poller
	online *atomic.Bool

	ready   bool
	notice  string
	harvest string
}

// New creates the root application model.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	k := keys.DefaultKeyMap()

	online := &atomic.Bool{}
	online.Store(!opts.Config.Offline)

	m := Model{
		currentView: ViewList,
		store:       opts.Store,
		cfg:         opts.Config,
		configPath:  opts.ConfigPath,
		vault:       opts.Vault,
		log:         log,
		keys:        k,
		contactList: contactlist.New(opts.Store, k, 80, 24),
		detailView:  detail.New(nil, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		certs:       cert.NewHandler(),
		drafts:      draft.NewWriter(opts.Config.Drafts.Dir),
		from:        draftSender(opts.Config, log),
		online:      online,
	}
	m.poller = m.newPoller(opts.Vault)
	return m
}

// draftSender parses drafts.from; an invalid address is logged and dropped.
func draftSender(cfg *model.AppConfig, log *zap.Logger) *mail.Address {
	if cfg.Drafts.From == "" {
		return nil
	}
	addr, err := mail.ParseAddress(cfg.Drafts.From)
	if err != nil {
		log.Warn("ignoring invalid drafts.from", zap.String("from", cfg.Drafts.From), zap.Error(err))
		return nil
	}
	return addr
}

// Init loads the contact list and starts the harvester.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.contactList.Init()}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

func (m Model) sessionOptions() session.Options {
	online := m.online
	return session.Options{
		Mutator:      m.store,
		Certificates: m.certs,
		Blobs:        m.store,
		Online:       online.Load,
		Logger:       m.log.Named("session"),
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.contactList.SetSize(w, h)
		m.detailView.SetSize(w, h)
		switch m.currentView {
		case ViewForm:
			m.form.SetSize(w, h)
		case ViewCompose:
			m.composeView.SetSize(w, h)
		case ViewSettings:
			m.configView.SetSize(w, h)
		}
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to the active view so huh forms can lay out.
		return m.updateActiveView(msg)

	case contactlist.ViewContactMsg:
		return m.openDetail(msg.Contact)

	case contactlist.EditContactMsg:
		c := msg.Contact
		return m.openEditor(session.Open(&c, m.sessionOptions()))

	case detail.EditMsg:
		c := msg.Contact
		return m.openEditor(session.Open(&c, m.sessionOptions()))

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ComposeMsg:
		return m.composeTo(msg.Contact)

	case contactlist.NewContactMsg, contactNewMsg:
		return m.openEditor(session.New(m.sessionOptions()))

	case contactlist.ComposeToMsg:
		return m.composeTo(msg.Contact)

	case contactlist.ContactDeletedMsg:
		if msg.Err != nil {
			m.log.Error("deleting contact failed", zap.String("contact_id", msg.ID), zap.Error(msg.Err))
		} else {
			m.log.Info("contact deleted", zap.String("contact_id", msg.ID))
		}
		var cmd tea.Cmd
		m.contactList, cmd = m.contactList.Update(msg)
		return m, cmd

	case contactform.SavedMsg:
		m.notice = ""
		return m, m.contactList.LoadContacts()

	case contactform.ClosedMsg:
		m.currentView = ViewList
		return m, m.contactList.LoadContacts()

	case compose.ClosedMsg:
		m.currentView = ViewList
		return m, nil

	case compose.DraftSavedMsg:
		m.currentView = ViewList
		m.notice = "Draft saved to " + msg.Path
		m.log.Info("draft saved", zap.String("path", msg.Path))
		return m, nil

	case config.ConfigSavedMsg:
		return m.applyConfig(msg.Config)

	case config.ConfigDoneMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case importResultMsg:
		if msg.err != nil {
			m.notice = "Import failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("Imported %d contacts from %s", msg.count, msg.path)
		}
		return m, m.contactList.LoadContacts()

	case exportResultMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("Exported %d contacts to %s", msg.count, msg.path)
		}
		return m, nil

	case harvest.HarvestResultMsg:
		return m.handleHarvest(msg)

	case tea.KeyMsg:
		next, cmd, handled := m.handleGlobalKey(msg)
		if handled {
			return next, cmd
		}
		m = next
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey handles keys that work outside the focused view. Views
// that take free text only see ctrl+c here.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}

	typing := m.currentView == ViewForm ||
		m.currentView == ViewCompose ||
		m.currentView == ViewCommand ||
		m.currentView == ViewSettings ||
		(m.currentView == ViewList && m.contactList.Searching())
	if typing {
		if m.currentView == ViewCommand && msg.String() == "esc" {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false
	}

	if m.notice != "" {
		m.notice = ""
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewList {
			return m, m.quit(), true
		}
	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true
	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true
	case "r":
		if m.currentView == ViewList && m.poller != nil {
			m.poller.Refresh()
			m.harvest = "harvesting…"
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m Model) quit() tea.Cmd {
	if m.poller != nil {
		m.poller.Stop()
	}
	return tea.Quit
}

func (m Model) openEditor(s *session.Session) (tea.Model, tea.Cmd) {
	m.form = contactform.New(s, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.previousView = m.currentView
	m.currentView = ViewForm
	m.notice = ""
	return m, m.form.Init()
}

func (m Model) openDetail(c model.Contact) (tea.Model, tea.Cmd) {
	m.detailView = detail.New(m.certs, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.detailView.SetContact(c)
	m.previousView = m.currentView
	m.currentView = ViewDetail
	return m, m.detailView.Init()
}

// composeTo starts a draft to a contact's primary email.
func (m Model) composeTo(c model.Contact) (tea.Model, tea.Cmd) {
	email := c.PrimaryEmail()
	if email == "" {
		m.notice = c.DisplayName() + " has no email address"
		return m, nil
	}
	to := (&mail.Address{Name: c.DisplayName(), Address: email}).String()
	return m.openCompose(to)
}

func (m Model) openCompose(to string) (tea.Model, tea.Cmd) {
	m.composeView = compose.New(m.drafts, m.from, m.suggest, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	if to != "" {
		if err := m.composeView.SetRecipients(to); err != nil {
			m.notice = "Invalid recipients: " + err.Error()
		}
	}
	m.previousView = m.currentView
	m.currentView = ViewCompose
	return m, m.composeView.Init()
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.contactList, cmd = m.contactList.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.configView, cmd = m.configView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Address Book", m.connectivity(), m.harvestStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.notice)
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.contactList.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewForm:
		return m.form.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.configView.View()
	default:
		return ""
	}
}

func (m Model) connectivity() string {
	if m.online.Load() {
		return ""
	}
	return "offline"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "e edit | m compose | j/k scroll | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewForm:
		return "tab next | ctrl+n add | ctrl+d remove | ctrl+l label | ctrl+s save | esc close"
	case ViewCompose:
		return "tab next | ctrl+s save draft | esc cancel"
	case ViewSettings:
		return "tab next | enter confirm | esc cancel"
	default:
		return "q quit | ? help | n new | e edit | d delete | m compose | / search | : command"
	}
}

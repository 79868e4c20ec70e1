package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/credential"
	"github.com/nhle/addressbook/internal/harvest"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/ui/config"
)

// passwordEnv overrides the keyring for the IMAP password.
const passwordEnv = "ADDRESSBOOK_IMAP_PASSWORD"

// newPoller builds the correspondent harvester from the config, loading the
// IMAP password from the environment or the keyring. It returns nil when
// harvesting is disabled or no password is available.
func (m Model) newPoller(vault *credential.Vault) *harvest.Poller {
	cfg := m.cfg.Harvest
	if !cfg.Enabled || cfg.Host == "" || cfg.Username == "" {
		return nil
	}

	password := os.Getenv(passwordEnv)
	if password == "" && vault != nil {
		var err error
		password, err = vault.Get(credential.IMAPKey(cfg))
		if err != nil {
			if errors.Is(err, credential.ErrNotFound) {
				m.log.Warn("harvest disabled: no IMAP password stored",
					zap.String("key", credential.IMAPKey(cfg)),
				)
			} else {
				m.log.Error("harvest disabled: reading keyring", zap.Error(err))
			}
			return nil
		}
	}
	if password == "" {
		m.log.Warn("harvest disabled: no IMAP password")
		return nil
	}

	online := m.online
	return harvest.NewPoller(
		harvest.NewIMAPClient(cfg, password),
		m.store,
		cfg,
		online.Load,
		m.log.Named("harvest"),
	)
}

// handleHarvest records a harvest result and keeps listening. Results from a
// poller that has since been replaced or turned off are dropped; the current
// poller has its own listener.
func (m Model) handleHarvest(msg harvest.HarvestResultMsg) (tea.Model, tea.Cmd) {
	if m.poller == nil || msg.Source != m.poller {
		m.log.Debug("dropping result from stopped harvester", zap.String("mailbox", msg.Mailbox))
		return m, nil
	}
	switch {
	case msg.AuthFailed:
		m.notice = "IMAP login failed; update the stored password and run :harvest"
	case msg.Error != nil:
		m.log.Warn("harvest failed", zap.String("mailbox", msg.Mailbox), zap.Error(msg.Error))
	}
	m.harvest = ""
	return m, m.poller.WaitForNextResult()
}

// harvestStatus returns a short string describing the harvester state.
func (m Model) harvestStatus() string {
	if m.harvest != "" {
		return m.harvest
	}
	if m.poller == nil {
		return ""
	}
	st := m.poller.Status()
	switch st.State {
	case harvest.StateRunning:
		return "harvesting…"
	case harvest.StateError:
		return "⚠ harvest failed"
	case harvest.StateOffline:
		return ""
	}
	if st.LastRun.IsZero() {
		return ""
	}
	return fmt.Sprintf("harvested %s", st.LastRun.Format("15:04"))
}

// validateIMAP tests a login for the settings view.
func validateIMAP(ctx context.Context, cfg model.HarvestConfig, password string) error {
	return harvest.NewIMAPClient(cfg, password).Validate(ctx)
}

func (m Model) openSettings() (tea.Model, tea.Cmd) {
	m.configView = config.New(m.cfg, m.configPath, m.vault, validateIMAP,
		m.layout.ContentWidth(), m.layout.ContentHeight())
	cmd := m.configView.Init()
	m.previousView = m.currentView
	m.currentView = ViewSettings
	return m, cmd
}

// applyConfig switches to a saved configuration and restarts the harvester
// with it.
func (m Model) applyConfig(cfg *model.AppConfig) (tea.Model, tea.Cmd) {
	if m.poller != nil {
		m.poller.Stop()
	}
	m.cfg = cfg
	m.from = draftSender(cfg, m.log)
	m.poller = m.newPoller(m.vault)
	m.currentView = ViewList
	m.notice = "Settings saved"
	m.log.Info("settings saved", zap.Bool("harvest", cfg.Harvest.Enabled))
	if m.poller == nil {
		return m, nil
	}
	return m, m.poller.Start()
}

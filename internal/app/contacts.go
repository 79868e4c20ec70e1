package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/contact/editor"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
	"github.com/nhle/addressbook/internal/ui/command"
	"github.com/nhle/addressbook/internal/vcf"
)

// suggestLimit caps recipient suggestions per lookup.
const suggestLimit = 8

// importResultMsg is sent after a vCard file was read into the store.
type importResultMsg struct {
	path  string
	count int
	err   error
}

// exportResultMsg is sent after contacts were written to a vCard file.
type exportResultMsg struct {
	path  string
	count int
	err   error
}

// suggest feeds recipient fields from contacts and harvested correspondents.
func (m Model) suggest(prefix string) ([]model.Suggestion, error) {
	return m.store.SuggestAddresses(context.Background(), prefix, suggestLimit)
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(cmd command.CommandMsg) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case command.Import:
		return m, importContacts(m.store, m.log, expandHome(cmd.Arg))
	case command.Export:
		return m, exportContacts(m.store, m.log, expandHome(cmd.Arg))
	case command.Harvest:
		if m.poller == nil {
			m.notice = "Harvesting is not configured"
			return m, nil
		}
		m.poller.Refresh()
		m.harvest = "harvesting…"
		return m, nil
	case command.Offline:
		m.online.Store(false)
		m.log.Info("switched offline")
		return m, nil
	case command.Online:
		m.online.Store(true)
		m.log.Info("switched online")
		if m.poller != nil {
			m.poller.Refresh()
		}
		return m, nil
	case command.NewContact:
		return m, func() tea.Msg { return contactNewMsg{} }
	case command.Compose:
		return m.openCompose(cmd.Arg)
	case command.Settings:
		return m.openSettings()
	case command.Quit:
		return m, m.quit()
	}
	return m, nil
}

// contactNewMsg opens an empty editor from the palette.
type contactNewMsg struct{}

// importContacts reads a vCard file and creates one contact per card.
// Cards that normalize to nothing are skipped.
func importContacts(s store.Store, log *zap.Logger, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{path: path, err: err}
		}
		defer f.Close()

		cards, err := vcf.Decode(f)
		if err != nil {
			return importResultMsg{path: path, err: err}
		}

		ctx := context.Background()
		count := 0
		for _, attrs := range cards {
			if len(attrs) == 0 {
				continue
			}
			if res := editor.Validate(attrs, nil); !res.Valid {
				log.Warn("importing card with validation issues",
					zap.String("path", path),
					zap.Strings("messages", res.Messages),
				)
			}
			if _, err := s.CreateContact(ctx, attrs); err != nil {
				return importResultMsg{path: path, count: count, err: fmt.Errorf("creating contact: %w", err)}
			}
			count++
		}
		log.Info("vcard import finished", zap.String("path", path), zap.Int("contacts", count))
		return importResultMsg{path: path, count: count}
	}
}

// exportContacts writes every contact to a vCard file.
func exportContacts(s store.Store, log *zap.Logger, path string) tea.Cmd {
	return func() tea.Msg {
		contacts, err := s.ListContacts(context.Background(), model.ContactFilter{})
		if err != nil {
			return exportResultMsg{path: path, err: err}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return exportResultMsg{path: path, err: err}
		}
		f, err := os.Create(path)
		if err != nil {
			return exportResultMsg{path: path, err: err}
		}
		if err := vcf.Encode(f, contacts); err != nil {
			f.Close()
			return exportResultMsg{path: path, err: err}
		}
		if err := f.Close(); err != nil {
			return exportResultMsg{path: path, err: err}
		}
		log.Info("vcard export finished", zap.String("path", path), zap.Int("contacts", len(contacts)))
		return exportResultMsg{path: path, count: len(contacts)}
	}
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

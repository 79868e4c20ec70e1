// Command addressbook is a terminal address book: contacts in SQLite, a
// correspondent harvester over IMAP and a draft composer.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/addressbook/internal/app"
	"github.com/nhle/addressbook/internal/credential"
	"github.com/nhle/addressbook/internal/logger"
	"github.com/nhle/addressbook/internal/model"
	"github.com/nhle/addressbook/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "addressbook:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	setPassword := flag.Bool("set-imap-password", false, "read the IMAP password from stdin and store it in the keyring")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Sync()

	vault, err := credential.Open()
	if err != nil {
		log.Warn("keyring unavailable", zap.Error(err))
		vault = nil
	}

	if *setPassword {
		return storePassword(vault, cfg.Harvest)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info("starting", zap.String("config", *configPath), zap.String("database", cfg.Database.Path))

	p := tea.NewProgram(app.New(app.Options{
		Store:      s,
		Config:     cfg,
		ConfigPath: *configPath,
		Logger:     log,
		Vault:      vault,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func storePassword(vault *credential.Vault, cfg model.HarvestConfig) error {
	if vault == nil {
		return fmt.Errorf("no keyring available")
	}
	if cfg.Host == "" || cfg.Username == "" {
		return fmt.Errorf("harvest.host and harvest.username must be set first")
	}

	fmt.Fprintf(os.Stderr, "IMAP password for %s@%s: ", cfg.Username, cfg.Host)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}
	return vault.Set(credential.IMAPKey(cfg), password)
}

package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite contacts database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the file logger. The terminal belongs to the UI, so
// logs always go to a file.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format" yaml:"format"`

	File string `mapstructure:"file" yaml:"file"`
}

// HarvestConfig holds the IMAP account correspondents are harvested from.
type HarvestConfig struct {
	// Enabled controls whether the harvester is actively polled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// Mailboxes lists the folders whose headers are scanned.
	Mailboxes []string `mapstructure:"mailboxes" yaml:"mailboxes"`

	// MaxMessages caps how many recent messages per mailbox are read.
	MaxMessages int `mapstructure:"max_messages" yaml:"max_messages"`

	// PollIntervalSec is how often (in seconds) to harvest.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DraftsConfig holds where composed drafts are written.
type DraftsConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	From string `mapstructure:"from" yaml:"from"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Harvest  HarvestConfig  `mapstructure:"harvest" yaml:"harvest"`
	Drafts   DraftsConfig   `mapstructure:"drafts" yaml:"drafts"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`

	// Offline starts the session offline; saves are refused until toggled.
	Offline bool `mapstructure:"offline" yaml:"offline"`
}

// ConfigDir returns ~/.config/addressbook, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "addressbook")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/addressbook/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Database: DatabaseConfig{Path: filepath.Join(dir, "contacts.db")},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dir, "addressbook.log"),
		},
		Harvest: HarvestConfig{
			Port:            993,
			TLS:             true,
			Mailboxes:       []string{"INBOX", "Sent"},
			MaxMessages:     200,
			PollIntervalSec: 600,
		},
		Drafts:  DraftsConfig{Dir: filepath.Join(dir, "drafts")},
		Display: DisplayConfig{Theme: "default"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("harvest.port", def.Harvest.Port)
	v.SetDefault("harvest.tls", def.Harvest.TLS)
	v.SetDefault("harvest.mailboxes", def.Harvest.Mailboxes)
	v.SetDefault("harvest.max_messages", def.Harvest.MaxMessages)
	v.SetDefault("harvest.poll_interval_sec", def.Harvest.PollIntervalSec)
	v.SetDefault("drafts.dir", def.Drafts.Dir)
	v.SetDefault("display.theme", def.Display.Theme)

	v.SetEnvPrefix("ADDRESSBOOK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Harvest.PollIntervalSec <= 0 {
		cfg.Harvest.PollIntervalSec = def.Harvest.PollIntervalSec
	}
	if cfg.Harvest.MaxMessages <= 0 {
		cfg.Harvest.MaxMessages = def.Harvest.MaxMessages
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("log", cfg.Log)
	v.Set("harvest", cfg.Harvest)
	v.Set("drafts", cfg.Drafts)
	v.Set("display", cfg.Display)
	v.Set("offline", cfg.Offline)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

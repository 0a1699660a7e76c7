package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joshsymonds/mailsearch/internal/search"
)

// Provider selects the mail backend.
type Provider string

const (
	ProviderGraph Provider = "graph"
	ProviderGmail Provider = "gmail"
)

// GmailAuth selects where Gmail credentials come from.
type GmailAuth string

const (
	// GmailAuthGmailctl reuses a gmailctl configuration directory
	// (credentials.json and token.json).
	GmailAuthGmailctl GmailAuth = "gmailctl"
	// GmailAuthKeyring keeps the token in the OS keyring.
	GmailAuthKeyring GmailAuth = "keyring"
)

const envPrefix = "MAILSEARCH"

// GraphConfig configures the Microsoft Graph backend.
type GraphConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// GmailConfig configures the Gmail backend.
type GmailConfig struct {
	Auth           GmailAuth `mapstructure:"auth"`
	CredentialsDir string    `mapstructure:"gmailctl_dir"`
	ClientID       string    `mapstructure:"client_id"`
	ClientSecret   string    `mapstructure:"client_secret"`
	Endpoint       string    `mapstructure:"endpoint"`
}

// SearchConfig holds the values the query builders read.
type SearchConfig struct {
	SelectFields []string `mapstructure:"select_fields"`
	MaxPageSize  int      `mapstructure:"max_page_size"`
	Timezone     string   `mapstructure:"timezone"`
}

// RateConfig bounds outbound requests per second; zero disables limiting.
type RateConfig struct {
	RPS int `mapstructure:"rps"`
}

// KeyringConfig locates the stored OAuth2 token.
type KeyringConfig struct {
	Service string `mapstructure:"service"`
	Key     string `mapstructure:"key"`
	FileDir string `mapstructure:"file_dir"`
}

// Config is the top-level configuration.
type Config struct {
	Provider Provider      `mapstructure:"provider"`
	Graph    GraphConfig   `mapstructure:"graph"`
	Gmail    GmailConfig   `mapstructure:"gmail"`
	Search   SearchConfig  `mapstructure:"search"`
	Rate     RateConfig    `mapstructure:"rate"`
	Keyring  KeyringConfig `mapstructure:"keyring"`
}

// DefaultPath returns ~/.config/mailsearch/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailsearch", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderGraph))
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.tenant_id", "common")
	v.SetDefault("graph.client_id", "")
	v.SetDefault("graph.client_secret", "")
	v.SetDefault("gmail.auth", string(GmailAuthGmailctl))
	v.SetDefault("gmail.gmailctl_dir", "~/.gmailctl")
	v.SetDefault("gmail.client_id", "")
	v.SetDefault("gmail.client_secret", "")
	v.SetDefault("gmail.endpoint", "")
	v.SetDefault("search.timezone", "")
	v.SetDefault("search.select_fields", search.DefaultSelectFields())
	v.SetDefault("search.max_page_size", search.DefaultMaxPageSize)
	v.SetDefault("rate.rps", 4)
	v.SetDefault("keyring.service", "mailsearch")
	v.SetDefault("keyring.key", "oauth-token")
	v.SetDefault("keyring.file_dir", "~/.config/mailsearch/credentials")
}

// Load reads path, falling back to defaults when the file does not exist.
// MAILSEARCH_* environment variables override file values, e.g.
// MAILSEARCH_GRAPH_CLIENT_ID.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGraph, ProviderGmail:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Provider == ProviderGmail {
		switch c.Gmail.Auth {
		case GmailAuthGmailctl, GmailAuthKeyring:
		default:
			return fmt.Errorf("unknown gmail.auth %q", c.Gmail.Auth)
		}
	}
	if c.Search.MaxPageSize <= 0 {
		return fmt.Errorf("search.max_page_size must be positive, got %d", c.Search.MaxPageSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Rate.RPS < 0 {
		return fmt.Errorf("rate.rps must not be negative, got %d", c.Rate.RPS)
	}
	return nil
}

// SearchSettings returns the builder settings.
func (c *Config) SearchSettings() search.Settings {
	return search.Settings{
		SelectFields: append([]string(nil), c.Search.SelectFields...),
		MaxPageSize:  c.Search.MaxPageSize,
	}
}

// Location resolves search.timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Search.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Search.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Search.Timezone, err)
	}
	return loc, nil
}

// GmailctlDir returns gmail.gmailctl_dir with a leading "~" expanded.
func (c *Config) GmailctlDir() string {
	dir := c.Gmail.CredentialsDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

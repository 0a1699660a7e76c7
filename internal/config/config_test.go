package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/joshsymonds/mailsearch/internal/search"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderGraph {
		t.Fatalf("provider %q", cfg.Provider)
	}
	if cfg.Graph.BaseURL != "https://graph.microsoft.com/v1.0" {
		t.Fatalf("graph base url %q", cfg.Graph.BaseURL)
	}
	if cfg.Search.MaxPageSize != search.DefaultMaxPageSize {
		t.Fatalf("max page size %d", cfg.Search.MaxPageSize)
	}
	if !reflect.DeepEqual(cfg.Search.SelectFields, search.DefaultSelectFields()) {
		t.Fatalf("select fields %v", cfg.Search.SelectFields)
	}
	if cfg.Rate.RPS != 4 {
		t.Fatalf("rps %d", cfg.Rate.RPS)
	}
	if cfg.Keyring.Service != "mailsearch" {
		t.Fatalf("keyring service %q", cfg.Keyring.Service)
	}
	if cfg.Gmail.Auth != GmailAuthGmailctl {
		t.Fatalf("gmail auth %q", cfg.Gmail.Auth)
	}
}

func TestLoadUnreadableFileFails(t *testing.T) {
	// a directory exists but cannot be read as a file
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatalf("expected error reading a directory as config")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `provider: gmail
gmail:
  auth: keyring
  client_id: abc
search:
  select_fields: [id, subject]
  max_page_size: 20
  timezone: UTC
rate:
  rps: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != ProviderGmail || cfg.Gmail.Auth != GmailAuthKeyring {
		t.Fatalf("provider %q auth %q", cfg.Provider, cfg.Gmail.Auth)
	}
	if cfg.Gmail.ClientID != "abc" {
		t.Fatalf("client id %q", cfg.Gmail.ClientID)
	}
	if cfg.Rate.RPS != 0 {
		t.Fatalf("rps %d", cfg.Rate.RPS)
	}

	settings := cfg.SearchSettings()
	if !reflect.DeepEqual(settings.SelectFields, []string{"id", "subject"}) || settings.MaxPageSize != 20 {
		t.Fatalf("unexpected settings %+v", settings)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "UTC" {
		t.Fatalf("location %q", loc)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAILSEARCH_GRAPH_CLIENT_ID", "from-env")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.ClientID != "from-env" {
		t.Fatalf("client id %q", cfg.Graph.ClientID)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "provider", body: "provider: imap\n", want: "unknown provider"},
		{name: "gmail-auth", body: "provider: gmail\ngmail:\n  auth: netrc\n", want: "unknown gmail.auth"},
		{name: "page-size", body: "search:\n  max_page_size: 0\n", want: "max_page_size"},
		{name: "timezone", body: "search:\n  timezone: Mars/Olympus\n", want: "load timezone"},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestGmailctlDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &Config{Gmail: GmailConfig{CredentialsDir: "~/.gmailctl"}}
	if got, want := cfg.GmailctlDir(), filepath.Join(home, ".gmailctl"); got != want {
		t.Fatalf("GmailctlDir() = %q, want %q", got, want)
	}

	cfg.Gmail.CredentialsDir = "/etc/gmailctl"
	if got := cfg.GmailctlDir(); got != "/etc/gmailctl" {
		t.Fatalf("absolute dir rewritten to %q", got)
	}
}

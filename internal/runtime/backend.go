// Package runtime wires configuration into concrete collaborators.
package runtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joshsymonds/mailsearch/internal/auth"
	"github.com/joshsymonds/mailsearch/internal/config"
	"github.com/joshsymonds/mailsearch/internal/gmail"
	"github.com/joshsymonds/mailsearch/internal/graph"
	"github.com/joshsymonds/mailsearch/internal/mailbox"
	"github.com/joshsymonds/mailsearch/internal/rate"
)

const httpTimeout = 60 * time.Second

// Backend bundles the provider-specific collaborators. Credentials is set
// only when the backend authorizes itself.
type Backend struct {
	Fetcher     mailbox.Fetcher
	Folders     mailbox.FolderResolver
	Credentials mailbox.CredentialProvider
}

// NewBackend builds the fetcher and folder resolver for cfg.Provider.
func NewBackend(cfg *config.Config, limiter rate.Limiter, logger *slog.Logger) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderGraph:
		client := graph.NewClient(cfg.Graph.BaseURL, &http.Client{Timeout: httpTimeout}, limiter, logger)
		return Backend{Fetcher: client, Folders: client}, nil
	case config.ProviderGmail:
		if cfg.Gmail.Auth == config.GmailAuthGmailctl {
			creds := gmail.NewLocalCredentials(cfg.GmailctlDir())
			client := gmail.NewClient(creds.Service, limiter, logger)
			return Backend{Fetcher: client, Folders: client, Credentials: creds}, nil
		}
		client := gmail.NewClient(gmail.TokenServiceFactory(cfg.Gmail.Endpoint), limiter, logger)
		return Backend{Fetcher: client, Folders: client}, nil
	default:
		return Backend{}, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewCredentials returns the backend's own credentials when it has them and
// the keyring-backed provider otherwise.
func NewCredentials(cfg *config.Config, backend Backend, logger *slog.Logger) (mailbox.CredentialProvider, error) {
	if backend.Credentials != nil {
		return backend.Credentials, nil
	}
	store, err := auth.OpenKeyringStore(cfg.Keyring)
	if err != nil {
		return nil, err
	}
	return auth.NewProvider(store, auth.OAuthConfig(cfg), logger), nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/joshsymonds/mailsearch/internal/config"
	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

// ErrAuthenticationRequired means there is no usable session; the user has
// to sign in again.
var ErrAuthenticationRequired = errors.New("authentication required")

// Provider hands out access tokens from a TokenStore, refreshing them with
// OAuth when they expire.
type Provider struct {
	Store  TokenStore
	OAuth  *oauth2.Config
	Logger *slog.Logger
}

// NewProvider constructs a Provider. oauth may be nil, in which case stored
// tokens are used until they expire.
func NewProvider(store TokenStore, oauth *oauth2.Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Provider{Store: store, OAuth: oauth, Logger: logger}
}

// Acquire returns a valid access token.
func (p *Provider) Acquire(ctx context.Context) (string, error) {
	tok, err := p.Store.Load()
	if errors.Is(err, ErrNoToken) {
		return "", ErrAuthenticationRequired
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if tok.Valid() {
		return tok.AccessToken, nil
	}
	if p.OAuth == nil || tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: token expired", ErrAuthenticationRequired)
	}

	fresh, err := p.OAuth.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh token: %v", ErrAuthenticationRequired, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if err := p.Store.Save(fresh); err != nil {
		p.Logger.WarnContext(ctx, "could not persist refreshed token", "error", err)
	}
	p.Logger.DebugContext(ctx, "refreshed access token", "expiry", fresh.Expiry)
	return fresh.AccessToken, nil
}

// OAuthConfig returns the refresh configuration for the selected provider,
// or nil when no client id is configured.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	switch cfg.Provider {
	case config.ProviderGmail:
		if cfg.Gmail.ClientID == "" {
			return nil
		}
		return &oauth2.Config{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		}
	default:
		if cfg.Graph.ClientID == "" {
			return nil
		}
		return &oauth2.Config{
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(cfg.Graph.TenantID),
			Scopes:       []string{"offline_access", "Mail.Read"},
		}
	}
}

var _ mailbox.CredentialProvider = (*Provider)(nil)

package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/mailsearch/internal/auth"
	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

const (
	credentialsFile = "credentials.json"
	tokenFile       = "token.json"

	// localToken stands in for the bearer token; the service returned by
	// LocalCredentials.Service carries its own refreshing token source.
	localToken = "gmailctl"
)

// LocalCredentials authorizes Gmail from a gmailctl configuration directory
// holding credentials.json and token.json. The service is opened once and
// reused for every call.
type LocalCredentials struct {
	Dir  string
	Open func(ctx context.Context, dir string) (*gmailapi.Service, error)

	mu  sync.Mutex
	svc *gmailapi.Service
}

// NewLocalCredentials loads services from dir with gmailctl's local provider.
func NewLocalCredentials(dir string) *LocalCredentials {
	return &LocalCredentials{Dir: dir, Open: localcred.Provider{}.Service}
}

// Acquire opens the service. Missing or unreadable files mean the user has
// not signed in.
func (l *LocalCredentials) Acquire(ctx context.Context) (string, error) {
	if _, err := l.Service(ctx, localToken); err != nil {
		return "", fmt.Errorf("%w: %v", auth.ErrAuthenticationRequired, err)
	}
	return localToken, nil
}

// Service is a ServiceFactory; the token argument is ignored.
func (l *LocalCredentials) Service(ctx context.Context, _ string) (*gmailapi.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.svc != nil {
		return l.svc, nil
	}
	svc, err := l.Open(ctx, l.Dir)
	if err != nil {
		return nil, fmt.Errorf("open gmailctl credentials in %s: %w", l.Dir, err)
	}
	l.svc = svc
	return svc, nil
}

// LocalOAuthConfig reads the OAuth client from credentials.json in dir and
// requests read-only mail access.
func LocalOAuthConfig(dir string) (*oauth2.Config, error) {
	path := filepath.Join(dir, credentialsFile)
	data, err := os.ReadFile(path) // #nosec G304 - configured credentials dir
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	oc, err := google.ConfigFromJSON(data, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return oc, nil
}

// SaveLocalToken writes tok as token.json in dir, where the gmailctl loader
// reads it.
func SaveLocalToken(dir string, tok *oauth2.Token) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	path := filepath.Join(dir, tokenFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var _ mailbox.CredentialProvider = (*LocalCredentials)(nil)

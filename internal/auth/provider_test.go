package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"github.com/joshsymonds/mailsearch/internal/config"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryStore struct {
	mu    sync.Mutex
	tok   *oauth2.Token
	saves int
}

func (m *memoryStore) Load() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, ErrNoToken
	}
	cp := *m.tok
	return &cp, nil
}

func (m *memoryStore) Save(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tok
	m.tok = &cp
	m.saves++
	return nil
}

func tokenServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuth(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestAcquireWithoutTokenRequiresAuthentication(t *testing.T) {
	p := NewProvider(&memoryStore{}, nil, slogDiscard())

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestAcquireValidToken(t *testing.T) {
	store := &memoryStore{tok: &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}}
	p := NewProvider(store, nil, slogDiscard())

	tok, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok != "abc" {
		t.Fatalf("token %q", tok)
	}
	if store.saves != 0 {
		t.Fatalf("valid token should not be rewritten")
	}
}

func TestAcquireExpiredWithoutRefresh(t *testing.T) {
	store := &memoryStore{tok: &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}}
	p := NewProvider(store, &oauth2.Config{}, slogDiscard())

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestAcquireRefreshesAndPersists(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	store := &memoryStore{tok: &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "refresh-me",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	p := NewProvider(store, testOAuth(srv.URL), slogDiscard())

	tok, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("token %q", tok)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.AccessToken != "fresh" || saved.RefreshToken != "refresh-me" {
		t.Fatalf("unexpected saved token %+v", saved)
	}
}

func TestAcquireRefreshFailureRequiresAuthentication(t *testing.T) {
	srv := tokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	store := &memoryStore{tok: &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}}

	_, err := NewProvider(store, testOAuth(srv.URL), slogDiscard()).Acquire(context.Background())
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestKeyringStoreRoundTrip(t *testing.T) {
	store := NewKeyringStore(keyring.NewArrayKeyring(nil), "token")

	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if err := store.Save(&oauth2.Token{AccessToken: "abc", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tok, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok.AccessToken != "abc" || tok.RefreshToken != "r" {
		t.Fatalf("unexpected token %+v", tok)
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderGraph}
	if oc := OAuthConfig(cfg); oc != nil {
		t.Fatalf("expected nil config without client id")
	}

	cfg.Graph = config.GraphConfig{ClientID: "graph-client", TenantID: "common"}
	oc := OAuthConfig(cfg)
	if oc == nil || oc.ClientID != "graph-client" {
		t.Fatalf("unexpected graph config %+v", oc)
	}
	if !strings.Contains(oc.Endpoint.TokenURL, "login.microsoftonline.com/common") {
		t.Fatalf("token url %q", oc.Endpoint.TokenURL)
	}
	if oc.Endpoint.DeviceAuthURL == "" {
		t.Fatalf("graph endpoint needs a device authorization url")
	}

	cfg = &config.Config{Provider: config.ProviderGmail, Gmail: config.GmailConfig{ClientID: "g"}}
	oc = OAuthConfig(cfg)
	if oc == nil || oc.ClientID != "g" {
		t.Fatalf("unexpected gmail config %+v", oc)
	}
}

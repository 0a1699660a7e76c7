package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/oauth2"

	"github.com/joshsymonds/mailsearch/internal/auth"
	"github.com/joshsymonds/mailsearch/internal/config"
	"github.com/joshsymonds/mailsearch/internal/gmail"
	"github.com/joshsymonds/mailsearch/internal/runtime"
)

type tokenConfig struct {
	cfgPath   string
	tokenPath string
	login     bool
}

func main() {
	cfg := parseTokenFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailsearch-token failed", "error", err)
		os.Exit(1)
	}
}

func parseTokenFlags() tokenConfig {
	cfgPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	tokenPath := flag.String("token", "-", "OAuth2 token JSON file ('-' for stdin)")
	login := flag.Bool("login", false, "sign in interactively instead of importing a token")
	flag.Parse()

	return tokenConfig{cfgPath: *cfgPath, tokenPath: *tokenPath, login: *login}
}

func run(cfg tokenConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := runtime.DefaultLogger()
	appCfg, err := config.Load(cfg.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.login {
		return login(ctx, appCfg, logger)
	}

	tok, err := readToken(cfg.tokenPath)
	if err != nil {
		return err
	}
	return storeToken(appCfg, tok, logger)
}

// login signs in with the flow the configured provider supports: device code
// for Graph, a loopback redirect for Gmail.
func login(ctx context.Context, appCfg *config.Config, logger *slog.Logger) error {
	if appCfg.Provider == config.ProviderGmail && appCfg.Gmail.Auth == config.GmailAuthGmailctl {
		return loginGmailctl(ctx, appCfg.GmailctlDir(), logger)
	}

	oc := auth.OAuthConfig(appCfg)
	if oc == nil {
		return fmt.Errorf("%s.client_id is not configured", appCfg.Provider)
	}
	var (
		tok *oauth2.Token
		err error
	)
	if appCfg.Provider == config.ProviderGraph {
		tok, err = auth.DeviceSignIn(ctx, oc, os.Stderr)
	} else {
		tok, err = auth.LoopbackSignIn(ctx, oc, printAuthURL)
	}
	if err != nil {
		return err
	}
	return storeToken(appCfg, tok, logger)
}

func loginGmailctl(ctx context.Context, dir string, logger *slog.Logger) error {
	oc, err := gmail.LocalOAuthConfig(dir)
	if err != nil {
		return fmt.Errorf("gmailctl credentials: %w", err)
	}
	tok, err := auth.LoopbackSignIn(ctx, oc, printAuthURL)
	if err != nil {
		return err
	}
	if err := gmail.SaveLocalToken(dir, tok); err != nil {
		return err
	}
	if _, err := gmail.NewLocalCredentials(dir).Acquire(ctx); err != nil {
		return fmt.Errorf("verify saved token: %w", err)
	}
	logger.Info("token stored", "dir", dir, "expiry", tok.Expiry)
	return nil
}

func printAuthURL(authURL string) {
	_, _ = fmt.Fprintf(os.Stderr, "Open this URL in your browser to sign in:\n\n%s\n\n", authURL)
}

func storeToken(appCfg *config.Config, tok *oauth2.Token, logger *slog.Logger) error {
	store, err := auth.OpenKeyringStore(appCfg.Keyring)
	if err != nil {
		return fmt.Errorf("open keyring: %w", err)
	}
	if err := store.Save(tok); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	logger.Info("token stored", "service", appCfg.Keyring.Service, "key", appCfg.Keyring.Key, "expiry", tok.Expiry)
	return nil
}

func readToken(path string) (*oauth2.Token, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) // #nosec G304 - path supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("open token: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return decodeToken(r)
}

func decodeToken(r io.Reader) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.NewDecoder(r).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token has neither access_token nor refresh_token")
	}
	return &tok, nil
}

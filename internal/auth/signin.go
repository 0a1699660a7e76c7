package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DeviceSignIn runs the OAuth2 device authorization grant. The verification
// instructions are written to out.
func DeviceSignIn(ctx context.Context, oc *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	if oc == nil {
		return nil, errors.New("no OAuth client configured")
	}
	da, err := oc.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("start device sign-in: %w", err)
	}
	if _, err := fmt.Fprintf(out, "To sign in, open %s and enter the code %s\n", da.VerificationURI, da.UserCode); err != nil {
		return nil, fmt.Errorf("write sign-in prompt: %w", err)
	}
	tok, err := oc.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("complete device sign-in: %w", err)
	}
	return tok, nil
}

type callback struct {
	code string
	err  error
}

// LoopbackSignIn runs the authorization code grant with PKCE. The code is
// received on a temporary redirect server bound to 127.0.0.1; visit is
// handed the consent URL.
func LoopbackSignIn(ctx context.Context, oc *oauth2.Config, visit func(authURL string)) (*oauth2.Token, error) {
	if oc == nil {
		return nil, errors.New("no OAuth client configured")
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start redirect listener: %w", err)
	}

	cfg := *oc
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callback, 1)
	srv := &http.Server{
		Handler:           redirectHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()

	visit(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for sign-in: %w", ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return tok, nil
	}
}

func redirectHandler(state string, results chan<- callback) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		var res callback
		switch {
		case q.Get("state") != state:
			res.err = errors.New("sign-in state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("sign-in denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("sign-in returned no authorization code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = io.WriteString(w, "Signed in. You can close this window.\n")
		}
		select {
		case results <- res:
		default:
		}
	})
}

package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joshsymonds/mailsearch/internal/auth"
	"github.com/joshsymonds/mailsearch/internal/mailbox"
	"github.com/joshsymonds/mailsearch/internal/search"
)

// AuthRequiredText is returned when no usable session exists.
const AuthRequiredText = "Authentication required. Please use the 'authenticate' tool first."

const errorPrefix = "Error searching emails: "

const (
	defaultFolder = "inbox"
	defaultCount  = 10
)

// Input is the search request as received from a caller. Zero values take
// the documented defaults in Normalize.
type Input struct {
	Folder         string `json:"folder,omitempty"`
	Count          int    `json:"count,omitempty"`
	Query          string `json:"query,omitempty"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	Subject        string `json:"subject,omitempty"`
	HasAttachments *bool  `json:"hasAttachments,omitempty"`
	UnreadOnly     *bool  `json:"unreadOnly,omitempty"`
}

// Normalize applies defaults: folder "inbox", count 10.
func (in Input) Normalize() Input {
	if in.Folder == "" {
		in.Folder = defaultFolder
	}
	if in.Count <= 0 {
		in.Count = defaultCount
	}
	return in
}

// Content is one payload item of a Response.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the envelope every call resolves to.
type Response struct {
	Content []Content `json:"content"`
}

// TextResponse wraps text in a Response.
func TextResponse(text string) Response {
	return Response{Content: []Content{{Type: "text", Text: text}}}
}

// Text returns the concatenated text payload.
func (r Response) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// Handler serves search requests end to end.
type Handler struct {
	Credentials mailbox.CredentialProvider
	Folders     mailbox.FolderResolver
	Searcher    *search.Searcher
	Location    *time.Location
	Logger      *slog.Logger
}

// NewHandler constructs a Handler with sane defaults.
func NewHandler(
	creds mailbox.CredentialProvider,
	folders mailbox.FolderResolver,
	searcher *search.Searcher,
	loc *time.Location,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		Credentials: creds,
		Folders:     folders,
		Searcher:    searcher,
		Location:    loc,
		Logger:      logger,
	}
}

// Handle runs one search. It never returns an error; failures are reported
// as text in the Response.
func (h *Handler) Handle(ctx context.Context, in Input) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = h.fail(ctx, fmt.Errorf("panic: %v", r))
		}
	}()
	in = in.Normalize()

	token, err := h.Credentials.Acquire(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationRequired) {
			h.Logger.InfoContext(ctx, "search requested without a session")
			return TextResponse(AuthRequiredText)
		}
		return h.fail(ctx, err)
	}

	endpoint, err := h.Folders.Resolve(ctx, token, in.Folder)
	if err != nil {
		return h.fail(ctx, err)
	}

	req := search.Request{
		Endpoint: endpoint,
		Count:    in.Count,
		Terms: search.Terms{
			Query:   in.Query,
			From:    in.From,
			To:      in.To,
			Subject: in.Subject,
		},
		Filters: search.Filters{
			HasAttachments: in.HasAttachments,
			UnreadOnly:     in.UnreadOnly,
		},
	}
	h.Logger.InfoContext(ctx, "searching emails", "folder", in.Folder, "endpoint", endpoint, "count", in.Count)

	out, err := h.Searcher.Search(ctx, token, req)
	if err != nil {
		return h.fail(ctx, err)
	}
	h.Logger.InfoContext(ctx, "search complete", "strategy", out.Strategy, "reason", out.Reason, "items", len(out.Items))
	return TextResponse(search.Format(out, h.Location))
}

func (h *Handler) fail(ctx context.Context, err error) Response {
	h.Logger.ErrorContext(ctx, "search failed", "error", err)
	return TextResponse(errorPrefix + err.Error())
}

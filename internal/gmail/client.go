// Package gmail implements the mailbox collaborators on the Gmail API.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
	"github.com/joshsymonds/mailsearch/internal/rate"
)

const (
	labelUnread = "UNREAD"
	labelInbox  = "INBOX"
)

var metadataHeaders = []string{"From", "Subject"}

// ServiceFactory builds a Gmail service authorized with token.
type ServiceFactory func(ctx context.Context, token string) (*gmailapi.Service, error)

// TokenServiceFactory authorizes each service with a static bearer token.
// A non-empty endpoint overrides the API root.
func TokenServiceFactory(endpoint string) ServiceFactory {
	return func(ctx context.Context, token string) (*gmailapi.Service, error) {
		opts := []option.ClientOption{
			option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
		}
		if endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		svc, err := gmailapi.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		return svc, nil
	}
}

// Client adapts the Gmail API to the mailbox interfaces. Endpoints are
// label ids; an empty endpoint searches all mail.
type Client struct {
	NewService ServiceFactory
	Limiter    rate.Limiter
	Logger     *slog.Logger
}

// NewClient constructs a Client with sane defaults.
func NewClient(factory ServiceFactory, limiter rate.Limiter, logger *slog.Logger) *Client {
	if factory == nil {
		factory = TokenServiceFactory("")
	}
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Client{NewService: factory, Limiter: limiter, Logger: logger}
}

// Fetch lists messages matching params under the endpoint label and pulls
// metadata for each, following page tokens until maxItems are collected.
func (c *Client) Fetch(
	ctx context.Context,
	token string,
	method string,
	endpoint string,
	params mailbox.Params,
	maxItems int,
) (mailbox.Result, error) {
	if method != mailbox.MethodGet {
		return mailbox.Result{}, fmt.Errorf("unsupported method %q", method)
	}
	q, err := Translate(params)
	if err != nil {
		return mailbox.Result{}, err
	}
	svc, err := c.NewService(ctx, token)
	if err != nil {
		return mailbox.Result{}, err
	}

	var (
		res       mailbox.Result
		pageToken string
	)
	for {
		ids, next, err := c.list(ctx, svc, q, endpoint, pageToken)
		if err != nil {
			return mailbox.Result{}, err
		}
		res.Pages++
		for _, id := range ids {
			if maxItems > 0 && len(res.Items) >= maxItems {
				break
			}
			item, err := c.metadata(ctx, svc, id)
			if err != nil {
				return mailbox.Result{}, err
			}
			res.Items = append(res.Items, item)
		}
		if next == "" || maxItems <= 0 || len(res.Items) >= maxItems {
			break
		}
		pageToken = next
	}
	c.Logger.DebugContext(ctx, "gmail fetch complete", "query", q.Raw, "label", endpoint, "pages", res.Pages, "items", len(res.Items))
	return res, nil
}

func (c *Client) list(
	ctx context.Context,
	svc *gmailapi.Service,
	q Query,
	label string,
	pageToken string,
) ([]string, string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	call := svc.Users.Messages.List("me").MaxResults(q.PageSize)
	if q.Raw != "" {
		call = call.Q(q.Raw)
	}
	if label != "" {
		call = call.LabelIds(label)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, resp.NextPageToken, nil
}

func (c *Client) metadata(ctx context.Context, svc *gmailapi.Service, id string) (mailbox.EmailSummary, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return mailbox.EmailSummary{}, err
	}
	msg, err := svc.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return mailbox.EmailSummary{}, fmt.Errorf("get metadata %s: %w", id, err)
	}
	return toSummary(msg), nil
}

func toSummary(msg *gmailapi.Message) mailbox.EmailSummary {
	h := map[string]string{}
	mimeType := ""
	if msg.Payload != nil {
		mimeType = msg.Payload.MimeType
		for _, hd := range msg.Payload.Headers {
			h[hd.Name] = hd.Value
		}
	}
	summary := mailbox.EmailSummary{
		ID:             msg.Id,
		Subject:        h["Subject"],
		From:           parseSender(h["From"]),
		IsRead:         !hasLabel(msg.LabelIds, labelUnread),
		HasAttachments: mimeType == "multipart/mixed",
		BodyPreview:    msg.Snippet,
	}
	if msg.InternalDate > 0 {
		summary.ReceivedDateTime = time.UnixMilli(msg.InternalDate).UTC().Format(time.RFC3339)
	}
	return summary
}

func parseSender(from string) *mailbox.Sender {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return &mailbox.Sender{EmailAddress: mailbox.EmailAddress{Address: from}}
	}
	return &mailbox.Sender{EmailAddress: mailbox.EmailAddress{Name: addr.Name, Address: addr.Address}}
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

var _ mailbox.Fetcher = (*Client)(nil)

// Package graph implements the mailbox collaborators on Microsoft Graph.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
	"github.com/joshsymonds/mailsearch/internal/rate"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx Graph response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("graph: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to Graph with a caller-supplied bearer token.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
}

// NewClient constructs a Client with sane defaults.
func NewClient(baseURL string, httpClient *http.Client, limiter rate.Limiter, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.Unlimited{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Limiter: limiter,
		Logger:  logger,
	}
}

type messagePage struct {
	Value    []mailbox.EmailSummary `json:"value"`
	NextLink string                 `json:"@odata.nextLink"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Fetch requests endpoint with params and follows @odata.nextLink until
// maxItems messages are collected. A non-positive maxItems reads one page.
func (c *Client) Fetch(
	ctx context.Context,
	token string,
	method string,
	endpoint string,
	params mailbox.Params,
	maxItems int,
) (mailbox.Result, error) {
	next := c.url(endpoint, params)
	var res mailbox.Result
	for next != "" {
		var page messagePage
		if err := c.do(ctx, token, method, next, &page); err != nil {
			return mailbox.Result{}, err
		}
		res.Pages++
		res.Items = append(res.Items, page.Value...)
		if maxItems <= 0 || len(res.Items) >= maxItems {
			break
		}
		if err := c.checkNextLink(page.NextLink); err != nil {
			return mailbox.Result{}, err
		}
		next = page.NextLink
	}
	if maxItems > 0 && len(res.Items) > maxItems {
		res.Items = res.Items[:maxItems]
	}
	c.Logger.DebugContext(ctx, "graph fetch complete", "endpoint", endpoint, "pages", res.Pages, "items", len(res.Items))
	return res, nil
}

func (c *Client) url(endpoint string, params mailbox.Params) string {
	u := c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) == 0 {
		return u
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return u + "?" + q.Encode()
}

// checkNextLink refuses continuation links outside the base URL's origin so
// the bearer token is only ever sent to Graph.
func (c *Client) checkNextLink(link string) error {
	if link == "" {
		return nil
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	next, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse next link: %w", err)
	}
	if !strings.EqualFold(next.Scheme, base.Scheme) || !strings.EqualFold(next.Host, base.Host) {
		return fmt.Errorf("graph: next link %s://%s does not match %s://%s", next.Scheme, next.Host, base.Scheme, base.Host)
	}
	return nil
}

func (c *Client) do(ctx context.Context, token, method, rawURL string, out any) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

var _ mailbox.Fetcher = (*Client)(nil)

package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

const inboxMessages = "/me/mailFolders/inbox/messages"

// wellKnownFolders maps friendly names to Graph well-known folder ids.
var wellKnownFolders = map[string]string{
	"inbox":        "inbox",
	"drafts":       "drafts",
	"sent":         "sentitems",
	"sentitems":    "sentitems",
	"sent items":   "sentitems",
	"deleted":      "deleteditems",
	"deleteditems": "deleteditems",
	"trash":        "deleteditems",
	"junk":         "junkemail",
	"junkemail":    "junkemail",
	"spam":         "junkemail",
	"archive":      "archive",
}

type mailFolder struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type folderPage struct {
	Value    []mailFolder `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// Resolve maps folder to its messages endpoint. Unknown folders resolve to
// the inbox; request failures are returned.
func (c *Client) Resolve(ctx context.Context, token, folder string) (string, error) {
	name := strings.TrimSpace(folder)
	if name == "" {
		return inboxMessages, nil
	}
	if id, ok := wellKnownFolders[strings.ToLower(name)]; ok {
		return messagesPath(id), nil
	}

	id, err := c.folderByName(ctx, token, name)
	if err != nil {
		return "", fmt.Errorf("resolve folder %q: %w", name, err)
	}
	if id == "" {
		c.Logger.WarnContext(ctx, "folder not found, using inbox", "folder", name)
		return inboxMessages, nil
	}
	return messagesPath(id), nil
}

func messagesPath(id string) string {
	return "/me/mailFolders/" + url.PathEscape(id) + "/messages"
}

func (c *Client) folderByName(ctx context.Context, token, name string) (string, error) {
	filter := fmt.Sprintf("displayName eq '%s'", strings.ReplaceAll(name, "'", "''"))
	var exact folderPage
	err := c.do(ctx, token, mailbox.MethodGet, c.url("/me/mailFolders", mailbox.Params{mailbox.ParamFilter: filter}), &exact)
	switch {
	case IsStatus(err, http.StatusBadRequest):
		c.Logger.DebugContext(ctx, "folder filter rejected, scanning folders", "folder", name, "error", err)
	case err != nil:
		return "", err
	case len(exact.Value) > 0:
		return exact.Value[0].ID, nil
	}

	next := c.url("/me/mailFolders", mailbox.Params{mailbox.ParamTop: "100"})
	for next != "" {
		var page folderPage
		if err := c.do(ctx, token, mailbox.MethodGet, next, &page); err != nil {
			return "", err
		}
		for _, f := range page.Value {
			if strings.EqualFold(f.DisplayName, name) {
				return f.ID, nil
			}
		}
		if err := c.checkNextLink(page.NextLink); err != nil {
			return "", err
		}
		next = page.NextLink
	}
	return "", nil
}

var _ mailbox.FolderResolver = (*Client)(nil)

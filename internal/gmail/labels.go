package gmail

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

// systemLabels maps friendly folder names to Gmail system labels. Archive
// has no label of its own and searches all mail.
var systemLabels = map[string]string{
	"inbox":   labelInbox,
	"sent":    "SENT",
	"drafts":  "DRAFT",
	"deleted": "TRASH",
	"trash":   "TRASH",
	"junk":    "SPAM",
	"spam":    "SPAM",
	"starred": "STARRED",
	"archive": "",
}

// Resolve maps folder to a label id. Unknown names resolve to the inbox.
func (c *Client) Resolve(ctx context.Context, token, folder string) (string, error) {
	name := strings.TrimSpace(folder)
	if name == "" {
		return labelInbox, nil
	}
	if id, ok := systemLabels[strings.ToLower(name)]; ok {
		return id, nil
	}

	svc, err := c.NewService(ctx, token)
	if err != nil {
		return "", err
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range resp.Labels {
		if strings.EqualFold(l.Name, name) {
			return l.Id, nil
		}
	}
	c.Logger.WarnContext(ctx, "label not found, using inbox", "folder", name)
	return labelInbox, nil
}

var _ mailbox.FolderResolver = (*Client)(nil)

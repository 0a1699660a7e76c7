package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

// NoResultsText is returned when a search yields nothing.
const NoResultsText = "No emails found matching your search criteria."

const timestampLayout = "1/2/2006, 3:04:05 PM"

// Format renders an outcome as a numbered plain-text list followed by a note
// naming the strategy. Timestamps are shown in loc; a nil loc means
// time.Local.
func Format(out Outcome, loc *time.Location) string {
	if len(out.Items) == 0 {
		return NoResultsText
	}
	if loc == nil {
		loc = time.Local
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Found %d emails:\n\n", len(out.Items))
	for i, item := range out.Items {
		if i > 0 {
			builder.WriteString("\n")
		}
		writeEntry(&builder, i+1, item, loc)
	}
	if out.Strategy != "" {
		fmt.Fprintf(&builder, "\n(Search used %s strategy)\n", out.Strategy)
	}
	return builder.String()
}

func writeEntry(builder *strings.Builder, n int, item mailbox.EmailSummary, loc *time.Location) {
	name, address := "Unknown", "unknown"
	if item.From != nil {
		if item.From.EmailAddress.Name != "" {
			name = item.From.EmailAddress.Name
		}
		if item.From.EmailAddress.Address != "" {
			address = item.From.EmailAddress.Address
		}
	}
	unread := ""
	if !item.IsRead {
		unread = "[UNREAD] "
	}
	fmt.Fprintf(
		builder,
		"%d. %s%s - From: %s (%s)\nSubject: %s\nID: %s\n",
		n,
		unread,
		localTime(item, loc),
		name,
		address,
		item.Subject,
		item.ID,
	)
}

func localTime(item mailbox.EmailSummary, loc *time.Location) string {
	ts, err := item.Received()
	if err != nil {
		return item.ReceivedDateTime
	}
	return ts.In(loc).Format(timestampLayout)
}

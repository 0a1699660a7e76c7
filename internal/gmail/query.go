package gmail

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// filterTerms maps the OData filter clauses the search tiers emit to Gmail
// search operators.
var filterTerms = map[string]string{
	"hasAttachments eq true": "has:attachment",
	"isRead eq false":        "is:unread",
	"isRead eq true":         "is:read",
}

// Query is a Gmail list request derived from mailbox.Params.
type Query struct {
	Raw      string
	PageSize int64
}

// Translate converts Graph-style parameters into a Gmail query. Free-text
// clauses (`"x"`, `from:"x"`, `subject:"x"`, `to:"x"`) are valid Gmail syntax
// and pass through unchanged. Gmail always lists newest first, so the only
// accepted ordering is mailbox.OrderNewestFirst.
func Translate(params mailbox.Params) (Query, error) {
	var parts []string
	if s := strings.TrimSpace(params[mailbox.ParamSearch]); s != "" {
		parts = append(parts, s)
	}
	if f := strings.TrimSpace(params[mailbox.ParamFilter]); f != "" {
		for _, clause := range strings.Split(f, " and ") {
			clause = strings.TrimSpace(clause)
			term, ok := filterTerms[clause]
			if !ok {
				return Query{}, fmt.Errorf("unsupported filter clause %q", clause)
			}
			parts = append(parts, term)
		}
	}
	if o := params[mailbox.ParamOrderBy]; o != "" && o != mailbox.OrderNewestFirst {
		return Query{}, fmt.Errorf("unsupported ordering %q", o)
	}

	q := Query{Raw: strings.Join(parts, " "), PageSize: defaultPageSize}
	if top := params[mailbox.ParamTop]; top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n <= 0 {
			return Query{}, fmt.Errorf("invalid page size %q", top)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		q.PageSize = int64(n)
	}
	return q, nil
}

package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

const (
	clauseHasAttachments = "hasAttachments eq true"
	clauseUnread         = "isRead eq false"
)

// Settings carries the read-only configuration the builders need.
type Settings struct {
	SelectFields []string
	MaxPageSize  int
}

// DefaultMaxPageSize is the per-request page ceiling.
const DefaultMaxPageSize = 50

// DefaultSelectFields lists the message fields every query asks for.
func DefaultSelectFields() []string {
	return []string{
		"id",
		"subject",
		"from",
		"toRecipients",
		"ccRecipients",
		"receivedDateTime",
		"bodyPreview",
		"hasAttachments",
		"importance",
		"isRead",
	}
}

func (s Settings) pageSize(count int) int {
	ceiling := s.MaxPageSize
	if ceiling <= 0 {
		ceiling = DefaultMaxPageSize
	}
	if count <= 0 || count > ceiling {
		return ceiling
	}
	return count
}

func (s Settings) base(count int) mailbox.Params {
	fields := s.SelectFields
	if len(fields) == 0 {
		fields = DefaultSelectFields()
	}
	return mailbox.Params{
		mailbox.ParamTop:    strconv.Itoa(s.pageSize(count)),
		mailbox.ParamSelect: strings.Join(fields, ","),
	}
}

// ApplyFilters adds the boolean filter expression to params. Nothing is
// added when no filter is active.
func ApplyFilters(params mailbox.Params, filters Filters) {
	var clauses []string
	if isTrue(filters.HasAttachments) {
		clauses = append(clauses, clauseHasAttachments)
	}
	if isTrue(filters.UnreadOnly) {
		clauses = append(clauses, clauseUnread)
	}
	if len(clauses) == 0 {
		return
	}
	params[mailbox.ParamFilter] = strings.Join(clauses, " and ")
}

// freeTextClauses returns the search clauses in their fixed order:
// query, subject, from, to.
func freeTextClauses(terms Terms) []string {
	var parts []string
	if terms.Query != "" {
		parts = append(parts, fieldClause(fieldQuery, terms.Query))
	}
	if terms.Subject != "" {
		parts = append(parts, fieldClause(fieldSubject, terms.Subject))
	}
	if terms.From != "" {
		parts = append(parts, fieldClause(fieldFrom, terms.From))
	}
	if terms.To != "" {
		parts = append(parts, fieldClause(fieldTo, terms.To))
	}
	return parts
}

func fieldClause(field, value string) string {
	if field == fieldQuery {
		return `"` + value + `"`
	}
	return fmt.Sprintf(`%s:"%s"`, field, value)
}

// BuildParams produces the most specific parameter set for terms and
// filters. A search expression and an ordering are never both set.
func (s Settings) BuildParams(terms Terms, filters Filters, count int) mailbox.Params {
	params := s.base(count)
	if clauses := freeTextClauses(terms); len(clauses) > 0 {
		params[mailbox.ParamSearch] = strings.Join(clauses, " ")
	} else {
		params[mailbox.ParamOrderBy] = mailbox.OrderNewestFirst
	}
	ApplyFilters(params, filters)
	return params
}

func (s Settings) singleTermParams(field, value string, filters Filters, count int) mailbox.Params {
	params := s.base(count)
	params[mailbox.ParamSearch] = fieldClause(field, value)
	ApplyFilters(params, filters)
	return params
}

func (s Settings) filtersOnlyParams(filters Filters, count int) mailbox.Params {
	params := s.base(count)
	params[mailbox.ParamOrderBy] = mailbox.OrderNewestFirst
	ApplyFilters(params, filters)
	return params
}

func (s Settings) recentParams(count int) mailbox.Params {
	params := s.base(count)
	params[mailbox.ParamOrderBy] = mailbox.OrderNewestFirst
	return params
}

package search

import "github.com/joshsymonds/mailsearch/internal/mailbox"

// Terms captures free-text and field-targeted search intent.
type Terms struct {
	Query   string
	From    string
	To      string
	Subject string
}

// Any reports whether at least one term is set.
func (t Terms) Any() bool {
	return t.Query != "" || t.From != "" || t.To != "" || t.Subject != ""
}

// Filters holds tri-state boolean constraints. Only a literal true activates
// a filter; nil and false both mean "no constraint".
type Filters struct {
	HasAttachments *bool
	UnreadOnly     *bool
}

// Any reports whether at least one filter is active.
func (f Filters) Any() bool {
	return isTrue(f.HasAttachments) || isTrue(f.UnreadOnly)
}

func isTrue(b *bool) bool { return b != nil && *b }

// Request is one search as seen by the orchestrator.
type Request struct {
	Endpoint string
	Terms    Terms
	Filters  Filters
	Count    int
}

// Strategy names the tier that produced an outcome.
type Strategy string

const (
	StrategyRecent      Strategy = "recent-emails"
	StrategyCombined    Strategy = "combined-search"
	StrategyFiltersOnly Strategy = "boolean-filters-only"
)

const strategySinglePrefix = "single-term-"

// SingleTerm returns the strategy tag for a single-field search.
func SingleTerm(field string) Strategy {
	return Strategy(strategySinglePrefix + field)
}

// Reason explains why the recent-emails strategy was used.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoCriteria Reason = "no-criteria"
	ReasonAllErrored Reason = "all-strategies-errored"
)

// Outcome is the result of a progressive search.
type Outcome struct {
	Items    []mailbox.EmailSummary
	Strategy Strategy
	Reason   Reason
}

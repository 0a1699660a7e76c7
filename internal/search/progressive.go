package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

const (
	fieldQuery   = "query"
	fieldFrom    = "from"
	fieldTo      = "to"
	fieldSubject = "subject"
)

var errNoSingleTerm = errors.New("no single-term field present")

// Searcher runs progressively simpler queries until one succeeds.
type Searcher struct {
	Fetcher  mailbox.Fetcher
	Settings Settings
	Logger   *slog.Logger
}

// NewSearcher constructs a Searcher with sane defaults.
func NewSearcher(fetcher mailbox.Fetcher, settings Settings, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Searcher{Fetcher: fetcher, Settings: settings, Logger: logger}
}

type tier struct {
	name    string
	applies func(Request) bool
	attempt func(s *Searcher, ctx context.Context, token string, req Request) (Outcome, error)
}

// tiers lists the fallible strategies in priority order. The recent-emails
// fetch is not a tier: it is both the no-criteria shortcut and the final
// fallback.
var tiers = []tier{
	{
		name:    string(StrategyCombined),
		applies: func(req Request) bool { return req.Terms.Any() },
		attempt: (*Searcher).combined,
	},
	{
		name:    "single-term",
		applies: func(req Request) bool { return req.Terms.Any() },
		attempt: (*Searcher).singleTerm,
	},
	{
		name:    string(StrategyFiltersOnly),
		applies: func(req Request) bool { return req.Filters.Any() },
		attempt: (*Searcher).filtersOnly,
	},
}

// Search executes req against token. Failures of the fallible tiers are
// logged and swallowed; only the final recent-emails fetch can fail.
func (s *Searcher) Search(ctx context.Context, token string, req Request) (Outcome, error) {
	if !req.Terms.Any() && !req.Filters.Any() {
		s.Logger.InfoContext(ctx, "no search criteria, listing recent emails", "count", req.Count)
		return s.recent(ctx, token, req, ReasonNoCriteria)
	}

	for _, t := range tiers {
		if !t.applies(req) {
			continue
		}
		out, err := t.attempt(s, ctx, token, req)
		if err == nil {
			return out, nil
		}
		s.Logger.WarnContext(ctx, "search strategy failed", "strategy", t.name, "error", err)
	}

	s.Logger.InfoContext(ctx, "all search strategies failed, listing recent emails")
	return s.recent(ctx, token, req, ReasonAllErrored)
}

func (s *Searcher) fetch(ctx context.Context, token string, req Request, params mailbox.Params) ([]mailbox.EmailSummary, error) {
	s.Logger.DebugContext(ctx, "fetching", "endpoint", req.Endpoint, "params", params.String())
	res, err := s.Fetcher.Fetch(ctx, token, mailbox.MethodGet, req.Endpoint, params, req.Count)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *Searcher) combined(ctx context.Context, token string, req Request) (Outcome, error) {
	params := s.Settings.BuildParams(req.Terms, req.Filters, req.Count)
	items, err := s.fetch(ctx, token, req, params)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Items: items, Strategy: StrategyCombined}, nil
}

func (s *Searcher) singleTerm(ctx context.Context, token string, req Request) (Outcome, error) {
	candidates := []struct{ field, value string }{
		{fieldFrom, req.Terms.From},
		{fieldTo, req.Terms.To},
		{fieldSubject, req.Terms.Subject},
		{fieldQuery, req.Terms.Query},
	}
	var errs []error
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		params := s.Settings.singleTermParams(c.field, c.value, req.Filters, req.Count)
		items, err := s.fetch(ctx, token, req, params)
		if err != nil {
			s.Logger.WarnContext(ctx, "single-term search failed", "field", c.field, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.field, err))
			continue
		}
		return Outcome{Items: items, Strategy: SingleTerm(c.field)}, nil
	}
	if len(errs) == 0 {
		return Outcome{}, errNoSingleTerm
	}
	return Outcome{}, errors.Join(errs...)
}

func (s *Searcher) filtersOnly(ctx context.Context, token string, req Request) (Outcome, error) {
	params := s.Settings.filtersOnlyParams(req.Filters, req.Count)
	items, err := s.fetch(ctx, token, req, params)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Items: items, Strategy: StrategyFiltersOnly}, nil
}

func (s *Searcher) recent(ctx context.Context, token string, req Request, reason Reason) (Outcome, error) {
	items, err := s.fetch(ctx, token, req, s.Settings.recentParams(req.Count))
	if err != nil {
		return Outcome{}, fmt.Errorf("list recent emails: %w", err)
	}
	return Outcome{Items: items, Strategy: StrategyRecent, Reason: reason}, nil
}

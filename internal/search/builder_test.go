package search

import (
	"testing"

	"github.com/joshsymonds/mailsearch/internal/mailbox"
)

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    string
		wantSet bool
	}{
		{name: "none", filters: Filters{}},
		{name: "false-values", filters: Filters{HasAttachments: boolPtr(false), UnreadOnly: boolPtr(false)}},
		{
			name:    "attachments",
			filters: Filters{HasAttachments: boolPtr(true)},
			want:    "hasAttachments eq true",
			wantSet: true,
		},
		{
			name:    "unread",
			filters: Filters{UnreadOnly: boolPtr(true)},
			want:    "isRead eq false",
			wantSet: true,
		},
		{
			name:    "both",
			filters: Filters{HasAttachments: boolPtr(true), UnreadOnly: boolPtr(true)},
			want:    "hasAttachments eq true and isRead eq false",
			wantSet: true,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			params := mailbox.Params{}
			ApplyFilters(params, tc.filters)
			got, ok := params[mailbox.ParamFilter]
			if ok != tc.wantSet {
				t.Fatalf("filter key presence %v, want %v", ok, tc.wantSet)
			}
			if got != tc.want {
				t.Fatalf("filter %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildParams(t *testing.T) {
	settings := Settings{SelectFields: []string{"id", "subject"}, MaxPageSize: 25}

	tests := []struct {
		name       string
		terms      Terms
		filters    Filters
		count      int
		wantSearch string
		wantOrder  bool
		wantTop    string
	}{
		{
			name:      "no-terms-orders",
			count:     10,
			wantOrder: true,
			wantTop:   "10",
		},
		{
			name:       "query-only",
			terms:      Terms{Query: "invoice"},
			count:      10,
			wantSearch: `"invoice"`,
			wantTop:    "10",
		},
		{
			name:       "fixed-order",
			terms:      Terms{To: "bob", From: "alice", Subject: "report"},
			count:      100,
			wantSearch: `subject:"report" from:"alice" to:"bob"`,
			wantTop:    "25",
		},
		{
			name:      "filters-without-terms",
			filters:   Filters{UnreadOnly: boolPtr(true)},
			count:     3,
			wantOrder: true,
			wantTop:   "3",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			params := settings.BuildParams(tc.terms, tc.filters, tc.count)
			_, hasOrder := params[mailbox.ParamOrderBy]
			_, hasSearch := params[mailbox.ParamSearch]
			if hasOrder && hasSearch {
				t.Fatalf("ordering and search are mutually exclusive: %s", params)
			}
			if hasOrder != tc.wantOrder {
				t.Fatalf("ordering presence %v, want %v", hasOrder, tc.wantOrder)
			}
			if params[mailbox.ParamSearch] != tc.wantSearch {
				t.Fatalf("search %q, want %q", params[mailbox.ParamSearch], tc.wantSearch)
			}
			if params[mailbox.ParamTop] != tc.wantTop {
				t.Fatalf("top %q, want %q", params[mailbox.ParamTop], tc.wantTop)
			}
			if params[mailbox.ParamSelect] != "id,subject" {
				t.Fatalf("select %q", params[mailbox.ParamSelect])
			}
		})
	}
}

func TestBuildParamsDefaults(t *testing.T) {
	params := Settings{}.BuildParams(Terms{}, Filters{}, 0)
	if params[mailbox.ParamTop] != "50" {
		t.Fatalf("expected default ceiling, got %q", params[mailbox.ParamTop])
	}
	if params[mailbox.ParamSelect] == "" {
		t.Fatalf("expected default select list")
	}
}

package mailbox

import (
	"sort"
	"strings"
	"time"
)

// Parameter names understood by every backend. They follow the Microsoft
// Graph OData vocabulary; other providers translate them.
const (
	ParamSearch  = "$search"
	ParamFilter  = "$filter"
	ParamOrderBy = "$orderby"
	ParamTop     = "$top"
	ParamSelect  = "$select"
)

// OrderNewestFirst is the only ordering the search tiers request.
const OrderNewestFirst = "receivedDateTime desc"

// MethodGet is the verb used for every list call.
const MethodGet = "GET"

// Params holds query parameters for a single fetch.
type Params map[string]string

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders the parameters deterministically for logging.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, "&")
}

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Sender struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailSummary is the read-only view of one message returned by a backend.
// From is nil when the provider did not report a sender.
type EmailSummary struct {
	ID               string  `json:"id"`
	Subject          string  `json:"subject"`
	From             *Sender `json:"from,omitempty"`
	ReceivedDateTime string  `json:"receivedDateTime"`
	IsRead           bool    `json:"isRead"`
	HasAttachments   bool    `json:"hasAttachments"`
	BodyPreview      string  `json:"bodyPreview,omitempty"`
}

// Received parses ReceivedDateTime.
func (e EmailSummary) Received() (time.Time, error) {
	return time.Parse(time.RFC3339, e.ReceivedDateTime)
}

// Result is the outcome of a paginated fetch.
type Result struct {
	Items []EmailSummary
	Pages int
}

// Package stats computes summary statistics over a result set.
package stats

import (
	"strings"
	"time"

	"github.com/wesm/emailsearch/internal/query"
)

// Stats summarizes a result set.
type Stats struct {
	Count            int
	UniqueSenders    int
	UniqueRecipients int
	DateMin          time.Time // zero when no result has a parseable date
	DateMax          time.Time
}

// HasDateRange reports whether DateMin and DateMax are meaningful.
func (s Stats) HasDateRange() bool {
	return !s.DateMin.IsZero() && !s.DateMax.IsZero()
}

// dateLayouts are tried in order when parsing result dates. The service sends
// DATE columns as YYYY-MM-DD and DATETIME/TIMESTAMP columns in ISO form.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
}

// ParseDate parses a result date in any of the accepted ISO layouts.
// Values without a zone are taken as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Aggregate computes Stats for results. Sender and recipient uniqueness uses
// exact, case-sensitive string equality. Results with unparseable dates are
// left out of the date range; an empty result set yields the zero range.
func Aggregate(results query.ResultSet) Stats {
	st := Stats{Count: len(results)}
	if len(results) == 0 {
		return st
	}

	senders := make(map[string]struct{}, len(results))
	recipients := make(map[string]struct{}, len(results))
	for _, r := range results {
		senders[r.Sender] = struct{}{}
		recipients[r.Recipient] = struct{}{}

		d, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		if st.DateMin.IsZero() || d.Before(st.DateMin) {
			st.DateMin = d
		}
		if st.DateMax.IsZero() || d.After(st.DateMax) {
			st.DateMax = d
		}
	}
	st.UniqueSenders = len(senders)
	st.UniqueRecipients = len(recipients)
	return st
}

// FormatRange renders the date range as "YYYY-MM-DD to YYYY-MM-DD",
// or "" when there is no range.
func (s Stats) FormatRange() string {
	if !s.HasDateRange() {
		return ""
	}
	return s.DateMin.Format("2006-01-02") + " to " + s.DateMax.Format("2006-01-02")
}

// Package filter defines the structured search filters that narrow a keyword
// query. Filters are plain values: every update returns a new Filters and
// invalid input is coerced to the nearest valid value instead of rejected.
package filter

import (
	"strings"
	"time"
)

// Limit bounds for the maximum number of results requested.
const (
	MinLimit     = 50
	MaxLimit     = 1000
	LimitStep    = 50
	DefaultLimit = 100
)

// AllCategories is the display label for an unrestricted category filter.
const AllCategories = "All categories"

// DateLayout is the calendar date format accepted for date filters.
const DateLayout = "2006-01-02"

// SearchType selects which message fields the keywords are matched against.
type SearchType int

const (
	SearchAllFields SearchType = iota
	SearchSubject
	SearchBody
)

// SearchTypes lists the search types in display order.
var SearchTypes = []SearchType{SearchAllFields, SearchSubject, SearchBody}

// String returns the wire name of the search type.
func (t SearchType) String() string {
	switch t {
	case SearchSubject:
		return "Subject"
	case SearchBody:
		return "Body"
	default:
		return "All fields"
	}
}

// ParseSearchType resolves a search type from its wire name or a short alias
// ("all", "subject", "body"). Matching is case-insensitive.
func ParseSearchType(s string) (SearchType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all fields", "all", "allfields", "all_fields":
		return SearchAllFields, true
	case "subject":
		return SearchSubject, true
	case "body":
		return SearchBody, true
	}
	return SearchAllFields, false
}

// Filters is the set of constraints applied to a search beyond the keywords.
// DateFrom and DateTo are either both zero (no date restriction) or both set
// with DateTo not before DateFrom. An empty Category means unrestricted.
type Filters struct {
	Limit         int
	SearchType    SearchType
	DateFrom      time.Time
	DateTo        time.Time
	Sender        string
	Recipient     string
	ShowSummaries bool
	Category      string
}

// Default returns the filters a new session starts with.
func Default() Filters {
	return Filters{
		Limit:      DefaultLimit,
		SearchType: SearchAllFields,
	}
}

// HasDateRange reports whether a date restriction is active.
func (f Filters) HasDateRange() bool {
	return !f.DateFrom.IsZero() && !f.DateTo.IsZero()
}

// HasCategory reports whether results are restricted to one category.
func (f Filters) HasCategory() bool {
	return f.Category != ""
}

// WithField returns a copy of current with the change applied.
func WithField(current Filters, change Change) Filters {
	if change == nil {
		return current
	}
	return change.apply(current)
}

// SetDateRangeEnabled turns the date restriction on or off. Enabling sets both
// bounds to the calendar date of today; disabling clears both.
func SetDateRangeEnabled(current Filters, enabled bool, today time.Time) Filters {
	if !enabled {
		current.DateFrom = time.Time{}
		current.DateTo = time.Time{}
		return current
	}
	d := CalendarDate(today)
	current.DateFrom = d
	current.DateTo = d
	return current
}

// ClampLimit coerces n into [MinLimit, MaxLimit] and rounds it to the nearest
// multiple of LimitStep, rounding halves up.
func ClampLimit(n int) int {
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return (n + LimitStep/2) / LimitStep * LimitStep
}

// LimitOptions returns every selectable limit in ascending order.
func LimitOptions() []int {
	opts := make([]int, 0, (MaxLimit-MinLimit)/LimitStep+1)
	for n := MinLimit; n <= MaxLimit; n += LimitStep {
		opts = append(opts, n)
	}
	return opts
}

// CalendarDate truncates t to midnight UTC of its own (local) calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate formats a calendar date, returning "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

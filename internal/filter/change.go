package filter

import "strings"

// Key identifies a single filter field.
type Key int

const (
	KeyLimit Key = iota
	KeySearchType
	KeyDateFrom
	KeyDateTo
	KeySender
	KeyRecipient
	KeyShowSummaries
	KeyCategory
)

var keyNames = map[Key]string{
	KeyLimit:         "limit",
	KeySearchType:    "search_type",
	KeyDateFrom:      "date_from",
	KeyDateTo:        "date_to",
	KeySender:        "sender_filter",
	KeyRecipient:     "recipient_filter",
	KeyShowSummaries: "show_summaries",
	KeyCategory:      "category_filter",
}

// String returns the snake_case wire name of the key.
func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "unknown"
}

// Change is a single-field update to Filters. Values are built with the
// constructors below, so the field and its value type always agree.
type Change interface {
	Key() Key
	apply(Filters) Filters
}

type change struct {
	key Key
	fn  func(Filters) Filters
}

func (c change) Key() Key                { return c.key }
func (c change) apply(f Filters) Filters { return c.fn(f) }

// Limit sets the maximum number of results, clamped and rounded to the
// nearest step.
func Limit(n int) Change {
	return change{KeyLimit, func(f Filters) Filters {
		f.Limit = ClampLimit(n)
		return f
	}}
}

// Type sets the search type. Values outside the enum leave it unchanged.
func Type(t SearchType) Change {
	return change{KeySearchType, func(f Filters) Filters {
		switch t {
		case SearchAllFields, SearchSubject, SearchBody:
			f.SearchType = t
		}
		return f
	}}
}

// TypeName sets the search type by name. Unknown names leave it unchanged.
func TypeName(name string) Change {
	return change{KeySearchType, func(f Filters) Filters {
		if t, ok := ParseSearchType(name); ok {
			f.SearchType = t
		}
		return f
	}}
}

// DateFrom sets the lower date bound from a YYYY-MM-DD string. An empty string
// clears the date range; a malformed date is ignored.
func DateFrom(s string) Change {
	return change{KeyDateFrom, func(f Filters) Filters {
		if strings.TrimSpace(s) == "" {
			return SetDateRangeEnabled(f, false, f.DateFrom)
		}
		d, ok := ParseDate(s)
		if !ok {
			return f
		}
		f.DateFrom = d
		if f.DateTo.IsZero() || f.DateTo.Before(d) {
			f.DateTo = d
		}
		return f
	}}
}

// DateTo sets the upper date bound from a YYYY-MM-DD string. An empty string
// clears the date range; a malformed date is ignored.
func DateTo(s string) Change {
	return change{KeyDateTo, func(f Filters) Filters {
		if strings.TrimSpace(s) == "" {
			return SetDateRangeEnabled(f, false, f.DateTo)
		}
		d, ok := ParseDate(s)
		if !ok {
			return f
		}
		f.DateTo = d
		if f.DateFrom.IsZero() || f.DateFrom.After(d) {
			f.DateFrom = d
		}
		return f
	}}
}

// Sender sets the sender substring filter.
func Sender(s string) Change {
	return change{KeySender, func(f Filters) Filters {
		f.Sender = s
		return f
	}}
}

// Recipient sets the recipient substring filter.
func Recipient(s string) Change {
	return change{KeyRecipient, func(f Filters) Filters {
		f.Recipient = s
		return f
	}}
}

// ShowSummaries toggles display of server-side summaries.
func ShowSummaries(on bool) Change {
	return change{KeyShowSummaries, func(f Filters) Filters {
		f.ShowSummaries = on
		return f
	}}
}

// Category restricts results to one category. An empty name or AllCategories
// removes the restriction.
func Category(name string) Change {
	if name == AllCategories {
		name = ""
	}
	return change{KeyCategory, func(f Filters) Filters {
		f.Category = name
		return f
	}}
}

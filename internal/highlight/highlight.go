// Package highlight splits text into matched and unmatched segments for a
// keyword query. Query terms are always matched literally: characters that
// carry meaning in regular expressions are quoted before compilation.
package highlight

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Segment is a contiguous run of text, marked when it matched a query term.
type Segment struct {
	Text    string
	Matched bool
}

// matcherCacheSize bounds the number of compiled query patterns kept around.
// A result list renders many rows for the same query, so even a small cache
// avoids recompiling per row.
const matcherCacheSize = 64

var matchers, _ = lru.New[string, *regexp.Regexp](matcherCacheSize)

// Highlight returns text split into segments, marking every case-insensitive
// occurrence of any whitespace-separated term of query. Terms match anywhere,
// not only on word boundaries. Concatenating the returned segments always
// reproduces text exactly; matched segments keep the casing of text.
func Highlight(text, query string) []Segment {
	if text == "" || query == "" {
		return []Segment{{Text: text}}
	}
	re := matcherFor(query)
	if re == nil {
		return []Segment{{Text: text}}
	}

	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Segment{{Text: text}}
	}

	segs := make([]Segment, 0, 2*len(locs)+1)
	prev := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start == end {
			continue
		}
		if start > prev {
			segs = append(segs, Segment{Text: text[prev:start]})
		}
		segs = append(segs, Segment{Text: text[start:end], Matched: true})
		prev = end
	}
	if prev < len(text) {
		segs = append(segs, Segment{Text: text[prev:]})
	}
	return segs
}

// Terms splits a query into its distinct terms, longest first.
// Duplicates are compared case-insensitively; terms that are not valid UTF-8
// are dropped since they can never be compiled into a pattern.
func Terms(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		lower := strings.ToLower(f)
		if seen[lower] || !utf8.ValidString(f) {
			continue
		}
		seen[lower] = true
		terms = append(terms, f)
	}
	// Longer terms first so "report" wins over "rep" at the same offset.
	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i]) > len(terms[j])
	})
	return terms
}

// matcherFor returns the compiled pattern for query, or nil when the query
// has no terms.
func matcherFor(query string) *regexp.Regexp {
	if re, ok := matchers.Get(query); ok {
		return re
	}
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile("(?i)(?:" + strings.Join(quoted, "|") + ")")
	if err != nil {
		return nil
	}
	matchers.Add(query, re)
	return re
}

// Render concatenates segments, passing matched text through mark.
// A nil mark returns the plain text.
func Render(segs []Segment, mark func(string) string) string {
	var sb strings.Builder
	for _, s := range segs {
		if s.Matched && mark != nil {
			sb.WriteString(mark(s.Text))
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

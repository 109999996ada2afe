package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wesm/emailsearch/internal/highlight"
	"github.com/wesm/emailsearch/internal/query"
)

// previewRunes is the length of the body preview shown for each result.
const previewRunes = 500

// numberPrinter formats counts with thousands separators.
var numberPrinter = message.NewPrinter(language.English)

// highlightText marks every occurrence of the query terms in text with
// highlightStyle. Callers pass single lines; styling is applied after any
// wrapping or truncation so that width calculations see plain text.
func highlightText(text, searchQuery string) string {
	if searchQuery == "" || text == "" {
		return text
	}
	return highlight.Render(highlight.Highlight(text, searchQuery), func(s string) string {
		return highlightStyle.Render(s)
	})
}

// previewText returns the body preview of r: the summary when summaries are
// shown and one exists, otherwise the first previewRunes runes of the body
// followed by "..." when truncated.
func previewText(r query.SearchResult, showSummaries bool) string {
	if showSummaries && r.HasSummary() {
		return r.Summary
	}
	runes := []rune(r.Body)
	if len(runes) <= previewRunes {
		return r.Body
	}
	return string(runes[:previewRunes]) + "..."
}

// formatCount formats a count with thousands separators (e.g., "12,345").
func formatCount(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// padRight pads a string with spaces to fill width terminal cells.
// Uses lipgloss.Width to correctly handle ANSI codes and full-width characters.
func padRight(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw > width {
		// Use ANSI-aware truncation; a wide rune at the edge may leave a gap
		s = ansi.Truncate(s, width, "")
		sw = lipgloss.Width(s)
	}
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// Newlines, carriage returns and tabs are flattened first so a single field
// can never break the row layout.
func truncateRunes(s string, maxWidth int) string {
	s = flattenWhitespace(s)

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

func flattenWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", " ")
}

// wrapText wraps text to fit within width terminal cells.
// Uses runewidth to correctly handle full-width characters (CJK, emoji, etc.)
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for _, line := range lines {
		line = strings.ReplaceAll(line, "\t", "    ")
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			// Prefer breaking at a space if we found one in the latter half
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}

			if breakAt == 0 {
				// Single character too wide, take it anyway
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]

			// Skip leading spaces on continuation lines
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}

	return result
}

// truncateToWidth returns the prefix of s that fits within maxWidth visual columns.
func truncateToWidth(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "")
}

// skipToWidth returns the suffix of s starting after skipWidth visual columns.
func skipToWidth(s string, skipWidth int) string {
	return ansi.Cut(s, skipWidth, 10000)
}

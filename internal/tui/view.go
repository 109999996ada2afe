package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/query"
	"github.com/wesm/emailsearch/internal/stats"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}
	fgMuted  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}

	// Title bar style - bold with visible background
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(fgMuted).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	// Separator line style for under headers
	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	// Cursor card: subtle lighter background
	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// Normal rows need background to clear old content
	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	subjectStyle = lipgloss.NewStyle().
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(fgMuted)

	categoryBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}).
				Background(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#bbbbbb"}).
				Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(fgMuted).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}). // Amber for visibility
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

// buildTitleBar renders the first line: program, dataset and selected table.
func (m Model) buildTitleBar() string {
	titleText := "emailsearch"
	if m.version != "" && m.version != "dev" && m.version != "unknown" {
		titleText = fmt.Sprintf("emailsearch [%s]", m.version)
	}

	dataset := "connecting..."
	switch {
	case m.state.Config != nil:
		dataset = m.state.Config.QualifiedName(m.state.TableID)
	case m.state.ConfigErr != nil:
		dataset = "dataset unavailable"
	}
	line := fmt.Sprintf("%s - %s", titleText, dataset)

	// Table selector hint (right-aligned)
	if cfg := m.state.Config; cfg != nil && len(cfg.Tables) > 0 {
		label := m.state.TableID
		if t, ok := cfg.Table(m.state.TableID); ok && t.Label != "" {
			label = t.Label
		}
		if label != "" {
			tableStr := fmt.Sprintf("table: %s", label)
			if len(cfg.Tables) > 1 {
				tableStr += " (t)"
			}
			gap := m.width - 2 - lipgloss.Width(line) - lipgloss.Width(tableStr)
			if gap > 1 {
				line += strings.Repeat(" ", gap) + tableStr
			}
		}
	}
	return titleBarStyle.Render(padRight(line, m.width-2)) // -2 for padding
}

// buildSearchBar renders the search input with a right-aligned spinner.
func (m Model) buildSearchBar() string {
	input := m.searchInput.View()
	if m.busy() {
		indicator := spinnerStyle.Render(m.spinnerIndicator())
		gap := m.width - lipgloss.Width(input) - lipgloss.Width(indicator) - 1
		if gap < 1 {
			gap = 1
		}
		return normalRowStyle.Render(padRight(" "+input+strings.Repeat(" ", gap-1)+indicator, m.width))
	}
	return normalRowStyle.Render(padRight(" "+input, m.width))
}

// filterSummary describes the active filters in one line.
func filterSummary(f filter.Filters) string {
	parts := []string{
		"in: " + f.SearchType.String(),
		fmt.Sprintf("limit: %d", f.Limit),
	}
	if f.HasCategory() {
		parts = append(parts, "category: "+f.Category)
	}
	if f.Sender != "" {
		parts = append(parts, "from: "+f.Sender)
	}
	if f.Recipient != "" {
		parts = append(parts, "to: "+f.Recipient)
	}
	if f.HasDateRange() {
		parts = append(parts, fmt.Sprintf("dates: %s..%s", filter.FormatDate(f.DateFrom), filter.FormatDate(f.DateTo)))
	}
	if f.ShowSummaries {
		parts = append(parts, "summaries")
	}
	return strings.Join(parts, " · ")
}

// buildStatsLine renders the aggregate line for the current result set, or
// the error/empty state in its place.
func (m Model) buildStatsLine() string {
	contentWidth := m.width - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	switch {
	case m.flashMessage != "":
		return flashStyle.Render(padRight(" "+m.flashMessage, m.width))
	case m.state.Err != nil:
		return errorStyle.Render(padRight(fmt.Sprintf(" Error: %v", m.state.Err), m.width))
	case m.state.Loading || m.searching:
		return loadingStyle.Render(padRight(" Searching...", m.width))
	case m.state.ConfigErr != nil:
		return errorStyle.Render(padRight(fmt.Sprintf(" Warning: %v", m.state.ConfigErr), m.width))
	case m.state.CategoryErr != nil:
		return errorStyle.Render(padRight(fmt.Sprintf(" Warning: %v", m.state.CategoryErr), m.width))
	}

	if len(m.state.Results) == 0 {
		return statsStyle.Render(padRight("", contentWidth))
	}
	return statsStyle.Render(padRight(buildStatsString(stats.Aggregate(m.state.Results)), contentWidth))
}

// buildStatsString formats aggregate statistics for display.
func buildStatsString(st stats.Stats) string {
	noun := "results"
	if st.Count == 1 {
		noun = "result"
	}
	s := fmt.Sprintf("%s %s │ %s senders │ %s recipients",
		formatCount(st.Count), noun,
		formatCount(st.UniqueSenders),
		formatCount(st.UniqueRecipients),
	)
	if r := st.FormatRange(); r != "" {
		s += " │ " + r
	}
	return s
}

// headerView renders the fixed lines above the result list.
func (m Model) headerView() string {
	lines := []string{
		m.buildTitleBar(),
		m.buildSearchBar(),
		statsStyle.Render(padRight(filterSummary(m.state.Filters), max(1, m.width-2))),
		m.buildStatsLine(),
		separatorStyle.Render(strings.Repeat("─", m.width)),
	}
	return strings.Join(lines, "\n")
}

// listHeight returns the number of lines between header and footer.
func (m Model) listHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}
	return h
}

// resultListView renders the visible result cards.
func (m Model) resultListView() string {
	height := m.listHeight()
	results := m.state.Results

	if len(results) == 0 {
		var msg string
		switch {
		case m.state.Loading || m.searching:
			msg = ""
		case m.state.Err != nil:
			msg = "Search failed. Press / to edit the query or r to retry."
		case m.state.Searched:
			msg = "No results"
		default:
			msg = "Type keywords and press Enter to search."
		}
		return m.fillLines([]string{normalRowStyle.Render(padRight(" "+msg, m.width))}, height)
	}

	var lines []string
	end := min(m.scrollOffset+m.pageSize, len(results))
	for i := m.scrollOffset; i < end; i++ {
		lines = append(lines, m.renderCard(results[i], i == m.cursor)...)
	}
	return m.fillLines(lines, height)
}

// renderCard renders one result as cardHeight lines.
func (m Model) renderCard(r query.SearchResult, selected bool) []string {
	q := m.state.Query
	width := m.width - 2 // one column of indent plus cursor marker
	if width < 10 {
		width = 10
	}

	marker := "  "
	if selected {
		marker = "▶ "
	}

	// Line 1: subject and date
	date := r.Date
	if len(date) > 10 {
		if d, ok := stats.ParseDate(date); ok {
			date = d.Format("2006-01-02 15:04")
		}
	}
	subjectWidth := width - lipgloss.Width(date) - 2
	subject := r.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	subject = truncateRunes(subject, max(1, subjectWidth))
	line1 := padRight(subjectStyle.Render(highlightText(subject, q)), max(1, subjectWidth)) + "  " + metaStyle.Render(date)

	// Line 2: sender, recipient and category
	addr := truncateRunes(fmt.Sprintf("From: %s → To: %s", r.Sender, r.Recipient), width)
	line2 := metaStyle.Render(addr)
	if r.Category != "" {
		badge := categoryBadgeStyle.Render(truncateRunes(r.Category, 24))
		if lipgloss.Width(line2)+1+lipgloss.Width(badge) <= width {
			line2 += " " + badge
		}
	}

	// Line 3: identity
	ident := r.ID
	if r.SourceFilename != "" {
		ident += " • " + r.SourceFilename
	}
	line3 := metaStyle.Render(truncateRunes(ident, width))

	// Preview lines
	preview := wrapText(flattenWhitespace(previewText(r, m.state.Filters.ShowSummaries)), width)
	lines := []string{line1, line2, line3}
	for i := 0; i < previewLines; i++ {
		text := ""
		if i < len(preview) {
			text = preview[i]
			if i == previewLines-1 && len(preview) > previewLines {
				text = truncateRunes(text+"...", width)
			}
		}
		lines = append(lines, highlightText(text, q))
	}

	style := normalRowStyle
	if selected {
		style = cursorRowStyle
	}
	out := make([]string, 0, cardHeight)
	for i, l := range lines {
		prefix := "  "
		if i == 0 {
			prefix = marker
		}
		out = append(out, style.Render(padRight(prefix+l, m.width)))
	}
	out = append(out, normalRowStyle.Render(strings.Repeat(" ", m.width)))
	return out
}

// buildDetailLines renders the full result for the detail viewport.
func (m Model) buildDetailLines(r query.SearchResult) []string {
	q := m.state.Query
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	var lines []string
	for _, l := range wrapText(r.Subject, width) {
		lines = append(lines, subjectStyle.Render(highlightText(l, q)))
	}
	lines = append(lines,
		"",
		"From:     "+highlightText(r.Sender, q),
		"To:       "+highlightText(r.Recipient, q),
		"Date:     "+r.Date,
	)
	if r.Category != "" {
		lines = append(lines, "Category: "+categoryBadgeStyle.Render(r.Category))
	}
	ident := r.ID
	if r.SourceFilename != "" {
		ident += " • " + r.SourceFilename
	}
	lines = append(lines, "ID:       "+ident)

	if r.HasSummary() {
		lines = append(lines, "", subjectStyle.Render("Summary"))
		for _, l := range wrapText(r.Summary, width) {
			lines = append(lines, highlightText(l, q))
		}
	}

	lines = append(lines, "", separatorStyle.Render(strings.Repeat("─", width)), "")
	for _, l := range wrapText(r.Body, width) {
		lines = append(lines, highlightText(l, q))
	}
	return lines
}

// detailView renders the detail viewport at the list position.
func (m Model) detailView() string {
	return m.detail.View()
}

// fillLines pads content with blank lines to exactly height lines.
func (m Model) fillLines(lines []string, height int) string {
	// Guard against zero/negative width (can happen before first resize)
	if m.width <= 0 {
		return strings.Join(lines, "\n")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	blank := normalRowStyle.Render(strings.Repeat(" ", m.width))
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch {
	case m.form != nil:
		keys = []string{"Enter next", "Shift+Tab back", "Esc cancel"}
	case m.searchFocused:
		keys = []string{"Enter search", "Esc cancel", "↓ results", "Ctrl+C quit"}
	case m.level == levelDetail:
		keys = []string{"↑/↓ scroll", "n/p next/prev", "Esc back", "e export", "q quit"}
		if n := len(m.state.Results); n > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, n)
		}
	default:
		keys = []string{"/ search", "↑/k ↓/j", "Enter open", "f filters", "s summaries", "t table", "r rerun", "e export", "q quit"}
		if n := len(m.state.Results); n > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, n)
		}
	}

	keysStr := strings.Join(keys, " │ ")

	// Use lipgloss.Width for ANSI-aware width calculation (handles Unicode arrows ↑↓ correctly)
	gap := m.width - lipgloss.Width(keysStr) - lipgloss.Width(posStr) - 2
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(padRight(keysStr+strings.Repeat(" ", gap)+posStr, max(1, m.width-2)))
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// overlayModal draws content in a bordered box centred over background.
func (m Model) overlayModal(background, content string) string {
	if content == "" {
		return background
	}

	modal := modalStyle.Render(content)

	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := (len(bgLines) - len(modalLines)) / 2
	if startLine < 0 {
		startLine = 0
	}

	modalWidth := lipgloss.Width(modal)
	leftPadding := (m.width - modalWidth) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	// Overlay modal onto background, preserving background where modal doesn't cover
	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]
		bgWidth := lipgloss.Width(bgLine)

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)

		rightStart := leftPadding + modalWidth
		if rightStart < bgWidth {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}

	return strings.Join(bgLines, "\n")
}

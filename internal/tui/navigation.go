package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// moveCursor moves the result cursor by delta, clamped to the result list.
func (m *Model) moveCursor(delta int) {
	n := len(m.state.Results)
	if n == 0 {
		m.cursor = 0
		m.scrollOffset = 0
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	m.ensureCursorVisible()
}

// ensureCursorVisible adjusts the scroll offset so the cursor is on screen.
func (m *Model) ensureCursorVisible() {
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.pageSize {
		m.scrollOffset = m.cursor - m.pageSize + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

// detailHeight returns the number of lines available to the detail viewport.
func (m Model) detailHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}
	return h
}

// openDetail shows the result under the cursor in the detail view.
func (m Model) openDetail() (Model, tea.Cmd) {
	if m.cursor >= len(m.state.Results) {
		return m, nil
	}
	m.level = levelDetail
	m.detail.Width = m.width
	m.detail.Height = m.detailHeight()
	m.refreshDetail()
	m.detail.GotoTop()
	return m, nil
}

// refreshDetail re-renders the detail content for the current result,
// keeping the scroll position where possible.
func (m *Model) refreshDetail() {
	if m.cursor >= len(m.state.Results) {
		m.detail.SetContent("")
		return
	}
	lines := m.buildDetailLines(m.state.Results[m.cursor])
	m.detail.SetContent(strings.Join(lines, "\n"))
}

// navigateDetail moves to the previous or next result while in the
// detail view.
func (m Model) navigateDetail(delta int) (Model, tea.Cmd) {
	next := m.cursor + delta
	if next < 0 {
		return m.showFlash("At first result")
	}
	if next >= len(m.state.Results) {
		return m.showFlash("At last result")
	}
	m.cursor = next
	m.ensureCursorVisible()
	m.refreshDetail()
	m.detail.GotoTop()
	return m, nil
}

// cycleTable selects the next (delta > 0) or previous table of the dataset.
// Results of the old table are dropped and its categories re-fetched.
func (m Model) cycleTable(delta int) (Model, tea.Cmd) {
	cfg := m.state.Config
	if cfg == nil || len(cfg.Tables) < 2 {
		return m.showFlash("No other tables")
	}

	idx := 0
	for i, t := range cfg.Tables {
		if t.ID == m.state.TableID {
			idx = i
			break
		}
	}
	n := len(cfg.Tables)
	next := cfg.Tables[((idx+delta)%n+n)%n]
	if !m.session.SelectTable(next.ID) {
		return m, nil
	}

	// Anything in flight belongs to the old table.
	m.searchRequestID++
	m.searching = false
	m.categoryRequestID++
	m.loadingCategories = true
	m.cursor = 0
	m.scrollOffset = 0
	m.level = levelResults

	label := next.Label
	if label == "" {
		label = next.ID
	}
	spinCmd := m.startSpinner()
	loadCmd := m.loadCategories()
	m, flashCmd := m.showFlash(fmt.Sprintf("Table: %s", label))
	return m, tea.Batch(flashCmd, spinCmd, loadCmd)
}

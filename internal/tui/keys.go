package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/emailsearch/internal/filter"
)

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.form != nil {
		return m.handleFormKeys(msg)
	}
	if m.searchFocused {
		return m.handleSearchBarKeys(msg)
	}

	switch m.level {
	case levelDetail:
		return m.handleDetailKeys(msg)
	default:
		return m.handleResultListKeys(msg)
	}
}

// handleSearchBarKeys handles keys while the search bar has focus.
func (m Model) handleSearchBarKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.session.UpdateQuery(strings.TrimSpace(m.searchInput.Value()))
		m.blurSearch()
		cmd := m.dispatchSearch()
		return m, cmd

	case "esc":
		// Leave the committed query alone and restore its text.
		m.searchInput.SetValue(m.session.Snapshot().Query)
		m.blurSearch()
		return m, nil

	case "down":
		m.blurSearch()
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

// handleResultListKeys handles keys in the result list.
func (m Model) handleResultListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		cmd := m.focusSearch()
		return m, cmd

	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup", "ctrl+u":
		m.moveCursor(-m.pageSize)
	case "pgdown", "ctrl+d":
		m.moveCursor(m.pageSize)
	case "home", "g":
		m.cursor = 0
		m.scrollOffset = 0
	case "end", "G":
		m.moveCursor(len(m.state.Results))

	case "enter":
		return m.openDetail()

	case "r":
		cmd := m.dispatchSearch()
		return m, cmd

	case "f":
		return m.openFilterForm()

	case "s":
		on := !m.state.Filters.ShowSummaries
		m.session.ApplyFilter(filter.ShowSummaries(on))
		if on {
			return m.showFlash("Showing summaries")
		}
		return m.showFlash("Showing body previews")

	case "t":
		return m.cycleTable(1)
	case "T":
		return m.cycleTable(-1)

	case "e":
		return m.exportResults()
	}
	return m, nil
}

// handleDetailKeys handles keys in the detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace":
		m.level = levelResults
		return m, nil

	case "n", "right":
		return m.navigateDetail(1)
	case "p", "left":
		return m.navigateDetail(-1)

	case "/":
		m.level = levelResults
		cmd := m.focusSearch()
		return m, cmd

	case "e":
		return m.exportResults()

	default:
		// Scrolling keys (j/k, pgup/pgdown, u/d) belong to the viewport.
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
}

// handleFormKeys routes keys to the filters form. Esc discards the form.
func (m Model) handleFormKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.closeForm()
		return m.showFlash("Filters unchanged")
	}
	return m.updateForm(msg)
}

func (m *Model) focusSearch() tea.Cmd {
	m.searchFocused = true
	m.searchInput.CursorEnd()
	return m.searchInput.Focus()
}

func (m *Model) blurSearch() {
	m.searchFocused = false
	m.searchInput.Blur()
}

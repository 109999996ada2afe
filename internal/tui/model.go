// Package tui provides a terminal user interface for emailsearch.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/wesm/emailsearch/internal/session"
)

// viewLevel represents the current screen.
type viewLevel int

const (
	levelResults viewLevel = iota
	levelDetail
)

// chromeLines is the number of fixed lines around the result list:
// title bar, search bar, filter line, stats line, separator, footer.
const chromeLines = 6

// cardHeight is the number of lines one result occupies in the list,
// including the blank line that separates it from the next result.
const cardHeight = 6

// previewLines is how many wrapped lines of the body preview a card shows.
const previewLines = 2

// Options configuration for TUI.
type Options struct {
	Version   string
	ExportDir string           // directory CSV downloads are written to
	Now       func() time.Time // defaults to time.Now
	Logger    *slog.Logger
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	session *session.Controller

	// state is refreshed from the session after every message, so View
	// always renders a consistent snapshot.
	state session.State

	version   string
	exportDir string
	now       func() time.Time
	logger    *slog.Logger

	level         viewLevel
	searchFocused bool
	cursor        int
	scrollOffset  int
	pageSize      int // result cards visible per page

	searchInput textinput.Model
	detail      viewport.Model

	// Filters form; nil when closed.
	form  *huh.Form
	draft *filterDraft

	// Terminal dimensions
	width  int
	height int

	// Loading state
	loading           bool // initial config and category load
	searching         bool
	loadingCategories bool
	spinnerFrame      int
	spinnerActive     bool

	// Request tracking to ignore stale async results
	searchRequestID   uint64
	categoryRequestID uint64

	// Flash message (temporary notification)
	flashMessage   string
	flashExpiresAt time.Time

	quitting bool
}

// New creates a new TUI model over a search session.
func New(sess *session.Controller, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "keywords (Enter to search)"
	ti.Prompt = "Search: "
	ti.CharLimit = 500
	ti.Width = 50
	ti.Focus()

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	m := Model{
		session:       sess,
		version:       opts.Version,
		exportDir:     exportDir,
		now:           now,
		logger:        logger,
		level:         levelResults,
		searchFocused: true,
		pageSize:      1,
		searchInput:   ti,
		detail:        viewport.New(0, 0),
		loading:       true,
		spinnerActive: true,
	}
	m.state = sess.Snapshot()
	m.searchInput.SetValue(m.state.Query)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.initialize(),
		spinnerTick(), // Start spinner for initial load
	)
}

// initDoneMsg is sent when dataset config and categories have been loaded.
type initDoneMsg struct {
	err error
}

// searchDoneMsg is sent when a dispatched search completes.
type searchDoneMsg struct {
	err       error
	requestID uint64 // To detect stale responses
}

// categoriesLoadedMsg is sent when the categories of a newly selected table
// have been fetched.
type categoriesLoadedMsg struct {
	err       error
	requestID uint64
}

// exportDoneMsg is returned when a CSV download finishes.
type exportDoneMsg struct {
	path string
	err  error
}

// flashClearMsg clears the flash message after timeout.
type flashClearMsg struct{}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// flashDuration is how long flash messages are displayed.
const flashDuration = 4 * time.Second

// initialize loads dataset metadata and the selected table's categories.
func (m Model) initialize() tea.Cmd {
	sess := m.session
	return func() (msg tea.Msg) {
		// Recover from panics to prevent TUI from becoming unresponsive
		defer func() {
			if r := recover(); r != nil {
				msg = initDoneMsg{err: fmt.Errorf("initialize panic: %v", r)}
			}
		}()
		return initDoneMsg{err: sess.Initialize(context.Background())}
	}
}

// runSearch searches with the session state as it is when the command runs.
func (m Model) runSearch() tea.Cmd {
	requestID := m.searchRequestID
	sess := m.session
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = searchDoneMsg{err: fmt.Errorf("search panic: %v", r), requestID: requestID}
			}
		}()
		err := sess.Search(context.Background(), session.Current())
		return searchDoneMsg{err: err, requestID: requestID}
	}
}

// loadCategories fetches categories for the selected table.
func (m Model) loadCategories() tea.Cmd {
	requestID := m.categoryRequestID
	sess := m.session
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = categoriesLoadedMsg{err: fmt.Errorf("categories panic: %v", r), requestID: requestID}
			}
		}()
		return categoriesLoadedMsg{err: sess.LoadCategories(context.Background()), requestID: requestID}
	}
}

// dispatchSearch starts a search and invalidates any search still in flight.
func (m *Model) dispatchSearch() tea.Cmd {
	m.searchRequestID++
	m.searching = true
	return tea.Batch(m.startSpinner(), m.runSearch())
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// busy reports whether any request is outstanding.
func (m Model) busy() bool {
	return m.loading || m.searching || m.loadingCategories
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.state = next.session.Snapshot()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Clamp dimensions to prevent panics from strings.Repeat with negative count
		if m.width < 0 {
			m.width = 0
		}
		if m.height < 0 {
			m.height = 0
		}
		m.pageSize = (m.height - chromeLines) / cardHeight
		if m.pageSize < 1 {
			m.pageSize = 1
		}
		m.searchInput.Width = max(10, m.width-len(m.searchInput.Prompt)-4)
		m.detail.Width = m.width
		m.detail.Height = m.detailHeight()
		m.ensureCursorVisible()
		if m.level == levelDetail {
			m.refreshDetail()
		}
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m, nil

	case initDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Warn("session initialization incomplete", "err", msg.err)
		}
		return m, nil

	case searchDoneMsg:
		// Ignore stale responses from previous searches
		if msg.requestID != m.searchRequestID {
			return m, nil
		}
		if errors.Is(msg.err, session.ErrSuperseded) {
			// The session dropped it, e.g. for the table picked on startup.
			m.searching = false
			return m, nil
		}
		m.searching = false
		m.cursor = 0
		m.scrollOffset = 0
		if m.level == levelDetail {
			m.level = levelResults
		}
		var serr *session.Error
		if msg.err != nil && !errors.As(msg.err, &serr) {
			// Not recorded by the session (e.g. a recovered panic).
			return m.showFlash(fmt.Sprintf("Search failed: %v", msg.err))
		}
		return m, nil

	case categoriesLoadedMsg:
		if msg.requestID != m.categoryRequestID {
			return m, nil
		}
		m.loadingCategories = false
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.logger.Warn("export failed", "err", msg.err)
			return m.showFlash(fmt.Sprintf("Export failed: %v", msg.err))
		}
		m.logger.Info("exported results", "path", msg.path)
		return m.showFlash("Exported to " + msg.path)

	case flashClearMsg:
		// Clear flash message if it hasn't been updated since the timer started
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		// Only advance if still loading (any loading state)
		if m.busy() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	// Everything else belongs to the open form (field navigation, cursor
	// blink) or the focused text input.
	if m.form != nil {
		return m.updateForm(msg)
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// showFlash displays a temporary flash message.
func (m Model) showFlash(message string) (Model, tea.Cmd) {
	m.flashMessage = message
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(t time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.level {
	case levelDetail:
		body = m.detailView()
	default:
		body = m.resultListView()
	}

	view := fmt.Sprintf("%s\n%s\n%s",
		m.headerView(),
		body,
		m.footerView(),
	)
	if m.form != nil {
		view = m.overlayModal(view, m.form.View())
	}
	return view
}

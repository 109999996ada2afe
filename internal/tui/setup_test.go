package tui

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/logging"
	"github.com/wesm/emailsearch/internal/query"
	"github.com/wesm/emailsearch/internal/query/querytest"
	"github.com/wesm/emailsearch/internal/session"
	"github.com/wesm/emailsearch/internal/testutil"
)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// fixedNow is the clock every test model runs on.
func fixedNow() time.Time {
	return time.Date(2024, 5, 17, 10, 30, 0, 0, time.Local)
}

// twoTables is a dataset with an inbox and a sent table.
func twoTables() *query.DatasetConfig {
	return &query.DatasetConfig{
		DatasetName: "mail",
		Tables: []query.Table{
			{ID: "inbox", Label: "Inbox", TableName: "emails"},
			{ID: "sent", Label: "Sent", TableName: "sent_emails"},
		},
	}
}

// =============================================================================
// Test Fixtures
// =============================================================================

// TestModelBuilder helps construct Model instances for testing
type TestModelBuilder struct {
	results     query.ResultSet
	searched    bool
	query       string
	config      *query.DatasetConfig
	categories  map[string][]string
	filters     *filter.Filters
	width       int
	height      int
	loading     bool
	searchFocus bool
	exportDir   string
	version     string
}

func NewBuilder() *TestModelBuilder {
	return &TestModelBuilder{
		width:   100,
		height:  30,
		version: "test123",
	}
}

// WithResults makes the session hold results from a completed search.
func (b *TestModelBuilder) WithResults(results ...query.SearchResult) *TestModelBuilder {
	b.results = results
	b.searched = true
	return b
}

// WithEmptySearch makes the session hold a completed search with no results.
func (b *TestModelBuilder) WithEmptySearch() *TestModelBuilder {
	b.results = nil
	b.searched = true
	return b
}

func (b *TestModelBuilder) WithQuery(q string) *TestModelBuilder {
	b.query = q
	return b
}

func (b *TestModelBuilder) WithConfig(cfg *query.DatasetConfig) *TestModelBuilder {
	b.config = cfg
	return b
}

func (b *TestModelBuilder) WithCategories(tableID string, cats ...string) *TestModelBuilder {
	if b.categories == nil {
		b.categories = make(map[string][]string)
	}
	b.categories[tableID] = cats
	return b
}

func (b *TestModelBuilder) WithFilters(f filter.Filters) *TestModelBuilder {
	b.filters = &f
	return b
}

func (b *TestModelBuilder) WithSize(width, height int) *TestModelBuilder {
	b.width = width
	b.height = height
	return b
}

func (b *TestModelBuilder) WithLoading(loading bool) *TestModelBuilder {
	b.loading = loading
	return b
}

// WithSearchFocus leaves keyboard focus in the search bar.
func (b *TestModelBuilder) WithSearchFocus() *TestModelBuilder {
	b.searchFocus = true
	return b
}

func (b *TestModelBuilder) WithExportDir(dir string) *TestModelBuilder {
	b.exportDir = dir
	return b
}

func (b *TestModelBuilder) Build() Model {
	m, _ := b.BuildWithEngine()
	return m
}

// BuildWithEngine returns the model and the mock engine behind its session.
// Searches and lookups made while building are already recorded on the
// engine; tests should compare counts before and after the action under test.
func (b *TestModelBuilder) BuildWithEngine() (Model, *querytest.MockEngine) {
	engine := &querytest.MockEngine{
		Config:         b.config,
		CategoriesByID: b.categories,
		SearchResults:  b.results,
	}
	sess := session.New(engine, session.Options{
		Logger:  logging.Discard(),
		Now:     fixedNow,
		Filters: b.filters,
	})

	ctx := context.Background()
	if b.config != nil {
		_ = sess.LoadConfig(ctx)
		_ = sess.LoadCategories(ctx)
	}
	sess.UpdateQuery(b.query)
	if b.searched {
		_ = sess.Search(ctx, session.Current())
	}

	m := New(sess, Options{
		Version:   b.version,
		ExportDir: b.exportDir,
		Now:       fixedNow,
		Logger:    logging.Discard(),
	})
	m.loading = b.loading
	m.spinnerActive = b.loading
	if !b.searchFocus {
		m.blurSearch()
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: b.width, Height: b.height})
	return next.(Model), engine
}

// standardResults returns three results from two senders spanning
// 2024-01-05 to 2024-03-20.
func standardResults() query.ResultSet {
	return query.ResultSet{
		testutil.NewResult("r1").
			WithSubject("Quarterly Report").
			WithBody("Revenue grew in the quarterly report period.").
			WithSender("alice@example.com").
			WithRecipient("bob@example.com").
			WithDate("2024-01-05").
			WithCategory("Finance").
			Build(),
		testutil.NewResult("r2").
			WithSubject("Lunch").
			WithBody("Tacos on Friday?").
			WithSender("carol@example.com").
			WithRecipient("bob@example.com").
			WithDate("2024-03-20T09:15:00").
			Build(),
		testutil.NewResult("r3").
			WithSubject("Re: Quarterly Report").
			WithBody("Thanks, looks good.").
			WithSender("alice@example.com").
			WithRecipient("dave@example.com").
			WithDate("2024-02-11").
			WithSummary("Approval of the report.").
			Build(),
	}
}

// =============================================================================
// Message helpers
// =============================================================================

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	return sendMsg(t, m, k)
}

// sendMsg sends any message to the model and returns the updated concrete Model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// completeSearch runs the search command for the model's current request
// and delivers its result.
func completeSearch(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.runSearch()()
	m, _ = sendMsg(t, m, msg)
	return m
}

// awaitMsg runs cmd, expanding batches, and returns the first message of
// type T it produces.
func awaitMsg[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	found := make(chan T, 1)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			switch msg := c().(type) {
			case tea.BatchMsg:
				for _, sub := range msg {
					run(sub)
				}
			case T:
				select {
				case found <- msg:
				default:
				}
			}
		}()
	}
	run(cmd)

	select {
	case msg := <-found:
		return msg
	case <-time.After(2 * time.Second):
		var zero T
		t.Fatalf("no %T produced", zero)
		return zero
	}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyEnter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func keyEsc() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEsc}
}

func keyDown() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyDown}
}

func keyUp() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyUp}
}

// =============================================================================
// Assertions
// =============================================================================

func assertLevel(t *testing.T, m Model, expected viewLevel) {
	t.Helper()
	if m.level != expected {
		t.Errorf("level = %v, want %v", m.level, expected)
	}
}

func assertCursor(t *testing.T, m Model, cursor, offset int) {
	t.Helper()
	if m.cursor != cursor || m.scrollOffset != offset {
		t.Errorf("cursor/offset = %d/%d, want %d/%d", m.cursor, m.scrollOffset, cursor, offset)
	}
}

func assertFlash(t *testing.T, m Model, substr string) {
	t.Helper()
	if !strings.Contains(m.flashMessage, substr) {
		t.Errorf("flash = %q, want it to contain %q", m.flashMessage, substr)
	}
}

func assertCmd(t *testing.T, cmd tea.Cmd, wantCmd bool) {
	t.Helper()
	if wantCmd && cmd == nil {
		t.Error("expected a command, got nil")
	}
	if !wantCmd && cmd != nil {
		t.Error("expected no command")
	}
}

// countViewLines counts the lines of a rendered view.
func countViewLines(view string) int {
	return strings.Count(view, "\n") + 1
}

package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/emailsearch/internal/export"
	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/query"
	"github.com/wesm/emailsearch/internal/session"
	"github.com/wesm/emailsearch/internal/testutil"
)

func TestInit_LoadsConfigAndCategories(t *testing.T) {
	m, eng := NewBuilder().WithLoading(true).BuildWithEngine()
	eng.Config = twoTables()
	eng.CategoriesByID = map[string][]string{"inbox": {"Finance", "Travel"}}

	msg := m.initialize()()
	m, _ = sendMsg(t, m, msg)

	if m.loading {
		t.Error("loading should be false after initialization")
	}
	if m.state.Config == nil || m.state.TableID != "inbox" {
		t.Fatalf("config/table = %+v/%q, want first table selected", m.state.Config, m.state.TableID)
	}
	testutil.AssertStrings(t, m.state.Categories, "Finance", "Travel")
}

func TestInit_ConfigFailureIsNotFatal(t *testing.T) {
	m, eng := NewBuilder().WithLoading(true).BuildWithEngine()
	eng.ConfigErr = errors.New("connection refused")

	m, _ = sendMsg(t, m, m.initialize()())

	if m.loading {
		t.Error("loading should be false after a failed initialization")
	}
	if !session.IsKind(m.state.ConfigErr, session.KindConfigLoad) {
		t.Errorf("ConfigErr = %v, want config load error", m.state.ConfigErr)
	}
	if m.quitting {
		t.Error("config failure must not quit the TUI")
	}
}

func TestEnterDispatchesSearch(t *testing.T) {
	m, eng := NewBuilder().WithSearchFocus().BuildWithEngine()
	eng.SearchResults = standardResults()
	m.searchInput.SetValue("  quarterly report ")

	m, cmd := sendKey(t, m, keyEnter())
	assertCmd(t, cmd, true)

	if !m.searching {
		t.Error("searching should be true after Enter")
	}
	if m.searchFocused {
		t.Error("focus should move to the result list after Enter")
	}
	if m.state.Query != "quarterly report" {
		t.Errorf("session query = %q, want trimmed input", m.state.Query)
	}

	m = completeSearch(t, m)
	if m.searching {
		t.Error("searching should be false after the response")
	}
	if got := len(m.state.Results); got != 3 {
		t.Fatalf("results = %d, want 3", got)
	}
	searches := eng.Searches()
	if got := searches[len(searches)-1].Query; got != "quarterly report" {
		t.Errorf("dispatched query = %q", got)
	}
}

func TestSearchBarEscRestoresCommittedQuery(t *testing.T) {
	m := NewBuilder().WithQuery("invoice").WithSearchFocus().Build()
	m.searchInput.SetValue("invoice draft")

	m, _ = sendKey(t, m, keyEsc())

	if m.searchFocused {
		t.Error("Esc should leave the search bar")
	}
	if got := m.searchInput.Value(); got != "invoice" {
		t.Errorf("input = %q, want committed query restored", got)
	}
	if m.state.Query != "invoice" {
		t.Errorf("session query = %q, want unchanged", m.state.Query)
	}
}

func TestStaleSearchResponseIgnored(t *testing.T) {
	m, eng := NewBuilder().BuildWithEngine()
	eng.SearchResults = standardResults()

	m, _ = sendKey(t, m, key('r'))
	stale := m.runSearch()
	m, _ = sendKey(t, m, key('r'))
	if m.searchRequestID != 2 {
		t.Fatalf("searchRequestID = %d, want 2", m.searchRequestID)
	}

	m, _ = sendMsg(t, m, stale())
	if !m.searching {
		t.Error("a stale response must not end the current search")
	}

	m = completeSearch(t, m)
	if m.searching {
		t.Error("the current response should end the search")
	}
}

func TestSearchBeforeConfigIsDroppedOnFirstTable(t *testing.T) {
	m, eng := NewBuilder().WithLoading(true).BuildWithEngine()
	started := make(chan struct{})
	release := make(chan struct{})
	eng.SearchFunc = func(context.Context, query.SearchQuery) (query.ResultSet, error) {
		close(started)
		<-release
		return standardResults(), nil
	}

	m, _ = sendKey(t, m, key('r'))
	early := m.runSearch()
	done := make(chan tea.Msg, 1)
	go func() { done <- early() }()
	<-started

	// Initialization selects the first table while the request is in flight.
	eng.Config = twoTables()
	m, _ = sendMsg(t, m, m.initialize()())
	close(release)
	m, _ = sendMsg(t, m, <-done)

	if m.searching {
		t.Error("a search dropped by the session should end the spinner")
	}
	if m.state.TableID != "inbox" {
		t.Fatalf("TableID = %q, want inbox", m.state.TableID)
	}
	if len(m.state.Results) != 0 {
		t.Errorf("results = %d, want none shown for the new table", len(m.state.Results))
	}
}

func TestSearchFailureRecordedInState(t *testing.T) {
	m, eng := NewBuilder().WithResults(standardResults()...).BuildWithEngine()
	eng.SearchErr = errors.New("boom")

	m, _ = sendKey(t, m, key('r'))
	m = completeSearch(t, m)

	if m.searching {
		t.Error("searching should be false after a failure")
	}
	if !session.IsKind(m.state.Err, session.KindSearch) {
		t.Fatalf("state.Err = %v, want search error", m.state.Err)
	}
	if len(m.state.Results) != 0 {
		t.Errorf("results = %d, want cleared on failure", len(m.state.Results))
	}
	if !strings.Contains(stripANSI(m.View()), "Error: search failed: boom") {
		t.Errorf("view should show the error:\n%s", stripANSI(m.View()))
	}
}

func TestSearchPanicRecovered(t *testing.T) {
	m, eng := NewBuilder().BuildWithEngine()
	eng.SearchFunc = func(context.Context, query.SearchQuery) (query.ResultSet, error) {
		panic("decoder exploded")
	}

	m, _ = sendKey(t, m, key('r'))
	m = completeSearch(t, m)

	if m.searching {
		t.Error("searching should be false after a recovered panic")
	}
	assertFlash(t, m, "search panic: decoder exploded")
}

func TestNewSearchResetsCursorAndLeavesDetail(t *testing.T) {
	m := NewBuilder().WithResults(standardResults()...).Build()
	m, _ = sendKey(t, m, key('j'))
	m, _ = sendKey(t, m, keyEnter())
	assertLevel(t, m, levelDetail)

	m, _ = sendKey(t, m, key('/'))
	m, _ = sendKey(t, m, keyEnter())
	m = completeSearch(t, m)

	assertLevel(t, m, levelResults)
	assertCursor(t, m, 0, 0)
}

func TestCursorNavigation(t *testing.T) {
	// Height 18 leaves room for two cards.
	m := NewBuilder().WithResults(standardResults()...).WithSize(100, 18).Build()
	if m.pageSize != 2 {
		t.Fatalf("pageSize = %d, want 2", m.pageSize)
	}

	m, _ = sendKey(t, m, key('k'))
	assertCursor(t, m, 0, 0)

	m, _ = sendKey(t, m, keyDown())
	m, _ = sendKey(t, m, key('j'))
	assertCursor(t, m, 2, 1)

	m, _ = sendKey(t, m, key('j'))
	assertCursor(t, m, 2, 1)

	m, _ = sendKey(t, m, keyUp())
	m, _ = sendKey(t, m, keyUp())
	assertCursor(t, m, 0, 0)

	m, _ = sendKey(t, m, key('G'))
	assertCursor(t, m, 2, 1)
	m, _ = sendKey(t, m, key('g'))
	assertCursor(t, m, 0, 0)
}

func TestWindowResizeClampsDimensions(t *testing.T) {
	m := NewBuilder().Build()
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: -5, Height: -1})
	if m.width != 0 || m.height != 0 {
		t.Errorf("size = %dx%d, want clamped to 0", m.width, m.height)
	}
	if m.pageSize != 1 {
		t.Errorf("pageSize = %d, want at least 1", m.pageSize)
	}
}

func TestDetailNavigation(t *testing.T) {
	m := NewBuilder().WithResults(standardResults()...).WithQuery("report").Build()

	m, _ = sendKey(t, m, keyEnter())
	assertLevel(t, m, levelDetail)
	if !strings.Contains(stripANSI(m.detail.View()), "Revenue grew") {
		t.Errorf("detail should show the body:\n%s", stripANSI(m.detail.View()))
	}

	m, _ = sendKey(t, m, key('n'))
	m, _ = sendKey(t, m, key('n'))
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
	if !strings.Contains(stripANSI(m.detail.View()), "Approval of the report.") {
		t.Error("detail should show the summary of the third result")
	}

	m, _ = sendKey(t, m, key('n'))
	assertFlash(t, m, "At last result")

	m, _ = sendKey(t, m, keyEsc())
	assertLevel(t, m, levelResults)
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want kept at 2 after leaving detail", m.cursor)
	}
}

func TestEnterWithoutResultsStaysInList(t *testing.T) {
	m := NewBuilder().WithEmptySearch().Build()
	m, _ = sendKey(t, m, keyEnter())
	assertLevel(t, m, levelResults)
}

func TestShowSummariesToggleDoesNotSearch(t *testing.T) {
	m, eng := NewBuilder().WithResults(standardResults()...).BuildWithEngine()
	before := eng.SearchCount()

	m, _ = sendKey(t, m, key('s'))

	if !m.state.Filters.ShowSummaries {
		t.Error("ShowSummaries should be on")
	}
	if m.searching || m.searchRequestID != 0 {
		t.Error("toggling summaries must not search")
	}
	if eng.SearchCount() != before {
		t.Errorf("searches = %d, want %d", eng.SearchCount(), before)
	}
	assertFlash(t, m, "Showing summaries")
}

func TestCycleTable(t *testing.T) {
	m, eng := NewBuilder().
		WithConfig(twoTables()).
		WithCategories("inbox", "Finance").
		WithCategories("sent", "Outreach").
		WithResults(standardResults()...).
		BuildWithEngine()
	if m.state.TableID != "inbox" {
		t.Fatalf("TableID = %q, want inbox", m.state.TableID)
	}

	m, cmd := sendKey(t, m, key('t'))
	assertCmd(t, cmd, true)

	if m.state.TableID != "sent" {
		t.Errorf("TableID = %q, want sent", m.state.TableID)
	}
	if len(m.state.Results) != 0 || m.state.Searched {
		t.Error("results of the old table should be cleared")
	}
	if !m.loadingCategories {
		t.Error("categories should be loading for the new table")
	}

	m, _ = sendMsg(t, m, m.loadCategories()())
	if m.loadingCategories {
		t.Error("loadingCategories should be false after the response")
	}
	testutil.AssertStrings(t, m.state.Categories, "Outreach")
	lookups := eng.CategoryLookups()
	if lookups[len(lookups)-1] != "sent" {
		t.Errorf("last category lookup = %q, want sent", lookups[len(lookups)-1])
	}

	// Wraps around.
	m, _ = sendKey(t, m, key('t'))
	if m.state.TableID != "inbox" {
		t.Errorf("TableID = %q, want inbox after wrapping", m.state.TableID)
	}
}

func TestCycleTableDropsInFlightSearch(t *testing.T) {
	m := NewBuilder().WithConfig(twoTables()).Build()

	m, _ = sendKey(t, m, key('r'))
	inFlight := m.runSearch()
	m, _ = sendKey(t, m, key('t'))
	if m.searching {
		t.Error("switching tables should end the old search")
	}

	m, _ = sendMsg(t, m, inFlight())
	if m.searching {
		t.Error("response to the superseded request must be ignored")
	}
}

func TestCycleTableSingleTable(t *testing.T) {
	m := NewBuilder().WithConfig(&query.DatasetConfig{
		DatasetName: "mail",
		Tables:      []query.Table{{ID: "inbox", TableName: "emails"}},
	}).Build()

	m, _ = sendKey(t, m, key('t'))
	assertFlash(t, m, "No other tables")
	if m.state.TableID != "inbox" {
		t.Errorf("TableID = %q, want unchanged", m.state.TableID)
	}
}

func TestExportWritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	results := standardResults()
	m := NewBuilder().WithResults(results...).WithExportDir(dir).Build()

	m, cmd := sendKey(t, m, key('e'))
	assertFlash(t, m, "Exporting")

	done := awaitMsg[exportDoneMsg](t, cmd)
	if done.err != nil {
		t.Fatalf("export error = %v", done.err)
	}
	wantPath := filepath.Join(dir, "email_search_2024-05-17.csv")
	if done.path != wantPath {
		t.Errorf("path = %q, want %q", done.path, wantPath)
	}
	if got := testutil.ReadFile(t, wantPath); got != export.ToCSV(results) {
		t.Errorf("file content mismatch:\n%s", got)
	}

	m, _ = sendMsg(t, m, done)
	assertFlash(t, m, "Exported to "+wantPath)
}

func TestExportWithoutResults(t *testing.T) {
	m := NewBuilder().WithEmptySearch().WithExportDir(t.TempDir()).Build()
	m, _ = sendKey(t, m, key('e'))
	assertFlash(t, m, "No results to export")
}

func TestExportFailureShowsFlash(t *testing.T) {
	m := NewBuilder().Build()
	m, _ = sendMsg(t, m, exportDoneMsg{err: errors.New("disk full")})
	assertFlash(t, m, "Export failed: disk full")
}

func TestSpinnerAdvancesOnlyWhileBusy(t *testing.T) {
	m := NewBuilder().Build()
	m, _ = sendKey(t, m, key('r'))
	if !m.spinnerActive {
		t.Fatal("dispatching a search should start the spinner")
	}

	m, cmd := sendMsg(t, m, spinnerTickMsg{})
	assertCmd(t, cmd, true)
	if m.spinnerFrame != 1 {
		t.Errorf("spinnerFrame = %d, want 1", m.spinnerFrame)
	}

	m = completeSearch(t, m)
	m, cmd = sendMsg(t, m, spinnerTickMsg{})
	assertCmd(t, cmd, false)
	if m.spinnerActive {
		t.Error("spinner should stop once idle")
	}
}

func TestFlashClears(t *testing.T) {
	m := NewBuilder().Build()
	m.flashMessage = "old news"
	m, _ = sendMsg(t, m, flashClearMsg{})
	if m.flashMessage != "" {
		t.Errorf("flash = %q, want cleared", m.flashMessage)
	}
}

func TestQuit(t *testing.T) {
	m := NewBuilder().Build()
	m, cmd := sendKey(t, m, key('q'))
	if !m.quitting {
		t.Error("q should quit from the result list")
	}
	assertCmd(t, cmd, true)
	if m.View() != "" {
		t.Error("view should be empty once quitting")
	}
}

func TestTypingQInSearchBarDoesNotQuit(t *testing.T) {
	m := NewBuilder().WithSearchFocus().Build()
	m, _ = sendKey(t, m, key('q'))
	if m.quitting {
		t.Error("q in the search bar is text, not quit")
	}
	if m.searchInput.Value() != "q" {
		t.Errorf("input = %q, want q", m.searchInput.Value())
	}
}

func TestSessionFiltersUsedAtDispatch(t *testing.T) {
	m, eng := NewBuilder().BuildWithEngine()

	// Filters committed after the command was built still apply: the
	// search reads session state when it runs.
	m, _ = sendKey(t, m, key('r'))
	cmd := m.runSearch()
	m.session.ApplyFilter(filter.Sender("alice"))
	_ = cmd()

	searches := eng.Searches()
	if got := searches[len(searches)-1].Filters.Sender; got != "alice" {
		t.Errorf("dispatched sender = %q, want alice", got)
	}
}

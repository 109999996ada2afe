package tui

import (
	"errors"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/wesm/emailsearch/internal/filter"
)

// filterDraft holds the values being edited in the filters form. The form
// writes into it through pointers; nothing reaches the session until the
// form is submitted.
type filterDraft struct {
	limit         int
	searchType    string
	category      string
	sender        string
	recipient     string
	dateRange     bool
	dateFrom      string
	dateTo        string
	showSummaries bool
}

// draftFrom copies committed filters into a draft.
func draftFrom(f filter.Filters, today string) *filterDraft {
	d := &filterDraft{
		limit:         f.Limit,
		searchType:    f.SearchType.String(),
		category:      f.Category,
		sender:        f.Sender,
		recipient:     f.Recipient,
		dateRange:     f.HasDateRange(),
		dateFrom:      filter.FormatDate(f.DateFrom),
		dateTo:        filter.FormatDate(f.DateTo),
		showSummaries: f.ShowSummaries,
	}
	if d.category == "" {
		d.category = filter.AllCategories
	}
	if !d.dateRange {
		d.dateFrom = today
		d.dateTo = today
	}
	return d
}

// newFilterForm builds the filters form over d.
func newFilterForm(d *filterDraft, categories []string, width int) *huh.Form {
	limits := make([]huh.Option[int], 0, len(filter.LimitOptions()))
	for _, n := range filter.LimitOptions() {
		limits = append(limits, huh.NewOption(strconv.Itoa(n), n))
	}

	types := make([]huh.Option[string], 0, len(filter.SearchTypes))
	for _, t := range filter.SearchTypes {
		types = append(types, huh.NewOption(t.String(), t.String()))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Search in").
				Options(types...).
				Value(&d.searchType),
			huh.NewSelect[int]().
				Title("Max results").
				Options(limits...).
				Height(6).
				Value(&d.limit),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOptions(categories, d.category)...).
				Value(&d.category),
			huh.NewInput().
				Title("Sender contains").
				Value(&d.sender),
			huh.NewInput().
				Title("Recipient contains").
				Value(&d.recipient),
			huh.NewConfirm().
				Title("Show summaries").
				Value(&d.showSummaries),
			huh.NewConfirm().
				Title("Restrict dates").
				Value(&d.dateRange),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("From (YYYY-MM-DD)").
				Validate(validateDate).
				Value(&d.dateFrom),
			huh.NewInput().
				Title("To (YYYY-MM-DD)").
				Validate(validateDate).
				Value(&d.dateTo),
		).WithHideFunc(func() bool { return !d.dateRange }),
	).
		WithTheme(huh.ThemeBase()).
		WithShowHelp(true)

	if width > 0 {
		form = form.WithWidth(width)
	}
	return form
}

// categoryOptions lists the sentinel first, then the table's categories.
// The current selection is kept even when the table no longer reports it.
func categoryOptions(categories []string, current string) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(filter.AllCategories, filter.AllCategories)}
	found := current == filter.AllCategories
	for _, c := range categories {
		if c == "" || c == filter.AllCategories {
			continue
		}
		opts = append(opts, huh.NewOption(c, c))
		if c == current {
			found = true
		}
	}
	if !found && current != "" {
		opts = append(opts, huh.NewOption(current, current))
	}
	return opts
}

func validateDate(s string) error {
	if _, ok := filter.ParseDate(s); !ok {
		return errors.New("expected YYYY-MM-DD")
	}
	return nil
}

// openFilterForm opens the filters form seeded from the session filters.
func (m Model) openFilterForm() (Model, tea.Cmd) {
	today := filter.FormatDate(m.now())
	m.draft = draftFrom(m.state.Filters, today)
	width := m.width - 10
	if width > 60 {
		width = 60
	}
	m.form = newFilterForm(m.draft, m.state.Categories, width)
	return m, m.form.Init()
}

func (m *Model) closeForm() {
	m.form = nil
	m.draft = nil
}

// updateForm forwards msg to the open form and applies the draft once the
// form is submitted.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	fm, cmd := m.form.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		d := m.draft
		m.closeForm()
		return m.applyFilterDraft(d)
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

// applyFilterDraft commits every field of d that differs from the session
// filters. A category change searches once; other fields wait for an
// explicit search.
func (m Model) applyFilterDraft(d *filterDraft) (Model, tea.Cmd) {
	cur := m.session.Snapshot().Filters

	var changes []filter.Change
	if d.limit != cur.Limit {
		changes = append(changes, filter.Limit(d.limit))
	}
	if d.searchType != cur.SearchType.String() {
		changes = append(changes, filter.TypeName(d.searchType))
	}
	if d.sender != cur.Sender {
		changes = append(changes, filter.Sender(d.sender))
	}
	if d.recipient != cur.Recipient {
		changes = append(changes, filter.Recipient(d.recipient))
	}
	if d.showSummaries != cur.ShowSummaries {
		changes = append(changes, filter.ShowSummaries(d.showSummaries))
	}

	toggled := d.dateRange != cur.HasDateRange()
	if toggled {
		m.session.SetDateRangeEnabled(d.dateRange)
	}
	if d.dateRange {
		dates := m.session.Snapshot().Filters
		if d.dateFrom != filter.FormatDate(dates.DateFrom) {
			changes = append(changes, filter.DateFrom(d.dateFrom))
		}
		if d.dateTo != filter.FormatDate(dates.DateTo) {
			changes = append(changes, filter.DateTo(d.dateTo))
		}
	}

	category := d.category
	if category == filter.AllCategories {
		category = ""
	}
	if category != cur.Category {
		changes = append(changes, filter.Category(d.category))
	}

	search := false
	for _, c := range changes {
		if m.session.ApplyFilter(c) {
			search = true
		}
	}

	if search {
		cmd := m.dispatchSearch()
		return m, cmd
	}
	if len(changes) == 0 && !toggled {
		return m.showFlash("Filters unchanged")
	}
	return m.showFlash("Filters updated, press r to search")
}


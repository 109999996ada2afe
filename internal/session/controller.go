// Package session owns the state of one interactive search session: the
// query text, the active filters, the selected table, and the most recent
// result set. Front ends (the TUI and the search command) mutate state only
// through a Controller and render from its snapshots.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/query"
)

// State is a point-in-time copy of session state. Slices are shared with the
// controller but are never mutated after being stored, only replaced.
type State struct {
	Query   string
	Filters filter.Filters
	TableID string

	Results  query.ResultSet
	Loading  bool
	Err      *Error // last search failure, nil after a successful search
	Searched bool   // at least one search has completed

	Config      *query.DatasetConfig
	ConfigErr   *Error
	Categories  []string
	CategoryErr *Error
}

// Intent selects the filters a search is sent with.
type Intent struct {
	override *filter.Filters
}

// Current searches with the session's committed filters as they are at
// dispatch time.
func Current() Intent { return Intent{} }

// WithFilters searches with f for this request only. Session filters are
// left unchanged.
func WithFilters(f filter.Filters) Intent { return Intent{override: &f} }

// Options configures a Controller.
type Options struct {
	Logger  *slog.Logger
	Now     func() time.Time // defaults to time.Now
	Filters *filter.Filters  // initial filters; nil means filter.Default()
	TableID string           // initial table selection
}

// Controller serializes all access to session state. It is safe for
// concurrent use; the lock is never held across calls to the engine.
type Controller struct {
	engine query.Engine
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	seq      uint64 // id of the latest dispatched search
	tableGen uint64 // bumped on every table switch
}

// New creates a session over engine.
func New(engine query.Engine, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	f := filter.Default()
	if opts.Filters != nil {
		f = *opts.Filters
		f.Limit = filter.ClampLimit(f.Limit)
	}
	return &Controller{
		engine: engine,
		logger: logger,
		now:    now,
		state: State{
			Filters: f,
			TableID: opts.TableID,
		},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateQuery sets the search text. It does not search.
func (c *Controller) UpdateQuery(text string) {
	c.mu.Lock()
	c.state.Query = text
	c.mu.Unlock()
}

// ApplyFilter commits a filter change and reports whether the change calls
// for an immediate search. Only category changes do; every other field waits
// for an explicit search.
func (c *Controller) ApplyFilter(change filter.Change) (autoSearch bool) {
	if change == nil {
		return false
	}
	c.mu.Lock()
	c.state.Filters = filter.WithField(c.state.Filters, change)
	c.mu.Unlock()

	c.logger.Debug("filter updated", "key", change.Key())
	return change.Key() == filter.KeyCategory
}

// UpdateFilter commits a filter change and, for category changes, runs the
// resulting search before returning.
func (c *Controller) UpdateFilter(ctx context.Context, change filter.Change) error {
	if c.ApplyFilter(change) {
		return c.Search(ctx, Current())
	}
	return nil
}

// SetDateRangeEnabled turns the date restriction on (both bounds set to
// today) or off.
func (c *Controller) SetDateRangeEnabled(enabled bool) {
	c.mu.Lock()
	c.state.Filters = filter.SetDateRangeEnabled(c.state.Filters, enabled, c.now())
	c.mu.Unlock()
}

// SelectTable switches the session to another table. Results from the old
// table are cleared, its categories are dropped, and any in-flight search is
// invalidated. Selecting the current table, or a table the loaded config does
// not list, is a no-op and returns false.
func (c *Controller) SelectTable(id string) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == c.state.TableID {
		return false
	}
	if c.state.Config != nil {
		if _, ok := c.state.Config.Table(id); !ok {
			c.logger.Warn("unknown table", "table_id", id)
			return false
		}
	}

	c.switchTableLocked(id)
	return true
}

// switchTableLocked makes id the selected table and drops everything that
// belonged to the previous one, including any in-flight search. c.mu must
// be held.
func (c *Controller) switchTableLocked(id string) {
	c.state.TableID = id
	c.state.Results = nil
	c.state.Loading = false
	c.state.Err = nil
	c.state.Searched = false
	c.state.Categories = nil
	c.state.CategoryErr = nil
	c.seq++
	c.tableGen++
	c.logger.Info("table selected", "table_id", id)
}

// Search dispatches a search built from the state as it is right now, not as
// it was when the caller decided to search. Responses to requests that have
// been superseded, by a newer search or a table switch, are discarded and
// ErrSuperseded is returned. Failures are recorded in state as KindSearch
// errors and also returned.
func (c *Controller) Search(ctx context.Context, intent Intent) error {
	c.mu.Lock()
	q := query.SearchQuery{
		Query:   c.state.Query,
		TableID: c.state.TableID,
		Filters: c.state.Filters,
	}
	if intent.override != nil {
		q.Filters = *intent.override
	}
	c.seq++
	seq := c.seq
	c.state.Loading = true
	c.state.Err = nil
	c.mu.Unlock()

	start := time.Now()
	results, err := c.engine.Search(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("discarding superseded search response", "seq", seq, "latest", c.seq)
		return ErrSuperseded
	}

	c.state.Loading = false
	c.state.Searched = true
	if err != nil {
		serr := &Error{Kind: KindSearch, Err: err}
		c.state.Err = serr
		c.state.Results = nil
		c.logger.Warn("search failed", "query", q.Query, "table_id", q.TableID, "err", err)
		return serr
	}

	c.state.Results = results
	c.logger.Info("search",
		"query", q.Query,
		"table_id", q.TableID,
		"search_type", q.Filters.SearchType.String(),
		"limit", q.Filters.Limit,
		"results", results.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// LoadConfig fetches dataset metadata. When no table is selected yet, the
// first listed table becomes the selection, which supersedes a search sent
// before the config arrived. Failure is recorded as a
// KindConfigLoad error and is not fatal to the session.
func (c *Controller) LoadConfig(ctx context.Context) error {
	cfg, err := c.engine.DatasetConfig(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		serr := &Error{Kind: KindConfigLoad, Err: err}
		c.state.ConfigErr = serr
		c.logger.Warn("config load failed", "err", err)
		return serr
	}

	c.state.Config = cfg
	c.state.ConfigErr = nil
	if c.state.TableID == "" && cfg != nil && len(cfg.Tables) > 0 && cfg.Tables[0].ID != "" {
		c.switchTableLocked(cfg.Tables[0].ID)
	}
	return nil
}

// LoadCategories fetches the categories of the selected table. A response
// that arrives after the table changed is discarded with ErrSuperseded.
// Failure empties the list and records a KindCategoryLoad error.
func (c *Controller) LoadCategories(ctx context.Context) error {
	c.mu.Lock()
	tableID := c.state.TableID
	gen := c.tableGen
	c.mu.Unlock()

	cats, err := c.engine.Categories(ctx, tableID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.tableGen {
		return ErrSuperseded
	}
	if err != nil {
		serr := &Error{Kind: KindCategoryLoad, Err: err}
		c.state.Categories = nil
		c.state.CategoryErr = serr
		c.logger.Warn("category load failed", "table_id", tableID, "err", err)
		return serr
	}
	c.state.Categories = cats
	c.state.CategoryErr = nil
	return nil
}

// Initialize loads the dataset config and then the categories of the
// selected table. Both failures are non-fatal; the returned error joins them.
func (c *Controller) Initialize(ctx context.Context) error {
	cfgErr := c.LoadConfig(ctx)
	catErr := c.LoadCategories(ctx)
	if errors.Is(catErr, ErrSuperseded) {
		catErr = nil
	}
	return errors.Join(cfgErr, catErr)
}

// Package querytest provides shared test doubles for the query.Engine interface.
package querytest

import (
	"context"
	"sync"

	"github.com/wesm/emailsearch/internal/query"
)

// MockEngine implements query.Engine for testing. Each method delegates to an
// optional function field; when the field is nil, the canned value is returned.
// Every Search call is recorded so tests can assert on dispatched requests.
type MockEngine struct {
	Config         *query.DatasetConfig
	CategoriesByID map[string][]string
	SearchResults  query.ResultSet
	ConfigErr      error
	CategoriesErr  error
	SearchErr      error

	// Optional overrides, set per test.
	DatasetConfigFunc func(context.Context) (*query.DatasetConfig, error)
	CategoriesFunc    func(context.Context, string) ([]string, error)
	SearchFunc        func(context.Context, query.SearchQuery) (query.ResultSet, error)

	mu              sync.Mutex
	searches        []query.SearchQuery
	categoryLookups []string
	configLoads     int
}

// Compile-time check.
var _ query.Engine = (*MockEngine)(nil)

func (m *MockEngine) DatasetConfig(ctx context.Context) (*query.DatasetConfig, error) {
	m.mu.Lock()
	m.configLoads++
	m.mu.Unlock()
	if m.DatasetConfigFunc != nil {
		return m.DatasetConfigFunc(ctx)
	}
	return m.Config, m.ConfigErr
}

func (m *MockEngine) Categories(ctx context.Context, tableID string) ([]string, error) {
	m.mu.Lock()
	m.categoryLookups = append(m.categoryLookups, tableID)
	m.mu.Unlock()
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx, tableID)
	}
	if m.CategoriesErr != nil {
		return nil, m.CategoriesErr
	}
	return m.CategoriesByID[tableID], nil
}

func (m *MockEngine) Search(ctx context.Context, q query.SearchQuery) (query.ResultSet, error) {
	m.mu.Lock()
	m.searches = append(m.searches, q)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, q)
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchResults, nil
}

func (m *MockEngine) Close() error { return nil }

// Searches returns a copy of every SearchQuery received, in call order.
func (m *MockEngine) Searches() []query.SearchQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]query.SearchQuery(nil), m.searches...)
}

// SearchCount returns the number of Search calls received.
func (m *MockEngine) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

// CategoryLookups returns the table ids passed to Categories, in call order.
func (m *MockEngine) CategoryLookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.categoryLookups...)
}

// ConfigLoads returns the number of DatasetConfig calls received.
func (m *MockEngine) ConfigLoads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configLoads
}

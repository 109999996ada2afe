package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wesm/emailsearch/internal/filter"
	"github.com/wesm/emailsearch/internal/query"
)

// Engine implements query.Engine by making HTTP calls to the search service.
type Engine struct {
	client *Client
	group  singleflight.Group
}

// Compile-time check that Engine implements query.Engine.
var _ query.Engine = (*Engine)(nil)

// NewEngine creates a new remote query engine.
func NewEngine(cfg Config) (*Engine, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c}, nil
}

// BaseURL returns the service URL the engine talks to.
func (e *Engine) BaseURL() string {
	return e.client.BaseURL()
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	return e.client.Close()
}

// ============================================================================
// API Types
// ============================================================================

// configResponse matches GET /api/config. Single-table deployments report
// only dataset and table.
type configResponse struct {
	Dataset string      `json:"dataset"`
	Table   string      `json:"table"`
	Tables  []tableJSON `json:"tables"`
}

type tableJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Table string `json:"table"`
}

// categoriesResponse matches GET /api/categories.
type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// searchRequest matches the POST /api/search body. Nullable fields are
// pointers so that unset values encode as null.
type searchRequest struct {
	Query           string  `json:"query"`
	TableID         *string `json:"table_id"`
	Limit           int     `json:"limit"`
	SearchType      string  `json:"search_type"`
	DateFrom        *string `json:"date_from"`
	DateTo          *string `json:"date_to"`
	SenderFilter    string  `json:"sender_filter"`
	RecipientFilter string  `json:"recipient_filter"`
	ShowSummaries   bool    `json:"show_summaries"`
	CategoryFilter  *string `json:"category_filter"`
}

// searchResponse matches the POST /api/search response. Records are kept
// raw so their field order survives decoding.
type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

// resultJSON holds the typed view of a result record. encoding/json matches
// keys case-insensitively, so "Subject" and "subject" both land here.
type resultJSON struct {
	ID             json.RawMessage `json:"id"`
	Subject        *string         `json:"subject"`
	Body           *string         `json:"body"`
	Sender         *string         `json:"sender"`
	Recipient      *string         `json:"recipient"`
	Date           *string         `json:"date"`
	Category       *string         `json:"category"`
	Summary        *string         `json:"summary"`
	Filename       *string         `json:"filename"`
	SourceFilename *string         `json:"source_filename"`
}

// ============================================================================
// Engine Methods
// ============================================================================

// DatasetConfig fetches dataset and table metadata. Concurrent callers share
// one in-flight request.
func (e *Engine) DatasetConfig(ctx context.Context) (*query.DatasetConfig, error) {
	v, err, _ := e.group.Do("config", func() (any, error) {
		var resp configResponse
		if err := e.client.getJSON(ctx, "/api/config", &resp); err != nil {
			return nil, err
		}
		return parseConfigResponse(resp), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*query.DatasetConfig), nil
}

// Categories lists the categories available for a table.
func (e *Engine) Categories(ctx context.Context, tableID string) ([]string, error) {
	path := "/api/categories"
	if tableID != "" {
		path += "?" + url.Values{"table_id": {tableID}}.Encode()
	}

	var resp categoriesResponse
	if err := e.client.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Categories == nil {
		return []string{}, nil
	}
	return resp.Categories, nil
}

// Search runs q against the service and returns results in server order.
func (e *Engine) Search(ctx context.Context, q query.SearchQuery) (query.ResultSet, error) {
	var resp searchResponse
	if err := e.client.postJSON(ctx, "/api/search", buildSearchRequest(q), &resp); err != nil {
		return nil, err
	}
	return parseResults(resp.Results)
}

// ============================================================================
// Helper Functions
// ============================================================================

func parseConfigResponse(resp configResponse) *query.DatasetConfig {
	cfg := &query.DatasetConfig{DatasetName: resp.Dataset}
	for _, t := range resp.Tables {
		label := t.Label
		if label == "" {
			label = firstNonEmpty(t.Table, t.ID)
		}
		cfg.Tables = append(cfg.Tables, query.Table{ID: t.ID, Label: label, TableName: t.Table})
	}
	if len(cfg.Tables) == 0 {
		cfg.Tables = []query.Table{{
			Label:     firstNonEmpty(resp.Table, resp.Dataset, "default"),
			TableName: resp.Table,
		}}
	}
	return cfg
}

func buildSearchRequest(q query.SearchQuery) searchRequest {
	f := q.Filters
	req := searchRequest{
		Query:           q.Query,
		TableID:         nullable(q.TableID),
		Limit:           f.Limit,
		SearchType:      f.SearchType.String(),
		SenderFilter:    f.Sender,
		RecipientFilter: f.Recipient,
		ShowSummaries:   f.ShowSummaries,
		CategoryFilter:  nullable(f.Category),
	}
	if f.HasDateRange() {
		req.DateFrom = nullable(filter.FormatDate(f.DateFrom))
		req.DateTo = nullable(filter.FormatDate(f.DateTo))
	}
	return req
}

func parseResults(records []json.RawMessage) (query.ResultSet, error) {
	results := make(query.ResultSet, 0, len(records))
	for i, raw := range records {
		r, err := parseResult(raw)
		if err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func parseResult(raw json.RawMessage) (query.SearchResult, error) {
	var rj resultJSON
	if err := json.Unmarshal(raw, &rj); err != nil {
		return query.SearchResult{}, err
	}

	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, om); err != nil {
		return query.SearchResult{}, err
	}
	fields := make([]query.Field, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, query.Field{Name: pair.Key, Value: pair.Value})
	}

	return query.SearchResult{
		ID:             idText(rj.ID),
		Subject:        deref(rj.Subject),
		Body:           deref(rj.Body),
		Sender:         deref(rj.Sender),
		Recipient:      deref(rj.Recipient),
		Date:           deref(rj.Date),
		Category:       deref(rj.Category),
		Summary:        deref(rj.Summary),
		SourceFilename: firstNonEmpty(deref(rj.SourceFilename), deref(rj.Filename)),
		Fields:         fields,
	}, nil
}

// idText renders a record id that may arrive as a JSON string or number.
func idText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package query defines the data model shared by the search client: the
// request a session dispatches, the documents the remote service returns, and
// the dataset metadata that scopes a session.
// Ranking and filtering of documents happens entirely on the server; nothing
// in this package reorders or filters results.
package query

import (
	"encoding/json"

	"github.com/wesm/emailsearch/internal/filter"
)

// SearchQuery is the complete description of one search request. It is built
// fresh for every dispatch and never modified afterwards.
type SearchQuery struct {
	Query   string
	TableID string // empty = the service's default table
	Filters filter.Filters
}

// Field is one named value of a result record, kept as the raw JSON the
// service sent so that numbers, booleans, and nulls survive untouched.
type Field struct {
	Name  string
	Value json.RawMessage
}

// SearchResult is a single matched document.
type SearchResult struct {
	ID             string
	Subject        string
	Body           string
	Sender         string
	Recipient      string
	Date           string // ISO date or date-time, as sent by the service
	Category       string // empty when uncategorized
	Summary        string // empty when no summary exists
	SourceFilename string

	// Fields holds every field of the record in the order received. It is
	// empty for results constructed in code rather than decoded.
	Fields []Field
}

// HasSummary reports whether the service supplied a summary.
func (r SearchResult) HasSummary() bool {
	return r.Summary != ""
}

// ResultSet is the ordered sequence of results for one search, in server
// ranking order.
type ResultSet []SearchResult

// Len returns the number of results.
func (rs ResultSet) Len() int {
	return len(rs)
}

// Table describes one searchable table within a dataset.
type Table struct {
	ID        string
	Label     string
	TableName string
}

// DatasetConfig is the dataset metadata fetched once per session.
type DatasetConfig struct {
	DatasetName string
	Tables      []Table
}

// Table returns the table with the given id.
func (c *DatasetConfig) Table(id string) (Table, bool) {
	if c == nil {
		return Table{}, false
	}
	for _, t := range c.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// QualifiedName returns "dataset.table" for display, or just the dataset
// name when the table is unknown.
func (c *DatasetConfig) QualifiedName(tableID string) string {
	if c == nil {
		return ""
	}
	t, ok := c.Table(tableID)
	if !ok || t.TableName == "" {
		return c.DatasetName
	}
	if c.DatasetName == "" {
		return t.TableName
	}
	return c.DatasetName + "." + t.TableName
}

package testutil

import (
	"strconv"

	"github.com/wesm/emailsearch/internal/query"
)

// ResultBuilder provides a fluent API for constructing query.SearchResult in tests.
type ResultBuilder struct {
	r query.SearchResult
}

// NewResult creates a builder with sensible defaults.
func NewResult(id string) *ResultBuilder {
	return &ResultBuilder{
		r: query.SearchResult{
			ID:             id,
			Subject:        "Test Subject",
			Body:           "Test body",
			Sender:         "sender@example.com",
			Recipient:      "recipient@example.com",
			Date:           "2024-01-01",
			SourceFilename: "mail-" + id + ".eml",
		},
	}
}

func (b *ResultBuilder) WithSubject(s string) *ResultBuilder {
	b.r.Subject = s
	return b
}

func (b *ResultBuilder) WithBody(s string) *ResultBuilder {
	b.r.Body = s
	return b
}

func (b *ResultBuilder) WithSender(s string) *ResultBuilder {
	b.r.Sender = s
	return b
}

func (b *ResultBuilder) WithRecipient(s string) *ResultBuilder {
	b.r.Recipient = s
	return b
}

func (b *ResultBuilder) WithDate(s string) *ResultBuilder {
	b.r.Date = s
	return b
}

func (b *ResultBuilder) WithCategory(s string) *ResultBuilder {
	b.r.Category = s
	return b
}

func (b *ResultBuilder) WithSummary(s string) *ResultBuilder {
	b.r.Summary = s
	return b
}

// WithFields sets the raw ordered fields used by the CSV exporter.
// Each pair is a field name followed by its raw JSON value.
func (b *ResultBuilder) WithFields(pairs ...string) *ResultBuilder {
	b.r.Fields = nil
	for i := 0; i+1 < len(pairs); i += 2 {
		b.r.Fields = append(b.r.Fields, query.Field{Name: pairs[i], Value: []byte(pairs[i+1])})
	}
	return b
}

func (b *ResultBuilder) Build() query.SearchResult {
	return b.r
}

// Results builds n results with ids "1".."n" and distinct subjects.
func Results(n int) query.ResultSet {
	rs := make(query.ResultSet, n)
	for i := range rs {
		id := strconv.Itoa(i + 1)
		rs[i] = NewResult(id).WithSubject("Subject " + id).Build()
	}
	return rs
}

// Package export serializes result sets for use outside the client.
package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/wesm/emailsearch/internal/query"
)

// FileName returns the export file name for a download started at now,
// e.g. "email_search_2024-03-15.csv".
func FileName(now time.Time) string {
	return "email_search_" + now.Format("2006-01-02") + ".csv"
}

// ToCSV renders results as comma-separated text. The header row holds the
// field names of the first result, in the order the service sent them. Each
// following row holds that result's own values in its own order: records
// with extra or missing fields are not normalized against the header.
// Rows are separated by "\n" with no trailing newline. An empty result set
// renders as the empty string.
func ToCSV(results query.ResultSet) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	header := fieldsOf(results[0])
	for i, f := range header {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Name)
	}

	for _, r := range results {
		sb.WriteByte('\n')
		for i, f := range fieldsOf(r) {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(EscapeValue(valueText(f.Value)))
		}
	}
	return sb.String()
}

// EscapeValue quotes s when it contains a comma, a double quote, or a
// newline, doubling any inner quotes. Other values are returned verbatim.
func EscapeValue(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// valueText converts a raw JSON value to its CSV text: null is empty,
// strings are unquoted, and everything else is emitted as sent.
func valueText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// fieldsOf returns the record's fields as received, or the canonical field
// list for results that were built in code.
func fieldsOf(r query.SearchResult) []query.Field {
	if len(r.Fields) > 0 {
		return r.Fields
	}
	return []query.Field{
		{Name: "id", Value: jsonString(r.ID)},
		{Name: "Subject", Value: jsonString(r.Subject)},
		{Name: "Body", Value: jsonString(r.Body)},
		{Name: "sender", Value: jsonString(r.Sender)},
		{Name: "recipient", Value: jsonString(r.Recipient)},
		{Name: "date", Value: jsonString(r.Date)},
		{Name: "filename", Value: jsonString(r.SourceFilename)},
		{Name: "summary", Value: optionalString(r.Summary)},
		{Name: "category", Value: optionalString(r.Category)},
	}
}

func jsonString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func optionalString(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return jsonString(s)
}

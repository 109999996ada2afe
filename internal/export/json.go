package export

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wesm/emailsearch/internal/query"
)

// ToJSON renders results as an indented JSON array. Each record keeps the
// fields and field order the service sent.
func ToJSON(results query.ResultSet) ([]byte, error) {
	records := make([]*orderedmap.OrderedMap[string, json.RawMessage], 0, len(results))
	for _, r := range results {
		om := orderedmap.New[string, json.RawMessage]()
		for _, f := range fieldsOf(r) {
			om.Set(f.Name, f.Value)
		}
		records = append(records, om)
	}
	return json.MarshalIndent(records, "", "  ")
}

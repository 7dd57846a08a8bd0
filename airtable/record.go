package airtable

import (
	"math"
	"time"
)

// Record is one row of a table: an identifier plus a mapping of field names to values.
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

// Fields holds the cell values of a record as decoded from JSON.
// Linked-record fields hold arrays of other records' identifiers.
type Fields map[string]any

func (f Fields) String(name string) string {
	s, _ := f[name].(string)
	return s
}

func (f Fields) Bool(name string) bool {
	b, _ := f[name].(bool)
	return b
}

func (f Fields) Number(name string) float64 {
	switch v := f[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

func (f Fields) Int(name string) int {
	return int(math.Round(f.Number(name)))
}

// Links returns the identifiers held by a linked-record field.
// A bare string is accepted as a single link.
func (f Fields) Links(name string) []string {
	switch v := f[name].(type) {
	case []string:
		return v
	case []any:
		ids := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// FirstLink returns the first identifier of a linked-record field, or "".
func (f Fields) FirstLink(name string) string {
	links := f.Links(name)
	if len(links) == 0 {
		return ""
	}
	return links[0]
}

// Direction of a sort clause.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     string
	Direction Direction
}

type ListOptions struct {
	Sort            []Sort
	FilterByFormula string
	PageSize        int
	Offset          string
}

// ListResult is one page of records. Offset is the continuation cursor,
// empty on the last page.
type ListResult struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Package airtabletest provides an in-memory tables API for tests.
package airtabletest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/brand-survey/airtable"
)

const (
	BaseID = "appTEST"
	APIKey = "keyTEST"
)

// Server mimics the subset of the tables API the client uses: sorted,
// paginated listing with {field}='value' filters, and batch create, patch
// and delete.
type Server struct {
	*httptest.Server
	PageSize int

	mu       sync.Mutex
	tables   map[string][]airtable.Record
	seq      int
	failures map[string]int
	requests []string
}

func NewServer() *Server {
	s := &Server{
		PageSize: 100,
		tables:   map[string][]airtable.Record{},
		failures: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Client returns a client pointed at the fake server.
func (s *Server) Client(opts ...airtable.Option) *airtable.Client {
	return airtable.New(s.URL, BaseID, APIKey, opts...)
}

// Seed appends a record and returns its identifier.
func (s *Server) Seed(table string, fields airtable.Fields) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(table, fields).ID
}

func (s *Server) Records(table string) []airtable.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]airtable.Record(nil), s.tables[table]...)
}

// FailOn makes every request with the given method on table answer with status.
func (s *Server) FailOn(method, table string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+table] = status
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]int{}
}

// Requests returns "METHOD table" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) insert(table string, fields airtable.Fields) airtable.Record {
	s.seq++
	rec := airtable.Record{
		ID:          fmt.Sprintf("rec%014d", s.seq),
		CreatedTime: time.Unix(int64(s.seq), 0).UTC(),
		Fields:      normalize(fields),
	}
	s.tables[table] = append(s.tables[table], rec)
	return rec
}

// normalize round-trips fields through JSON so stored values look decoded.
func normalize(fields airtable.Fields) airtable.Fields {
	out := airtable.Fields{}
	buf, _ := json.Marshal(fields)
	_ = json.Unmarshal(buf, &out)
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+APIKey {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != BaseID {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	table := parts[1]
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}

	s.requests = append(s.requests, r.Method+" "+table)
	if status, ok := s.failures[r.Method+" "+table]; ok {
		writeError(w, status, "INJECTED_FAILURE")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.list(w, r, table)
	case http.MethodPost:
		body, ok := decodeBatch(w, r)
		if !ok {
			return
		}
		out := batch{Records: []airtable.Record{}}
		for _, rec := range body.Records {
			out.Records = append(out.Records, s.insert(table, rec.Fields))
		}
		writeJSON(w, out)
	case http.MethodPatch:
		body, ok := decodeBatch(w, r)
		if !ok {
			return
		}
		for _, rec := range body.Records {
			if s.find(table, rec.ID) < 0 {
				writeError(w, http.StatusNotFound, "NOT_FOUND")
				return
			}
		}
		out := batch{Records: []airtable.Record{}}
		for _, patch := range body.Records {
			i := s.find(table, patch.ID)
			rec := s.tables[table][i]
			for k, v := range normalize(patch.Fields) {
				rec.Fields[k] = v
			}
			s.tables[table][i] = rec
			out.Records = append(out.Records, rec)
		}
		writeJSON(w, out)
	case http.MethodDelete:
		ids := r.URL.Query()["records[]"]
		for _, id := range ids {
			if s.find(table, id) < 0 {
				writeError(w, http.StatusNotFound, "NOT_FOUND")
				return
			}
		}
		deleted := []map[string]any{}
		for _, id := range ids {
			i := s.find(table, id)
			recs := s.tables[table]
			s.tables[table] = append(recs[:i:i], recs[i+1:]...)
			deleted = append(deleted, map[string]any{"id": id, "deleted": true})
		}
		writeJSON(w, map[string]any{"records": deleted})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	}
}

// batch is the answer to multi-record writes.
type batch struct {
	Records []airtable.Record `json:"records"`
}

// writeBody is what the client sends for multi-record writes.
type writeBody struct {
	Records []struct {
		ID     string          `json:"id"`
		Fields airtable.Fields `json:"fields"`
	} `json:"records"`
}

func decodeBatch(w http.ResponseWriter, r *http.Request) (writeBody, bool) {
	var body writeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Records) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY")
		return body, false
	}
	return body, true
}

func (s *Server) find(table, id string) int {
	for i, rec := range s.tables[table] {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, table string) {
	q := r.URL.Query()

	recs := append([]airtable.Record(nil), s.tables[table]...)

	if formula := q.Get("filterByFormula"); formula != "" {
		field, value, err := airtable.ParseEquals(formula)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_FILTER_BY_FORMULA")
			return
		}
		kept := recs[:0]
		for _, rec := range recs {
			if fmt.Sprint(rec.Fields[field]) == value {
				kept = append(kept, rec)
			}
		}
		recs = kept
	}

	if field := q.Get("sort[0][field]"); field != "" {
		desc := q.Get("sort[0][direction]") == "desc"
		sort.SliceStable(recs, func(a, b int) bool {
			c := compare(recs[a].Fields[field], recs[b].Fields[field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	size := s.PageSize
	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil && n > 0 && n < size {
		size = n
	}
	start := 0
	if off := q.Get("offset"); off != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(off, "itr"))
		if err != nil || n < 0 || n > len(recs) {
			writeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE")
			return
		}
		start = n
	}
	end := start + size
	page := airtable.ListResult{Records: []airtable.Record{}}
	if end < len(recs) {
		page.Offset = "itr" + strconv.Itoa(end)
	} else {
		end = len(recs)
	}
	page.Records = append(page.Records, recs[start:end]...)
	writeJSON(w, page)
}

func compare(a, b any) int {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	switch {
	case aok && bok:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"type": typ, "message": typ}})
}

// Package remotetest provides an in-process fake of the search service for
// tests. It serves the same routes as the real service and records every
// request it receives.
package remotetest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request is a recorded request.
type Request struct {
	Method    string
	Path      string
	Query     string
	APIKey    string
	RequestID string
	Body      map[string]any
}

// Server is a fake search service. Responses are configured through the
// Set* methods, which are safe to call while requests are in flight.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Config is the body of GET /api/config.
	Config map[string]any
	// Categories maps table_id ("" for no parameter) to its category list.
	Categories map[string][]string
	// Results is the raw JSON array returned in {"results": ...}.
	Results string
	// SearchHandler, when set, replaces the default search response.
	SearchHandler http.HandlerFunc

	// Fail, when non-zero, makes the matching route return this status with
	// FailBody. Keys are route paths such as "/api/search".
	Fail     map[string]int
	FailBody string

	requests []Request
}

// New starts a fake service that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Config:     map[string]any{"dataset": "mail", "table": "emails"},
		Categories: map[string][]string{},
		Results:    "[]",
		Fail:       map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/categories", s.handleCategories)
		r.Post("/search", s.handleSearch)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request to path.
func (s *Server) LastRequest(path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

// SetResults replaces the raw JSON array of search results.
func (s *Server) SetResults(rawJSON string) {
	s.mu.Lock()
	s.Results = rawJSON
	s.mu.Unlock()
}

// SetConfig replaces the GET /api/config body.
func (s *Server) SetConfig(cfg map[string]any) {
	s.mu.Lock()
	s.Config = cfg
	s.mu.Unlock()
}

// SetCategories sets the category list served for tableID.
func (s *Server) SetCategories(tableID string, cats ...string) {
	s.mu.Lock()
	s.Categories[tableID] = cats
	s.mu.Unlock()
}

// SetSearchHandler replaces the search route's handler.
func (s *Server) SetSearchHandler(h http.HandlerFunc) {
	s.mu.Lock()
	s.SearchHandler = h
	s.mu.Unlock()
}

// FailWith makes requests to path return status with body.
func (s *Server) FailWith(path string, status int, body string) {
	s.mu.Lock()
	s.Fail[path] = status
	s.FailBody = body
	s.mu.Unlock()
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			APIKey:    r.Header.Get("X-API-Key"),
			RequestID: r.Header.Get("X-Request-ID"),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &req.Body)
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		status := s.Fail[r.URL.Path]
		failBody := s.FailBody
		s.mu.Unlock()

		if status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, failBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	cfg := s.Config
	s.mu.Unlock()
	writeJSON(w, cfg)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cats := s.Categories[r.URL.Query().Get("table_id")]
	s.mu.Unlock()
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, map[string]any{"categories": cats})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := s.SearchHandler
	results := s.Results
	s.mu.Unlock()

	if h != nil {
		h(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"results":`+results+`}`)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

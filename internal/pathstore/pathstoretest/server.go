// Package pathstoretest provides an in-memory pathstore server for tests.
package pathstoretest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is an httptest.Server speaking the pathstore /kv API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	data     map[string]json.RawMessage
	failures []int
	puts     int

	failPuts  map[string]int // key prefix -> status for every PUT below it
	listLimit int
}

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{data: make(map[string]json.RawMessage)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailNext makes the next len(statuses) requests fail with those statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// FailPuts makes every PUT to a key under prefix fail with status.
func (s *Server) FailPuts(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPuts == nil {
		s.failPuts = make(map[string]int)
	}
	s.failPuts[prefix] = status
}

// SetListLimit caps list responses that carry no limit parameter, like a
// server-side default page size.
func (s *Server) SetListLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listLimit = n
}

// Value returns the raw stored value for key.
func (s *Server) Value(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Keys returns all stored keys in order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts returns the number of successful writes.
func (s *Server) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		status := s.failures[0]
		s.failures = s.failures[1:]
		http.Error(w, "injected failure", status)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	key, ok := strings.CutPrefix(r.URL.Path, "/kv/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		for prefix, status := range s.failPuts {
			if strings.HasPrefix(key, prefix) {
				http.Error(w, "injected failure", status)
				return
			}
		}
		var req struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.data[key] = req.Value
		s.puts++
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		if prefix, ok := strings.CutSuffix(key, "/*"); ok {
			s.list(w, r, prefix)
			return
		}
		v, ok := s.data[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"key_path": key, "value": v})

	case http.MethodDelete:
		if _, ok := s.data[key]; !ok && r.URL.Query().Get("children") != "true" {
			http.NotFound(w, r)
			return
		}
		delete(s.data, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range s.data {
				if strings.HasPrefix(k, key+"/") {
					delete(s.data, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, prefix string) {
	type node struct {
		Key   string          `json:"key_path"`
		Value json.RawMessage `json:"value"`
	}
	var nodes []node
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix+"/") {
			nodes = append(nodes, node{Key: k, Value: v})
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = s.listLimit
	}
	if limit > 0 && limit < len(nodes) {
		nodes = nodes[:limit]
	}
	if nodes == nil {
		nodes = []node{}
	}
	writeJSON(w, map[string]any{"nodes": nodes})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

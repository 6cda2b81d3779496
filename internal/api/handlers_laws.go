package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/publish"
)

// handleListLaws lists the metadata of every published law.
func (s *Server) handleListLaws(w http.ResponseWriter, r *http.Request) {
	laws, err := s.orchestrator.Publisher().List(r.Context())
	if err != nil {
		jsonError(w, "failed to list laws: "+err.Error(), http.StatusBadGateway)
		return
	}
	if laws == nil {
		laws = []publish.Meta{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"laws": laws})
}

// handleLawItems returns one page of a law's items. The next page starts
// after the last returned index.
func (s *Server) handleLawItems(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !law.IsCategory(category) {
		jsonError(w, "invalid category", http.StatusBadRequest)
		return
	}

	after, limit := -1, publish.DefaultPageSize
	q := r.URL.Query()
	if v := q.Get("after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "after must be an integer", http.StatusBadRequest)
			return
		}
		after = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}

	ctx := r.Context()
	pub := s.orchestrator.Publisher()
	meta, items, err := pub.Items(ctx, category, after, limit)
	if err != nil {
		jsonError(w, "failed to read items: "+err.Error(), http.StatusBadGateway)
		return
	}
	if meta == nil {
		jsonError(w, "law not found", http.StatusNotFound)
		return
	}
	if items == nil {
		items = []publish.Item{}
	}

	resp := map[string]any{
		"category": category,
		"total":    meta.ItemCount,
		"items":    items,
		"has_more": false,
	}
	if len(items) > 0 {
		last := items[len(items)-1].Index
		resp["next_after"] = last
		resp["has_more"] = last < meta.ItemCount-1
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleDeleteLaw removes a law, its items and its catalog entry.
func (s *Server) handleDeleteLaw(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !law.IsCategory(category) {
		jsonError(w, "invalid category", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	pub := s.orchestrator.Publisher()
	meta, err := pub.Meta(ctx, category)
	if err != nil {
		jsonError(w, "failed to read law: "+err.Error(), http.StatusBadGateway)
		return
	}
	if err := pub.Delete(ctx, category); err != nil {
		jsonError(w, "failed to delete law: "+err.Error(), http.StatusBadGateway)
		return
	}
	if _, err := pub.Touch(ctx, 0); err != nil {
		s.log.Warn("system metadata update failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"category": category,
		"deleted":  meta != nil,
	})
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/lawgest/internal/rules"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.orchestrator.Stats())
}

// handleRules returns the rule set new jobs use, as JSON or, with
// ?format=yaml, as a rules file that can be edited and loaded back.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	set := s.orchestrator.Rules().Current()

	if r.URL.Query().Get("format") == "yaml" {
		data, err := set.Export()
		if err != nil {
			jsonError(w, "failed to export rules: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}

	resp := map[string]any{
		"file":      set.File(),
		"markers":   set.Rules(),
		"artifacts": set.ArtifactPhrases(),
	}
	if wt, ok := s.orchestrator.Rules().(*rules.Watcher); ok {
		resp["reloads"] = wt.Reloads()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

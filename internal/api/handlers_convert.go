package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/source"
	"github.com/dgallion1/lawgest/internal/validate"
)

// handleConvert converts one upload synchronously and returns the document
// and its report. Nothing is stored.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	filename, data, status, err := s.readUpload(files[0])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	meta, err := s.metadataFromForm(r, filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := convert.Options{
		Rules:    s.orchestrator.Rules().Current(),
		Validate: s.cfg.ValidateConfig(),
	}
	srcOpts := source.Options{FallbackPdftotext: s.cfg.PDFFallbackPdftotext}
	res, err := convert.Source(filename, func() (string, error) {
		return source.Extract(bytes.NewReader(data), filename, srcOpts)
	}, meta, opts)
	if err != nil {
		s.log.Error("rule set unusable", "error", err)
		jsonError(w, "conversion rules are invalid", http.StatusInternalServerError)
		return
	}
	if !res.OK() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": res.Err.Err.Error(),
			"kind":  res.Err.Kind,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Document *law.Document   `json:"document"`
		Report   validate.Report `json:"report"`
		Warnings []string        `json:"warnings"`
	}{res.Document, res.Report, append([]string{}, res.Report.Messages()...)})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/lawgest/internal/config"
	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/pathstore"
	"github.com/dgallion1/lawgest/internal/pathstore/pathstoretest"
	"github.com/dgallion1/lawgest/internal/pipeline"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/rules"
)

const (
	testKey   = "secret"
	sampleLaw = "TÍTULO I\nDISPOSICIONES GENERALES\nArtículo 1. El trabajo es un hecho social.\nArtículo 2. El Estado protege el trabajo."
)

type testEnv struct {
	srv  *Server
	orch *pipeline.Orchestrator
	ps   *pathstoretest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ps := pathstoretest.New()
	t.Cleanup(ps.Close)

	cfg := config.Config{
		LawgestAPIKey:   testKey,
		WorkerCount:     1,
		MaxQueueSize:    10,
		MaxUploadBytes:  1 << 20,
		JobTTL:          time.Hour,
		GapTolerance:    5,
		MinArticleChars: 10,
		DefaultLawType:  law.TypeLeyOrganica,
	}
	pub := publish.New(pathstore.NewClient(ps.URL, "ps-key"), cfg.PublishConfig(), log)
	orch := pipeline.NewOrchestrator(cfg, rules.NewStatic(rules.Default()), pub, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return &testEnv{srv: NewServer(orch, log, cfg), orch: orch, ps: ps}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, field string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitForJob(t *testing.T, e *testEnv, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/ingest/"+jobID+"/status", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		var snap pipeline.JobSnapshot
		decode(t, rec, &snap)
		if snap.Status.Done() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s stuck in %s", jobID, snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", "none"},
		{"wrong key", "Bearer nope"},
		{"not bearer", "Basic " + testKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/laws", nil)
			req.Header.Set("Authorization", tt.header)
			if rec := e.do(t, req); rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	e := newTestEnv(t)
	req := uploadRequest(t, "/api/convert", "file", map[string]string{"ley_del_trabajo.txt": sampleLaw},
		map[string]string{"date": "2012-05-07"})
	rec := e.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Document struct {
			Title    string `json:"title"`
			Category string `json:"category"`
			Date     string `json:"date"`
			Content  struct {
				Articles []struct {
					Type   string `json:"type"`
					Number string `json:"number"`
				} `json:"articles"`
			} `json:"content"`
		} `json:"document"`
		Report struct {
			ArticleCount int `json:"article_count"`
		} `json:"report"`
	}
	decode(t, rec, &resp)
	if resp.Document.Category != "ley_del_trabajo" || resp.Document.Date != "2012-05-07" {
		t.Errorf("unexpected document %+v", resp.Document)
	}
	if len(resp.Document.Content.Articles) != 3 || resp.Report.ArticleCount != 2 {
		t.Errorf("unexpected content %+v", resp.Document.Content)
	}
	if len(e.ps.Keys()) != 0 {
		t.Errorf("expected nothing stored, got %v", e.ps.Keys())
	}
}

func TestConvert_Failures(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		file   string
		body   string
		fields map[string]string
		code   int
		kind   string
	}{
		{"no markers", "nota.txt", "Texto sin marcas.", nil, http.StatusUnprocessableEntity, "no_markers_found"},
		{"empty", "vacio.txt", "   ", nil, http.StatusUnprocessableEntity, "extraction_failure"},
		{"unsupported", "ley.csv", "a,b", nil, http.StatusBadRequest, ""},
		{"bad date", "ley.txt", sampleLaw, map[string]string{"date": "07/05/2012"}, http.StatusBadRequest, ""},
		{"bad type", "ley.txt", sampleLaw, map[string]string{"type": "novela"}, http.StatusBadRequest, ""},
		{"bad category", "ley.txt", sampleLaw, map[string]string{"category": "Ley X"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadRequest(t, "/api/convert", "file", map[string]string{tt.file: tt.body}, tt.fields)
			rec := e.do(t, req)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
			if tt.kind == "" {
				return
			}
			var resp struct {
				Kind string `json:"kind"`
			}
			decode(t, rec, &resp)
			if resp.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, resp.Kind)
			}
		})
	}
}

func TestIngestListItemsDelete(t *testing.T) {
	e := newTestEnv(t)

	req := uploadRequest(t, "/api/ingest", "file", map[string]string{"ley.txt": sampleLaw},
		map[string]string{"title": "Ley Orgánica del Trabajo", "category": "lott", "date": "2012-05-07"})
	rec := e.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)
	if !strings.HasSuffix(accepted.PollURL, accepted.JobID+"/status") {
		t.Errorf("unexpected poll url %s", accepted.PollURL)
	}

	snap := waitForJob(t, e, accepted.JobID)
	if snap.Status != pipeline.StatusCompleted || snap.Category != "lott" {
		t.Fatalf("unexpected job %+v", snap)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/laws", nil))
	var list struct {
		Laws []publish.Meta `json:"laws"`
	}
	decode(t, rec, &list)
	if len(list.Laws) != 1 || list.Laws[0].Title != "Ley Orgánica del Trabajo" {
		t.Fatalf("unexpected laws %+v", list.Laws)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/laws/lott/items?limit=2", nil))
	var page struct {
		Total     int            `json:"total"`
		Items     []publish.Item `json:"items"`
		NextAfter int            `json:"next_after"`
		HasMore   bool           `json:"has_more"`
	}
	decode(t, rec, &page)
	if page.Total != 3 || len(page.Items) != 2 || !page.HasMore || page.NextAfter != 1 {
		t.Fatalf("unexpected first page %+v", page)
	}
	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/laws/lott/items?after=1", nil))
	page.Items, page.HasMore = nil, true
	decode(t, rec, &page)
	if len(page.Items) != 1 || page.HasMore || page.Items[0].Number != "2" {
		t.Fatalf("unexpected last page %+v", page)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/laws/lott", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/laws/lott/items", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestIngestStatus_NotFound(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestBatchIngest(t *testing.T) {
	e := newTestEnv(t)
	req := uploadRequest(t, "/api/ingest/batch", "files", map[string]string{
		"ley_uno.txt":  sampleLaw,
		"ley_dos.md":   "# Ley\n\n" + sampleLaw,
		"planilla.csv": "a,b",
	}, nil)
	rec := e.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	decode(t, rec, &resp)
	if len(resp.Jobs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(resp.Jobs))
	}
	queued := 0
	for _, j := range resp.Jobs {
		if id, ok := j["job_id"].(string); ok {
			queued++
			if snap := waitForJob(t, e, id); snap.Status != pipeline.StatusCompleted {
				t.Errorf("%v: expected completed, got %s", j["filename"], snap.Status)
			}
		} else if j["filename"] != "planilla.csv" {
			t.Errorf("unexpected rejection %v", j)
		}
	}
	if queued != 2 {
		t.Errorf("expected 2 queued jobs, got %d", queued)
	}
}

func TestBatchIngest_RejectsSharedTitle(t *testing.T) {
	e := newTestEnv(t)
	req := uploadRequest(t, "/api/ingest/batch", "files", map[string]string{"a.txt": sampleLaw},
		map[string]string{"title": "Misma"})
	if rec := e.do(t, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRulesAndStats(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	var rs struct {
		Markers   []rules.Rule `json:"markers"`
		Artifacts []string     `json:"artifacts"`
	}
	decode(t, rec, &rs)
	if len(rs.Markers) != len(rules.DefaultRules()) || len(rs.Artifacts) == 0 {
		t.Errorf("unexpected rules %+v", rs)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/rules?format=yaml", nil))
	if _, err := rules.Parse(rec.Body.Bytes()); err != nil {
		t.Errorf("expected exported rules to parse, got %v", err)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats pipeline.Stats
	decode(t, rec, &stats)
	if stats.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", stats.Workers)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ley.pdf", "ley.pdf"},
		{"../../etc/ley.pdf", "ley.pdf"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/lawgest/internal/config"
	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/pathstore"
	"github.com/dgallion1/lawgest/internal/pathstore/pathstoretest"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/rules"
)

const sampleLaw = "TÍTULO I\nDISPOSICIONES GENERALES\nArtículo 1. El trabajo es un hecho social.\nArtículo 2. El Estado protege el trabajo."

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMeta() law.Metadata {
	return law.Metadata{
		Title:    "Ley Orgánica del Trabajo",
		Category: "ley_organica_del_trabajo",
		Type:     law.TypeLeyOrganica,
		Date:     time.Date(2012, 5, 7, 0, 0, 0, 0, time.UTC),
	}
}

func newTestWorker(t *testing.T) (*Worker, *pathstoretest.Server) {
	t.Helper()
	srv := pathstoretest.New()
	t.Cleanup(srv.Close)
	ps := pathstore.NewClient(srv.URL, "test-key")
	pub := publish.New(ps, publish.Config{MaxConcurrent: 2}, discardLogger())
	w := NewWorker(rules.NewStatic(rules.Default()), pub, discardLogger(), WorkerConfig{Validate: convert.DefaultOptions().Validate},
		NewLatencyStats(time.Hour), NewLatencyStats(time.Hour))
	return w, srv
}

func TestWorker_Process(t *testing.T) {
	w, srv := newTestWorker(t)
	job := NewJob("lot.txt", []byte(sampleLaw), testMeta(), false)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (errors: %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Nodes != 3 || snap.Progress.Articles != 2 || snap.Progress.ItemsStored != 3 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if _, ok := srv.Value("laws/ley_organica_del_trabajo/meta"); !ok {
		t.Error("expected meta to be published")
	}
	if _, ok := srv.Value("system/metadata"); !ok {
		t.Error("expected system metadata to be updated")
	}
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
	if w.convertStats.Snapshot().Count != 1 || w.publishStats.Snapshot().Count != 1 {
		t.Error("expected one latency sample per phase")
	}

	again := NewJob("lot.txt", []byte(sampleLaw), testMeta(), false)
	w.Process(context.Background(), again)
	if s := again.Snapshot().Status; s != StatusSkipped {
		t.Errorf("expected unchanged law to be skipped, got %s", s)
	}
}

func TestWorker_ProcessFailures(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		data  string
		meta  law.Metadata
		kind  convert.Kind
		phase string
	}{
		{"empty file", "vacio.txt", "  \n ", testMeta(), convert.KindExtractionFailure, "extracting"},
		{"unsupported", "ley.csv", "a,b", testMeta(), convert.KindExtractionFailure, "extracting"},
		{"no markers", "nota.txt", "Un texto sin estructura.", testMeta(), convert.KindNoMarkers, "converting"},
		{"bad metadata", "ley.txt", sampleLaw, law.Metadata{Title: "Ley"}, convert.KindInvalidMetadata, "converting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, srv := newTestWorker(t)
			job := NewJob(tt.file, []byte(tt.data), tt.meta, false)
			w.Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != StatusFailed {
				t.Fatalf("expected failed, got %s", snap.Status)
			}
			if snap.FailureKind != tt.kind || snap.Phase != tt.phase {
				t.Errorf("expected %s in %s, got %s in %s", tt.kind, tt.phase, snap.FailureKind, snap.Phase)
			}
			if len(srv.Keys()) != 0 {
				t.Errorf("expected nothing published, got %v", srv.Keys())
			}
		})
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	srv := pathstoretest.New()
	defer srv.Close()
	ps := pathstore.NewClient(srv.URL, "test-key")
	pub := publish.New(ps, publish.Config{}, discardLogger())

	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour, GapTolerance: 5, MinArticleChars: 10}
	o := NewOrchestrator(cfg, rules.NewStatic(rules.Default()), pub, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for i := range 3 {
		meta := testMeta()
		meta.Category = fmt.Sprintf("ley_%d", i)
		job := NewJob("ley.txt", []byte(sampleLaw), meta, false)
		if err := o.Submit(job); err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, job := range jobs {
		for !job.Snapshot().Status.Done() {
			if time.Now().After(deadline) {
				t.Fatalf("job %s did not finish", job.ID)
			}
			time.Sleep(10 * time.Millisecond)
		}
		if s := job.Snapshot().Status; s != StatusCompleted {
			t.Errorf("job %s: expected completed, got %s", job.ID, s)
		}
		if o.GetJob(job.ID) != job {
			t.Errorf("expected job %s to be registered", job.ID)
		}
	}

	stats := o.Stats()
	if stats.Jobs[StatusCompleted] != 3 || stats.Convert.Count != 3 || stats.Workers != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	laws, err := pub.List(context.Background())
	if err != nil || len(laws) != 3 {
		t.Errorf("expected 3 published laws, got %d (%v)", len(laws), err)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	// Not started, so nothing drains the queue.
	o := NewOrchestrator(cfg, rules.NewStatic(rules.Default()), nil, discardLogger())

	if err := o.Submit(NewJob("a.txt", nil, testMeta(), false)); err != nil {
		t.Fatal(err)
	}
	second := NewJob("b.txt", nil, testMeta(), false)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("unexpected status %s/%s", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}

func TestRunBatch(t *testing.T) {
	texts := []string{sampleLaw, "sin marcas", sampleLaw, ""}
	items := make([]BatchItem, len(texts))
	for i, text := range texts {
		meta := testMeta()
		meta.Category = fmt.Sprintf("ley_%d", i)
		items[i] = BatchItem{
			Name:    fmt.Sprintf("doc%d.txt", i),
			Extract: func() (string, error) { return text, nil },
			Meta:    meta,
		}
	}

	results, err := RunBatch(context.Background(), items, convert.DefaultOptions(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if r.Source != items[i].Name {
			t.Errorf("result %d: expected source %s, got %s", i, items[i].Name, r.Source)
		}
	}

	sum := Summarize(results)
	if len(sum.Succeeded) != 2 || len(sum.Failed) != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	kinds := []string{string(sum.Failed[0].Kind), string(sum.Failed[1].Kind)}
	if strings.Join(kinds, ",") != "no_markers_found,extraction_failure" {
		t.Errorf("unexpected failure kinds %v", kinds)
	}
}

func TestRunBatch_CompileErrorAborts(t *testing.T) {
	ce := &rules.CompileError{Rule: "article", Field: "pattern", Err: errors.New("bad")}
	items := []BatchItem{
		{Name: "a.txt", Extract: func() (string, error) { return "", ce }, Meta: testMeta()},
		{Name: "b.txt", Extract: func() (string, error) { return sampleLaw, nil }, Meta: testMeta()},
	}
	_, err := RunBatch(context.Background(), items, convert.DefaultOptions(), 1)
	var got *rules.CompileError
	if !errors.As(err, &got) {
		t.Fatalf("expected compile error, got %v", err)
	}
}

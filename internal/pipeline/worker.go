package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/rules"
	"github.com/dgallion1/lawgest/internal/source"
	"github.com/dgallion1/lawgest/internal/validate"
)

// WorkerConfig holds the per-job engine settings.
type WorkerConfig struct {
	Source   source.Options
	Validate validate.Config
}

// Worker processes a single law job.
type Worker struct {
	rules rules.Source
	pub   *publish.Publisher
	log   *slog.Logger
	cfg   WorkerConfig

	convertStats *LatencyStats
	publishStats *LatencyStats
}

func NewWorker(rs rules.Source, pub *publish.Publisher, log *slog.Logger, cfg WorkerConfig, convertStats, publishStats *LatencyStats) *Worker {
	return &Worker{
		rules:        rs,
		pub:          pub,
		log:          log,
		cfg:          cfg,
		convertStats: convertStats,
		publishStats: publishStats,
	}
}

// Process runs extract, convert and publish for a job. Every failure is
// recorded on the job; nothing here stops the worker.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Filename, "category", job.Meta.Category)
	defer job.ReleaseFileData()

	// Phases 1 and 2: extract and convert. The rule set is fixed for the
	// whole job even if the rules file is reloaded meanwhile.
	opts := convert.Options{Rules: w.rules.Current(), Validate: w.cfg.Validate}
	start := time.Now()
	res, err := convert.Source(job.Filename, func() (string, error) {
		job.SetStatus(StatusExtracting, "extracting")
		text, err := source.Extract(bytes.NewReader(job.FileData()), job.Filename, w.cfg.Source)
		job.SetStatus(StatusConverting, "converting")
		return text, err
	}, job.Meta, opts)
	w.convertStats.Observe(start)
	if err != nil {
		// Only rule compilation fails here, which the watcher rules out for
		// loaded sets.
		log.Error("rule set unusable", "error", err)
		job.Fail("converting", "", err)
		return
	}
	if !res.OK() {
		log.Warn("conversion failed", "kind", res.Err.Kind, "error", res.Err.Err)
		phase := "converting"
		if res.Err.Kind == convert.KindExtractionFailure {
			phase = "extracting"
		}
		job.Fail(phase, res.Err.Kind, res.Err.Err)
		return
	}

	job.SetConverted(res.Document, res.Report)
	log.Info("law converted", "nodes", len(res.Document.Content), "articles", res.Report.ArticleCount)
	for _, msg := range res.Report.Messages() {
		log.Warn("validation warning", "warning", msg)
	}

	// Phase 3: publish.
	job.SetStatus(StatusPublishing, "publishing")
	start = time.Now()
	out, err := w.pub.Publish(ctx, res.Document, job.Force)
	w.publishStats.Observe(start)
	job.SetItemsStored(out.Items)
	if err != nil {
		log.Error("publish failed", "error", err, "items_stored", out.Items)
		job.Fail("publishing", "", err)
		return
	}
	if out.Skipped {
		job.SetStatus(StatusSkipped, "done")
		return
	}

	if _, err := w.pub.Touch(ctx, 1); err != nil {
		log.Warn("system metadata update failed", "error", err)
		job.AddError("system metadata: " + err.Error())
	}
	job.SetStatus(StatusCompleted, "done")
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/lawgest/internal/config"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/rules"
	"github.com/dgallion1/lawgest/internal/source"
)

// Orchestrator manages the law ingestion pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	rules     rules.Source
	pub       *publish.Publisher
	log       *slog.Logger
	cfg       config.Config
	workerCfg WorkerConfig

	convertStats *LatencyStats
	publishStats *LatencyStats

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, rs rules.Source, pub *publish.Publisher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		rules: rs,
		pub:   pub,
		log:   log,
		cfg:   cfg,
		workerCfg: WorkerConfig{
			Source:   source.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
			Validate: cfg.ValidateConfig(),
		},
		convertStats: NewLatencyStats(time.Hour),
		publishStats: NewLatencyStats(time.Hour),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.rules, o.pub, o.log, o.workerCfg, o.convertStats, o.publishStats)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		close(o.queue)
		o.wg.Wait()
	})
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		job.ReleaseFileData()
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Rules returns the rule source used for new jobs.
func (o *Orchestrator) Rules() rules.Source {
	return o.rules
}

// Publisher returns the publisher for direct use by API handlers.
func (o *Orchestrator) Publisher() *publish.Publisher {
	return o.pub
}

// Stats is the pipeline summary served by the stats endpoint.
type Stats struct {
	QueueDepth int               `json:"queue_depth"`
	Workers    int               `json:"workers"`
	Jobs       map[JobStatus]int `json:"jobs"`
	Convert    StatsSnapshot     `json:"convert"`
	Publish    StatsSnapshot     `json:"publish"`
}

// Stats returns job counts and latency percentiles.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		QueueDepth: o.QueueDepth(),
		Workers:    o.cfg.WorkerCount,
		Jobs:       o.jobs.Counts(),
		Convert:    o.convertStats.Snapshot(),
		Publish:    o.publishStats.Snapshot(),
	}
}

package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/validate"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusConverting JobStatus = "converting"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusSkipped    JobStatus = "unchanged_skipped"
)

// Done reports whether s is a terminal status.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Job tracks the state of a single law ingestion.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Filename string `json:"filename"`
	Force    bool   `json:"force"`

	Meta law.Metadata `json:"-"`

	Status      JobStatus    `json:"status"`
	Phase       string       `json:"phase"`
	FailureKind convert.Kind `json:"failure_kind,omitempty"`

	Progress Progress         `json:"progress"`
	Report   *validate.Report `json:"report,omitempty"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Nodes       int      `json:"nodes"`
	Articles    int      `json:"articles"`
	ItemsStored int      `json:"items_stored"`
	Warnings    []string `json:"warnings"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename string, data []byte, meta law.Metadata, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Filename:    filename,
		Force:       force,
		Meta:        meta,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Counts returns the number of stored jobs per status.
func (s *JobStore) Counts() map[JobStatus]int {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	counts := make(map[JobStatus]int)
	for _, j := range jobs {
		j.mu.Lock()
		counts[j.Status]++
		j.mu.Unlock()
	}
	return counts
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a classified error.
func (j *Job) Fail(phase string, kind convert.Kind, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	j.FailureKind = kind
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
	j.fileData = nil
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetConverted records the node counts and report of a converted document.
func (j *Job) SetConverted(doc *law.Document, rep validate.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Nodes = len(doc.Content)
	j.Progress.Articles = rep.ArticleCount
	j.Progress.Warnings = rep.Messages()
	j.Report = &rep
	j.UpdatedAt = time.Now()
}

// SetItemsStored records how many items were written.
func (j *Job) SetItemsStored(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ItemsStored = n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ReleaseFileData drops the file bytes once they are no longer needed.
func (j *Job) ReleaseFileData() {
	j.SetFileData(nil)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string           `json:"job_id"`
	Filename    string           `json:"filename"`
	Category    string           `json:"category"`
	Title       string           `json:"title"`
	Status      JobStatus        `json:"status"`
	Phase       string           `json:"phase"`
	FailureKind convert.Kind     `json:"failure_kind,omitempty"`
	ContentHash string           `json:"content_hash"`
	Progress    Progress         `json:"progress"`
	Report      *validate.Report `json:"report,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Category:    j.Meta.Category,
		Title:       j.Meta.Title,
		Status:      j.Status,
		Phase:       j.Phase,
		FailureKind: j.FailureKind,
		ContentHash: j.ContentHash,
		Progress: Progress{
			Nodes:       j.Progress.Nodes,
			Articles:    j.Progress.Articles,
			ItemsStored: j.Progress.ItemsStored,
			Warnings:    nonNil(j.Progress.Warnings),
			Errors:      nonNil(j.Progress.Errors),
		},
		Report:    j.Report,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

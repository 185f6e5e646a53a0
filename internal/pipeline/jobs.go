package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docquiz/internal/question"
	"github.com/google/uuid"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusChunking   JobStatus = "chunking"
	StatusGenerating JobStatus = "generating"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one asynchronous generation request. All methods are safe on a
// nil *Job so the synchronous path can share the same code.
type Job struct {
	mu sync.Mutex

	ID       string                 `json:"job_id"`
	Status   JobStatus              `json:"status"`
	Phase    string                 `json:"phase"`
	Config   question.Configuration `json:"config"`
	Files    []string               `json:"files"`
	Progress Progress               `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	uploads []Upload
	report  *Report
}

// Progress tracks processing progress.
type Progress struct {
	TotalUnits     int      `json:"total_units"`
	UnitsProcessed int      `json:"units_processed"`
	Accepted       int      `json:"accepted"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job for uploads.
func NewJob(uploads []Upload, cfg question.Configuration) *Job {
	now := time.Now()
	files := make([]string, len(uploads))
	for i, u := range uploads {
		files[i] = u.Filename
	}
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Config:    cfg,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
		uploads:   uploads,
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

// Cleanup removes jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		idle := now.Sub(job.UpdatedAt)
		job.mu.Unlock()
		if idle > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a per-document or per-unit failure message.
func (j *Job) AddError(msg string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Errors = append(j.Progress.Errors, msg)
	j.UpdatedAt = time.Now()
}

// SetTotalUnits records how many units will be generated.
func (j *Job) SetTotalUnits(n int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalUnits = n
	j.UpdatedAt = time.Now()
}

// IncrUnitsProcessed counts one finished unit, successful or not.
func (j *Job) IncrUnitsProcessed() {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.UnitsProcessed++
	j.UpdatedAt = time.Now()
}

// Finish stores the final report and status.
func (j *Job) Finish(report Report, status JobStatus) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = &report
	j.Progress.Accepted = report.Accepted
	j.Status = status
	j.Phase = "done"
	j.uploads = nil
	j.UpdatedAt = time.Now()
}

// Uploads returns the documents queued with the job.
func (j *Job) Uploads() []Upload {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.uploads
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string                 `json:"job_id"`
	Status    JobStatus              `json:"status"`
	Phase     string                 `json:"phase"`
	Config    question.Configuration `json:"config"`
	Files     []string               `json:"files"`
	Progress  Progress               `json:"progress"`
	Report    *Report                `json:"report,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Config:    j.Config,
		Files:     append([]string{}, j.Files...),
		Progress:  p,
		Report:    j.report,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

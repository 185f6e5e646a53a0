// Package pipeline turns uploaded documents into accepted bank questions:
// extraction, chunking, per-unit generation and assembly.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docquiz/internal/bank"
	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/question"
)

// Options tunes the orchestrator. Zero values take defaults.
type Options struct {
	Workers           int           // Async job workers.
	QueueSize         int           // Pending async jobs.
	MaxConcurrent     int           // Parallel generation calls per request.
	MaxRetries        int           // Attempts per unit for retryable errors.
	CallTimeout       time.Duration // Bound on one generation call.
	MinExtractChars   int
	PdftotextFallback bool
	JobTTL            time.Duration
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 90 * time.Second
	}
	if o.MinExtractChars <= 0 {
		o.MinExtractChars = parser.DefaultMinChars
	}
	if o.JobTTL <= 0 {
		o.JobTTL = time.Hour
	}
}

// Upload is one document submitted for generation.
type Upload struct {
	Filename string
	Data     []byte
}

// Request is a generation run over one or more documents.
type Request struct {
	Documents []Upload
	Config    question.Configuration
}

// Report summarizes a generation run.
type Report struct {
	Documents          int                 `json:"documents"`
	Units              int                 `json:"units"`
	Accepted           int                 `json:"accepted"`
	ExtractionFailures int                 `json:"extraction_failures"`
	GenerationFailures int                 `json:"generation_failures"`
	ValidationFailures int                 `json:"validation_failures"`
	Failures           []string            `json:"failures"`
	Questions          []question.Question `json:"questions"`
	Bank               question.Bank       `json:"bank"`
}

// FailureCount is the total of all failure categories.
func (r Report) FailureCount() int {
	return r.ExtractionFailures + r.GenerationFailures + r.ValidationFailures
}

// Orchestrator manages the document-to-bank pipeline.
type Orchestrator struct {
	gen     Generator
	asm     *bank.Assembler
	log     *slog.Logger
	opts    Options
	jobs    *JobStore
	queue   chan *Job
	backoff func(attempt int) time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // Guards stopped and the queue close.
	stopped bool
}

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("orchestrator is stopped")

// NewOrchestrator wires a generator to an assembler. Call Start before
// submitting async jobs; Run and Generate work without it.
func NewOrchestrator(gen Generator, asm *bank.Assembler, log *slog.Logger, opts Options) *Orchestrator {
	opts.setDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		gen:     gen,
		asm:     asm,
		log:     log,
		opts:    opts,
		jobs:    NewJobStore(opts.JobTTL),
		queue:   make(chan *Job, opts.QueueSize),
		backoff: Backoff,
	}
}

// Run processes a request synchronously. Per-document and per-unit failures
// are counted in the report; only a bank write failure is returned as an
// error. A run where every unit fails still returns a report and nil.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Report, error) {
	return o.run(ctx, req, nil)
}

func (o *Orchestrator) run(ctx context.Context, req Request, job *Job) (Report, error) {
	if err := req.Config.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid configuration: %w", err)
	}
	log := o.log
	if job != nil {
		log = log.With("job_id", job.ID)
	}
	report := Report{Documents: len(req.Documents), Failures: []string{}}
	fail := func(msg string) {
		report.Failures = append(report.Failures, msg)
		job.AddError(msg)
	}

	// Phase 1: extract
	job.SetStatus(StatusExtracting, "extracting")
	extractor := parser.Options{MinChars: o.opts.MinExtractChars, PdftotextFallback: o.opts.PdftotextFallback}
	var perDoc [][]chunker.TextUnit
	var docs []chunker.Document
	for _, up := range req.Documents {
		text, err := extractor.Extract(bytes.NewReader(up.Data), up.Filename)
		if err != nil {
			derr := &DocumentError{Source: up.Filename, Err: err}
			log.Warn("document skipped", "error", derr)
			report.ExtractionFailures++
			fail(derr.Error())
			continue
		}
		docs = append(docs, chunker.Document{Source: up.Filename, Text: text})
	}

	// Phase 2: chunk
	job.SetStatus(StatusChunking, "chunking")
	for _, doc := range docs {
		units := chunker.Split(doc, req.Config)
		log.Info("chunked document", "source", doc.Source, "units", len(units))
		perDoc = append(perDoc, units)
	}
	units := chunker.Flatten(perDoc...)
	report.Units = len(units)
	job.SetTotalUnits(len(units))

	// Phase 3: generate
	job.SetStatus(StatusGenerating, "generating")
	outcome := o.generateUnits(ctx, units, req.Config, job)
	for _, r := range outcome.Failures() {
		var verr *question.ValidationError
		if errors.As(r.Err, &verr) {
			report.ValidationFailures++
			fail(fmt.Sprintf("unit %d (%s): %v", r.Unit.Index, r.Unit.Source, verr))
			continue
		}
		report.GenerationFailures++
		fail(r.Err.Error())
	}

	// Phase 4: store
	job.SetStatus(StatusStoring, "storing")
	stored, err := o.asm.Accept(ctx, outcome.Accepted())
	if err != nil {
		return report, err
	}
	report.Questions = stored
	report.Accepted = len(stored)
	if report.Questions == nil {
		report.Questions = []question.Question{}
	}
	report.Bank, err = o.asm.Load(ctx)
	if err != nil {
		return report, err
	}

	log.Info("generation run complete",
		"documents", report.Documents,
		"units", report.Units,
		"accepted", report.Accepted,
		"failures", report.FailureCount(),
	)
	return report, nil
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.Workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o, o.log)
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

// Stop cancels in-flight jobs and waits for the workers to exit. Later
// calls are no-ops.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a job for the worker pool. It returns ErrStopped after Stop
// and an error when the queue is full; either way the job is marked failed.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "stopped")
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.opts.QueueSize)
	}
}

// GetJob returns a job by ID, or nil once it is unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Assembler exposes the bank for read and reset operations.
func (o *Orchestrator) Assembler() *bank.Assembler {
	return o.asm
}

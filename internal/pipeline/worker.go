package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs queued jobs through the orchestrator.
type Worker struct {
	o   *Orchestrator
	log *slog.Logger
}

func NewWorker(o *Orchestrator, log *slog.Logger) *Worker {
	return &Worker{o: o, log: log}
}

// Process runs the full pipeline for a job and records the final status:
// completed when nothing failed, partial when some questions were accepted
// despite failures, failed otherwise.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	start := time.Now()

	report, err := w.o.run(ctx, Request{Documents: job.Uploads(), Config: job.Config}, job)
	if err != nil {
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.Finish(report, StatusFailed)
		return
	}

	status := StatusCompleted
	switch {
	case report.Accepted == 0:
		status = StatusFailed
	case report.FailureCount() > 0:
		status = StatusPartial
	}
	log.Info("job finished", "status", status, "accepted", report.Accepted, "duration_ms", time.Since(start).Milliseconds())
	job.Finish(report, status)
}

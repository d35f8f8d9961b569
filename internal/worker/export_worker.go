// Package worker runs export jobs delivered over AMQP: it streams the
// transaction history into an XML file (and optionally a Google sheet) and
// drives the job row through its lifecycle.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"piggy/internal/amqp"
	"piggy/internal/core"
	"piggy/internal/export"
)

// JobStore is the slice of storage the worker needs.
type JobStore interface {
	ExportJob(ctx context.Context, id int64) (core.ExportJob, error)
	SetExportJobStatus(ctx context.Context, id int64, status string) error
}

type ExportWorker struct {
	jobs   JobStore
	source export.TransactionSource
	outDir string
	// extraSink, when set, receives every record in addition to the file.
	extraSink export.Sink
}

func NewExportWorker(jobs JobStore, source export.TransactionSource, outDir string, extraSink export.Sink) *ExportWorker {
	return &ExportWorker{
		jobs:      jobs,
		source:    source,
		outDir:    outDir,
		extraSink: extraSink,
	}
}

// HandleExportRequest processes one export-request message. A returned
// error requeues the message; the job is marked failed first so its state
// is visible while the retry waits.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	slog.InfoContext(ctx, "Processing export request", "job_id", msg.JobID, "key", msg.Key)

	job, err := w.jobs.ExportJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	if job.Status == core.ExportFinished {
		slog.InfoContext(ctx, "Export job already finished, skipping", "job_id", job.ID)
		return nil
	}

	if err := w.jobs.SetExportJobStatus(ctx, job.ID, core.ExportRunning); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	if err := w.runExport(ctx, job); err != nil {
		if statusErr := w.jobs.SetExportJobStatus(ctx, job.ID, core.ExportFailed); statusErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export job failed",
				"job_id", job.ID, "error", statusErr)
		}
		return fmt.Errorf("run export %s: %w", job.Key, err)
	}

	if err := w.jobs.SetExportJobStatus(ctx, job.ID, core.ExportFinished); err != nil {
		return fmt.Errorf("mark finished: %w", err)
	}

	slog.InfoContext(ctx, "Export job finished",
		"job_id", job.ID,
		"file", job.FileName)
	return nil
}

func (w *ExportWorker) runExport(ctx context.Context, job core.ExportJob) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(w.outDir, job.FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	sinks := []export.Sink{export.NewXMLWriter(f)}
	if w.extraSink != nil {
		sinks = append(sinks, w.extraSink)
	}

	if err := export.Run(ctx, w.source, sinks...); err != nil {
		// Leave no half-written file behind.
		os.Remove(path)
		return err
	}
	return f.Sync()
}

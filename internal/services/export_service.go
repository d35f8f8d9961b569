// Package services orchestrates operations that span storage and the
// message queue.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"piggy/internal/amqp"
	"piggy/internal/core"
)

// JobStore is the slice of storage the export service needs.
type JobStore interface {
	CreateExportJob(ctx context.Context, userID int64, key string) (core.ExportJob, error)
	ExportJob(ctx context.Context, id int64) (core.ExportJob, error)
}

// ExportService creates export jobs and hands them to the worker over AMQP.
type ExportService struct {
	store      JobStore
	amqpClient *amqp.Client
}

func NewExportService(store JobStore, amqpClient *amqp.Client) *ExportService {
	return &ExportService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// RequestExport stores a pending job and publishes the request. The job is
// returned even when publishing fails; it stays visible as pending and the
// client can request a fresh export.
func (s *ExportService) RequestExport(ctx context.Context, userID int64) (core.ExportJob, error) {
	key, err := newJobKey()
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("generate job key: %w", err)
	}

	job, err := s.store.CreateExportJob(ctx, userID, key)
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("create export job: %w", err)
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, export job stays pending", "job_id", job.ID)
		return job, nil
	}
	if err := s.amqpClient.PublishExportRequest(ctx, job.ID, job.Key); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export request",
			"job_id", job.ID, "error", err)
		// Job row exists; don't fail the request.
	}

	return job, nil
}

// Job returns an export job, hiding jobs of other users behind not-found.
func (s *ExportService) Job(ctx context.Context, userID, jobID int64) (core.ExportJob, error) {
	job, err := s.store.ExportJob(ctx, jobID)
	if err != nil {
		return core.ExportJob{}, err
	}
	if job.UserID != userID {
		return core.ExportJob{}, &core.NotFoundError{Kind: "export job", ID: jobID}
	}
	return job, nil
}

func (s *ExportService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp: %w", err)
		}
	}
	return nil
}

func newJobKey() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

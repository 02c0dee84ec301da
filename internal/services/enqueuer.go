package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
)

// EnqueuerConfig holds configuration for the change notifier.
type EnqueuerConfig struct {
	UploadsContainer string
	BaseURL          string
	Subject          string
}

// Enqueuer turns storage-created events into processing requests. It runs
// under at-least-once delivery, so duplicate invocations publish duplicate,
// otherwise identical messages.
type Enqueuer struct {
	jobs      JobFinder
	publisher Publisher
	observer  Observer
	config    EnqueuerConfig
}

// NewEnqueuer wires an Enqueuer. jobs may be nil, in which case every event
// falls back to the object name as job id.
func NewEnqueuer(jobs JobFinder, publisher Publisher, observer Observer, config EnqueuerConfig) *Enqueuer {
	return &Enqueuer{
		jobs:      jobs,
		publisher: publisher,
		observer:  observerOrNoop(observer),
		config:    config,
	}
}

// Process resolves the event to a job id and publishes the request. Lookup
// failures are swallowed; publish failures are returned so the trigger retries.
func (f *Enqueuer) Process(ctx context.Context, e models.StorageObjectData) error {
	if e.Name == "" {
		return fmt.Errorf("%w: object name is empty", ErrInvalidEvent)
	}
	container := e.Bucket
	if container == "" {
		container = f.config.UploadsContainer
	}

	start := time.Now()
	logCtx := slog.With("gcsBucket", container, "gcsObject", e.Name)
	logCtx.Info("Processing storage-created event.")

	sourceURL := SourceURL(f.config.BaseURL, container, e.Name)

	jobID, idSource := e.Name, "fallback"
	bestEffort(logCtx, "resolve job id by source url", func() error {
		id, err := f.lookupJobID(ctx, sourceURL)
		if err != nil {
			return err
		}
		jobID, idSource = id, "record"
		return nil
	})
	logCtx = logCtx.With("jobId", jobID, "idSource", idSource)

	msg := models.ProcessRequest{
		ID:   &jobID,
		URL:  sourceURL,
		Blob: models.BlobRef{Container: container, Name: e.Name},
	}
	err := mustSucceed("publish processing request", func() error {
		return f.publisher.Publish(ctx, f.config.Subject, msg)
	})
	if err != nil {
		logCtx.Error("Failed to publish processing request; the trigger will retry.", "error", err)
		f.observer.Enqueue("publish_failed", idSource)
		return err
	}

	f.observer.Enqueue("ok", idSource)
	f.observer.Duration("enqueue", time.Since(start))
	logCtx.Info("Enqueued processing request.")
	return nil
}

func (f *Enqueuer) lookupJobID(ctx context.Context, sourceURL string) (string, error) {
	if f.jobs == nil {
		return "", errors.New("job store not configured")
	}
	job, err := f.jobs.FindBySourceURL(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("record for %s has no id", sourceURL)
	}
	return job.ID, nil
}

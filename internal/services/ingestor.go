package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
)

const defaultContentType = "application/octet-stream"

// IngestorConfig holds configuration for the upload ingestor.
type IngestorConfig struct {
	UploadsContainer string
	BaseURL          string
	URLTTL           time.Duration
}

// UploadRequest is one file handed to the ingestor.
type UploadRequest struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Ingestor stores uploads and creates their job records.
type Ingestor struct {
	blobs    BlobWriter
	jobs     JobInserter
	issuer   URLIssuer
	observer Observer
	config   IngestorConfig
	now      func() time.Time
}

// NewIngestor wires an Ingestor. observer may be nil.
func NewIngestor(blobs BlobWriter, jobs JobInserter, issuer URLIssuer, observer Observer, config IngestorConfig) *Ingestor {
	return &Ingestor{
		blobs:    blobs,
		jobs:     jobs,
		issuer:   issuer,
		observer: observerOrNoop(observer),
		config:   config,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for job ids.
func (s *Ingestor) WithClock(now func() time.Time) *Ingestor {
	s.now = now
	return s
}

// Upload writes the file under a fresh job id, tags it, records the job as
// queued and returns the id with a read URL for the stored object.
//
// A record insert failing after the storage write is logged and reported as
// success: there is no compensating delete.
func (s *Ingestor) Upload(ctx context.Context, req UploadRequest) (*models.UploadResponse, error) {
	if req.Body == nil {
		s.observer.Upload("rejected")
		return nil, ErrNoFile
	}

	start := s.now()
	jobID := NewJobID(start, req.Filename)
	container := s.config.UploadsContainer
	logCtx := slog.With("jobId", jobID, "gcsBucket", container, "original", req.Filename)

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	err := mustSucceed("store upload", func() error {
		return s.blobs.Put(ctx, container, jobID, contentType, req.Body)
	})
	if err != nil {
		logCtx.Error("Failed to store uploaded file", "error", err)
		s.observer.Upload("storage_failed")
		return nil, err
	}
	logCtx.Info("Stored uploaded file.", "contentType", contentType)

	bestEffort(logCtx, "tag object with job id", func() error {
		return s.blobs.SetMetadata(ctx, container, jobID, map[string]string{"jobId": jobID})
	})

	job := &models.Job{
		ID:        jobID,
		URL:       SourceURL(s.config.BaseURL, container, jobID),
		Container: container,
		Original:  req.Filename,
		Status:    models.StatusQueued,
		CreatedAt: start.UTC(),
	}
	outcome := "ok"
	if err := s.jobs.Insert(ctx, job); err != nil {
		logCtx.Error("Job record insert failed after object was stored; record and storage now disagree.", "error", err)
		outcome = "record_failed"
	}

	readURL, err := s.issuer.SignedURL(container, jobID, s.config.URLTTL)
	if err != nil {
		logCtx.Error("Failed to issue read URL", "error", err)
		s.observer.Upload("sign_failed")
		return nil, fmt.Errorf("issue read url: %w", err)
	}

	s.observer.Upload(outcome)
	s.observer.Duration("upload", s.now().Sub(start))
	logCtx.Info("Upload accepted.")

	return &models.UploadResponse{
		ID:       jobID,
		URL:      readURL,
		Original: req.Filename,
	}, nil
}

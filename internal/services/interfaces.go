package services

import (
	"context"
	"io"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
)

// BlobWriter stores source objects.
type BlobWriter interface {
	Put(ctx context.Context, container, name, contentType string, body io.Reader) error
	SetMetadata(ctx context.Context, container, name string, metadata map[string]string) error
}

// BlobProber answers whether an object exists.
type BlobProber interface {
	Exists(ctx context.Context, container, name string) (bool, error)
}

// URLIssuer produces capability URLs. Every call must mint a new expiry window.
type URLIssuer interface {
	SignedURL(container, name string, ttl time.Duration) (string, error)
}

// JobInserter creates job records.
type JobInserter interface {
	Insert(ctx context.Context, job *models.Job) error
}

// JobGetter reads a job record by id. Misses return models.ErrJobNotFound.
type JobGetter interface {
	Get(ctx context.Context, id string) (*models.Job, error)
}

// JobFinder resolves a job by its canonical source URL. Misses return
// models.ErrJobNotFound.
type JobFinder interface {
	FindBySourceURL(ctx context.Context, url string) (*models.Job, error)
}

// Publisher sends a processing request to the message channel.
type Publisher interface {
	Publish(ctx context.Context, subject string, msg models.ProcessRequest) error
}

// Observer receives pipeline outcomes for metrics.
type Observer interface {
	Upload(outcome string)
	Enqueue(outcome, idSource string)
	StatusLookup(status string)
	Duration(operation string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) Upload(string)                  {}
func (noopObserver) Enqueue(string, string)         {}
func (noopObserver) StatusLookup(string)            {}
func (noopObserver) Duration(string, time.Duration) {}

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}

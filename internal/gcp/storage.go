package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/mediaflow/internal/lazy"
	"github.com/Lllllllleong/mediaflow/internal/models"
	"google.golang.org/api/googleapi"
)

// NewLazyStorageClient returns a connect-once accessor for the storage client.
func NewLazyStorageClient() *lazy.Value[*storage.Client] {
	return lazy.New(func(context.Context) (*storage.Client, error) {
		// The client outlives the request that first asks for it.
		client, err := storage.NewClient(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create Storage client: %w", err)
		}
		return client, nil
	}, func(c *storage.Client) { _ = c.Close() })
}

// BlobStore is the Cloud Storage implementation of the object-storage
// operations the pipeline needs. Containers are buckets.
type BlobStore struct {
	client *lazy.Value[*storage.Client]
}

func NewBlobStore(client *lazy.Value[*storage.Client]) *BlobStore {
	return &BlobStore{client: client}
}

func (s *BlobStore) Close() error {
	s.client.Close()
	return nil
}

// Put writes the object only if it doesn't already exist, so a name
// collision can never overwrite another job's source.
func (s *BlobStore) Put(ctx context.Context, bucket, name, contentType string, body io.Reader) error {
	client, err := s.client.Get(ctx)
	if err != nil {
		return err
	}

	writer := client.Bucket(bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			return fmt.Errorf("gs://%s/%s: %w", bucket, name, models.ErrObjectExists)
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("gs://%s/%s: %w", bucket, name, models.ErrObjectExists)
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// SetMetadata merges custom metadata onto an existing object.
func (s *BlobStore) SetMetadata(ctx context.Context, bucket, name string, metadata map[string]string) error {
	client, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	_, err = client.Bucket(bucket).Object(name).Update(ctx, storage.ObjectAttrsToUpdate{Metadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to update metadata for gs://%s/%s: %w", bucket, name, err)
	}
	return nil
}

// Exists probes for the object without downloading it.
func (s *BlobStore) Exists(ctx context.Context, bucket, name string) (bool, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return false, err
	}
	_, err = client.Bucket(bucket).Object(name).Attrs(ctx)
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", bucket, name, err)
	}
	return true, nil
}

// Open streams the object. The caller closes the reader.
func (s *BlobStore) Open(ctx context.Context, bucket, name string) (io.ReadCloser, string, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, "", err
	}
	reader, err := client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", models.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, name, err)
	}
	return reader, reader.Attrs.ContentType, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		slog.Debug("Object already exists.", "error", err)
		return true
	}
	return false
}

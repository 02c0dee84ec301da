package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/mediaflow/internal/lazy"
	"github.com/Lllllllleong/mediaflow/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// NewLazyFirestoreClient returns a connect-once accessor for the project's client.
func NewLazyFirestoreClient(projectID string) *lazy.Value[*firestore.Client] {
	return lazy.New(func(context.Context) (*firestore.Client, error) {
		return NewFirestoreClient(context.Background(), projectID)
	}, func(c *firestore.Client) { _ = c.Close() })
}

// JobStore keeps job records in a Firestore collection keyed by job id.
type JobStore struct {
	client     *lazy.Value[*firestore.Client]
	collection string
}

func NewJobStore(client *lazy.Value[*firestore.Client], collection string) *JobStore {
	return &JobStore{client: client, collection: collection}
}

func (s *JobStore) Close() error {
	s.client.Close()
	return nil
}

// Insert creates the record, failing if the id is taken.
func (s *JobStore) Insert(ctx context.Context, job *models.Job) error {
	client, err := s.client.Get(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Collection(s.collection).Doc(job.ID).Create(ctx, job); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrJobExists
		}
		return fmt.Errorf("failed to create job document: %w", err)
	}
	return nil
}

// Get reads the record by id.
func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to read job document %s: %w", id, err)
	}
	return decodeJob(snap)
}

// FindBySourceURL returns the first record whose source url matches.
func (s *JobStore) FindBySourceURL(ctx context.Context, url string) (*models.Job, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	iter := client.Collection(s.collection).Where("url", "==", url).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, models.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job by url: %w", err)
	}
	return decodeJob(snap)
}

func decodeJob(snap *firestore.DocumentSnapshot) (*models.Job, error) {
	var job models.Job
	if err := snap.DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job document %s: %w", snap.Ref.ID, err)
	}
	if job.ID == "" {
		job.ID = snap.Ref.ID
	}
	return &job, nil
}

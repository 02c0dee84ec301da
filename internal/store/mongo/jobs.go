// Package mongo keeps job records in a MongoDB (or Mongo-API compatible)
// collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Lllllllleong/mediaflow/internal/lazy"
	"github.com/Lllllllleong/mediaflow/internal/models"
)

const (
	appName      = "mediaflow"
	indexTimeout = 10 * time.Second
)

// NewLazyClient returns a connect-once accessor for a client on uri.
func NewLazyClient(uri string) *lazy.Value[*mongod.Client] {
	return lazy.New(func(context.Context) (*mongod.Client, error) {
		opts := options.Client().
			ApplyURI(uri).
			SetAppName(appName).
			SetRetryWrites(false)
		client, err := mongod.Connect(opts)
		if err != nil {
			return nil, fmt.Errorf("mediaflow/mongo: connect: %w", err)
		}
		return client, nil
	}, func(c *mongod.Client) { _ = c.Disconnect(context.Background()) })
}

// jobModel is the stored document. _id and id both carry the job id so
// readers keyed on either field find it.
type jobModel struct {
	MongoID   string    `bson:"_id"`
	ID        string    `bson:"id"`
	URL       string    `bson:"url"`
	Container string    `bson:"container,omitempty"`
	Original  string    `bson:"original"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toJobModel(j *models.Job) *jobModel {
	return &jobModel{
		MongoID:   j.ID,
		ID:        j.ID,
		URL:       j.URL,
		Container: j.Container,
		Original:  j.Original,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt,
	}
}

func fromJobModel(m *jobModel) *models.Job {
	id := m.ID
	if id == "" {
		id = m.MongoID
	}
	return &models.Job{
		ID:        id,
		URL:       m.URL,
		Container: m.Container,
		Original:  m.Original,
		Status:    models.Status(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

// JobStore implements the job record operations on one collection.
type JobStore struct {
	client *lazy.Value[*mongod.Client]
	coll   *lazy.Value[*mongod.Collection]
	// ensureIndexes runs when the collection handle is first created.
	ensureIndexes func(ctx context.Context, col *mongod.Collection) error
}

func NewJobStore(client *lazy.Value[*mongod.Client], database, collection string) *JobStore {
	s := &JobStore{client: client, ensureIndexes: createURLIndex}
	s.coll = lazy.New(func(ctx context.Context) (*mongod.Collection, error) {
		c, err := client.Get(ctx)
		if err != nil {
			return nil, err
		}
		col := c.Database(database).Collection(collection)

		indexCtx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if err := s.ensureIndexes(indexCtx, col); err != nil {
			slog.Warn("Best-effort step failed, continuing.", "op", "create job indexes", "collection", collection, "error", err)
		}
		return col, nil
	}, nil)
	return s
}

func (s *JobStore) Close() error {
	s.client.Close()
	s.coll.Close()
	return nil
}

func (s *JobStore) collection(ctx context.Context) (*mongod.Collection, error) {
	return s.coll.Get(ctx)
}

// createURLIndex backs the source-url lookup the notifier runs per event.
func createURLIndex(ctx context.Context, col *mongod.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongod.IndexModel{Keys: bson.D{{Key: "url", Value: 1}}})
	if err != nil {
		return fmt.Errorf("mediaflow/mongo: create url index: %w", err)
	}
	return nil
}

func (s *JobStore) Insert(ctx context.Context, j *models.Job) error {
	col, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, toJobModel(j)); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return models.ErrJobExists
		}
		return fmt.Errorf("mediaflow/mongo: insert job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *JobStore) FindBySourceURL(ctx context.Context, url string) (*models.Job, error) {
	return s.findOne(ctx, bson.M{"url": url})
}

func (s *JobStore) findOne(ctx context.Context, filter bson.M) (*models.Job, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	var m jobModel
	if err := col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("mediaflow/mongo: find job: %w", err)
	}
	return fromJobModel(&m), nil
}

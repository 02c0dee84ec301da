package services_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/stretchr/testify/mock"
)

type memBlobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	metadata map[string]map[string]string

	putErr    error
	metaErr   error
	existsErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{
		objects:  map[string][]byte{},
		types:    map[string]string{},
		metadata: map[string]map[string]string{},
	}
}

func key(container, name string) string { return container + "/" + name }

func (m *memBlobs) Put(_ context.Context, container, name, contentType string, body io.Reader) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key(container, name)]; ok {
		return models.ErrObjectExists
	}
	m.objects[key(container, name)] = data
	m.types[key(container, name)] = contentType
	return nil
}

func (m *memBlobs) SetMetadata(_ context.Context, container, name string, md map[string]string) error {
	if m.metaErr != nil {
		return m.metaErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key(container, name)] = md
	return nil
}

func (m *memBlobs) Exists(_ context.Context, container, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key(container, name)]
	return ok, nil
}

func (m *memBlobs) create(container, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key(container, name)] = []byte("jpeg")
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.Job

	insertErr error
	getErr    error
	findErr   error
	finds     atomic.Int64
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*models.Job{}}
}

func (m *memJobs) Insert(_ context.Context, job *models.Job) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return models.ErrJobExists
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) Get(_ context.Context, id string) (*models.Job, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) FindBySourceURL(_ context.Context, url string) (*models.Job, error) {
	m.finds.Add(1)
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.URL == url {
			cp := *job
			return &cp, nil
		}
	}
	return nil, models.ErrJobNotFound
}

func (m *memJobs) setStatus(id string, status models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = status
}

// countingIssuer mints a distinct URL on every call.
type countingIssuer struct {
	n   atomic.Int64
	err error
}

func (c *countingIssuer) SignedURL(container, name string, ttl time.Duration) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("https://signed.example/%s/%s?ttl=%s&n=%d", container, name, ttl, c.n.Add(1)), nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, msg models.ProcessRequest) error {
	args := m.Called(ctx, subject, msg)
	return args.Error(0)
}

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.ProcessRequest
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, msg models.ProcessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

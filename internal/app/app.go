// Package app assembles the pipeline components from configuration. Every
// entry point (the HTTP function, the storage trigger and the standalone
// binary) builds the same Components.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Lllllllleong/mediaflow/internal/api"
	"github.com/Lllllllleong/mediaflow/internal/config"
	"github.com/Lllllllleong/mediaflow/internal/gcp"
	"github.com/Lllllllleong/mediaflow/internal/messaging"
	"github.com/Lllllllleong/mediaflow/internal/metrics"
	"github.com/Lllllllleong/mediaflow/internal/sas"
	"github.com/Lllllllleong/mediaflow/internal/services"
	"github.com/Lllllllleong/mediaflow/internal/store/mongo"
)

// JobStore is everything the pipeline asks of the job record store.
type JobStore interface {
	services.JobInserter
	services.JobGetter
	services.JobFinder
}

// Components holds the wired pipeline. A component whose settings are
// missing is left nil and its error is kept in Problems, so the rest keeps
// serving.
type Components struct {
	Config *config.Config

	Blobs     *gcp.BlobStore
	Jobs      JobStore
	Publisher services.Publisher
	Issuer    services.URLIssuer
	Verifier  api.URLVerifier
	Observer  *metrics.Observer

	Ingestor *services.Ingestor
	Enqueuer *services.Enqueuer
	Resolver *services.Resolver

	Problems map[string]error

	metrics http.Handler
	closers []io.Closer
}

// Build wires every component from cfg. reg receives the metrics; nil means
// the default Prometheus registry.
func Build(cfg *config.Config, reg *prometheus.Registry) *Components {
	c := &Components{
		Config:   cfg,
		Problems: make(map[string]error),
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	c.metrics = promhttp.Handler()
	if reg != nil {
		registerer = reg
		c.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	observer, err := metrics.NewObserver(registerer)
	if err != nil {
		c.problem("metrics", err)
	} else {
		c.Observer = observer
	}

	c.Blobs = gcp.NewBlobStore(gcp.NewLazyStorageClient())
	c.closers = append(c.closers, c.Blobs)

	if jobs, closer, err := buildJobStore(cfg); err != nil {
		c.problem("job store", err)
	} else {
		c.Jobs = jobs
		c.closers = append(c.closers, closer)
	}

	if pub, closer, err := buildPublisher(cfg); err != nil {
		c.problem("publisher", err)
	} else {
		c.Publisher = pub
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}

	if err := c.buildIssuer(); err != nil {
		c.problem("url issuer", err)
	}

	c.assemble()
	return c
}

func (c *Components) problem(component string, err error) {
	if !errors.Is(err, services.ErrMisconfigured) {
		err = fmt.Errorf("%w: %w", services.ErrMisconfigured, err)
	}
	c.Problems[component] = err
	slog.Error("Component not configured", "component", component, "error", err)
}

// observer returns the metrics observer as the services interface, keeping a
// nil pointer from turning into a non-nil interface.
func (c *Components) observer() services.Observer {
	if c.Observer == nil {
		return nil
	}
	return c.Observer
}

func (c *Components) assemble() {
	cfg := c.Config
	var jobsGetter services.JobGetter
	var jobsFinder services.JobFinder
	if c.Jobs != nil {
		jobsGetter, jobsFinder = c.Jobs, c.Jobs
	}

	if c.Jobs != nil && c.Issuer != nil {
		c.Ingestor = services.NewIngestor(c.Blobs, c.Jobs, c.Issuer, c.observer(), services.IngestorConfig{
			UploadsContainer: cfg.Storage.UploadsBucket,
			BaseURL:          cfg.Storage.BaseURL,
			URLTTL:           cfg.Signing.TTL,
		})
	}
	if c.Publisher != nil {
		c.Enqueuer = services.NewEnqueuer(jobsFinder, c.Publisher, c.observer(), services.EnqueuerConfig{
			UploadsContainer: cfg.Storage.UploadsBucket,
			BaseURL:          cfg.Storage.BaseURL,
			Subject:          cfg.Publisher.Subject,
		})
	}
	if c.Issuer != nil {
		c.Resolver = services.NewResolver(jobsGetter, c.Blobs, c.Issuer, c.observer(), services.ResolverConfig{
			ThumbsContainer: cfg.Storage.ThumbsBucket,
			URLTTL:          cfg.Signing.TTL,
		})
	}
}

func buildJobStore(cfg *config.Config) (JobStore, io.Closer, error) {
	switch cfg.JobStore.Kind {
	case config.JobStoreFirestore:
		if cfg.ProjectID == "" {
			return nil, nil, fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT must be set for the firestore job store", services.ErrMisconfigured)
		}
		store := gcp.NewJobStore(gcp.NewLazyFirestoreClient(cfg.ProjectID), cfg.JobStore.FirestoreCollection)
		return store, store, nil
	case config.JobStoreMongo:
		if cfg.JobStore.MongoURI == "" {
			return nil, nil, fmt.Errorf("%w: MONGO_URI must be set for the mongo job store", services.ErrMisconfigured)
		}
		store := mongo.NewJobStore(mongo.NewLazyClient(cfg.JobStore.MongoURI), cfg.JobStore.MongoDatabase, cfg.JobStore.MongoCollection)
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown JOB_STORE %q", services.ErrMisconfigured, cfg.JobStore.Kind)
	}
}

func buildPublisher(cfg *config.Config) (services.Publisher, io.Closer, error) {
	p := cfg.Publisher
	switch p.Kind {
	case config.PublisherCloudEvents:
		pub, err := messaging.NewCloudEventPublisher(p.CloudEventsTarget)
		if err != nil {
			return nil, nil, err
		}
		return pub, nil, nil
	case config.PublisherWorkflows:
		pub, err := gcp.NewWorkflowPublisher(cfg.ProjectID, p.WorkflowLocation, p.WorkflowID)
		if err != nil {
			return nil, nil, err
		}
		return pub, pub, nil
	case config.PublisherRedis:
		if p.RedisAddr == "" {
			return nil, nil, fmt.Errorf("%w: REDIS_ADDR must be set for the redis publisher", services.ErrMisconfigured)
		}
		client := redis.NewClient(&redis.Options{Addr: p.RedisAddr})
		pub, err := messaging.NewRedisStreamPublisher(client, p.RedisStream)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return pub, client, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown PUBLISHER %q", services.ErrMisconfigured, p.Kind)
	}
}

func (c *Components) buildIssuer() error {
	s := c.Config.Signing
	switch s.Mode {
	case config.SigningHMAC:
		if s.ConnectionString == "" {
			return fmt.Errorf("%w: SIGNING_CONNECTION_STRING must be set", services.ErrMisconfigured)
		}
		issuer, err := sas.NewIssuer(s.ConnectionString, s.PublicBaseURL)
		if err != nil {
			return err
		}
		c.Issuer, c.Verifier = issuer, issuer
	case config.SigningGCS:
		signer, err := gcp.NewV4Signer(s.GCSSignerEmail, s.GCSPrivateKey)
		if err != nil {
			return err
		}
		c.Issuer = signer
	default:
		return fmt.Errorf("%w: unknown SIGNING_MODE %q", services.ErrMisconfigured, s.Mode)
	}
	return nil
}

// Router returns the HTTP surface over the wired components.
func (c *Components) Router() http.Handler {
	cfg := c.Config
	opts := api.Options{
		Verifier:         c.Verifier,
		Blobs:            c.Blobs,
		Metrics:          c.metrics,
		BlobBaseURL:      cfg.Storage.BaseURL,
		UploadsContainer: cfg.Storage.UploadsBucket,
		ThumbsContainer:  cfg.Storage.ThumbsBucket,
		RequirePassword:  cfg.Upload.RequirePassword,
		Password:         cfg.Upload.Password,
		MaxUploadBytes:   cfg.Upload.MaxBytes,
	}
	if c.Ingestor != nil {
		opts.Uploader = c.Ingestor
	}
	if c.Resolver != nil {
		opts.Resolver = c.Resolver
	}
	return api.NewRouter(opts)
}

// Close releases every client the components opened.
func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package api serves the public HTTP surface: uploads, job status, public
// configuration and the signed blob proxy.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/Lllllllleong/mediaflow/internal/services"
)

type Uploader interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.UploadResponse, error)
}

type StatusResolver interface {
	Status(ctx context.Context, jobID string) (*models.JobStatusResponse, error)
}

// URLVerifier checks a capability URL minted for container/name.
type URLVerifier interface {
	Verify(container, name string, query url.Values) error
}

type BlobOpener interface {
	Open(ctx context.Context, container, name string) (io.ReadCloser, string, error)
}

// Options configures the router. A nil component makes the routes that need
// it answer 503; everything else keeps working.
type Options struct {
	Uploader Uploader
	Resolver StatusResolver
	Verifier URLVerifier
	Blobs    BlobOpener
	Metrics  http.Handler

	BlobBaseURL      string
	UploadsContainer string
	ThumbsContainer  string
	RequirePassword  bool
	Password         string
	MaxUploadBytes   int64
}

// NewRouter builds the chi router for all routes.
func NewRouter(opts Options) http.Handler {
	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/config", h.config)
		r.Get("/_diag/auth", h.diagAuth)
		r.Post("/upload", h.upload)
		r.Get("/job/{id}", h.jobStatus)
	})
	r.Get("/blob/{container}/*", h.blob)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

// ServerConfig holds listener settings for the standalone server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      handler,
		},
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

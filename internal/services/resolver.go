package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// ResolverConfig holds configuration for the status resolver.
type ResolverConfig struct {
	ThumbsContainer string
	URLTTL          time.Duration
}

// Resolver answers "what state is this job in" from the job record and
// direct probes of the derived objects.
type Resolver struct {
	jobs     JobGetter
	blobs    BlobProber
	issuer   URLIssuer
	observer Observer
	config   ResolverConfig
}

// NewResolver wires a Resolver. jobs may be nil; the record is then treated
// as unavailable on every call and only derived objects prove a job exists.
func NewResolver(jobs JobGetter, blobs BlobProber, issuer URLIssuer, observer Observer, config ResolverConfig) *Resolver {
	return &Resolver{
		jobs:     jobs,
		blobs:    blobs,
		issuer:   issuer,
		observer: observerOrNoop(observer),
		config:   config,
	}
}

// Status resolves the job. It returns models.ErrJobNotFound when neither a
// record nor any derived object was found, including when the record could
// not be read. When a probe failed and nothing was found it returns
// ErrUnavailable instead, since the derived objects may exist. URLs are
// minted fresh on every call.
func (r *Resolver) Status(ctx context.Context, jobID string) (*models.JobStatusResponse, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, models.ErrJobNotFound
	}

	start := time.Now()
	logCtx := slog.With("jobId", jobID)

	evidence, err := r.gather(ctx, logCtx, jobID)
	if err != nil {
		logCtx.Error("Status resolution failed", "error", err)
		return nil, err
	}

	status, found := MergeStatus(evidence)
	if !found {
		if evidence.ProbeFailed {
			r.observer.StatusLookup("unavailable")
			return nil, fmt.Errorf("%w: derived object probes failed for %s", ErrUnavailable, jobID)
		}
		r.observer.StatusLookup("not_found")
		return nil, models.ErrJobNotFound
	}
	r.observer.StatusLookup(string(status))
	r.observer.Duration("status", time.Since(start))

	resp := &models.JobStatusResponse{ID: jobID, Status: status}
	if u, ok := evidence.Derived["thumb"]; ok {
		resp.ThumbURL = &u
	}
	if u, ok := evidence.Derived["thumb2x"]; ok {
		resp.Thumb2xURL = &u
	}
	return resp, nil
}

// gather runs the record read and every variant probe concurrently. Only
// URL issuing failures abort; record and probe failures become evidence.
func (r *Resolver) gather(ctx context.Context, logCtx *slog.Logger, jobID string) (Evidence, error) {
	type probe struct {
		url    string
		exists bool
		failed bool
	}
	probes := make([]probe, len(Variants))
	evidence := Evidence{Record: RecordUnavailable}

	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		evidence.Record, evidence.Stored = r.readRecord(gctx, logCtx, jobID)
		return nil
	})

	for i, v := range Variants {
		name := jobID + v.Suffix
		eg.Go(func() error {
			var exists bool
			ok := bestEffort(logCtx.With("variant", v.Key), "probe derived object", func() error {
				var err error
				exists, err = r.blobs.Exists(gctx, r.config.ThumbsContainer, name)
				return err
			})
			if !ok {
				probes[i].failed = true
				return nil
			}
			if !exists {
				return nil
			}
			probes[i].exists = true
			return mustSucceed("issue url for "+name, func() error {
				u, err := r.issuer.SignedURL(r.config.ThumbsContainer, name, r.config.URLTTL)
				probes[i].url = u
				return err
			})
		})
	}

	if err := eg.Wait(); err != nil {
		return Evidence{}, err
	}

	for i, p := range probes {
		if p.failed {
			evidence.ProbeFailed = true
		}
		if p.exists {
			if evidence.Derived == nil {
				evidence.Derived = make(map[string]string, len(Variants))
			}
			evidence.Derived[Variants[i].Key] = p.url
		}
	}
	return evidence, nil
}

func (r *Resolver) readRecord(ctx context.Context, logCtx *slog.Logger, jobID string) (RecordLookup, models.Status) {
	if r.jobs == nil {
		return RecordUnavailable, ""
	}

	var (
		job    *models.Job
		lookup = RecordUnavailable
	)
	bestEffort(logCtx, "read job record", func() error {
		var err error
		job, err = r.jobs.Get(ctx, jobID)
		switch {
		case errors.Is(err, models.ErrJobNotFound):
			lookup = RecordMissing
			return nil
		case err != nil:
			return err
		case job == nil:
			return fmt.Errorf("store returned no record and no error")
		}
		lookup = RecordFound
		return nil
	})
	if lookup != RecordFound {
		return lookup, ""
	}
	return RecordFound, job.Status
}

package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/Lllllllleong/mediaflow/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resolverConfig = services.ResolverConfig{ThumbsContainer: "thumbnails", URLTTL: 15 * time.Minute}

func TestResolver_Status_QueuedRecord(t *testing.T) {
	t.Parallel()

	jobs := newMemJobs()
	require.NoError(t, jobs.Insert(context.Background(), &models.Job{ID: "1-cat.png", Status: models.StatusQueued}))

	r := services.NewResolver(jobs, newMemBlobs(), &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "1-cat.png")
	require.NoError(t, err)

	assert.Equal(t, &models.JobStatusResponse{ID: "1-cat.png", Status: models.StatusQueued}, got)
}

func TestResolver_Status_DerivedObjectsWin(t *testing.T) {
	t.Parallel()

	jobs, blobs := newMemJobs(), newMemBlobs()
	require.NoError(t, jobs.Insert(context.Background(), &models.Job{ID: "1-cat.png", Status: models.StatusQueued}))
	blobs.create("thumbnails", "1-cat.png.thumb.jpg")
	blobs.create("thumbnails", "1-cat.png.thumb@2x.jpg")

	r := services.NewResolver(jobs, blobs, &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "1-cat.png")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDone, got.Status)
	require.NotNil(t, got.ThumbURL)
	require.NotNil(t, got.Thumb2xURL)
	assert.Contains(t, *got.ThumbURL, "thumbnails/1-cat.png.thumb.jpg")
	assert.Contains(t, *got.Thumb2xURL, "thumbnails/1-cat.png.thumb@2x.jpg")
}

func TestResolver_Status_DoneWithoutRecord(t *testing.T) {
	t.Parallel()

	blobs := newMemBlobs()
	blobs.create("thumbnails", "orphan.png.thumb.jpg")

	r := services.NewResolver(newMemJobs(), blobs, &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "orphan.png")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Nil(t, got.Thumb2xURL)
}

func TestResolver_Status_NotFound(t *testing.T) {
	t.Parallel()

	r := services.NewResolver(newMemJobs(), newMemBlobs(), &countingIssuer{}, nil, resolverConfig)

	_, err := r.Status(context.Background(), "never-uploaded.png")
	require.ErrorIs(t, err, models.ErrJobNotFound)

	_, err = r.Status(context.Background(), "  ")
	require.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestResolver_Status_UnreadableRecordIsNotFound(t *testing.T) {
	t.Parallel()

	jobs := newMemJobs()
	jobs.getErr = errors.New("database unavailable")

	r := services.NewResolver(jobs, newMemBlobs(), &countingIssuer{}, nil, resolverConfig)
	_, err := r.Status(context.Background(), "never-uploaded-garbage")
	require.ErrorIs(t, err, models.ErrJobNotFound)

	unconfigured := services.NewResolver(nil, newMemBlobs(), &countingIssuer{}, nil, resolverConfig)
	_, err = unconfigured.Status(context.Background(), "never-uploaded-garbage")
	require.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestResolver_Status_UnreadableRecordStillSeesDerivedObjects(t *testing.T) {
	t.Parallel()

	jobs, blobs := newMemJobs(), newMemBlobs()
	jobs.getErr = errors.New("database unavailable")
	blobs.create("thumbnails", "1-cat.png.thumb.jpg")

	r := services.NewResolver(jobs, blobs, &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "1-cat.png")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
}

func TestResolver_Status_ProbeFailureWithoutRecordIsUnavailable(t *testing.T) {
	t.Parallel()

	blobs := newMemBlobs()
	blobs.existsErr = errors.New("storage timeout")

	r := services.NewResolver(newMemJobs(), blobs, &countingIssuer{}, nil, resolverConfig)
	_, err := r.Status(context.Background(), "1-cat.png")
	require.ErrorIs(t, err, services.ErrUnavailable)
	assert.NotErrorIs(t, err, models.ErrJobNotFound)
}

func TestResolver_Status_ProbeFailureKeepsRecordStatus(t *testing.T) {
	t.Parallel()

	jobs, blobs := newMemJobs(), newMemBlobs()
	require.NoError(t, jobs.Insert(context.Background(), &models.Job{ID: "1-cat.png", Status: models.StatusProcessing}))
	blobs.existsErr = errors.New("storage timeout")

	r := services.NewResolver(jobs, blobs, &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "1-cat.png")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Nil(t, got.ThumbURL)
}

func TestResolver_Status_StoredDoneNeedsEvidence(t *testing.T) {
	t.Parallel()

	jobs := newMemJobs()
	require.NoError(t, jobs.Insert(context.Background(), &models.Job{ID: "1-cat.png", Status: models.StatusDone}))

	r := services.NewResolver(jobs, newMemBlobs(), &countingIssuer{}, nil, resolverConfig)
	got, err := r.Status(context.Background(), "1-cat.png")
	require.NoError(t, err)
	assert.NotEqual(t, models.StatusDone, got.Status)
}

func TestResolver_Status_IssuerFailureIsFatal(t *testing.T) {
	t.Parallel()

	blobs := newMemBlobs()
	blobs.create("thumbnails", "1-cat.png.thumb.jpg")

	r := services.NewResolver(newMemJobs(), blobs, &countingIssuer{err: errors.New("bad key")}, nil, resolverConfig)
	_, err := r.Status(context.Background(), "1-cat.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrJobNotFound)
}

func TestResolver_Status_FreshURLAndMonotonicDone(t *testing.T) {
	t.Parallel()

	blobs := newMemBlobs()
	blobs.create("thumbnails", "1-cat.png.thumb.jpg")
	r := services.NewResolver(newMemJobs(), blobs, &countingIssuer{}, nil, resolverConfig)

	var seen []string
	for range 3 {
		got, err := r.Status(context.Background(), "1-cat.png")
		require.NoError(t, err)
		assert.Equal(t, models.StatusDone, got.Status)
		require.NotNil(t, got.ThumbURL)
		assert.NotContains(t, seen, *got.ThumbURL)
		seen = append(seen, *got.ThumbURL)
	}
}

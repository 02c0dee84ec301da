package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/mediaflow/internal/app"
	"github.com/Lllllllleong/mediaflow/internal/config"
	"github.com/Lllllllleong/mediaflow/internal/lazy"
	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/Lllllllleong/mediaflow/internal/services"
)

var enqueuer = lazy.New(func(context.Context) (*services.Enqueuer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	components := app.Build(cfg, nil)
	if components.Enqueuer == nil {
		_ = components.Close()
		return nil, components.Problems["publisher"]
	}
	return components.Enqueuer, nil
}, nil)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Fires once per object finalized in the uploads bucket.
	functions.CloudEvent("EnqueueUpload", enqueueUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// enqueueUpload is the CloudEvent entry point. Returning an error makes the
// trigger redeliver the event.
func enqueueUpload(ctx context.Context, e cloudevents.Event) error {
	f, err := enqueuer.Get(ctx)
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	var data models.StorageObjectData
	if err := json.Unmarshal(e.Data(), &data); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs with its own context.
	return f.Process(ctx, data)
}

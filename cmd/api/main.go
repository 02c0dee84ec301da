package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/mediaflow/internal/app"
	"github.com/Lllllllleong/mediaflow/internal/config"
	"github.com/Lllllllleong/mediaflow/internal/lazy"
)

type mediaAPI struct {
	components *app.Components
	router     http.Handler
}

var instance = lazy.New(func(context.Context) (*mediaAPI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	components := app.Build(cfg, nil)
	return &mediaAPI{components: components, router: components.Router()}, nil
}, func(m *mediaAPI) { _ = m.components.Close() })

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("MediaAPI", serveMediaAPI)
}

// main is required by the Go Functions Framework.
func main() {}

// serveMediaAPI is the HTTP Cloud Function entry point.
func serveMediaAPI(w http.ResponseWriter, r *http.Request) {
	m, err := instance.Get(r.Context())
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"server misconfigured"}`))
		return
	}
	m.router.ServeHTTP(w, r)
}

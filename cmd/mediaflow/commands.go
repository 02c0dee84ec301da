package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/mediaflow/internal/api"
	"github.com/Lllllllleong/mediaflow/internal/app"
	"github.com/Lllllllleong/mediaflow/internal/config"
	"github.com/Lllllllleong/mediaflow/internal/models"
)

const shutdownTimeout = 10 * time.Second

func cmd() *cli.Command {
	return &cli.Command{
		Name:  "mediaflow",
		Usage: "Media upload, job dispatch and status service",
		Commands: []*cli.Command{
			serveCommand(),
			enqueueCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API as a standalone server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Set HTTP server host",
			},
			&cli.StringFlag{
				Name:    "port",
				Usage:   "Set HTTP server port",
				Value:   "8080",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.DurationFlag{
				Name:  "http-read-timeout",
				Usage: "Set HTTP server read timeout",
				Value: 30 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "http-write-timeout",
				Usage: "Set HTTP server write timeout",
				Value: 60 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "http-idle-timeout",
				Usage: "Set HTTP server idle timeout",
				Value: time.Minute,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			components := app.Build(cfg, nil)
			defer components.Close()

			server := api.NewServer(api.ServerConfig{
				Addr:         net.JoinHostPort(cmd.String("host"), cmd.String("port")),
				ReadTimeout:  cmd.Duration("http-read-timeout"),
				WriteTimeout: cmd.Duration("http-write-timeout"),
				IdleTimeout:  cmd.Duration("http-idle-timeout"),
			}, components.Router())

			return serve(ctx, server)
		},
	}
}

func serve(ctx context.Context, server *api.Server) error {
	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		slog.InfoContext(ctx, "starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", "error", err)
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

func enqueueCommand() *cli.Command {
	return &cli.Command{
		Name:      "enqueue",
		Usage:     "Publish a processing request for an object already in the uploads bucket",
		ArgsUsage: "<object>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bucket",
				Usage: "Bucket holding the object (defaults to UPLOADS_BUCKET)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return errors.New("object name is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			components := app.Build(cfg, nil)
			defer components.Close()

			if components.Enqueuer == nil {
				return components.Problems["publisher"]
			}
			return components.Enqueuer.Process(ctx, models.StorageObjectData{
				Bucket: cmd.String("bucket"),
				Name:   name,
			})
		},
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/plumefeed/plume/internal/api"
	"github.com/plumefeed/plume/internal/config"
	"github.com/plumefeed/plume/internal/feed"
	"github.com/plumefeed/plume/internal/media"
	"github.com/plumefeed/plume/internal/search"
	"github.com/plumefeed/plume/internal/session"
)

// Dependencies aggregates the collaborators the CLI commands work with.
type Dependencies struct {
	Gateway     *api.Client
	Session     *session.Store
	Coordinator *feed.Coordinator
	Search      *search.Controller
	Views       *feed.ViewRecorder
}

// cleanupFunc releases resources held by the dependency graph.
type cleanupFunc func(ctx context.Context) error

// buildDependencies wires together the concrete implementations used by the
// CLI. The session store is constructed but not restored; commands decide
// when validation against the remote service happens.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Dependencies, cleanupFunc, error) {
	gateway := api.New(cfg.BaseURL, api.WithTimeout(cfg.RequestTimeout))

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}
	creds, err := session.OpenSQLiteStore(ctx, cfg.CredentialPath())
	if err != nil {
		return nil, nil, err
	}

	sess := session.NewStore(gateway, creds, logger)

	coordOpts := []feed.Option{feed.WithLogger(logger)}
	if cfg.ObjectStore.Bucket != "" {
		uploader, err := media.NewS3Uploader(ctx, cfg.ObjectStore)
		if err != nil {
			creds.Close()
			return nil, nil, err
		}
		coordOpts = append(coordOpts, feed.WithUploader(uploader))
	}

	coordinator := feed.NewCoordinator(gateway, sess, feed.Config{
		ToggleInterval: cfg.ToggleInterval,
	}, coordOpts...)

	views := feed.NewViewRecorder(gateway, sess, feed.ViewRecorderConfig{
		QueueSize: cfg.ViewQueueSize,
		Workers:   cfg.ViewWorkers,
	}, logger)

	deps := &Dependencies{
		Gateway:     gateway,
		Session:     sess,
		Coordinator: coordinator,
		Search:      search.NewController(gateway, sess),
		Views:       views,
	}

	cleanup := func(ctx context.Context) error {
		return errors.Join(views.Shutdown(ctx), creds.Close())
	}

	return deps, cleanup, nil
}

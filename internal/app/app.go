// Package app bootstraps the Plume CLI: configuration, logging, the
// dependency graph, and the command surface that drives the client library.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/plumefeed/plume/internal/config"
	"github.com/plumefeed/plume/internal/logging"
)

const cleanupTimeout = 10 * time.Second

// Run executes the Plume CLI with the full argument vector.
func Run(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "plume",
		Usage: "Command-line client for the Plume social feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "plume.yaml",
				Sources: cli.EnvVars("PLUME_CONFIG_FILE"),
			},
		},
		Commands: commands(),
	}

	return cmd.Run(ctx, args)
}

// action wraps a command body with config loading, logging, dependency
// wiring, session restore, and cleanup.
func action(requireSession bool, fn func(ctx context.Context, cmd *cli.Command, deps *Dependencies) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.Load(cmd.String("config"))
		if err != nil {
			return err
		}

		logger := newLogger(cfg.LogLevel)
		slog.SetDefault(logger)

		deps, cleanup, err := buildDependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
			defer cancel()
			if err := cleanup(cleanupCtx); err != nil {
				logger.Warn("cleanup", "error", err)
			}
		}()

		ctx = logging.WithLogger(ctx, logger)
		ctx, span := logging.StartSpan(ctx, cmd.Name)
		defer span.End()

		if err := deps.Session.Restore(ctx); err != nil {
			return err
		}
		if requireSession && !deps.Session.Authenticated() {
			return fmt.Errorf("not signed in; run `plume login <email> <password>` first")
		}

		return fn(ctx, cmd, deps)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

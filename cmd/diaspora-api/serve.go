package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/diasporalink/api/config"
	"github.com/diasporalink/api/logging"
	"github.com/diasporalink/api/postgres"
	"github.com/diasporalink/api/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional file with environment variables")

	return cmd
}

// runServe connects the database, serves HTTP until ctx is done or the
// server fails, then drains HTTP before closing the database.
func runServe(ctx context.Context, cfg *config.Config) error {
	zl, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	defer func() { _ = zl.Sync() }()

	logger := logging.FromZap(zl)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db := postgres.New(append(cfg.PostgresOptions(),
		postgres.WithLogger(logger.WithField("component", "postgres")),
		postgres.WithMetricsRegisterer(registry),
	)...)

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}

	defer func() {
		if err := db.Shutdown(context.Background()); err != nil {
			logger.Errorf("Database shutdown failed: %v", err)
		}
	}()

	srv := server.New(cfg.HTTPAddr, db, registry, logger.WithField("component", "http"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

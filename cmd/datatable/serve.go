package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/datatable/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the data tables over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	service := newService(pool)
	server := web.NewServer(service, cfg, logger)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"tables", len(catalog.Tables),
		"db_max_conns", cfg.Database.MaxConns,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}

		// in-flight queries finish before the pool closes
		limiter := service.Limiter()
		if n := limiter.ActiveCount(); n > 0 {
			logger.Info("waiting for queries to complete", "active", n)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("queries did not complete in time", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

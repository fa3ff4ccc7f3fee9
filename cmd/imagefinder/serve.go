package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpDelivery "github.com/anipet/imagefinder/internal/delivery/http"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, logger := opts.cfg, opts.logger
	a := newApp(cfg, logger)
	defer a.Close()

	logger.Info("Starting imagefinder",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog", cfg.Catalog.URL),
	)

	httpDelivery.Version = version
	handler := httpDelivery.NewHandler(a.catalogs, a.matcher, a.scanner, a.images, logger,
		httpDelivery.HandlerConfig{MaxBodyBytes: cfg.Server.MaxBodyBytes})
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	a.warmCatalog(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/watcher"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-augment an HTML snapshot file whenever it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, in, out)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "HTML snapshot file to watch")
	cmd.Flags().StringVar(&out, "out", "", "augmented HTML output file")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runWatch(ctx context.Context, opts *rootOptions, in, out string) error {
	cfg, logger := opts.cfg, opts.logger
	if in == "-" || out == "-" || in == out {
		return fmt.Errorf("%w: --in and --out must be two different files", domain.ErrInvalidRequest)
	}

	a := newApp(cfg, logger)
	defer a.Close()
	a.warmCatalog(ctx)

	source := watcher.NewFileSource(in, watcher.FileSourceConfig{
		Containers: cfg.Watcher.Containers,
		Attributes: cfg.Watcher.Attributes,
		Targets:    cfg.Watcher.Targets,
	}, logger)

	err := watcher.Discover(ctx, watcher.DiscoveryConfig{
		Attempts: cfg.Watcher.DiscoveryAttempts,
		Interval: cfg.Watcher.DiscoveryInterval,
	}, source.Probe, logger)
	switch {
	case errors.Is(err, domain.ErrWatchTargetNotFound):
		// keep watching, the target may appear later
	case err != nil:
		return err
	}

	scan := func(ctx context.Context) error {
		return augmentFile(ctx, a, in, out, nil, nil)
	}

	w := watcher.New(scan, logger, watcherConfig(cfg.Watcher))
	w.ScheduleInitial()

	logger.Info("Watching snapshot", zap.String("in", in), zap.String("out", out))
	return w.Run(ctx, source)
}

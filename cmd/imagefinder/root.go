package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anipet/imagefinder/config"
	"github.com/anipet/imagefinder/internal/observability"
)

// rootOptions carries state shared by every command
type rootOptions struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "imagefinder",
		Short:         "Adds catalog product images and links to dashboard tables",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			opts.logger = observability.NewLogger(cfg.Logger)
			opts.logger.Debug("Configuration loaded", zap.String("version", version))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	cmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	cmd.AddCommand(
		newServeCmd(opts),
		newAugmentCmd(opts),
		newWatchCmd(opts),
		newMatchCmd(opts),
	)
	return cmd
}

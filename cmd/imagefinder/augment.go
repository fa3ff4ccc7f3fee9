package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAugmentCmd(opts *rootOptions) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "augment",
		Short: "Augment one HTML document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(opts.cfg, opts.logger)
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.cfg.Catalog.LoadTimeout)
			defer cancel()
			return augmentFile(ctx, a, in, out, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&in, "in", "-", "input HTML file, - for stdin")
	cmd.Flags().StringVar(&out, "out", "-", "output HTML file, - for stdout")
	return cmd
}

func augmentFile(ctx context.Context, a *app, in, out string, stdin io.Reader, stdout io.Writer) error {
	src := stdin
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		src = f
	}

	var buf bytes.Buffer
	report, err := a.scanner.AugmentHTML(ctx, src, &buf)
	if err != nil {
		return fmt.Errorf("augment: %w", err)
	}

	a.logger.Info("Document augmented",
		zap.String("pass_id", report.PassID),
		zap.Int("rows", report.Rows),
		zap.Int("matched", report.Matched),
		zap.Int("skipped", report.Skipped),
	)

	if out == "-" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	return writeFileAtomic(out, buf.Bytes())
}

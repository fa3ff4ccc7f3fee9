package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	httpDelivery "github.com/anipet/imagefinder/internal/delivery/http"
	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/usecase"
)

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var ids domain.RowIdentifiers
	var attr string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve one row's identifiers against the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("attr") {
				ids.OriginalAttribute = &attr
			}

			a := newApp(opts.cfg, opts.logger)
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.cfg.Catalog.LoadTimeout)
			defer cancel()

			catalog, err := a.catalogs.Get(ctx)
			if err != nil {
				return err
			}
			if err := a.catalogs.Err(); err != nil {
				return err
			}

			result := a.matcher.Resolve(ids, catalog)
			resp := httpDelivery.MatchResponse{Matched: result.Matched(), Tier: result.Tier, Entry: result.Entry}
			if result.Matched() {
				resp.FullSizeImage = usecase.FullSizeImageURL(result.Entry.Image)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&ids.CurrentText, "sku", "", "SKU text shown in the row")
	cmd.Flags().StringVar(&attr, "attr", "", "original SKU attribute value")
	cmd.Flags().StringVar(&ids.DisplayName, "name", "", "product name shown in the row")
	return cmd
}

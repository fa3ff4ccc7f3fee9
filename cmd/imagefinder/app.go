package main

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/anipet/imagefinder/config"
	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/infrastructure/cache"
	"github.com/anipet/imagefinder/internal/infrastructure/feed"
	"github.com/anipet/imagefinder/internal/infrastructure/imageprobe"
	"github.com/anipet/imagefinder/internal/page"
	"github.com/anipet/imagefinder/internal/usecase"
	"github.com/anipet/imagefinder/internal/watcher"
)

// app wires the components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	cache    *cache.MemoryCache
	catalogs *usecase.CatalogStore
	matcher  *usecase.MatchingService
	scanner  *page.Scanner
	images   *usecase.ImageService
}

func newApp(cfg *config.Config, logger *zap.Logger) *app {
	memoryCache := cache.NewMemoryCache(cfg.Cache.CleanupInterval)

	feedClient := feed.NewClient(feed.Config{
		URL:         cfg.Catalog.URL,
		UserAgent:   cfg.Catalog.UserAgent,
		Timeout:     cfg.Catalog.Timeout,
		MaxAttempts: cfg.Catalog.MaxAttempts,
		RatePerHour: cfg.Catalog.RatePerHour,
		CacheTTL:    cfg.Cache.TTL,
	}, memoryCache, logger)

	catalogs := usecase.NewCatalogStore(feedClient, logger, usecase.CatalogStoreConfig{
		LoadTimeout: cfg.Catalog.LoadTimeout,
	})
	matcher := usecase.NewMatchingService(logger, usecase.MatchConfig{
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})
	prober := imageprobe.NewProber(cfg.Image.ProbeTimeout, cfg.Catalog.UserAgent)

	return &app{
		cfg:      cfg,
		logger:   logger,
		cache:    memoryCache,
		catalogs: catalogs,
		matcher:  matcher,
		scanner:  page.NewScanner(catalogs, matcher, logger, scannerConfig(cfg.Scanner)),
		images:   usecase.NewImageService(prober, logger),
	}
}

func (a *app) Close() {
	a.cache.Close()
}

// warmCatalog starts the catalog load without waiting for it
func (a *app) warmCatalog(ctx context.Context) {
	a.catalogs.GetCatalog(ctx, func(c *domain.Catalog) {
		a.logger.Info("Catalog ready", zap.Int("entries", c.Len()))
	})
}

func scannerConfig(cfg config.ScannerConfig) page.ScannerConfig {
	layouts := make([]page.Layout, 0, len(cfg.Layouts))
	for _, l := range cfg.Layouts {
		layouts = append(layouts, page.Layout{
			Name:      l.Name,
			NameCells: l.NameCells,
			SKUCell:   l.SKUCell,
			ImageCell: l.ImageCell,
		})
	}

	rules := make([]page.ColumnRule, 0, len(cfg.HiddenColumns))
	for _, r := range cfg.HiddenColumns {
		rules = append(rules, page.ColumnRule{Table: r.Table, Columns: r.Columns})
	}

	return page.ScannerConfig{
		Layouts:       layouts,
		HiddenColumns: rules,
		AlternativeTables: page.AlternativeTables{
			Tables:     cfg.AlternativeTables.Tables,
			Exclude:    cfg.AlternativeTables.Exclude,
			Keywords:   cfg.AlternativeTables.Keywords,
			SKUColumns: cfg.AlternativeTables.SKUColumns,
			Columns:    cfg.AlternativeTables.Columns,
		},
		SKUAttribute:    cfg.SKUAttribute,
		PrimaryLinkHost: cfg.PrimaryLinkHost,
	}
}

func watcherConfig(cfg config.WatcherConfig) watcher.Config {
	return watcher.Config{
		Debounce:        cfg.Debounce,
		NavigationDelay: cfg.NavigationDelay,
		InitialDelay:    cfg.InitialDelay,
		Filter: watcher.FilterConfig{
			ChildListTargets:  cfg.Filter.ChildListTargets,
			AddedNodes:        cfg.Filter.AddedNodes,
			AddedNodesContain: cfg.Filter.AddedNodesContain,
			AttributeTargets:  cfg.Filter.AttributeTargets,
			HighlightClass:    cfg.Filter.HighlightClass,
			TitleMarker:       cfg.Filter.TitleMarker,
			TrackedAttributes: cfg.Filter.TrackedAttributes,
		},
	}
}

// writeFileAtomic replaces path with data so readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

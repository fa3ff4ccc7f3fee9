package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anipet/imagefinder/internal/domain"
	"go.uber.org/zap"
)

// CatalogStoreConfig holds configuration for the catalog store
type CatalogStoreConfig struct {
	LoadTimeout time.Duration
}

// CatalogStore holds the session catalog and loads it on first demand.
// Concurrent callers share a single in-flight load.
type CatalogStore struct {
	source      domain.CatalogSource
	logger      *zap.Logger
	loadTimeout time.Duration

	mu      sync.Mutex
	state   domain.LoadState
	catalog *domain.Catalog
	waiters []func(*domain.Catalog)
	lastErr error
	loads   int
}

// NewCatalogStore creates a catalog store backed by source
func NewCatalogStore(source domain.CatalogSource, logger *zap.Logger, config CatalogStoreConfig) *CatalogStore {
	timeout := config.LoadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogStore{
		source:      source,
		logger:      logger.Named("catalog"),
		loadTimeout: timeout,
		state:       domain.StateUninitialized,
	}
}

// GetCatalog invokes onReady with the session catalog.
//
// A resident catalog is handed over immediately on the caller's goroutine.
// Otherwise onReady is queued and every queued callback runs exactly once, in
// registration order, when the single in-flight load completes. A failed load
// hands out an empty catalog; the next call starts a new load.
func (s *CatalogStore) GetCatalog(ctx context.Context, onReady func(*domain.Catalog)) {
	s.mu.Lock()
	if s.state == domain.StateReady {
		catalog := s.catalog
		s.mu.Unlock()
		onReady(catalog)
		return
	}

	s.waiters = append(s.waiters, onReady)
	if s.state == domain.StateLoading {
		s.mu.Unlock()
		return
	}
	s.beginLoadLocked(ctx)
	s.mu.Unlock()
}

// Get waits for the session catalog. The error is non-nil only when ctx ends
// first; a failed load yields an empty catalog and a nil error.
func (s *CatalogStore) Get(ctx context.Context) (*domain.Catalog, error) {
	ready := make(chan *domain.Catalog, 1)
	s.GetCatalog(ctx, func(c *domain.Catalog) {
		ready <- c
	})

	select {
	case c := <-ready:
		return c, nil
	case <-ctx.Done():
		return domain.EmptyCatalog(), ctx.Err()
	}
}

// Reload discards the resident catalog and loads it again. When a load is
// already in flight it waits for that one instead.
func (s *CatalogStore) Reload(ctx context.Context) (*domain.Catalog, error) {
	s.mu.Lock()
	if s.state != domain.StateLoading {
		s.state = domain.StateUninitialized
		s.catalog = nil
	}
	s.mu.Unlock()

	catalog, err := s.Get(ctx)
	if err != nil {
		return catalog, err
	}
	return catalog, s.Err()
}

// Err returns the error of the last failed load, nil after a successful one
func (s *CatalogStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Status returns a snapshot of the store
func (s *CatalogStore) Status() domain.CatalogStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := domain.CatalogStatus{
		State:   s.state,
		Columns: domain.NoColumns,
		Loads:   s.loads,
	}
	if s.catalog != nil {
		status.Entries = s.catalog.Len()
		status.Columns = s.catalog.Columns
		status.LoadedAt = s.catalog.LoadedAt
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// beginLoadLocked starts the single load. Callers hold s.mu.
func (s *CatalogStore) beginLoadLocked(ctx context.Context) {
	s.state = domain.StateLoading
	s.loads++

	// The load outlives the caller that triggered it, other waiters depend on it.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	go func() {
		defer cancel()
		catalog, err := s.load(loadCtx)
		s.finish(catalog, err)
	}()
}

// load fetches and parses the feed
func (s *CatalogStore) load(ctx context.Context) (*domain.Catalog, error) {
	start := time.Now()

	text, err := s.source.FetchCatalog(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrTransport) {
			err = fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		return nil, err
	}

	result, err := ParseCatalog(text)
	if err != nil {
		return nil, err
	}

	if result.Skipped > 0 {
		s.logger.Debug("Skipped malformed catalog rows",
			zap.Int("skipped", result.Skipped), zap.Error(domain.ErrRowMalformed))
	}
	s.logger.Info("Catalog loaded",
		zap.Int("entries", result.Catalog.Len()),
		zap.Int("rows", result.Rows),
		zap.Int("skipped", result.Skipped),
		zap.Int("dropped", result.Dropped),
		zap.Duration("elapsed", time.Since(start)))
	return result.Catalog, nil
}

// finish publishes the load outcome and releases every waiter in order
func (s *CatalogStore) finish(catalog *domain.Catalog, err error) {
	s.mu.Lock()
	if err != nil {
		s.logger.Error("Catalog load failed, continuing without matches", zap.Error(err))
		s.state = domain.StateFailed
		s.catalog = nil
		s.lastErr = err
		catalog = domain.EmptyCatalog()
	} else {
		s.state = domain.StateReady
		s.catalog = catalog
		s.lastErr = nil
	}
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, onReady := range waiters {
		onReady(catalog)
	}
}

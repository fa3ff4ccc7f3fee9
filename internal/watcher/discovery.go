package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anipet/imagefinder/internal/domain"
)

// DiscoveryConfig bounds the search for the watch target
type DiscoveryConfig struct {
	Attempts int
	Interval time.Duration
	Clock    Clock
}

// Discover polls probe until it reports the watch target present.
// It gives up with domain.ErrWatchTargetNotFound after the configured attempts.
func Discover(ctx context.Context, config DiscoveryConfig, probe func() bool, logger *zap.Logger) error {
	if config.Attempts <= 0 {
		config.Attempts = 20
	}
	if config.Interval <= 0 {
		config.Interval = 700 * time.Millisecond
	}
	if config.Clock == nil {
		config.Clock = RealClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		if probe() {
			return nil
		}
		if attempt >= config.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-config.Clock.After(config.Interval):
		}
	}

	logger.Warn("Watch target not found", zap.Int("attempts", config.Attempts))
	return fmt.Errorf("%w after %d attempts", domain.ErrWatchTargetNotFound, config.Attempts)
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anipet/imagefinder/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds configuration for the catalog feed client
type Config struct {
	URL         string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int           // 1 disables retries
	RatePerHour int           // outbound fetch budget
	CacheTTL    time.Duration // 0 disables payload caching
}

// Client fetches the delimited-text catalog feed over HTTP
type Client struct {
	httpClient  *http.Client
	url         string
	userAgent   string
	maxAttempts int
	cacheTTL    time.Duration
	cache       domain.CacheRepository
	rateLimiter *rate.Limiter
	logger      *zap.Logger

	// backoff returns the pause before the given retry attempt
	backoff func(attempt int) time.Duration
}

// NewClient creates a new catalog feed client. cache may be nil.
func NewClient(config Config, cache domain.CacheRepository, logger *zap.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	perHour := config.RatePerHour
	if perHour <= 0 {
		perHour = 120
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "imagefinder/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:         config.URL,
		userAgent:   userAgent,
		maxAttempts: attempts,
		cacheTTL:    config.CacheTTL,
		cache:       cache,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600), 5),
		logger:      logger.Named("feed"),
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// FetchCatalog downloads the feed body. Non-2xx responses and network
// failures are reported as domain.ErrTransport.
func (c *Client) FetchCatalog(ctx context.Context) (string, error) {
	cacheKey := "feed:" + c.url
	if c.cache != nil && c.cacheTTL > 0 {
		if body, err := c.cache.Get(ctx, cacheKey); err == nil {
			c.logger.Debug("Catalog feed served from cache", zap.String("url", c.url))
			return string(body), nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.backoff(attempt - 1)):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrRateLimited, err)
		}

		body, retryable, err := c.fetchOnce(ctx)
		if err == nil {
			if c.cache != nil && c.cacheTTL > 0 {
				if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
					c.logger.Warn("Failed to cache catalog feed", zap.Error(err))
				}
			}
			c.logger.Info("Catalog feed fetched",
				zap.String("url", c.url), zap.Int("bytes", len(body)), zap.Int("attempt", attempt))
			return string(body), nil
		}

		lastErr = err
		c.logger.Warn("Catalog feed fetch failed",
			zap.String("url", c.url), zap.Int("attempt", attempt), zap.Error(err))
		if !retryable {
			break
		}
	}

	return "", lastErr
}

// fetchOnce performs a single GET. retryable reports whether another attempt may succeed.
func (c *Client) fetchOnce(ctx context.Context) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to create request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("%w: status %d %s", domain.ErrTransport, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading body: %v", domain.ErrTransport, err)
	}
	return body, false, nil
}

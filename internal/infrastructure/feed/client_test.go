package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const feedBody = "SKUs,Image URL\n123,http://img/1\n"

func newTestClient(url string, attempts int, c domain.CacheRepository, ttl time.Duration) *Client {
	client := NewClient(Config{URL: url, MaxAttempts: attempts, CacheTTL: ttl}, c, zap.NewNop())
	client.backoff = func(int) time.Duration { return time.Millisecond }
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{URL: "https://example.com/catalog.csv"}, nil, nil)

	assert.NotNil(t, client)
	assert.Equal(t, "https://example.com/catalog.csv", client.url)
	assert.Equal(t, 1, client.maxAttempts)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "imagefinder/1.0", client.userAgent)
	assert.NotNil(t, client.rateLimiter)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchCatalog_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/catalog.csv", r.URL.Path)
		assert.Equal(t, "imagefinder/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL+"/catalog.csv", 1, nil, 0)

	body, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, feedBody, body)
}

func TestFetchCatalog_Non2xxIsTransportError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := newTestClient(server.URL, 1, nil, 0)

			body, err := client.FetchCatalog(context.Background())
			assert.Empty(t, body)
			assert.ErrorIs(t, err, domain.ErrTransport)
			assert.Equal(t, int32(1), attempts.Load(), "single attempt by default")
		})
	}
}

func TestFetchCatalog_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, 1, nil, 0)

	_, err := client.FetchCatalog(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestFetchCatalog_ServerError_Retries(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, nil, 0)

	body, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, feedBody, body)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchCatalog_ClientError_NoRetry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3, nil, 0)

	_, err := client.FetchCatalog(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, int32(1), attempts.Load()) // Should not retry 4xx errors
}

func TestFetchCatalog_TooManyRequests_Retries(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2, nil, 0)

	_, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchCatalog_UsesPayloadCache(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	memoryCache := cache.NewMemoryCache(time.Minute)
	defer memoryCache.Close()
	client := newTestClient(server.URL, 1, memoryCache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		body, err := client.FetchCatalog(ctx)
		require.NoError(t, err)
		assert.Equal(t, feedBody, body)
	}
	assert.Equal(t, int32(1), attempts.Load())

	exists, err := memoryCache.Exists(ctx, "feed:"+server.URL)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFetchCatalog_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedBody))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchCatalog(ctx)
	assert.Error(t, err)
}

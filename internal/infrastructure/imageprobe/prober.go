package imageprobe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anipet/imagefinder/internal/domain"
)

// Prober checks that an image URL answers with an image
type Prober struct {
	httpClient *http.Client
	userAgent  string
}

// NewProber creates a prober with the given request timeout
func NewProber(timeout time.Duration, userAgent string) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "imagefinder/1.0"
	}
	return &Prober{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Probe issues a HEAD request, falling back to GET for hosts that reject HEAD.
// It fails with domain.ErrImageLoad unless the answer is a 2xx image (or untyped) response.
func (p *Prober) Probe(ctx context.Context, url string) error {
	status, contentType, err := p.do(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, contentType, err = p.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrImageLoad, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: status %d", domain.ErrImageLoad, status)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return fmt.Errorf("%w: content type %q", domain.ErrImageLoad, contentType)
	}
	return nil
}

func (p *Prober) do(ctx context.Context, method, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	resp.Body.Close()

	return resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

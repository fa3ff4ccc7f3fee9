package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/page"
	"github.com/anipet/imagefinder/internal/usecase"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// CatalogService is the catalog store as seen by the handlers
type CatalogService interface {
	Get(ctx context.Context) (*domain.Catalog, error)
	Reload(ctx context.Context) (*domain.Catalog, error)
	Status() domain.CatalogStatus
}

// Matcher resolves row identifiers against a catalog
type Matcher interface {
	Resolve(ids domain.RowIdentifiers, catalog *domain.Catalog) domain.MatchResult
}

// PageAugmenter augments whole HTML documents
type PageAugmenter interface {
	AugmentHTML(ctx context.Context, r io.Reader, w io.Writer) (*page.ScanReport, error)
}

// ImageResolver picks the image an enlarged view displays
type ImageResolver interface {
	Resolve(ctx context.Context, thumbnail string) (domain.ImageResolution, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalogs     CatalogService
	matcher      Matcher
	pages        PageAugmenter
	images       ImageResolver
	maxBodyBytes int64
	logger       *zap.Logger
}

// HandlerConfig holds handler limits
type HandlerConfig struct {
	MaxBodyBytes int64
}

// NewHandler creates a new HTTP handler
func NewHandler(catalogs CatalogService, matcher Matcher, pages PageAugmenter, images ImageResolver, logger *zap.Logger, config HandlerConfig) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 8 << 20
	}
	return &Handler{
		catalogs:     catalogs,
		matcher:      matcher,
		pages:        pages,
		images:       images,
		maxBodyBytes: config.MaxBodyBytes,
		logger:       logger.Named("http"),
	}
}

// MatchResponse is the body of a match request
type MatchResponse struct {
	Matched       bool                 `json:"matched"`
	Tier          domain.MatchTier     `json:"tier"`
	Entry         *domain.CatalogEntry `json:"entry,omitempty"`
	FullSizeImage string               `json:"fullSizeImage,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "imagefinder",
		"version": Version,
		"catalog": h.catalogs.Status().State,
	})
}

// CatalogStatus reports the catalog store state
func (h *Handler) CatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalogs.Status())
}

// ReloadCatalog refetches the catalog feed
func (h *Handler) ReloadCatalog(c *gin.Context) {
	if _, err := h.catalogs.Reload(c.Request.Context()); err != nil {
		h.logger.Warn("Catalog reload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"status": h.catalogs.Status(),
		})
		return
	}
	c.JSON(http.StatusOK, h.catalogs.Status())
}

// Match resolves one row's identifiers against the catalog
func (h *Handler) Match(c *gin.Context) {
	var ids domain.RowIdentifiers
	if err := c.ShouldBindJSON(&ids); err != nil {
		respondError(c, http.StatusBadRequest, errors.Join(domain.ErrInvalidRequest, err))
		return
	}

	catalog, err := h.catalogs.Get(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, err)
		return
	}

	result := h.matcher.Resolve(ids, catalog)
	resp := MatchResponse{Matched: result.Matched(), Tier: result.Tier, Entry: result.Entry}
	if result.Matched() {
		resp.FullSizeImage = usecase.FullSizeImageURL(result.Entry.Image)
	}
	c.JSON(http.StatusOK, resp)
}

// Augment injects images and links into a posted HTML document
func (h *Handler) Augment(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	var out bytes.Buffer
	report, err := h.pages.AugmentHTML(c.Request.Context(), body, &out)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, domain.ErrInvalidRequest):
			respondError(c, http.StatusBadRequest, err)
		default:
			h.logger.Error("Augment failed", zap.Error(err))
			respondError(c, http.StatusServiceUnavailable, err)
		}
		return
	}

	c.Header("X-Imagefinder-Pass-Id", report.PassID)
	c.Header("X-Imagefinder-Rows", strconv.Itoa(report.Rows))
	c.Header("X-Imagefinder-Matched", strconv.Itoa(report.Matched))
	c.Header("X-Imagefinder-Skipped", strconv.Itoa(report.Skipped))
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.Bytes())
}

// FullSizeImage resolves the image to show for a thumbnail, falling back to
// the thumbnail when the full-size image does not load
func (h *Handler) FullSizeImage(c *gin.Context) {
	thumbnail := c.Query("url")
	if thumbnail == "" {
		respondError(c, http.StatusBadRequest, errors.Join(domain.ErrInvalidRequest, errors.New("url query parameter is required")))
		return
	}

	res, err := h.images.Resolve(c.Request.Context(), thumbnail)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, domain.ErrImageLoad):
		c.JSON(http.StatusUnprocessableEntity, res)
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, err)
	default:
		respondError(c, http.StatusBadGateway, err)
	}
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

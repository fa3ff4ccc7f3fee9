package usecase

import (
	"context"
	"fmt"

	"github.com/anipet/imagefinder/internal/domain"
	"go.uber.org/zap"
)

// ImageLoadFailedMessage is shown in the enlarged view when no image loads
const ImageLoadFailedMessage = "לא ניתן לטעון את התמונה."

// ImageService picks the URL an enlarged product view should display
type ImageService struct {
	prober domain.ImageProber
	logger *zap.Logger
}

// NewImageService creates an image service using prober to test URLs
func NewImageService(prober domain.ImageProber, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{prober: prober, logger: logger.Named("image")}
}

// Resolve tries the derived full-size URL, then the thumbnail once. When both
// fail the resolution carries an inline failure message and the error wraps
// domain.ErrImageLoad.
func (s *ImageService) Resolve(ctx context.Context, thumbnail string) (domain.ImageResolution, error) {
	if thumbnail == "" {
		return domain.ImageResolution{}, domain.ErrInvalidRequest
	}

	res := domain.ImageResolution{Thumbnail: thumbnail}
	fullSize := FullSizeImageURL(thumbnail)

	if fullSize != thumbnail {
		err := s.prober.Probe(ctx, fullSize)
		if err == nil {
			res.URL = fullSize
			res.FullSize = true
			return res, nil
		}
		s.logger.Warn("Full-size image failed, falling back to thumbnail",
			zap.String("fullSize", fullSize), zap.String("thumbnail", thumbnail), zap.Error(err))
		res.Fallback = true
	}

	if err := s.prober.Probe(ctx, thumbnail); err != nil {
		s.logger.Error("Thumbnail failed to load", zap.String("thumbnail", thumbnail), zap.Error(err))
		res.Message = ImageLoadFailedMessage
		return res, fmt.Errorf("%w: %s", domain.ErrImageLoad, thumbnail)
	}

	res.URL = thumbnail
	return res, nil
}

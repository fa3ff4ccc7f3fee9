package domain

import "errors"

var (
	// ErrTransport is returned when the catalog feed cannot be fetched (network failure or non-2xx status)
	ErrTransport = errors.New("catalog transport failed")

	// ErrParse is returned when the catalog feed lacks a mandatory column
	ErrParse = errors.New("catalog parse failed")

	// ErrRowMalformed marks a data row with fewer fields than the resolved columns require
	ErrRowMalformed = errors.New("catalog row malformed")

	// ErrDOMTargetMissing is returned when an expected row, cell or container is absent
	ErrDOMTargetMissing = errors.New("dom target missing")

	// ErrImageLoad is returned when neither the full-size nor the thumbnail image can be loaded
	ErrImageLoad = errors.New("image could not be loaded")

	// ErrWatchTargetNotFound is returned when discovery gives up looking for the watch container
	ErrWatchTargetNotFound = errors.New("watch target not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

package usecase

import (
	"github.com/anipet/imagefinder/internal/domain"
	"go.uber.org/zap"
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	EnableDebugLogging bool
}

// MatchingService resolves a table row to at most one catalog entry.
//
// Rules are tried in a fixed order and the first hit wins: the SKU shown on
// the page, then the original SKU attribute when it disagrees with the shown
// one, then an exact (case- and whitespace-insensitive) product name. Names
// are never matched partially.
type MatchingService struct {
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(logger *zap.Logger, config MatchConfig) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		logger:             logger.Named("match"),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Resolve matches ids against catalog, using the name rule only when the feed
// had a Product Name column.
func (s *MatchingService) Resolve(ids domain.RowIdentifiers, catalog *domain.Catalog) domain.MatchResult {
	if catalog == nil {
		return domain.NoMatch
	}
	return s.ResolveWithRole(ids, catalog, catalog.Columns.HasProductName())
}

// ResolveWithRole matches ids against catalog
func (s *MatchingService) ResolveWithRole(ids domain.RowIdentifiers, catalog *domain.Catalog, hasProductNameRole bool) domain.MatchResult {
	if catalog.Len() == 0 {
		return domain.NoMatch
	}

	primary, secondary := skuKeys(ids)

	if key := NormalizeSKU(primary); key != "" {
		if entry, ok := catalog.FindBySKU(key); ok {
			s.debug("Matched by SKU", ids, domain.TierPrimarySKU, key)
			return domain.MatchResult{Entry: entry, Tier: domain.TierPrimarySKU}
		}
	}

	if key := NormalizeSKU(secondary); key != "" {
		if entry, ok := catalog.FindBySKU(key); ok {
			s.debug("Matched by original SKU", ids, domain.TierSecondarySKU, key)
			return domain.MatchResult{Entry: entry, Tier: domain.TierSecondarySKU}
		}
	}

	if hasProductNameRole && ids.DisplayName != "" {
		if entry, ok := catalog.FindByName(ids.DisplayName); ok {
			s.debug("Matched by product name", ids, domain.TierProductName, domain.FoldName(ids.DisplayName))
			return domain.MatchResult{Entry: entry, Tier: domain.TierProductName}
		}
	}

	s.debug("No match", ids, domain.TierNone, "")
	return domain.NoMatch
}

// skuKeys picks the primary and secondary SKU candidates of a row.
// The attribute is a fallback only when it disagrees with the visible text.
func skuKeys(ids domain.RowIdentifiers) (primary, secondary string) {
	attr, hasAttr := "", ids.OriginalAttribute != nil
	if hasAttr {
		attr = *ids.OriginalAttribute
	}

	switch {
	case ids.CurrentText != "":
		primary = ids.CurrentText
		if hasAttr && NormalizeSKU(attr) != NormalizeSKU(ids.CurrentText) {
			secondary = attr
		}
	case hasAttr:
		primary = attr
	}
	return primary, secondary
}

func (s *MatchingService) debug(msg string, ids domain.RowIdentifiers, tier domain.MatchTier, key string) {
	if !s.enableDebugLogging {
		return
	}
	s.logger.Debug(msg,
		zap.String("currentText", ids.CurrentText),
		zap.Stringp("originalAttribute", ids.OriginalAttribute),
		zap.String("displayName", ids.DisplayName),
		zap.String("tier", string(tier)),
		zap.String("key", key))
}

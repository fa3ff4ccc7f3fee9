package domain

// RowIdentifiers are the identifiers read from one table row of the page
type RowIdentifiers struct {
	CurrentText       string  `json:"currentText"`
	OriginalAttribute *string `json:"originalAttributeValue,omitempty"`
	DisplayName       string  `json:"displayName"`
}

// MatchTier records which rule produced a match
type MatchTier string

const (
	TierNone         MatchTier = "none"
	TierPrimarySKU   MatchTier = "primary_sku"
	TierSecondarySKU MatchTier = "secondary_sku"
	TierProductName  MatchTier = "product_name"
)

// MatchResult is the catalog entry chosen for a row, nil Entry meaning no match
type MatchResult struct {
	Entry *CatalogEntry `json:"entry,omitempty"`
	Tier  MatchTier     `json:"tier"`
}

// Matched reports whether an entry was found
func (m MatchResult) Matched() bool {
	return m.Entry != nil
}

// NoMatch is the empty match result
var NoMatch = MatchResult{Tier: TierNone}

// ImageResolution describes which image URL an enlarged view should display
type ImageResolution struct {
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail"`
	FullSize  bool   `json:"fullSize"`
	Fallback  bool   `json:"fallback"`
	Message   string `json:"message,omitempty"`
}

package usecase

import "strings"

// NormalizeSKU reduces a raw SKU to its decimal digits.
// Vendor prefixes and punctuation vary between feeds, the digits do not.
func NormalizeSKU(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitSKUList splits a SKU cell into its normalized, de-duplicated SKUs
func splitSKUList(field string) []string {
	field = trimQuotes(strings.TrimSpace(field))
	if field == "" {
		return nil
	}

	var skus []string
	seen := make(map[string]bool)
	for _, raw := range strings.Split(field, ",") {
		sku := NormalizeSKU(strings.TrimSpace(raw))
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		skus = append(skus, sku)
	}
	return skus
}

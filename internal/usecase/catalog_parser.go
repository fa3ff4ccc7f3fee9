package usecase

import (
	"fmt"
	"strings"

	"github.com/anipet/imagefinder/internal/domain"
)

// byteOrderMark prefixes "CSV UTF-8" exports from spreadsheet tools
const byteOrderMark = "\ufeff"

// ParseResult is a parsed catalog plus row accounting for diagnostics
type ParseResult struct {
	Catalog *domain.Catalog
	Rows    int // data lines seen
	Skipped int // malformed rows
	Dropped int // rows with neither SKUs nor a product name
}

// ParseCatalog parses the delimited-text catalog feed.
//
// A feed with no data rows is valid and yields an empty catalog. A feed missing
// the SKUs or Image URL header yields an empty catalog and an error wrapping
// domain.ErrParse. Rows too short for the resolved columns are skipped.
func ParseCatalog(text string) (*ParseResult, error) {
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(text, byteOrderMark)), "\n")
	if len(lines) <= 1 {
		return &ParseResult{Catalog: domain.EmptyCatalog()}, nil
	}

	columns, err := resolveColumns(splitFields(strings.TrimSpace(lines[0])))
	if err != nil {
		return &ParseResult{Catalog: domain.EmptyCatalog()}, err
	}

	result := &ParseResult{}
	maxIndex := columns.MaxIndex()
	entries := make([]domain.CatalogEntry, 0, len(lines)-1)

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Rows++

		fields := splitFields(line)
		if len(fields) <= maxIndex {
			result.Skipped++
			continue
		}

		entry := domain.CatalogEntry{
			SKUs:  splitSKUList(fields[columns.SKUs]),
			Image: trimQuotes(fields[columns.Image]),
		}
		if columns.HasProductURL() {
			entry.Link = trimQuotes(fields[columns.ProductURL])
		}
		if columns.HasProductName() {
			entry.ProductName = trimQuotes(fields[columns.ProductName])
		}

		if len(entry.SKUs) == 0 && entry.ProductName == "" {
			result.Dropped++
			continue
		}
		entries = append(entries, entry)
	}

	result.Catalog = domain.NewCatalog(entries, columns)
	return result, nil
}

// resolveColumns maps header names to column roles
func resolveColumns(headers []string) (domain.ColumnRoles, error) {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(h, byteOrderMark, "")))
	}

	find := func(name string) int {
		want := strings.ToLower(name)
		for i, h := range lowered {
			if h == want {
				return i
			}
		}
		for i, h := range lowered {
			if trimQuotes(h) == want {
				return i
			}
		}
		return -1
	}

	columns := domain.ColumnRoles{
		SKUs:        find(domain.HeaderSKUs),
		Image:       find(domain.HeaderImageURL),
		ProductURL:  find(domain.HeaderProductURL),
		ProductName: find(domain.HeaderProductName),
	}

	var missing []string
	if columns.SKUs < 0 {
		missing = append(missing, domain.HeaderSKUs)
	}
	if columns.Image < 0 {
		missing = append(missing, domain.HeaderImageURL)
	}
	if len(missing) > 0 {
		return domain.NoColumns, fmt.Errorf("%w: missing header(s) %q", domain.ErrParse, missing)
	}
	return columns, nil
}

// splitFields tokenizes one line. A double quote toggles quoting, a doubled
// quote inside a quoted field is a literal quote and commas only separate
// fields outside quotes. Every field is trimmed.
func splitFields(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// trimQuotes strips one stray leading and trailing double quote
func trimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

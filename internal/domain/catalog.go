package domain

import (
	"slices"
	"strings"
	"time"
)

// Header names of the catalog feed columns
const (
	HeaderSKUs        = "SKUs"
	HeaderImageURL    = "Image URL"
	HeaderProductURL  = "Product URL"
	HeaderProductName = "Product Name"
)

// CatalogEntry is a single product row of the catalog feed
type CatalogEntry struct {
	SKUs        []string `json:"skus"` // normalized, digits only, no duplicates
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
	ProductName string   `json:"productName,omitempty"`
}

// HasSKU reports whether the entry carries the normalized SKU
func (e *CatalogEntry) HasSKU(sku string) bool {
	return slices.Contains(e.SKUs, sku)
}

// ColumnRoles holds the column index of each role, -1 when the header is absent
type ColumnRoles struct {
	SKUs        int `json:"skus"`
	Image       int `json:"image"`
	ProductURL  int `json:"productUrl"`
	ProductName int `json:"productName"`
}

// NoColumns is the role set of a catalog that was never parsed
var NoColumns = ColumnRoles{SKUs: -1, Image: -1, ProductURL: -1, ProductName: -1}

// HasProductName reports whether the feed had a Product Name column
func (c ColumnRoles) HasProductName() bool { return c.ProductName >= 0 }

// HasProductURL reports whether the feed had a Product URL column
func (c ColumnRoles) HasProductURL() bool { return c.ProductURL >= 0 }

// MaxIndex returns the highest index among present roles
func (c ColumnRoles) MaxIndex() int {
	return max(c.SKUs, c.Image, c.ProductURL, c.ProductName)
}

// Catalog is the immutable, ordered product catalog of a session.
// Lookups resolve duplicates to the earliest entry.
type Catalog struct {
	Entries  []CatalogEntry
	Columns  ColumnRoles
	LoadedAt time.Time

	bySKU  map[string]int
	byName map[string]int
}

// NewCatalog builds a catalog and its lookup indices
func NewCatalog(entries []CatalogEntry, columns ColumnRoles) *Catalog {
	c := &Catalog{
		Entries:  entries,
		Columns:  columns,
		LoadedAt: time.Now(),
		bySKU:    make(map[string]int),
		byName:   make(map[string]int),
	}
	for i := range entries {
		for _, sku := range entries[i].SKUs {
			if _, seen := c.bySKU[sku]; !seen {
				c.bySKU[sku] = i
			}
		}
		if key := FoldName(entries[i].ProductName); key != "" {
			if _, seen := c.byName[key]; !seen {
				c.byName[key] = i
			}
		}
	}
	return c
}

// EmptyCatalog returns a catalog with no entries and no resolved columns
func EmptyCatalog() *Catalog {
	return NewCatalog(nil, NoColumns)
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// FindBySKU returns the first entry containing the normalized SKU
func (c *Catalog) FindBySKU(sku string) (*CatalogEntry, bool) {
	if c == nil || sku == "" {
		return nil, false
	}
	i, ok := c.bySKU[sku]
	if !ok {
		return nil, false
	}
	return &c.Entries[i], true
}

// FindByName returns the first entry whose product name equals name after folding.
// Only exact equality counts.
func (c *Catalog) FindByName(name string) (*CatalogEntry, bool) {
	key := FoldName(name)
	if c == nil || key == "" {
		return nil, false
	}
	i, ok := c.byName[key]
	if !ok {
		return nil, false
	}
	return &c.Entries[i], true
}

// FoldName lower-cases and trims a product name for exact comparison
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LoadState is the lifecycle state of the session catalog
type LoadState string

const (
	StateUninitialized LoadState = "uninitialized"
	StateLoading       LoadState = "loading"
	StateReady         LoadState = "ready"
	StateFailed        LoadState = "failed"
)

// CatalogStatus is a snapshot of the catalog store for diagnostics
type CatalogStatus struct {
	State     LoadState   `json:"state"`
	Entries   int         `json:"entries"`
	Columns   ColumnRoles `json:"columns"`
	LoadedAt  time.Time   `json:"loadedAt,omitempty"`
	LastError string      `json:"lastError,omitempty"`
	Loads     int         `json:"loads"`
}

package page

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/anipet/imagefinder/internal/domain"
)

// Layout locates product rows of one kind of table
type Layout struct {
	Name string
	// NameCells selects the product name cell of every row in the document
	NameCells string
	// SKUCell selects the SKU cell relative to the row, empty for name-only layouts
	SKUCell string
	// ImageCell selects the cell receiving the image relative to the row
	ImageCell string
}

// ColumnRule hides 1-based columns of the first table matching Table
type ColumnRule struct {
	Table   string
	Columns []int
}

// AlternativeTables hides columns of tables detected by their SKU header
type AlternativeTables struct {
	Tables     string
	Exclude    string
	Keywords   []string
	SKUColumns []int
	Columns    []int
}

// ScannerConfig holds the page scanner settings
type ScannerConfig struct {
	Layouts           []Layout
	HiddenColumns     []ColumnRule
	AlternativeTables AlternativeTables
	SKUAttribute      string
	PrimaryLinkHost   string
}

// Resolver picks the catalog entry of a row
type Resolver interface {
	Resolve(ids domain.RowIdentifiers, catalog *domain.Catalog) domain.MatchResult
}

// ScanReport summarises one scan pass
type ScanReport struct {
	PassID   string                   `json:"passId"`
	Rows     int                      `json:"rows"`
	Matched  int                      `json:"matched"`
	Skipped  int                      `json:"skipped"`
	ByTier   map[domain.MatchTier]int `json:"byTier"`
	Duration time.Duration            `json:"duration"`
}

// Scanner walks the product tables of a document and augments every row
type Scanner struct {
	catalogs  domain.CatalogProvider
	resolver  Resolver
	augmenter *Augmenter
	config    ScannerConfig
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewScanner creates a page scanner
func NewScanner(catalogs domain.CatalogProvider, resolver Resolver, logger *zap.Logger, config ScannerConfig) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		catalogs:  catalogs,
		resolver:  resolver,
		augmenter: NewAugmenter(config.PrimaryLinkHost),
		config:    config,
		logger:    logger.Named("scanner"),
	}
}

// Scan hides the configured columns and augments every row of every layout.
// A document without a catalog only gets its columns hidden.
func (s *Scanner) Scan(ctx context.Context, doc *goquery.Document) (*ScanReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := &ScanReport{
		PassID: uuid.NewString(),
		ByTier: make(map[domain.MatchTier]int),
	}
	logger := s.logger.With(zap.String("pass_id", report.PassID))

	s.hideColumns(doc)

	catalog, err := s.catalogs.Get(ctx)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("get catalog: %w", err)
	}
	if catalog.Len() == 0 {
		logger.Debug("Catalog empty, only hiding columns")
		report.Duration = time.Since(start)
		return report, nil
	}

	for _, layout := range s.config.Layouts {
		s.applyLayout(doc, layout, catalog, report, logger)
	}

	report.Duration = time.Since(start)
	logger.Debug("Scan finished",
		zap.Int("rows", report.Rows),
		zap.Int("matched", report.Matched),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// AugmentHTML parses an HTML document from r, scans it and renders the result to w
func (s *Scanner) AugmentHTML(ctx context.Context, r io.Reader, w io.Writer) (*ScanReport, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrInvalidRequest, err)
	}

	report, err := s.Scan(ctx, doc)
	if err != nil {
		return report, err
	}

	if err := html.Render(w, doc.Get(0)); err != nil {
		return report, fmt.Errorf("render html: %w", err)
	}
	return report, nil
}

func (s *Scanner) applyLayout(doc *goquery.Document, layout Layout, catalog *domain.Catalog, report *ScanReport, logger *zap.Logger) {
	doc.Find(layout.NameCells).Each(func(_ int, nameCell *goquery.Selection) {
		report.Rows++
		result, err := s.augmentRow(layout, nameCell, catalog)
		if err != nil {
			report.Skipped++
			logger.Debug("Row skipped", zap.String("layout", layout.Name), zap.Error(err))
			return
		}
		report.ByTier[result.Tier]++
		if result.Matched() {
			report.Matched++
		}
	})
}

func (s *Scanner) augmentRow(layout Layout, nameCell *goquery.Selection, catalog *domain.Catalog) (result domain.MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrRowMalformed, r)
		}
	}()

	row := nameCell.Closest("tr")
	if row.Length() == 0 {
		return domain.NoMatch, fmt.Errorf("%w: no enclosing row", domain.ErrDOMTargetMissing)
	}

	imageSelector := layout.ImageCell
	if imageSelector == "" {
		imageSelector = "td:first-child"
	}
	imageCell := row.Find(imageSelector).First()
	if imageCell.Length() == 0 {
		return domain.NoMatch, fmt.Errorf("%w: image cell %q", domain.ErrDOMTargetMissing, imageSelector)
	}

	result = s.resolver.Resolve(s.rowIdentifiers(layout, row, nameCell), catalog)
	s.augmenter.Augment(RowTarget{Row: row, NameCell: nameCell, ImageCell: imageCell}, result, catalog.Columns)
	return result, nil
}

func (s *Scanner) rowIdentifiers(layout Layout, row, nameCell *goquery.Selection) domain.RowIdentifiers {
	ids := domain.RowIdentifiers{DisplayName: strings.TrimSpace(nameCell.Text())}
	if layout.SKUCell == "" {
		return ids
	}

	skuCell := row.Find(layout.SKUCell).First()
	if skuCell.Length() == 0 {
		return ids
	}
	ids.CurrentText = strings.TrimSpace(skuCell.Text())
	if s.config.SKUAttribute != "" {
		if value, ok := skuCell.Attr(s.config.SKUAttribute); ok {
			value = strings.TrimSpace(value)
			ids.OriginalAttribute = &value
		}
	}
	return ids
}

func (s *Scanner) hideColumns(doc *goquery.Document) {
	for _, rule := range s.config.HiddenColumns {
		if table := doc.Find(rule.Table).First(); table.Length() > 0 {
			hideTableColumns(table, rule.Columns)
		}
	}

	alt := s.config.AlternativeTables
	if alt.Tables == "" || len(alt.Columns) == 0 {
		return
	}
	doc.Find(alt.Tables).Each(func(_ int, table *goquery.Selection) {
		if alt.Exclude != "" && table.ParentsFiltered(alt.Exclude).Length() > 0 {
			return
		}
		headers := table.Find("thead th")
		if !slices.Contains(alt.SKUColumns, skuHeaderColumn(headers, alt.Keywords)) {
			return
		}
		if headers.Length() >= slices.Max(alt.Columns) {
			hideTableColumns(table, alt.Columns)
		}
	})
}

// skuHeaderColumn returns the 1-based index of the last header naming the SKU, or -1
func skuHeaderColumn(headers *goquery.Selection, keywords []string) int {
	column := -1
	headers.Each(func(i int, th *goquery.Selection) {
		text := strings.ToLower(th.Text())
		for _, keyword := range keywords {
			if strings.Contains(text, strings.ToLower(keyword)) {
				column = i + 1
				return
			}
		}
	})
	return column
}

func hideTableColumns(table *goquery.Selection, columns []int) {
	for _, index := range columns {
		setHidden(table.ChildrenFiltered("thead").ChildrenFiltered("tr").ChildrenFiltered(fmt.Sprintf("th:nth-child(%d)", index)).First())
		setHidden(table.ChildrenFiltered("tbody").ChildrenFiltered("tr").ChildrenFiltered(fmt.Sprintf("td:nth-child(%d)", index)))
	}
}

func setHidden(cells *goquery.Selection) {
	cells.Each(func(_ int, cell *goquery.Selection) {
		if styleValue(cell, "display") != "none" {
			setStyle(cell, "display", "none")
		}
	})
}

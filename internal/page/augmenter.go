package page

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/anipet/imagefinder/internal/domain"
	"github.com/anipet/imagefinder/internal/usecase"
)

// Marker classes of the elements the augmenter injects
const (
	ImageClass = "imagefinder-sku-image"
	LinkClass  = "imagefinder-product-link"
)

const (
	imageStyle = "width: auto; height: 110px; max-height: 110px; max-width: 110px; object-fit: contain; " +
		"border-radius: 4px; vertical-align: middle; cursor: pointer; display: block; margin: 0;"

	primaryLinkColor   = "#3d9cfe"
	secondaryLinkColor = "#809fba"
)

// RowTarget is one table row located by the scanner
type RowTarget struct {
	Row       *goquery.Selection
	NameCell  *goquery.Selection
	ImageCell *goquery.Selection
}

// Augmentation reports what Augment injected
type Augmentation struct {
	Image bool
	Link  bool
}

// Augmenter injects catalog images and product links into table rows.
// Injected elements carry marker classes so that a later pass replaces them
// instead of adding duplicates.
type Augmenter struct {
	primaryLinkHost string
}

// NewAugmenter creates an augmenter. Links to primaryLinkHost get the primary colour.
func NewAugmenter(primaryLinkHost string) *Augmenter {
	return &Augmenter{primaryLinkHost: primaryLinkHost}
}

// Augment applies the matched entry to the row. Parts whose catalog field is
// empty, or every part when there is no match, leave the row untouched.
func (a *Augmenter) Augment(target RowTarget, result domain.MatchResult, columns domain.ColumnRoles) Augmentation {
	var done Augmentation
	if !result.Matched() {
		return done
	}
	entry := result.Entry
	name := strings.TrimSpace(target.NameCell.Text())

	if entry.Image != "" && target.ImageCell != nil && target.ImageCell.Length() > 0 {
		a.injectImage(target.ImageCell, entry.Image, name)
		done.Image = true
	}

	if entry.Link != "" && columns.HasProductURL() {
		a.wrapLink(target.NameCell, entry.Link, name)
		done.Link = true
	}
	return done
}

func (a *Augmenter) injectImage(cell *goquery.Selection, thumbnail, name string) {
	cell.Find("img." + ImageClass).Remove()

	img := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Img,
		Data:     "img",
		Attr: []html.Attribute{
			{Key: "src", Val: thumbnail},
			{Key: "alt", Val: "תמונה עבור " + orDefault(name, "מוצר")},
			{Key: "title", Val: "לחץ להגדלת התמונה"},
			{Key: "class", Val: ImageClass},
			{Key: "style", Val: imageStyle},
			{Key: "data-thumb-src", Val: thumbnail},
			{Key: "data-full-src", Val: usecase.FullSizeImageURL(thumbnail)},
		},
	}
	cell.PrependNodes(img)

	setStyle(cell, "display", "flex")
	setStyle(cell, "justify-content", "center")
	setStyle(cell, "align-items", "center")
	setStyle(cell, "padding", "2px")
}

func (a *Augmenter) wrapLink(cell *goquery.Selection, link, name string) {
	unwrapLinks(cell)

	anchor := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: link},
			{Key: "target", Val: "_blank"},
			{Key: "rel", Val: "noopener noreferrer"},
			{Key: "class", Val: LinkClass},
			{Key: "title", Val: "פתח דף מוצר עבור " + orDefault(name, "מוצר")},
			{Key: "style", Val: "color: " + a.linkColor(link) + "; text-decoration: none; cursor: pointer;"},
		},
	}
	// Copies, the originals may still be referenced by other handlers
	for _, n := range cell.Contents().Clone().Nodes {
		anchor.AppendChild(n)
	}

	cell.Empty()
	cell.AppendNodes(anchor)
}

// unwrapLinks replaces injected anchors with their content
func unwrapLinks(cell *goquery.Selection) {
	cell.Find("a." + LinkClass).Each(func(_ int, link *goquery.Selection) {
		if contents := link.Contents(); contents.Length() > 0 {
			contents.Unwrap()
			return
		}
		link.Remove()
	})
}

func (a *Augmenter) linkColor(link string) string {
	if a.primaryLinkHost == "" {
		return secondaryLinkColor
	}
	if u, err := url.Parse(link); err == nil && strings.HasSuffix(u.Hostname(), a.primaryLinkHost) {
		return primaryLinkColor
	}
	return secondaryLinkColor
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

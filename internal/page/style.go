package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// setStyle sets one CSS property in the inline style of every element of sel,
// keeping the other declarations in order.
func setStyle(sel *goquery.Selection, property, value string) {
	sel.Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		el.SetAttr("style", withDeclaration(style, property, value))
	})
}

// styleValue returns the value of property in the inline style of el
func styleValue(el *goquery.Selection, property string) string {
	style, _ := el.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func withDeclaration(style, property, value string) string {
	var (
		decls    []string
		replaced bool
	)
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(name), property) {
			if replaced {
				continue
			}
			decl = property + ": " + value
			replaced = true
		}
		decls = append(decls, decl)
	}
	if !replaced {
		decls = append(decls, property+": "+value)
	}
	return strings.Join(decls, "; ") + ";"
}

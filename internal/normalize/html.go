package normalize

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplate lists elements that never carry page content
const boilerplate = "script, style, noscript, iframe, svg, nav, header, footer, aside, form, button, template"

// blocks lists the elements whose text becomes one paragraph each
const blocks = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td, dd, figcaption"

// ExtractHTML strips markup and boilerplate from an HTML page and returns
// its title and visible text, one block per paragraph. Content inside
// main or article elements is preferred when present.
func ExtractHTML(r io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}
	title, text := ExtractDocument(doc)
	return title, text, nil
}

// ExtractDocument is ExtractHTML over a parsed document. It modifies doc.
func ExtractDocument(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	StripBoilerplate(doc.Selection)

	root := doc.Find("main, article")
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	return title, BlockText(root, blocks)
}

// StripBoilerplate removes navigation, scripts and ads under s
func StripBoilerplate(s *goquery.Selection) {
	s.Find(boilerplate).Remove()
	s.Find("[role=navigation], [aria-hidden=true], .advert, .ads, .cookie-banner").Remove()
}

// BlockText joins the text of the innermost elements matching selector
// under root, one paragraph each. Whitespace is collapsed.
func BlockText(root *goquery.Selection, selector string) string {
	var parts []string
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (li > p) are emitted by the innermost element only
		if s.Find(selector).Length() > 0 {
			return
		}
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})

	// Pages built from bare divs have no block elements
	if len(parts) == 0 {
		if t := strings.Join(strings.Fields(root.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	}

	return strings.Join(parts, "\n\n")
}

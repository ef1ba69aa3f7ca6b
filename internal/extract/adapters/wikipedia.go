package adapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openplag/internal/normalize"
)

// wikipediaNoise lists article furniture that is not prose: citation
// markers, reference lists, infoboxes, navboxes and edit links
const wikipediaNoise = "sup.reference, .reflist, .references, .mw-references-wrap, .infobox, .navbox, .vertical-navbox, " +
	".metadata, .ambox, .hatnote, .mw-editsection, .toc, #toc, .thumb, .mw-empty-elt, table, .reference-text, .noprint, .shortdescription"

// wikipediaBlocks are the prose elements of an article body
const wikipediaBlocks = "p, blockquote, dd, ul > li"

// WikipediaAdapter extracts article prose from Wikipedia pages
type WikipediaAdapter struct{}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(u *url.URL) bool {
	return hostMatches(u.Host, "wikipedia.org")
}

// Extract returns the article heading and its prose. Sections from
// "See also" onward hold lists of links and citations and are dropped.
func (a *WikipediaAdapter) Extract(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if title == "" {
		title = strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), " - Wikipedia")
	}

	content := doc.Find("#mw-content-text .mw-parser-output").First()
	if content.Length() == 0 {
		content = doc.Find("#mw-content-text").First()
	}
	if content.Length() == 0 {
		return title, ""
	}

	normalize.StripBoilerplate(content)
	content.Find(wikipediaNoise).Remove()
	a.dropTrailingSections(content)

	return title, normalize.BlockText(content, wikipediaBlocks)
}

// dropTrailingSections removes everything from the first back-matter
// heading to the end of the article
func (a *WikipediaAdapter) dropTrailingSections(content *goquery.Selection) {
	var cut *goquery.Selection
	content.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		switch strings.ToLower(strings.TrimSpace(h.Text())) {
		case "see also", "references", "notes", "further reading", "external links", "bibliography", "sources", "citations":
			cut = h
			return false
		}
		return true
	})
	if cut == nil {
		return
	}

	// Newer skins wrap headings in div.mw-heading
	if parent := cut.Parent(); parent.HasClass("mw-heading") {
		cut = parent
	}
	cut.NextAll().Remove()
	cut.Remove()
}

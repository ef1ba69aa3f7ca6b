package adapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openplag/internal/normalize"
)

// LegalAdapter extracts statute and case text from legal publishers
type LegalAdapter struct {
	legalDomains []string
	pathPatterns []string
	contentRoots []string
}

// NewLegalAdapter creates a new legal document adapter
func NewLegalAdapter() *LegalAdapter {
	return &LegalAdapter{
		legalDomains: []string{
			"legislation.gov.uk",
			"law.cornell.edu",
			"justice.gov",
			"eur-lex.europa.eu",
			"courtlistener.com",
		},
		pathPatterns: []string{
			"/uscode/", "/cfr/", "/statute", "/legislation/", "/act/", "/eli/",
		},
		// Publisher body containers, most specific first
		contentRoots: []string{
			".LegSnippet", "#viewLegSnippet", "#tab-opinion", ".field-name-body",
			"#document1", "#TexteOnly", "#content", "main", "article",
		},
	}
}

// Name returns the adapter name
func (a *LegalAdapter) Name() string {
	return "legal"
}

// CanHandle checks if this is a legal document URL
func (a *LegalAdapter) CanHandle(u *url.URL) bool {
	for _, domain := range a.legalDomains {
		if hostMatches(u.Host, domain) {
			return true
		}
	}

	if !strings.HasSuffix(strings.ToLower(u.Host), ".gov") && !hostMatches(u.Host, "gov.uk") {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, pattern := range a.pathPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// Extract returns the body of the provision or opinion
func (a *LegalAdapter) Extract(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	normalize.StripBoilerplate(doc.Selection)
	doc.Find(".breadcrumb, .breadcrumbs, .toolbar, .LegExpandCollapse, .print-links").Remove()

	for _, selector := range a.contentRoots {
		root := doc.Find(selector).First()
		if root.Length() == 0 {
			continue
		}
		if text := normalize.BlockText(root, "p, li, blockquote, pre, dd"); text != "" {
			return title, text
		}
	}
	return title, ""
}

package adapters

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openplag/internal/normalize"
)

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct{}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(u *url.URL) bool {
	return true
}

// Extract strips boilerplate and prefers main or article content
func (a *GenericAdapter) Extract(doc *goquery.Document) (string, string) {
	return normalize.ExtractDocument(doc)
}

// Package adapters extracts the main text of fetched web pages with
// site-specific rules, falling back to generic boilerplate stripping.
package adapters

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Adapter extracts title and body text from one family of sites
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL
	CanHandle(u *url.URL) bool

	// Extract returns the page title and its main text, one paragraph per
	// block. It may modify doc.
	Extract(doc *goquery.Document) (title, text string)
}

// Registry manages site adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
		generic:  NewGenericAdapter(),
	}

	registry.Register(NewWikipediaAdapter())
	registry.Register(NewLegalAdapter())

	return registry
}

// Register adds an adapter; earlier registrations win
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the adapter for rawURL, or the generic one
func (r *Registry) FindAdapter(rawURL string) Adapter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.generic
	}
	for _, adapter := range r.adapters {
		if adapter.CanHandle(u) {
			return adapter
		}
	}
	return r.generic
}

// Extract parses an HTML page fetched from rawURL and extracts its text.
// A site adapter that finds no text falls back to the generic adapter.
func (r *Registry) Extract(rawURL string, body io.Reader) (title, text string, err error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", "", err
	}

	adapter := r.FindAdapter(rawURL)
	title, text, err = extractWith(adapter, data)
	if err != nil || strings.TrimSpace(text) != "" || adapter == r.generic {
		return title, text, err
	}
	return extractWith(r.generic, data)
}

func extractWith(adapter Adapter, data []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}
	title, text := adapter.Extract(doc)
	return title, text, nil
}

// hostMatches reports whether host is domain or one of its subdomains
func hostMatches(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}

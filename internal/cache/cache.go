// Package cache keeps fetched web pages between checks, so re-checking a
// document (or checking a similar one) does not hit the same sites again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/openplag/internal/model"
)

// Cache is a byte store with per-entry expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "openplag:page:v1:"

// PageKey derives the cache key for a page URL. Fragments never change the
// served document, so they are ignored.
func PageKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		u.Fragment = ""
		u.Host = strings.ToLower(u.Host)
		rawURL = u.String()
	}
	hash := sha256.Sum256([]byte(rawURL))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// Page is the extracted text of one fetched URL
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PageCache stores extracted pages as JSON on top of any Cache
type PageCache struct {
	store Cache
	ttl   time.Duration
}

// NewPageCache wraps store; ttl 0 uses the store default
func NewPageCache(store Cache, ttl time.Duration) *PageCache {
	return &PageCache{store: store, ttl: ttl}
}

// Get returns the cached page for rawURL
func (c *PageCache) Get(rawURL string) (*Page, bool) {
	data, ok := c.store.Get(PageKey(rawURL))
	if !ok {
		return nil, false
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		_ = c.store.Delete(PageKey(rawURL))
		return nil, false
	}
	return &page, true
}

// Put caches page under its URL
func (c *PageCache) Put(page *Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.store.Set(PageKey(page.URL), data, c.ttl)
}

// Clear drops every cached page
func (c *PageCache) Clear() error {
	return c.store.Clear()
}

// New builds the page cache described by cfg, or nil when caching is off
func New(cfg model.CacheConfig) *PageCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewPageCache(NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), 0)
	}
	return NewPageCache(NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), 0)
}

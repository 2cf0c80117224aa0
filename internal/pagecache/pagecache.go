// Package pagecache holds materialised query pages in an LRU keyed by a session/window/filter signature.
package pagecache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"device-inspector/backend/internal/event/domain"
)

// DefaultCapacity is the number of pages kept when no capacity is configured.
const DefaultCapacity = 50

// Page is one cached query result.
type Page struct {
	Events  []domain.UnifiedEvent
	Total   int
	HasMore bool
}

// Cache is a capacity-bound LRU of pages. Safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, Page]
}

// New returns a cache holding at most capacity pages. A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, Page](capacity)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the page for key and marks it most recently used.
func (c *Cache) Get(key string) (Page, bool) {
	return c.lru.Get(key)
}

// Set stores page under key, evicting the least recently used page when full.
func (c *Cache) Set(key string, page Page) {
	c.lru.Add(key, page)
}

// Has reports whether key is cached without touching recency.
func (c *Cache) Has(key string) bool {
	return c.lru.Contains(key)
}

// Clear drops every page. Called on session or filter change.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// RangeKey is the key for a time-window page: session:start:end:filter.
func RangeKey(sessionID string, start, end int64, filterSig string) string {
	return fmt.Sprintf("%s:%d:%d:%s", sessionID, start, end, filterSig)
}

// PageKey is the key for offset paging: session:page:pageSize:filter.
func PageKey(sessionID string, page, pageSize int, filterSig string) string {
	return fmt.Sprintf("%s:p%d:%d:%s", sessionID, page, pageSize, filterSig)
}

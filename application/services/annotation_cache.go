package services

import (
	"sync"

	"phrasely-backend/domain/core/aggregates"
)

// AnnotationCache memoizes annotated documents keyed by the
// (inputText, outputText) string pair. Eviction is strict insertion
// order: the oldest inserted entry goes first, and hits do not refresh
// an entry's position. This is deliberately not an LRU.
type AnnotationCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*aggregates.Document
	order    []string
}

// NewAnnotationCache creates a cache with the given capacity. A
// capacity of zero or less disables caching.
func NewAnnotationCache(capacity int) *AnnotationCache {
	return &AnnotationCache{
		capacity: capacity,
		entries:  make(map[string]*aggregates.Document),
	}
}

// Key builds the cache key from the input and output text.
func (c *AnnotationCache) Key(inputText, outputText string) string {
	return inputText + "\x1f" + outputText
}

// Get returns a clone of the cached annotated document, if present.
// Cloning keeps cached entries immutable from the caller's view.
func (c *AnnotationCache) Get(key string) (*aggregates.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// Put stores an annotated document, evicting the oldest insertion when
// full. Re-putting an existing key overwrites the value but keeps the
// original insertion position.
func (c *AnnotationCache) Put(key string, doc *aggregates.Document) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = doc.Clone()
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = doc.Clone()
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *AnnotationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Package cache memoizes answers per document generation.
package cache

import (
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 1024

type key struct {
	documentID string
	generation int64
	question   string
}

// Stats reports cache effectiveness since creation.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Cache is a bounded LRU of answers keyed by document, generation and
// normalized question. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	byDoc  map[string]map[key]struct{}
	hits   uint64
	misses uint64
}

// New creates a cache holding at most maxEntries answers.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		lru:   lru.New(maxEntries),
		byDoc: make(map[string]map[key]struct{}),
	}
	c.lru.OnEvicted = c.forget
	return c
}

// Normalize canonicalizes a question so trivially different phrasings
// share an entry.
func Normalize(question string) string {
	return strings.ToLower(strings.Join(strings.Fields(question), " "))
}

// Get returns the cached answer for a question against a document generation.
func (c *Cache) Get(documentID string, generation int64, question string) (models.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key{documentID, generation, Normalize(question)})
	if !ok {
		c.misses++
		return models.Answer{}, false
	}
	c.hits++
	return v.(models.Answer), true
}

// Put stores an answer.
func (c *Cache) Put(documentID string, generation int64, question string, answer models.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{documentID, generation, Normalize(question)}
	c.lru.Add(k, answer)

	keys, ok := c.byDoc[documentID]
	if !ok {
		keys = make(map[key]struct{})
		c.byDoc[documentID] = keys
	}
	keys[k] = struct{}{}
}

// Purge drops every answer for a document, across all generations.
func (c *Cache) Purge(documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.byDoc[documentID] {
		c.lru.Remove(k)
	}
	delete(c.byDoc, documentID)
}

// Len returns the number of cached answers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: c.lru.Len(), Hits: c.hits, Misses: c.misses}
}

// forget runs under c.mu from inside lru calls.
func (c *Cache) forget(k lru.Key, _ any) {
	ck := k.(key)
	keys := c.byDoc[ck.documentID]
	delete(keys, ck)
	if len(keys) == 0 {
		delete(c.byDoc, ck.documentID)
	}
}

package esgf

import (
	"context"
	"sync"

	"github.com/tallgrasslabs/climatecompare/internal/domain"
	"github.com/tallgrasslabs/climatecompare/internal/observability"
)

// Searcher is the catalog search contract the cache decorates.
type Searcher interface {
	Search(ctx context.Context, q domain.CatalogQuery) ([]domain.GranuleRecord, error)
}

// CachedSearcher wraps a Searcher with an in-memory LRU cache keyed by the
// canonical query string. Scheduled mode re-runs the same query every tick;
// the cache keeps those reruns off the federation.
type CachedSearcher struct {
	inner   Searcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSearcher creates a cache decorator around a searcher.
func NewCachedSearcher(inner Searcher, maxEntries int, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSearcher) Search(ctx context.Context, q domain.CatalogQuery) ([]domain.GranuleRecord, error) {
	key := q.Key()
	if records, ok := c.cache.get(key); ok {
		c.metrics.SearchCache.WithLabelValues("hit").Inc()
		return records, nil
	}
	c.metrics.SearchCache.WithLabelValues("miss").Inc()

	records, err := c.inner.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a temporarily empty federation index
	// can be retried.
	if len(records) > 0 {
		c.cache.put(key, records)
	}
	return records, nil
}

// lruCache is a simple thread-safe LRU cache for granule record lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.GranuleRecord
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.GranuleRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.GranuleRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

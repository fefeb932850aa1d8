package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"docsearch/internal/domain"
	"docsearch/internal/port"
)

// QueryCache is an LRU cache with TTL for search results. Entries carry the
// index generation at insertion time; Invalidate bumps the generation so
// stale entries are rejected lazily on the next Get.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
}

type cacheEntry struct {
	results   []domain.ScoredResult
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// cacheKey hashes the strategy label along with the query and k so results
// from different retrievers never alias.
func cacheKey(strategy string, query string, topK int) string {
	data := []byte(strategy)
	data = append(data, 0)
	data = append(data, query...)
	data = append(data, byte(topK>>8), byte(topK))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(strategy, query string, topK int) ([]domain.ScoredResult, bool) {
	key := cacheKey(strategy, query, topK)

	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.indexGen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != currentGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	// The entry may have been invalidated or evicted between the RLock and
	// here; only refresh recency for keys still present, or order would
	// carry keys the map no longer holds.
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.moveToEnd(key)
	}
	c.mu.Unlock()

	return cloneResults(entry.results), true
}

func (c *QueryCache) Put(strategy, query string, topK int, results []domain.ScoredResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(strategy, query, topK)

	// Store a private copy: callers keep mutating their slice (ranking,
	// filtering) after the put, and hits must never observe that.
	stored := cloneResults(results)

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{
			results:   stored,
			timestamp: time.Now(),
			indexGen:  c.indexGen,
		}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{
		results:   stored,
		timestamp: time.Now(),
		indexGen:  c.indexGen,
	}
	c.order = append(c.order, key)
}

func cloneResults(results []domain.ScoredResult) []domain.ScoredResult {
	if results == nil {
		return nil
	}
	out := make([]domain.ScoredResult, len(results))
	copy(out, results)
	return out
}

// Invalidate drops all entries and advances the generation. Call it after
// any index mutation.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedRetriever wraps a retriever with a QueryCache. The strategy label
// distinguishes wrapped retrievers sharing one cache.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
	strategy  string
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache, strategy string) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
		strategy:  strategy,
	}
}

func (r *CachedRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredResult, error) {
	if results, hit := r.cache.Get(r.strategy, query, k); hit {
		return results, nil
	}

	results, err := r.retriever.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	r.cache.Put(r.strategy, query, k, results)
	return results, nil
}

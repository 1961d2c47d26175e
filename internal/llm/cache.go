package llm

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache provides caching for LLM responses
type Cache interface {
	// Get retrieves a cached response
	Get(ctx context.Context, key string) (*Response, bool)
	// Set stores a response in cache
	Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// MemoryCache is an in-memory LRU cache for LLM responses. Reads refresh
// recency; the least recently used entry goes first when full.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	stats   CacheStats

	done      chan struct{}
	closeOnce sync.Once
}

type cacheEntry struct {
	key       string
	response  *Response
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	cache := &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		done:    make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.remove(el)
		c.stats.Misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	log.Debug().Str("key", shortKey(key)).Msg("cache hit")
	return entry.response, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.response = resp
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return nil
	}

	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, response: resp, expiresAt: expiresAt})
	c.stats.Size = int64(c.order.Len())

	log.Debug().Str("key", shortKey(key)).Dur("ttl", ttl).Msg("cached response")
	return nil
}

func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// remove drops el; callers hold mu.
func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
	c.stats.Size = int64(c.order.Len())
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.purgeExpired(time.Now())
		}
	}
}

func (c *MemoryCache) purgeExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.remove(el)
		}
		el = prev
	}
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16] + "..."
	}
	return key
}

// GenerateCacheKey creates a cache key from a request
func GenerateCacheKey(req *Request) string {
	var schema []byte
	if req.Schema != nil {
		schema, _ = json.Marshal(req.Schema)
	}

	keyData := struct {
		Tier           Tier
		Model          string
		System         string
		Messages       []Message
		Temperature    float64
		JSONMode       bool
		Schema         json.RawMessage `json:",omitempty"`
		ThinkingBudget int
	}{
		Tier:           req.Tier,
		Model:          req.Model,
		System:         req.System,
		Messages:       req.Messages,
		Temperature:    req.Temperature,
		JSONMode:       req.JSONMode,
		Schema:         schema,
		ThinkingBudget: req.ThinkingBudget,
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// CachedRouter wraps a Completer with caching
type CachedRouter struct {
	next  Completer
	cache Cache
	ttl   time.Duration
}

// NewCachedRouter creates a router with caching enabled
func NewCachedRouter(next Completer, cache Cache, ttl time.Duration) *CachedRouter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedRouter{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

// Complete sends a completion request with caching
func (r *CachedRouter) Complete(ctx context.Context, req *Request) (*Response, error) {
	cacheKey := GenerateCacheKey(req)

	if cached, ok := r.cache.Get(ctx, cacheKey); ok {
		hit := *cached
		hit.Cached = true
		return &hit, nil
	}

	resp, err := r.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if !cacheable(resp) {
		log.Debug().Str("finish_reason", resp.FinishReason).Msg("not caching incomplete response")
		return resp, nil
	}
	if err := r.cache.Set(ctx, cacheKey, resp, r.ttl); err != nil {
		log.Warn().Err(err).Msg("failed to cache response")
	}

	return resp, nil
}

// cacheable rejects empty replies and replies cut off at the token limit,
// whatever name the provider gives that limit.
func cacheable(resp *Response) bool {
	if resp == nil || resp.Content == "" {
		return false
	}
	switch resp.FinishReason {
	case "length", "max_tokens", "MAX_TOKENS":
		return false
	}
	return true
}

// CacheStats returns cache statistics
func (r *CachedRouter) CacheStats() CacheStats {
	return r.cache.Stats()
}

// NullCache is a no-op cache for testing or when caching is disabled
type NullCache struct{}

func (c *NullCache) Get(ctx context.Context, key string) (*Response, bool) {
	return nil, false
}

func (c *NullCache) Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Stats() CacheStats {
	return CacheStats{}
}

// CreateCache builds the cache named by CASEGEN_LLM_CACHE
func CreateCache(cacheType string, maxSize int, ttl time.Duration) Cache {
	switch cacheType {
	case "memory":
		return NewMemoryCache(maxSize, ttl)
	case "none", "":
		return &NullCache{}
	default:
		log.Warn().Str("type", cacheType).Msg("unknown cache type, using memory cache")
		return NewMemoryCache(maxSize, ttl)
	}
}

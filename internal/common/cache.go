package common

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	APIPrefix      = "/v1"
	cacheKeyPrefix = "cache:"
)

// Cache is an in-process TTL store. Expired entries are reclaimed by the go-cache janitor every cleanup interval.
type Cache struct {
	*cache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

type CacheStats struct {
	Keys   int    `json:"keys"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

func NewCache(expirationTime, cleanupTime time.Duration) *Cache {
	return &Cache{Cache: cache.New(expirationTime, cleanupTime)}
}

func (c *Cache) Set(key string, value interface{}, expiration ...time.Duration) {
	if len(expiration) > 0 {
		c.Cache.Set(key, value, expiration[0])
		return
	}
	c.Cache.Set(key, value, cache.DefaultExpiration)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	value, ok := c.Cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	return value, ok
}

func (c *Cache) Delete(key string) {
	c.Cache.Delete(key)
}

// DeleteByPattern removes every live key containing pattern and returns how many were removed.
func (c *Cache) DeleteByPattern(pattern string) int {
	removed := 0
	for key := range c.Cache.Items() {
		if strings.Contains(key, pattern) {
			c.Cache.Delete(key)
			removed++
		}
	}

	return removed
}

// Invalidate runs DeleteByPattern for each pattern.
func (c *Cache) Invalidate(patterns ...string) int {
	removed := 0
	for _, p := range patterns {
		removed += c.DeleteByPattern(p)
	}

	return removed
}

func (c *Cache) Flush() {
	c.Cache.Flush()
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Keys:   c.Cache.ItemCount(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// CacheKeyRequest builds the key a GET response is stored under from its request URI (path plus query).
func CacheKeyRequest(requestURI string) string {
	return cacheKeyPrefix + requestURI
}

// CacheKeyBlogs matches every cached blog listing, trending page and per-post blog response.
func CacheKeyBlogs() string {
	return cacheKeyPrefix + APIPrefix + "/blogs"
}

func CacheKeyBlog(idOrSlug string) string {
	return cacheKeyPrefix + APIPrefix + "/blogs/" + idOrSlug
}

func CacheKeyPostComments(idOrSlug string) string {
	return cacheKeyPrefix + APIPrefix + "/comments/post/" + idOrSlug
}

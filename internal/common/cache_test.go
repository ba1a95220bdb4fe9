package common

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setupTestEnvironment(t *testing.T) (*Cache, func()) {
	t.Helper()

	cache := NewCache(0, 0)

	cleanup := func() {
		cache.Flush()
	}

	return cache, cleanup
}

func TestCache_SetGet(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")

	value, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestCache_Expiration(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("short", "value", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	_, ok := cache.Get("short")
	assert.False(t, ok)
}

func TestCache_Flush(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")
	cache.Flush()

	_, ok := cache.Get("key")
	assert.False(t, ok)
}

func TestCache_DeleteByPattern(t *testing.T) {
	testCases := []struct {
		name      string
		pattern   string
		removed   int
		remaining []string
	}{
		{
			name:      "blog listings",
			pattern:   CacheKeyBlogs(),
			removed:   3,
			remaining: []string{CacheKeyRequest("/v1/comments/post/abc?page=1")},
		},
		{
			name:    "single post comments",
			pattern: CacheKeyPostComments("abc"),
			removed: 1,
			remaining: []string{
				CacheKeyRequest("/v1/blogs?page=1"),
				CacheKeyRequest("/v1/blogs?page=2&limit=5"),
				CacheKeyRequest("/v1/blogs/trending"),
			},
		},
		{
			name:    "no match",
			pattern: "cache:/v1/admin",
			removed: 0,
			remaining: []string{
				CacheKeyRequest("/v1/blogs?page=1"),
				CacheKeyRequest("/v1/comments/post/abc?page=1"),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cache, cleanup := setupTestEnvironment(t)
			defer cleanup()

			cache.Set(CacheKeyRequest("/v1/blogs?page=1"), []byte("a"))
			cache.Set(CacheKeyRequest("/v1/blogs?page=2&limit=5"), []byte("b"))
			cache.Set(CacheKeyRequest("/v1/blogs/trending"), []byte("c"))
			cache.Set(CacheKeyRequest("/v1/comments/post/abc?page=1"), []byte("d"))

			assert.Equal(t, tc.removed, cache.DeleteByPattern(tc.pattern))
			for _, key := range tc.remaining {
				_, ok := cache.Get(key)
				assert.True(t, ok, key)
			}
		})
	}
}

func TestCache_Stats(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCache_ConcurrentInvalidate(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Set(CacheKeyRequest("/v1/blogs?page=1"), []byte("x"))
		}()
		go func() {
			defer wg.Done()
			cache.Invalidate(CacheKeyBlogs())
		}()
	}
	wg.Wait()

	cache.Invalidate(CacheKeyBlogs())
	_, ok := cache.Get(CacheKeyRequest("/v1/blogs?page=1"))
	assert.False(t, ok)
}

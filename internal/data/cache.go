// Package data provides data access layer implementations.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache key prefixes for CMS content.
const (
	// CacheKeyPostList is the key for the blog listing: posts:all
	CacheKeyPostList = "posts"
	// CacheKeyPost is the prefix for single posts: post:{slug}
	CacheKeyPost = "post"
	// CacheKeyCategories is the key for the category set
	CacheKeyCategories = "categories"
	// CacheKeyCourses is the key for active courses
	CacheKeyCourses = "courses"
)

// Cache TTL durations. Listings change more often than taxonomy.
const (
	// TTLPostList is the TTL for the blog listing (2 minutes)
	TTLPostList = 2 * time.Minute
	// TTLPost is the TTL for single posts (5 minutes)
	TTLPost = 5 * time.Minute
	// TTLCategories is the TTL for the category set (15 minutes)
	TTLCategories = 15 * time.Minute
	// TTLCourses is the TTL for course data (10 minutes)
	TTLCourses = 10 * time.Minute
)

// ErrCacheNotFound is returned when a cache key does not exist.
var ErrCacheNotFound = errors.New("cache: key not found")

// lruSize bounds the in-process tier. CMS content is small; this covers the
// full listing plus every recently viewed post.
const lruSize = 512

// ContentCache is a two-tier cache for CMS content: an in-process expirable
// LRU in front of a shared Redis tier. Reads fill the local tier from Redis;
// writes go to both. A nil Redis client degrades to LRU-only.
type ContentCache struct {
	local  *expirable.LRU[string, []byte]
	client *redis.Client
}

// NewContentCache creates the two-tier content cache.
func NewContentCache(rdb *redis.Client) *ContentCache {
	// Per-entry TTLs are enforced on read; the LRU-wide TTL is a backstop.
	return &ContentCache{
		local:  expirable.NewLRU[string, []byte](lruSize, nil, TTLCategories),
		client: rdb,
	}
}

// Get retrieves a value and deserializes it into dest.
// Returns ErrCacheNotFound if the key is absent from both tiers.
func (c *ContentCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := c.local.Get(key); ok {
		return json.Unmarshal(data, dest)
	}
	if c.client == nil {
		return ErrCacheNotFound
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return err
	}
	c.local.Add(key, data)
	return json.Unmarshal(data, dest)
}

// Set stores a value in both tiers with the given TTL.
func (c *ContentCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.local.Add(key, data)
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from both tiers.
func (c *ContentCache) Delete(ctx context.Context, key string) error {
	c.local.Remove(key)
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Purge drops the entire local tier and the content keys in Redis. Used by
// admin tooling after bulk content changes.
func (c *ContentCache) Purge(ctx context.Context) error {
	c.local.Purge()
	if c.client == nil {
		return nil
	}
	keys := []string{CacheKeyPostList, CacheKeyCategories, CacheKeyCourses}
	var postKeys []string
	iter := c.client.Scan(ctx, 0, CacheKeyPost+":*", 0).Iterator()
	for iter.Next(ctx) {
		postKeys = append(postKeys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, append(keys, postKeys...)...).Err()
}

// BuildCacheKey joins a prefix and parts with colons.
func BuildCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

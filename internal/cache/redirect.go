package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snipay/snipay/internal/model"
)

// Cache key prefixes and TTLs.
const (
	redirectKeyPrefix = "url:"
	negCacheKeySuffix = ":neg"
	clicksKeyPrefix   = "clicks:"

	// DefaultRedirectTTL is the TTL for cached redirect data.
	DefaultRedirectTTL = 24 * time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// ErrCacheMiss is returned when a key is absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// GetRedirect retrieves redirect data from cache by short code.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetRedirect(ctx context.Context, shortCode string) (*model.CachedRedirect, error) {
	key := redirectKeyPrefix + shortCode

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	return &model.CachedRedirect{
		OriginalURL: result["original_url"],
		Enabled:     result["enabled"],
		URLID:       result["url_id"],
	}, nil
}

// SetRedirect stores redirect data in cache.
func (c *Cache) SetRedirect(ctx context.Context, url *model.ShortURL) error {
	key := redirectKeyPrefix + url.ShortCode
	cached := url.ToCachedRedirect()

	fields := map[string]any{
		"original_url": cached.OriginalURL,
		"enabled":      cached.Enabled,
		"url_id":       cached.URLID,
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultRedirectTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache redirect: %w", err)
	}

	// Remove negative cache if it exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteRedirect removes redirect data from cache.
func (c *Cache) DeleteRedirect(ctx context.Context, shortCode string) error {
	key := redirectKeyPrefix + shortCode

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete redirect from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a short code is known to not exist.
func (c *Cache) IsNegativelyCached(ctx context.Context, shortCode string) (bool, error) {
	key := redirectKeyPrefix + shortCode + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a short code as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, shortCode string) error {
	key := redirectKeyPrefix + shortCode + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}

// IncrementClicks increments the click counter in Redis.
// This is fire-and-forget for the redirect path.
func (c *Cache) IncrementClicks(ctx context.Context, shortCode string) error {
	key := clicksKeyPrefix + shortCode

	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	return nil
}

// GetAndResetClicks gets the current click count and resets it.
// Used by the flush loop to move counts into PostgreSQL.
func (c *Cache) GetAndResetClicks(ctx context.Context, shortCode string) (int64, error) {
	key := clicksKeyPrefix + shortCode

	result, err := c.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get and reset clicks: %w", err)
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse click count: %w", err)
	}

	return count, nil
}

// ScanClickKeys scans for all click counter keys.
// Used by the flush loop to find URLs with pending click updates.
func (c *Cache) ScanClickKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		var scanKeys []string
		var err error

		scanKeys, cursor, err = c.client.Scan(ctx, cursor, clicksKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan click keys: %w", err)
		}

		keys = append(keys, scanKeys...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// ExtractShortCodeFromClickKey extracts the short code from a click key.
func ExtractShortCodeFromClickKey(key string) string {
	if len(key) > len(clicksKeyPrefix) {
		return key[len(clicksKeyPrefix):]
	}
	return ""
}

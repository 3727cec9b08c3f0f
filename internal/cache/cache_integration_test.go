package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/snipay/snipay/internal/cache"
	"github.com/snipay/snipay/internal/model"
	"github.com/snipay/snipay/internal/testutil"
)

func newTestCache(t *testing.T) (*cache.Cache, context.Context) {
	t.Helper()

	redisURL := testutil.RequireEnv(t, "TEST_REDIS_URL")
	ctx := context.Background()

	c, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect to redis: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	return c, ctx
}

func TestCache_RedirectRoundTrip(t *testing.T) {
	c, ctx := newTestCache(t)

	code := testutil.UniqueShortCode("redir")
	url := &model.ShortURL{
		ID:          testutil.UniqueID("url"),
		ShortCode:   code,
		OriginalURL: "https://example.com/page",
		Enabled:     true,
	}

	if _, err := c.GetRedirect(ctx, code); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := c.SetRedirect(ctx, url); err != nil {
		t.Fatalf("set redirect: %v", err)
	}

	cached, err := c.GetRedirect(ctx, code)
	if err != nil {
		t.Fatalf("get redirect: %v", err)
	}
	if cached.OriginalURL != url.OriginalURL {
		t.Errorf("original URL = %q, want %q", cached.OriginalURL, url.OriginalURL)
	}
	if cached.Enabled != "1" {
		t.Errorf("enabled = %q, want \"1\"", cached.Enabled)
	}
	if cached.URLID != url.ID {
		t.Errorf("url ID = %q, want %q", cached.URLID, url.ID)
	}

	if err := c.DeleteRedirect(ctx, code); err != nil {
		t.Fatalf("delete redirect: %v", err)
	}
	if _, err := c.GetRedirect(ctx, code); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("expected cache miss after delete, got %v", err)
	}
}

func TestCache_NegativeCache(t *testing.T) {
	c, ctx := newTestCache(t)

	code := testutil.UniqueShortCode("neg")

	negative, err := c.IsNegativelyCached(ctx, code)
	if err != nil {
		t.Fatalf("check negative cache: %v", err)
	}
	if negative {
		t.Fatal("fresh code should not be negatively cached")
	}

	if err := c.SetNegativeCache(ctx, code); err != nil {
		t.Fatalf("set negative cache: %v", err)
	}

	negative, err = c.IsNegativelyCached(ctx, code)
	if err != nil {
		t.Fatalf("check negative cache: %v", err)
	}
	if !negative {
		t.Fatal("code should be negatively cached")
	}

	// Caching the real redirect clears the tombstone.
	if err := c.SetRedirect(ctx, &model.ShortURL{
		ID:          testutil.UniqueID("url"),
		ShortCode:   code,
		OriginalURL: "https://example.com",
		Enabled:     true,
	}); err != nil {
		t.Fatalf("set redirect: %v", err)
	}

	negative, err = c.IsNegativelyCached(ctx, code)
	if err != nil {
		t.Fatalf("check negative cache: %v", err)
	}
	if negative {
		t.Fatal("negative cache entry should be cleared by SetRedirect")
	}
}

func TestCache_ClickBuffering(t *testing.T) {
	c, ctx := newTestCache(t)

	code := testutil.UniqueShortCode("clicks")

	for i := 0; i < 3; i++ {
		if err := c.IncrementClicks(ctx, code); err != nil {
			t.Fatalf("increment clicks: %v", err)
		}
	}

	keys, err := c.ScanClickKeys(ctx)
	if err != nil {
		t.Fatalf("scan click keys: %v", err)
	}
	found := false
	for _, key := range keys {
		if cache.ExtractShortCodeFromClickKey(key) == code {
			found = true
		}
	}
	if !found {
		t.Fatalf("click key for %s not found in scan result %v", code, keys)
	}

	count, err := c.GetAndResetClicks(ctx, code)
	if err != nil {
		t.Fatalf("get and reset clicks: %v", err)
	}
	if count != 3 {
		t.Errorf("click count = %d, want 3", count)
	}

	// Drained counter reads as zero, not an error.
	count, err = c.GetAndResetClicks(ctx, code)
	if err != nil {
		t.Fatalf("get and reset drained counter: %v", err)
	}
	if count != 0 {
		t.Errorf("drained click count = %d, want 0", count)
	}
}

func TestCache_UserRateLimit(t *testing.T) {
	c, ctx := newTestCache(t)

	userID := testutil.UniqueID("user")

	// Burst of 2 tokens at a slow refill rate: two requests pass, the
	// third is rejected with a retry hint.
	for i := 0; i < 2; i++ {
		result, err := c.CheckUserRateLimit(ctx, userID, 6, 2)
		if err != nil {
			t.Fatalf("rate limit check %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	result, err := c.CheckUserRateLimit(ctx, userID, 6, 2)
	if err != nil {
		t.Fatalf("rate limit check: %v", err)
	}
	if result.Allowed {
		t.Fatal("third request should be rejected")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("retry after = %s, want positive", result.RetryAfter)
	}

	// A different user has a fresh bucket.
	other, err := c.CheckUserRateLimit(ctx, testutil.UniqueID("user"), 6, 2)
	if err != nil {
		t.Fatalf("rate limit check: %v", err)
	}
	if !other.Allowed {
		t.Fatal("different user should not share the bucket")
	}
}

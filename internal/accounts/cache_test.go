package accounts

import (
	"context"
	"testing"
	"time"

	"leadngn_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(client, time.Minute, logger.New("development")), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	account := &Account{
		Domain:      "acme.com",
		CompanyName: "Acme",
		MemberCount: 2,
		IntentScore: 57,
	}
	cache.Set(ctx, account)

	got, ok := cache.Get(ctx, "acme.com")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.IntentScore != 57 || got.CompanyName != "Acme" {
		t.Errorf("cached account mangled: %+v", got)
	}
}

func TestRedisCacheMissAndInvalidate(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "nobody.io"); ok {
		t.Error("expected miss for unknown domain")
	}

	cache.Set(ctx, &Account{Domain: "acme.com"})
	cache.Invalidate(ctx, "acme.com")
	if _, ok := cache.Get(ctx, "acme.com"); ok {
		t.Error("invalidated entry still present")
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	cache.Set(ctx, &Account{Domain: "acme.com"})
	mr.FastForward(2 * time.Minute)

	if _, ok := cache.Get(ctx, "acme.com"); ok {
		t.Error("entry should have expired")
	}
}

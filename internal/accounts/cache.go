package accounts

import (
	"context"
	"encoding/json"
	"time"

	"leadngn_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "account:"

// RedisCache caches account views in Redis. Failures degrade to cache
// misses; the account is simply recomputed.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates an account cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

// Get returns the cached account for a domain, if present.
func (c *RedisCache) Get(ctx context.Context, domain string) (*Account, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+domain).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("account cache read failed", "domain", domain, "error", err)
		return nil, false
	}
	var account Account
	if err := json.Unmarshal(raw, &account); err != nil {
		c.log.Warn("account cache entry corrupt", "domain", domain, "error", err)
		return nil, false
	}
	return &account, true
}

// Set stores the account under its domain key.
func (c *RedisCache) Set(ctx context.Context, account *Account) {
	raw, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+account.Domain, raw, c.ttl).Err(); err != nil {
		c.log.Warn("account cache write failed", "domain", account.Domain, "error", err)
	}
}

// Invalidate drops the cached account for a domain.
func (c *RedisCache) Invalidate(ctx context.Context, domain string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+domain).Err(); err != nil {
		c.log.Warn("account cache invalidation failed", "domain", domain, "error", err)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"user_api/internal/observability"

	"github.com/go-redis/redis/v8"
)

const DefaultProfileTTL = 10 * time.Minute

// ProfileCache caches redacted user profiles by user name.
// It stores whatever value it is given as JSON; callers only pass redacted data.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *ProfileCache) Get(ctx context.Context, name string, dst interface{}) (bool, error) {
	val, err := c.client.Get(ctx, ProfileKey(name)).Bytes()
	if err == redis.Nil {
		countMiss()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, err
	}
	countHit()
	return true, nil
}

func (c *ProfileCache) Set(ctx context.Context, name string, profile interface{}) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ProfileKey(name), data, c.ttl).Err()
}

// Delete evicts every given name.
func (c *ProfileCache) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, ProfileKey(name))
	}
	return c.client.Del(ctx, keys...).Err()
}

// ProfileKey builds the cache key for a user name.
func ProfileKey(name string) string {
	return fmt.Sprintf("user:profile:%s", name)
}

func countHit() {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.CacheHitsTotal.WithLabelValues("profile").Inc()
	}
}

func countMiss() {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.CacheMissesTotal.WithLabelValues("profile").Inc()
	}
}

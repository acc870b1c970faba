package authz

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores aggregated entitlements in Redis. Keys embed the catalog
// snapshot version, so a mutation implicitly invalidates every prior entry
// and the old keys simply age out. Lookups never fail the caller: a Redis
// error degrades to a cache miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetOrFill returns the cached entitlement for key, computing and storing it
// via fill on a miss. Concurrent callers for the same key collapse into one
// fill via singleflight, so a cold key costs one resolution no matter how
// many requests race on it.
func (c *Cache) GetOrFill(ctx context.Context, key string, fill func() ([]string, error)) ([]string, error) {
	if c == nil || c.client == nil {
		return fill()
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if cached, ok := c.lookup(ctx, key); ok {
			return cached, nil
		}
		scopes, err := fill()
		if err != nil {
			return nil, err
		}
		c.put(ctx, key, scopes)
		return scopes, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]string)
	out := make([]string, len(shared))
	copy(out, shared)
	return out, nil
}

func (c *Cache) lookup(ctx context.Context, key string) ([]string, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var scopes []string
	if err := json.Unmarshal(payload, &scopes); err != nil {
		return nil, false
	}
	return scopes, true
}

// put stores an entitlement, best effort.
func (c *Cache) put(ctx context.Context, key string, scopes []string) {
	payload, err := json.Marshal(scopes)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Healthy reports whether the backing Redis answers a ping.
func (c *Cache) Healthy(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("authz: cache not configured")
	}
	return c.client.Ping(ctx).Err()
}

func versionString(version int64) string {
	return strconv.FormatInt(version, 10)
}

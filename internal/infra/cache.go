package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// JSONCache stores JSON documents in redis. A nil client turns every call
// into a miss so services work without redis (tests, local runs).
type JSONCache struct {
	rdb *redis.Client
}

func NewJSONCache(rdb *redis.Client) *JSONCache { return &JSONCache{rdb: rdb} }

// Get decodes the cached value into dst and reports whether it was a hit.
func (c *JSONCache) Get(ctx context.Context, key string, dst interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// Set is best effort; failures are logged and ignored.
func (c *JSONCache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: set failed")
	}
}

// SetNX stores v only if key is absent and reports whether it did.
func (c *JSONCache) SetNX(ctx context.Context, key string, v interface{}, ttl time.Duration) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	ok, err := c.rdb.SetNX(ctx, key, b, ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: setnx failed")
		return false
	}
	return ok
}

func (c *JSONCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache: delete failed")
	}
}

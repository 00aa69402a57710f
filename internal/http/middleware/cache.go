package middlewarex

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key hash has no cached identity.
var ErrCacheMiss = errors.New("middleware: key cache miss")

const keyCachePrefix = "rowfence:key:"

// KeyCache caches resolved API key identities in Redis so that hot keys
// skip the database lookup. Entries are keyed by the key hash, never by
// the plaintext key.
type KeyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewKeyCache(rdb *redis.Client, ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &KeyCache{rdb: rdb, ttl: ttl}
}

func (c *KeyCache) Get(ctx context.Context, keyHash string) (Identity, error) {
	val, err := c.rdb.Get(ctx, keyCachePrefix+keyHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrCacheMiss
		}
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal([]byte(val), &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (c *KeyCache) Put(ctx context.Context, keyHash string, id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyCachePrefix+keyHash, data, c.ttl).Err()
}

// Invalidate drops a cached identity, used when a key is revoked.
func (c *KeyCache) Invalidate(ctx context.Context, keyHash string) error {
	return c.rdb.Del(ctx, keyCachePrefix+keyHash).Err()
}

package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under a generation number. Bump moves every
// reader to a fresh generation; old entries simply expire.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = TTLCatalog
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, KeyCatalogGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, errors.Wrap(err, "cache generation")
	}
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyCatalogEntry, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cache get")
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, errors.Wrap(err, "cache decode")
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return errors.Wrap(err, "cache generation")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "cache encode")
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyCatalogEntry, gen, key), b, c.ttl).Err()
}

func (c *Cache) Bump(ctx context.Context) error {
	return c.rdb.Incr(ctx, KeyCatalogGen).Err()
}

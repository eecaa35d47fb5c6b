package registry

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/propconf/pkg/schema"
)

// Cache wraps a Registry with a two-tier cache for compiled schemas: an
// in-process LRU (L1) and an optional Redis tier (L2) for multi-instance
// deployments. Compiling a schema recompiles every declared unit's regex,
// which is the expensive part GetCompiledSchema exists to avoid repeating.
//
// Concurrent misses for the same key are coalesced with singleflight so a
// cold cache under load triggers one backend fetch, not one per request.
type Cache struct {
	Registry // delegate every Registry method not overridden below

	l1  *lru.Cache[string, *schema.Schema]
	l2  *redis.Client
	ttl time.Duration
	sf  singleflight.Group
}

// NewCache builds a Cache in front of backend. l2 may be nil to run L1-only.
func NewCache(backend Registry, l1Size int, l2 *redis.Client, ttl time.Duration) (*Cache, error) {
	if l1Size <= 0 {
		l1Size = 256
	}
	l1, err := lru.New[string, *schema.Schema](l1Size)
	if err != nil {
		return nil, fmt.Errorf("registry cache: create L1: %w", err)
	}
	return &Cache{Registry: backend, l1: l1, l2: l2, ttl: ttl}, nil
}

func cacheKey(name, version string) string { return name + "@" + version }

// GetCompiledSchema returns the parsed *schema.Schema for name@version,
// serving from L1, then L2, then the backing Registry, populating each
// faster tier on the way back up.
func (c *Cache) GetCompiledSchema(ctx context.Context, name, version string) (*schema.Schema, error) {
	key := cacheKey(name, version)
	if s, ok := c.l1.Get(key); ok {
		return s, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if c.l2 != nil {
			if data, err := c.l2.Get(ctx, key).Bytes(); err == nil {
				if s, loadErr := schema.Load(data); loadErr == nil {
					c.l1.Add(key, s)
					return s, nil
				}
				// Corrupt cache entry: fall through to the backend and
				// overwrite it below.
			}
		}

		doc, err := c.Registry.GetSchema(ctx, name, version)
		if err != nil {
			return nil, err
		}
		s, err := schema.Load(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("registry cache: stored schema %s@%s failed to load: %w", name, version, err)
		}
		c.l1.Add(key, s)
		if c.l2 != nil {
			c.l2.Set(ctx, key, doc.Content, c.ttl)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.Schema), nil
}

// InvalidateCache drops every cached compiled schema for schemaName across
// both tiers, then defers to the backend's own invalidation hook.
func (c *Cache) InvalidateCache(ctx context.Context, schemaName string) error {
	for _, key := range c.l1.Keys() {
		if len(key) > len(schemaName) && key[:len(schemaName)+1] == schemaName+"@" {
			c.l1.Remove(key)
		}
	}
	if c.l2 != nil {
		iter := c.l2.Scan(ctx, 0, schemaName+"@*", 100).Iterator()
		for iter.Next(ctx) {
			c.l2.Del(ctx, iter.Val())
		}
	}
	return c.Registry.InvalidateCache(ctx, schemaName)
}

var _ Registry = (*Cache)(nil)

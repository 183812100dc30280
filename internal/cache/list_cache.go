package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/utils"
	"github.com/redis/go-redis/v9"
)

// ListCache caches product listing pages. A miss or a backend failure both
// read as "not cached"; callers fall through to the store.
type ListCache interface {
	GetPage(ctx context.Context, page, limit int) (product.Page, bool)
	SetPage(ctx context.Context, page, limit int, p product.Page)
	Invalidate(ctx context.Context)
}

type MemoryListCache struct {
	c *Cache[product.Page]
}

func NewMemoryListCache(ttl time.Duration) *MemoryListCache {
	return &MemoryListCache{c: New[product.Page](ttl, 256)}
}

func (m *MemoryListCache) GetPage(_ context.Context, page, limit int) (product.Page, bool) {
	return m.c.Get(utils.BuildProductsListCacheKey(0, page, limit))
}

func (m *MemoryListCache) SetPage(_ context.Context, page, limit int, p product.Page) {
	m.c.Set(utils.BuildProductsListCacheKey(0, page, limit), p)
}

func (m *MemoryListCache) Invalidate(context.Context) {
	m.c.Clear()
}

// RedisListCache shares pages across API replicas. Invalidation bumps a
// version counter instead of scanning keys; stale pages age out by TTL.
type RedisListCache struct {
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
	prom *observability.Prom
}

func NewRedisListCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger, prom *observability.Prom) *RedisListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisListCache{rdb: rdb, ttl: ttl, log: log, prom: prom}
}

// observe records a redis round trip; cache misses are not failures.
func (r *RedisListCache) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}

	var miss error
	err := r.prom.ObserveDB(op, func() error {
		err := fn()
		if errors.Is(err, redis.Nil) {
			miss = err
			return nil
		}
		return err
	})
	if miss != nil {
		return miss
	}
	return err
}

func (r *RedisListCache) version(ctx context.Context) (int64, error) {
	var raw string
	err := r.observe("cache.version", func() (err error) {
		raw, err = r.rdb.Get(ctx, utils.ProductsListVersionKey).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (r *RedisListCache) GetPage(ctx context.Context, page, limit int) (product.Page, bool) {
	v, err := r.version(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "cache.version_failed", "err", err)
		return product.Page{}, false
	}

	var raw []byte
	err = r.observe("cache.get", func() (err error) {
		raw, err = r.rdb.Get(ctx, utils.BuildProductsListCacheKey(v, page, limit)).Bytes()
		return err
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WarnContext(ctx, "cache.get_failed", "err", err)
		}
		return product.Page{}, false
	}

	var p product.Page
	if err := json.Unmarshal(raw, &p); err != nil {
		r.log.WarnContext(ctx, "cache.decode_failed", "err", err)
		return product.Page{}, false
	}
	return p, true
}

func (r *RedisListCache) SetPage(ctx context.Context, page, limit int, p product.Page) {
	v, err := r.version(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "cache.version_failed", "err", err)
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}

	err = r.observe("cache.set", func() error {
		return r.rdb.Set(ctx, utils.BuildProductsListCacheKey(v, page, limit), raw, r.ttl).Err()
	})
	if err != nil {
		r.log.WarnContext(ctx, "cache.set_failed", "err", err)
	}
}

func (r *RedisListCache) Invalidate(ctx context.Context) {
	err := r.observe("cache.invalidate", func() error {
		return r.rdb.Incr(ctx, utils.ProductsListVersionKey).Err()
	})
	if err != nil {
		r.log.WarnContext(ctx, "cache.invalidate_failed", "err", err)
	}
}

package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CacheConfig configures the read-through lookup cache.
type CacheConfig struct {
	// MaxEntries caps the number of cached lookups. Default: 4096.
	MaxEntries int64

	// TTL bounds staleness of cached order status and product details.
	// Default: 30 seconds; order status changes, so keep it short.
	TTL time.Duration
}

// Cache is a ristretto-backed read-through decorator over both lookup
// collaborators. Negative results (ErrNotFound) are not cached: an order
// can appear between requests.
type Cache struct {
	orders   OrderLookup
	products ProductLookup
	cache    *ristretto.Cache
	ttl      time.Duration
}

func NewCache(orders OrderLookup, products ProductLookup, cfg CacheConfig) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 4096
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}

	return &Cache{
		orders:   orders,
		products: products,
		cache:    cache,
		ttl:      cfg.TTL,
	}, nil
}

func (c *Cache) ByID(ctx context.Context, orderID int64) (*OrderStatus, error) {
	key := fmt.Sprintf("order:%d", orderID)
	if v, ok := c.cache.Get(key); ok {
		order := v.(OrderStatus)
		return &order, nil
	}

	order, err := c.orders.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(key, *order, 1, c.ttl)
	return order, nil
}

func (c *Cache) ByIDs(ctx context.Context, ids []int64) ([]ProductInfo, error) {
	out := make([]ProductInfo, 0, len(ids))
	var misses []int64
	for _, id := range ids {
		if v, ok := c.cache.Get(fmt.Sprintf("product:%d", id)); ok {
			out = append(out, v.(ProductInfo))
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.products.ByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, p := range fetched {
		c.cache.SetWithTTL(fmt.Sprintf("product:%d", p.ID), p, 1, c.ttl)
	}
	out = append(out, fetched...)

	return out, nil
}

// Wait blocks until buffered cache writes are applied. Tests use it to
// make hits deterministic.
func (c *Cache) Wait() {
	c.cache.Wait()
}

func (c *Cache) Close() error {
	c.cache.Close()
	return nil
}

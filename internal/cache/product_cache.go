package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markethub/markethub/internal/logging"
	"github.com/markethub/markethub/internal/models"
)

// ProductCache is a cache-aside layer for catalog reads. Cache failures
// degrade to database reads, they never fail the request.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(redisURL string, ttl time.Duration) (*ProductCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &ProductCache{rdb: rdb, ttl: ttl}, nil
}

func (c *ProductCache) Get(ctx context.Context, id uint) (*models.Product, bool) {
	val, err := c.rdb.Get(ctx, productKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("product cache read failed", "product_id", id, "error", err)
		}
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, false
	}
	return &product, true
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productKey(product.ID), data, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("product cache write failed", "product_id", product.ID, "error", err)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, id uint) {
	if err := c.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		logging.FromContext(ctx).Warn("product cache invalidation failed", "product_id", id, "error", err)
	}
}

func (c *ProductCache) Close() error {
	return c.rdb.Close()
}

func productKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

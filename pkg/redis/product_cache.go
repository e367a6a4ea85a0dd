package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisclient "github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("product not cached")

const recentProductsKey = "products:recent"

// ProductCache keeps raw backend product documents. Documents are stored under
// their id; slugs map to ids the same way SKUs did for inventory.
type ProductCache struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewProductCache(client *redisclient.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

type productRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// Put caches a product document.
func (c *ProductCache) Put(ctx context.Context, raw json.RawMessage) error {
	var ref productRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return fmt.Errorf("failed to read product id: %w", err)
	}
	if ref.ID == 0 {
		return fmt.Errorf("product document has no id")
	}
	id := strconv.FormatInt(ref.ID, 10)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, "product:id:"+id, []byte(raw), c.ttl)
	if ref.Slug != "" {
		pipe.Set(ctx, "product:slug:"+ref.Slug, id, c.ttl)
	}
	pipe.LRem(ctx, recentProductsKey, 0, id)
	pipe.LPush(ctx, recentProductsKey, id)
	// Keep only the 100 most recent products
	pipe.LTrim(ctx, recentProductsKey, 0, 99)
	pipe.Expire(ctx, recentProductsKey, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for product %s: %w", id, err)
	}
	return nil
}

// Get looks a product up by numeric id or slug.
func (c *ProductCache) Get(ctx context.Context, ref string) (json.RawMessage, error) {
	id := ref
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		mapped, err := c.client.Get(ctx, "product:slug:"+ref).Result()
		if errors.Is(err, redisclient.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, err
		}
		id = mapped
	}

	data, err := c.client.Get(ctx, "product:id:"+id).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Invalidate drops a product by id and its slug mapping.
func (c *ProductCache) Invalidate(ctx context.Context, id int64, slug string) error {
	idStr := strconv.FormatInt(id, 10)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, "product:id:"+idStr)
	if slug != "" {
		pipe.Del(ctx, "product:slug:"+slug)
	}
	pipe.LRem(ctx, recentProductsKey, 0, idStr)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove product from Redis cache: %w", err)
	}
	return nil
}

// Recent returns the ids of the most recently cached products, newest first.
func (c *ProductCache) Recent(ctx context.Context, limit int64) ([]int64, error) {
	if limit <= 0 {
		limit = 10
	}
	vals, err := c.client.LRange(ctx, recentProductsKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Package catalog serves product reads through the Redis product cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
)

// Backend is the slice of the REST client the catalog needs.
type Backend interface {
	GetProductRaw(ctx context.Context, ref string) (json.RawMessage, error)
}

// Cache is satisfied by *redis.ProductCache.
type Cache interface {
	Get(ctx context.Context, ref string) (json.RawMessage, error)
	Put(ctx context.Context, raw json.RawMessage) error
}

type Service struct {
	backend Backend
	cache   Cache
	logger  *zap.Logger
}

func NewService(backend Backend, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, cache: cache, logger: logger}
}

// Product returns the raw product document for ref (slug or id) and whether it came
// from the cache. Cache failures are logged and never fail the read.
func (s *Service) Product(ctx context.Context, ref string) (json.RawMessage, bool, error) {
	raw, err := s.cache.Get(ctx, ref)
	if err == nil {
		return raw, true, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.logger.Warn("product cache read failed", zap.String("ref", ref), zap.Error(err))
	}

	raw, err = s.backend.GetProductRaw(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if cacheErr := s.cache.Put(ctx, raw); cacheErr != nil {
		s.logger.Warn("failed to cache product", zap.String("ref", ref), zap.Error(cacheErr))
	}
	return raw, false, nil
}

// Snapshot decodes the product the cart stores alongside a local line.
func (s *Service) Snapshot(ctx context.Context, productID int64) (*models.Product, error) {
	raw, _, err := s.Product(ctx, strconv.FormatInt(productID, 10))
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode product %d: %w", productID, err)
	}
	return &p, nil
}

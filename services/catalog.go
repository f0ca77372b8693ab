package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bakery-orders/errs"
	"bakery-orders/models"
	"bakery-orders/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Catalog resolves product ids against the read-only product catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

const productCacheTTL = time.Minute

// CatalogService fronts the product collection with a short-lived redis
// cache and collapses concurrent lookups for the same product. Cache
// failures degrade to direct reads, never to request failures.
type CatalogService struct {
	products repository.ProductRepository
	cache    *redis.Client
	group    singleflight.Group
	logger   *zap.Logger
}

// NewCatalogService creates a catalog. cache may be nil, in which case
// every lookup goes to the store.
func NewCatalogService(products repository.ProductRepository, cache *redis.Client, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := "product:" + id.Hex()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(cached), &product); err == nil {
				return &product, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("product cache read failed", zap.String("product_id", id.Hex()), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, errs.Newf(errs.KindNotFound, "product %s not found", id.Hex())
		}
		if s.cache != nil {
			if data, err := json.Marshal(product); err == nil {
				if err := s.cache.Set(ctx, key, data, productCacheTTL).Err(); err != nil {
					s.logger.Warn("product cache write failed", zap.String("product_id", id.Hex()), zap.Error(err))
				}
			}
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

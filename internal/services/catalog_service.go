package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/honeynil/storefront-api/internal/infrastructure/redis"
	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	productCacheTTL   = 10 * time.Minute
	newArrivalsWindow = 30 * 24 * time.Hour
)

type ListOptions struct {
	NewArrivals bool
	Promotions  bool
	Limit       int
	Offset      int
}

type CatalogService interface {
	GetProduct(ctx context.Context, id int32) (*models.Product, error)
	ListProducts(ctx context.Context, opts ListOptions) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	cache       redis.RedisClient
	logger      *zap.Logger
	now         func() time.Time
}

func NewCatalogService(productRepo repository.ProductRepository, cache redis.RedisClient, logger *zap.Logger) *catalogService {
	return &catalogService{productRepo: productRepo, cache: cache, logger: logger, now: time.Now}
}

func productKey(id int32) string {
	return fmt.Sprintf("product:%d", id)
}

// GetProduct reads through the Redis product cache. Cache failures are logged
// and served from Postgres.
func (s *catalogService) GetProduct(ctx context.Context, id int32) (*models.Product, error) {
	ctx, span := otel.Tracer("catalog-service").Start(ctx, "GetProduct")
	defer span.End()

	key := productKey(id)
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var p models.Product
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
		s.logger.Warn("corrupt product cache entry", zap.Int32("product_id", id))
	case !stderrors.Is(err, redis.ErrKeyNotFound):
		span.RecordError(err)
		s.logger.Warn("failed to read product cache", zap.Int32("product_id", id), zap.Error(err))
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "product lookup failed")
		return nil, err
	}

	if b, err := json.Marshal(product); err == nil {
		if err := s.cache.Set(ctx, key, string(b), productCacheTTL); err != nil {
			s.logger.Warn("failed to cache product", zap.Int32("product_id", id), zap.Error(err))
		}
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	ctx, span := otel.Tracer("catalog-service").Start(ctx, "ListProducts")
	defer span.End()

	if opts.Limit < 0 || opts.Offset < 0 {
		span.SetStatus(codes.Error, "negative paging")
		return nil, fmt.Errorf("%w: limit and offset must not be negative", pkgerrors.ErrInvalidInput)
	}

	filter := models.ProductFilter{
		OnPromotion: opts.Promotions,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	if opts.NewArrivals {
		since := s.now().Add(-newArrivalsWindow)
		filter.NewArrivalsSince = &since
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	return products, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := otel.Tracer("catalog-service").Start(ctx, "CreateProduct")
	defer span.End()

	if product == nil {
		return pkgerrors.ErrNilProduct
	}
	product.Name = strings.TrimSpace(product.Name)
	product.Currency = strings.ToUpper(strings.TrimSpace(product.Currency))
	if product.Name == "" {
		span.SetStatus(codes.Error, "empty name")
		return fmt.Errorf("%w: name is required", pkgerrors.ErrInvalidInput)
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return err
	}
	s.logger.Info("product created", zap.Int32("product_id", product.ID))
	return nil
}

package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abasto-labs/abasto/internal/cache"
	"github.com/abasto-labs/abasto/internal/config"
	"github.com/abasto-labs/abasto/internal/database"
	"github.com/abasto-labs/abasto/internal/entity"
	"github.com/abasto-labs/abasto/internal/notifier"
	repo "github.com/abasto-labs/abasto/internal/repository/product"
	"github.com/abasto-labs/abasto/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/abasto-labs/abasto/service/product")

// Service encapsulates catalog and stock management for products.
type Service struct {
	repo     *repo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	lowStock *notifier.LowStock
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	LowStock   *notifier.LowStock
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		lowStock: p.LowStock,
		logger:   p.Logger,
	}
}

// Create validates and persists a new product.
func (s *Service) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errorbank.BadRequest("product payload is required")
	}
	if product.Name == "" || product.Code == "" {
		return errorbank.BadRequest("name and code are required")
	}
	if product.Quantity < 0 {
		return errorbank.BadRequest("quantity must be non-negative")
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.Create", trace.WithAttributes(attribute.String("product.code", product.Code)))
	defer span.End()

	exists, err := s.repo.ExistsByCode(ctx, product.Code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to check product code", errorbank.WithCause(err))
	}
	if exists {
		return errorbank.Conflict(fmt.Sprintf("product code %q already exists", product.Code))
	}

	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if database.IsUniqueViolation(err) {
			return errorbank.Conflict(fmt.Sprintf("product code %q already exists", product.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to create product", errorbank.WithCause(err))
	}
	return nil
}

// Get retrieves a product by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Get", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if product, err := s.getFromCache(ctx, id); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("product cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load product", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, product); err != nil {
		s.logger.Warn("product cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return product, nil
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]*entity.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list products", errorbank.WithCause(err))
	}
	return products, nil
}

// Update persists name, code and warehouse changes.
func (s *Service) Update(ctx context.Context, product *entity.Product) error {
	if product == nil || product.ID == 0 {
		return errorbank.BadRequest("product id is required")
	}
	if product.Name == "" || product.Code == "" {
		return errorbank.BadRequest("name and code are required")
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.Int64("product.id", product.ID)))
	defer span.End()

	if existing, err := s.repo.GetByCode(ctx, product.Code); err == nil && existing.ID != product.ID {
		return errorbank.Conflict(fmt.Sprintf("product code %q already exists", product.Code))
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return errorbank.Internal("failed to check product code", errorbank.WithCause(err))
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update product", errorbank.WithCause(err))
	}
	s.invalidate(ctx, product.ID)
	return nil
}

// SetStock overwrites a product's quantity on hand and runs the low-stock
// check afterwards; the check's outcome never fails the edit.
func (s *Service) SetStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return errorbank.BadRequest("quantity must be non-negative")
	}
	ctx, span := serviceTracer.Start(ctx, "ProductService.SetStock", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("product.quantity", quantity),
	))
	defer span.End()

	if err := s.repo.SetQuantity(ctx, id, quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("product not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to update stock", errorbank.WithCause(err))
	}
	s.invalidate(ctx, id)
	s.lowStock.Check(ctx)
	return nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("product not found")
		}
		return errorbank.Internal("failed to delete product", errorbank.WithCause(err))
	}
	s.invalidate(ctx, id)
	return nil
}

// LowStockList exposes the current low-stock candidates for the dashboard.
func (s *Service) LowStockList(ctx context.Context) ([]*entity.Product, error) {
	products, err := s.lowStock.Scan(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to scan stock levels", errorbank.WithCause(err))
	}
	return products, nil
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Product, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var product entity.Product
	if err := json.Unmarshal(bytes, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) storeInCache(ctx context.Context, product *entity.Product) error {
	if s.cache == nil || product == nil {
		return nil
	}
	bytes, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(product.ID), bytes, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("product cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

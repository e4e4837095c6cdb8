package catalog

import (
	"context"
	"log/slog"

	"product-views/internal/domain"
)

// Source is anything that can answer product queries.
type Source interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListProductsPage(ctx context.Context, page, limit int) ([]domain.Product, error)
}

// Cache is the storage used by CachedSource
type Cache interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	GetProducts(ctx context.Context, page, limit int) ([]domain.Product, error)
	SetProducts(ctx context.Context, page, limit int, products []domain.Product) error
}

// CachedSource wraps a Source with a cache-aside layer.
// Cache failures are logged and never fail the request.
type CachedSource struct {
	next   Source
	cache  Cache
	logger *slog.Logger
}

// NewCachedSource creates a cache-aside wrapper around next
func NewCachedSource(next Source, cache Cache, logger *slog.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, logger: logger}
}

// GetProduct checks the cache before calling the catalog
func (s *CachedSource) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	cached, err := s.cache.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("Product cache read failed", "product_id", productID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	product, err := s.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("Failed to cache product", "product_id", productID, "error", err)
	}

	return product, nil
}

// ListProducts checks the cache before calling the catalog
func (s *CachedSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, 0, 0, func() ([]domain.Product, error) {
		return s.next.ListProducts(ctx)
	})
}

// ListProductsPage checks the cache before calling the catalog
func (s *CachedSource) ListProductsPage(ctx context.Context, page, limit int) ([]domain.Product, error) {
	return s.list(ctx, page, limit, func() ([]domain.Product, error) {
		return s.next.ListProductsPage(ctx, page, limit)
	})
}

func (s *CachedSource) list(ctx context.Context, page, limit int, fetch func() ([]domain.Product, error)) ([]domain.Product, error) {
	cached, err := s.cache.GetProducts(ctx, page, limit)
	if err != nil {
		s.logger.Warn("Product list cache read failed", "page", page, "limit", limit, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	products, err := fetch()
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProducts(ctx, page, limit, products); err != nil {
		s.logger.Warn("Failed to cache product list", "page", page, "limit", limit, "error", err)
	}

	return products, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"product-views/internal/domain"
	"product-views/internal/metrics"
	"product-views/internal/repository"
)

// UpsertStrategy selects how RecordView writes to the store.
type UpsertStrategy string

const (
	// StrategyAtomic increments inside the database. Concurrent visits never
	// lose an increment.
	StrategyAtomic UpsertStrategy = "atomic"

	// StrategyReadThenWrite reads the entry and writes the new count back.
	// Two concurrent visits can both read N and both write N+1.
	StrategyReadThenWrite UpsertStrategy = "read-then-write"
)

// ParseUpsertStrategy validates a strategy name. Empty means atomic.
func ParseUpsertStrategy(raw string) (UpsertStrategy, error) {
	switch UpsertStrategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyAtomic:
		return StrategyAtomic, nil
	case StrategyReadThenWrite:
		return StrategyReadThenWrite, nil
	default:
		return "", fmt.Errorf("unknown upsert strategy %q", raw)
	}
}

// ProductGetter looks up a single product in the catalog
type ProductGetter interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// ViewService records product views and reads the aggregated logs.
type ViewService struct {
	logs     repository.LogRepository
	products ProductGetter
	baseURL  string
	strategy UpsertStrategy
	logger   *slog.Logger
	now      func() time.Time
}

// NewViewService creates a new view service.
// baseURL is the public address used to build each entry's canonical product URL.
func NewViewService(logs repository.LogRepository, products ProductGetter, baseURL string, strategy UpsertStrategy, logger *slog.Logger) *ViewService {
	return &ViewService{
		logs:     logs,
		products: products,
		baseURL:  strings.TrimRight(baseURL, "/"),
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordView counts one visit to a product detail page.
// The first visit creates the entry with catalog metadata (or a placeholder
// when the catalog is unavailable); later visits only bump count and timestamp.
func (s *ViewService) RecordView(ctx context.Context, productID string) error {
	id, err := domain.NormalizeProductID(productID)
	if err != nil {
		return err
	}

	var created bool
	switch s.strategy {
	case StrategyReadThenWrite:
		created, err = s.readThenWrite(ctx, id)
	default:
		created, err = s.atomicUpsert(ctx, id)
	}

	if err != nil {
		metrics.RecordView("failed")
		return err
	}

	if created {
		metrics.RecordView("created")
	} else {
		metrics.RecordView("incremented")
	}

	return nil
}

// atomicUpsert increments in place and only falls back to an insert when
// the row does not exist yet.
func (s *ViewService) atomicUpsert(ctx context.Context, id string) (bool, error) {
	now := s.now()

	_, err := s.logs.IncrementIfExists(ctx, id, now.UnixMilli())
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("failed to increment view count: %w", err)
	}

	meta := s.fetchMetadata(ctx, id)
	entry := domain.NewLogEntry(id, meta.Title, meta.URL, now)

	stored, err := s.logs.Upsert(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("failed to create log entry: %w", err)
	}

	return stored.Count == 1, nil
}

// readThenWrite is the plain get-then-put upsert. It has no transaction, so
// it is subject to lost updates under concurrency.
func (s *ViewService) readThenWrite(ctx context.Context, id string) (bool, error) {
	existing, err := s.logs.Get(ctx, id)
	switch {
	case err == nil:
		existing.RecordVisit(s.now())
		if err := s.logs.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("failed to update log entry: %w", err)
		}
		return false, nil

	case errors.Is(err, domain.ErrNotFound):
		meta := s.fetchMetadata(ctx, id)
		entry := domain.NewLogEntry(id, meta.Title, meta.URL, s.now())
		if err := s.logs.Put(ctx, entry); err != nil {
			return false, fmt.Errorf("failed to create log entry: %w", err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("failed to read log entry: %w", err)
	}
}

// fetchMetadata never fails: any catalog error yields the placeholder.
func (s *ViewService) fetchMetadata(ctx context.Context, id string) domain.ProductMetadata {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		s.logger.Warn("Using placeholder product metadata", "product_id", id, "error", err)
		metrics.RecordMetadataFallback()
		return domain.ProductMetadata{Title: domain.PlaceholderTitle, URL: domain.SentinelURL}
	}

	return domain.ProductMetadata{
		Title: product.Title,
		URL:   s.ProductURL(id),
	}
}

// ProductURL is the canonical detail-page link for a product.
func (s *ViewService) ProductURL(productID string) string {
	return s.baseURL + "/products/" + productID
}

// ListLogs returns every entry ordered by count.
func (s *ViewService) ListLogs(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error) {
	entries, err := s.logs.List(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return entries, nil
}

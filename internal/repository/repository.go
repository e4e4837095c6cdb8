package repository

import (
	"context"

	"product-views/internal/domain"
)

// LogRepository defines data access for view logs.
// This is the "Repository Pattern" - the service never sees SQL, so the
// backing store can change without touching the upsert logic.
type LogRepository interface {
	// Get returns the entry for productID or domain.ErrNotFound.
	Get(ctx context.Context, productID string) (*domain.LogEntry, error)

	// Put writes the whole entry, replacing any stored one (last write wins).
	// Used by the read-then-write strategy.
	Put(ctx context.Context, entry *domain.LogEntry) error

	// Update overwrites count and timestamp of an existing entry.
	// Title and URL are never touched.
	Update(ctx context.Context, entry *domain.LogEntry) error

	// IncrementIfExists atomically adds one visit to an existing entry.
	// Returns the updated entry, or domain.ErrNotFound when no row matched.
	IncrementIfExists(ctx context.Context, productID string, nowMillis int64) (*domain.LogEntry, error)

	// Upsert inserts entry or, if another writer created it first, atomically
	// increments the stored one. Returns the stored result.
	Upsert(ctx context.Context, entry *domain.LogEntry) (*domain.LogEntry, error)

	// List returns every entry ordered by count in the given direction.
	List(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error)
}

// ChangeNotifier pushes a signal whenever the logs collection changes.
type ChangeNotifier interface {
	// Listen blocks until the listener is ready, then returns a channel that
	// receives one value per change. The channel is closed when ctx ends or
	// the underlying connection fails.
	Listen(ctx context.Context) (<-chan struct{}, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-views/internal/domain"
	"product-views/internal/metrics"
	"product-views/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logColumns = `product_id, product_title, product_url, count, "timestamp"`

// logRepository is the PostgreSQL implementation of repository.LogRepository.
// One row per product id in the logs table.
type logRepository struct {
	db *pgxpool.Pool
}

// NewLogRepository creates a new PostgreSQL log repository
func NewLogRepository(db *pgxpool.Pool) repository.LogRepository {
	return &logRepository{db: db}
}

// Get retrieves the entry for a product
func (r *logRepository) Get(ctx context.Context, productID string) (*domain.LogEntry, error) {
	defer observe("get")()

	query := `SELECT ` + logColumns + ` FROM logs WHERE product_id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("log %s: %w", productID, domain.ErrNotFound)
		}
		return nil, storeError("get", err)
	}

	return entry, nil
}

// Put writes the whole entry. A concurrent Put for the same id overwrites
// this one, which is the last-write-wins behaviour of a document set.
func (r *logRepository) Put(ctx context.Context, entry *domain.LogEntry) error {
	defer observe("put")()

	query := `
		INSERT INTO logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE
		SET product_title = EXCLUDED.product_title,
		    product_url   = EXCLUDED.product_url,
		    count         = EXCLUDED.count,
		    "timestamp"   = EXCLUDED."timestamp"
	`

	_, err := r.db.Exec(ctx, query,
		entry.ProductID,
		entry.ProductTitle,
		entry.ProductURL,
		entry.Count,
		entry.Timestamp,
	)
	if err != nil {
		return storeError("put", err)
	}

	return nil
}

// Update overwrites count and timestamp of an existing entry
func (r *logRepository) Update(ctx context.Context, entry *domain.LogEntry) error {
	defer observe("update")()

	query := `UPDATE logs SET count = $2, "timestamp" = $3 WHERE product_id = $1`

	result, err := r.db.Exec(ctx, query, entry.ProductID, entry.Count, entry.Timestamp)
	if err != nil {
		return storeError("update", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("log %s: %w", entry.ProductID, domain.ErrNotFound)
	}

	return nil
}

// IncrementIfExists atomically adds one visit in a single statement, so two
// concurrent visits can never both read the same count.
func (r *logRepository) IncrementIfExists(ctx context.Context, productID string, nowMillis int64) (*domain.LogEntry, error) {
	defer observe("increment")()

	query := `
		UPDATE logs
		SET count = count + 1,
		    "timestamp" = GREATEST($2, "timestamp" + 1)
		WHERE product_id = $1
		RETURNING ` + logColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, productID, nowMillis))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("log %s: %w", productID, domain.ErrNotFound)
		}
		return nil, storeError("increment", err)
	}

	return entry, nil
}

// Upsert inserts a first-visit entry. If a concurrent request created the row
// in the meantime the stored row is incremented instead; its title and URL win.
func (r *logRepository) Upsert(ctx context.Context, entry *domain.LogEntry) (*domain.LogEntry, error) {
	defer observe("upsert")()

	query := `
		INSERT INTO logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE
		SET count = logs.count + 1,
		    "timestamp" = GREATEST(EXCLUDED."timestamp", logs."timestamp" + 1)
		RETURNING ` + logColumns

	stored, err := scanEntry(r.db.QueryRow(ctx, query,
		entry.ProductID,
		entry.ProductTitle,
		entry.ProductURL,
		entry.Count,
		entry.Timestamp,
	))
	if err != nil {
		return nil, storeError("upsert", err)
	}

	return stored, nil
}

// List returns all entries ordered by count
func (r *logRepository) List(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error) {
	defer observe("list")()

	direction := "DESC"
	if order == domain.SortAsc {
		direction = "ASC"
	}

	// direction is one of two constants, never user input.
	query := `SELECT ` + logColumns + ` FROM logs ORDER BY count ` + direction + `, product_id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeError("list", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LogEntry, error) {
	entry := &domain.LogEntry{}
	err := row.Scan(
		&entry.ProductID,
		&entry.ProductTitle,
		&entry.ProductURL,
		&entry.Count,
		&entry.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func storeError(op string, err error) error {
	metrics.DatabaseErrorsTotal.WithLabelValues(op).Inc()
	return fmt.Errorf("failed to %s log: %w: %w", op, domain.ErrStoreFailure, err)
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		metrics.DatabaseQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

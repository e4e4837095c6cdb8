//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"product-views/internal/domain"
	"product-views/internal/repository/postgres"
	"product-views/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestPool starts Postgres, applies the embedded migrations and returns a pool
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("productviews_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.InitDB(ctx, dsn, 10, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// Running twice is a no-op
	require.NoError(t, postgres.Migrate(ctx, pool))

	return pool
}

type staticCatalog struct{}

func (staticCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	return &domain.Product{ID: 1, Title: "Product " + productID}, nil
}

func TestLogRepository(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewLogRepository(pool)
	ctx := context.Background()

	t.Run("get missing entry", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("increment missing entry", func(t *testing.T) {
		_, err := repo.IncrementIfExists(ctx, "missing", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("upsert creates then increments", func(t *testing.T) {
		entry := domain.NewLogEntry("1", "Backpack", "http://localhost:8080/products/1", time.UnixMilli(1_000))

		created, err := repo.Upsert(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Count)
		assert.Equal(t, int64(1_000), created.Timestamp)

		again := domain.NewLogEntry("1", "Renamed", "http://elsewhere", time.UnixMilli(1_000))
		updated, err := repo.Upsert(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Count)
		assert.Equal(t, int64(1_001), updated.Timestamp, "timestamp moves forward within the same millisecond")
		assert.Equal(t, "Backpack", updated.ProductTitle, "title is fixed at creation")
	})

	t.Run("increment existing entry", func(t *testing.T) {
		got, err := repo.IncrementIfExists(ctx, "1", 5_000)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Count)
		assert.Equal(t, int64(5_000), got.Timestamp)
	})

	t.Run("put and update", func(t *testing.T) {
		entry := domain.NewLogEntry("2", domain.PlaceholderTitle, domain.SentinelURL, time.UnixMilli(10))
		require.NoError(t, repo.Put(ctx, entry))

		entry.RecordVisit(time.UnixMilli(20))
		require.NoError(t, repo.Update(ctx, entry))

		got, err := repo.Get(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, *entry, *got)
	})

	t.Run("update missing entry", func(t *testing.T) {
		err := repo.Update(ctx, domain.NewLogEntry("nope", "x", "#", time.Now()))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list orders by count", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, domain.NewLogEntry("3", "Ring", "#", time.UnixMilli(30))))

		desc, err := repo.List(ctx, domain.SortDesc)
		require.NoError(t, err)
		asc, err := repo.List(ctx, domain.SortAsc)
		require.NoError(t, err)

		assert.Equal(t, []string{"1", "2", "3"}, ids(desc))
		assert.Equal(t, []string{"3", "2", "1"}, ids(asc))
	})
}

func ids(entries []domain.LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ProductID
	}
	return out
}

func TestViewService_AtomicUnderConcurrency(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewLogRepository(pool)
	svc := service.NewViewService(repo, staticCatalog{}, "http://localhost:8080", service.StrategyAtomic, testLogger())

	const visits = 25
	var wg sync.WaitGroup
	for i := 0; i < visits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.RecordView(context.Background(), "42"))
		}()
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(visits), got.Count)
	assert.Equal(t, "Product 42", got.ProductTitle)
	assert.Equal(t, "http://localhost:8080/products/42", got.ProductURL)
}

func TestChangeFeed_NotifiesOnWrite(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewLogRepository(pool)
	feed := postgres.NewChangeFeed(pool, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	signals, err := feed.Listen(ctx)
	require.NoError(t, err)

	_, err = repo.Upsert(context.Background(), domain.NewLogEntry("7", "Jacket", "#", time.Now()))
	require.NoError(t, err)

	select {
	case <-signals:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-signals:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLogFeed_LiveSnapshots(t *testing.T) {
	pool := newTestPool(t)
	repo := postgres.NewLogRepository(pool)
	feed := service.NewLogFeed(repo, postgres.NewChangeFeed(pool, testLogger()), time.Hour, testLogger())

	sub, err := feed.Subscribe(context.Background(), domain.SortDesc)
	require.NoError(t, err)
	defer sub.Close()

	first := <-sub.Updates()
	assert.Empty(t, first.Entries)

	_, err = repo.Upsert(context.Background(), domain.NewLogEntry("5", "Ring", "#", time.Now()))
	require.NoError(t, err)

	select {
	case snap := <-sub.Updates():
		assert.Equal(t, int64(1), snap.TotalCount)
	case <-time.After(5 * time.Second):
		t.Fatal("no live snapshot")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"product-views/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockLogRepository is a mock implementation of LogRepository
type MockLogRepository struct {
	mock.Mock
}

func (m *MockLogRepository) Get(ctx context.Context, productID string) (*domain.LogEntry, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LogEntry), args.Error(1)
}

func (m *MockLogRepository) Put(ctx context.Context, entry *domain.LogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLogRepository) Update(ctx context.Context, entry *domain.LogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLogRepository) IncrementIfExists(ctx context.Context, productID string, nowMillis int64) (*domain.LogEntry, error) {
	args := m.Called(ctx, productID, nowMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LogEntry), args.Error(1)
}

func (m *MockLogRepository) Upsert(ctx context.Context, entry *domain.LogEntry) (*domain.LogEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LogEntry), args.Error(1)
}

func (m *MockLogRepository) List(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LogEntry), args.Error(1)
}

// MockProductGetter is a mock catalog
type MockProductGetter struct {
	mock.Mock
}

func (m *MockProductGetter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// memoryLogRepo is a map-backed store. beforeWrite, when set, runs at the
// start of Put so tests can force interleavings.
type memoryLogRepo struct {
	mu          sync.Mutex
	entries     map[string]domain.LogEntry
	puts        int
	updates     int
	beforeWrite func()
}

func newMemoryLogRepo() *memoryLogRepo {
	return &memoryLogRepo{entries: make(map[string]domain.LogEntry)}
}

func (r *memoryLogRepo) Get(_ context.Context, productID string) (*domain.LogEntry, error) {
	r.mu.Lock()
	e, ok := r.entries[productID]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("log %s: %w", productID, domain.ErrNotFound)
	}
	return &e, nil
}

func (r *memoryLogRepo) Put(_ context.Context, entry *domain.LogEntry) error {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	r.entries[entry.ProductID] = *entry
	return nil
}

func (r *memoryLogRepo) Update(_ context.Context, entry *domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ProductID]; !ok {
		return domain.ErrNotFound
	}
	r.updates++
	r.entries[entry.ProductID] = *entry
	return nil
}

func (r *memoryLogRepo) IncrementIfExists(_ context.Context, productID string, nowMillis int64) (*domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.RecordVisit(time.UnixMilli(nowMillis))
	r.updates++
	r.entries[productID] = e
	return &e, nil
}

func (r *memoryLogRepo) Upsert(_ context.Context, entry *domain.LogEntry) (*domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[entry.ProductID]; ok {
		e.RecordVisit(entry.LastView())
		r.updates++
		r.entries[entry.ProductID] = e
		return &e, nil
	}
	r.puts++
	r.entries[entry.ProductID] = *entry
	stored := *entry
	return &stored, nil
}

func (r *memoryLogRepo) List(_ context.Context, order domain.SortOrder) ([]domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	domain.SortByCount(out, order)
	return out, nil
}

func (r *memoryLogRepo) entry(productID string) domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[productID]
}

// ==================== HELPER FUNCTIONS ====================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *memoryLogRepo, products ProductGetter, strategy UpsertStrategy) *ViewService {
	return NewViewService(repo, products, "http://localhost:8080/", strategy, testLogger())
}

func catalogWith(product *domain.Product) *MockProductGetter {
	m := new(MockProductGetter)
	m.On("GetProduct", mock.Anything, product.IDString()).Return(product, nil)
	return m
}

var strategies = []UpsertStrategy{StrategyAtomic, StrategyReadThenWrite}

// ==================== TESTS ====================

func TestRecordView_FirstVisitCreatesEntry(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			// Arrange
			repo := newMemoryLogRepo()
			products := catalogWith(&domain.Product{ID: 7, Title: "Backpack"})
			svc := newTestService(repo, products, strategy)
			svc.now = func() time.Time { return time.UnixMilli(1_000) }

			// Act
			err := svc.RecordView(context.Background(), "7")

			// Assert
			require.NoError(t, err)
			entries, _ := repo.List(context.Background(), domain.SortDesc)
			require.Len(t, entries, 1)
			assert.Equal(t, domain.LogEntry{
				ProductID:    "7",
				ProductTitle: "Backpack",
				ProductURL:   "http://localhost:8080/products/7",
				Count:        1,
				Timestamp:    1_000,
			}, entries[0])
			assert.Equal(t, 1, repo.puts)
			products.AssertExpectations(t)
		})
	}
}

func TestRecordView_RepeatVisitIncrementsWithoutRefetch(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			// Arrange
			repo := newMemoryLogRepo()
			repo.entries["7"] = domain.LogEntry{
				ProductID: "7", ProductTitle: "Old title", ProductURL: "http://old/products/7",
				Count: 4, Timestamp: 5_000,
			}
			products := new(MockProductGetter)
			svc := newTestService(repo, products, strategy)
			svc.now = func() time.Time { return time.UnixMilli(5_000) }

			// Act
			err := svc.RecordView(context.Background(), "7")

			// Assert
			require.NoError(t, err)
			got := repo.entry("7")
			assert.Equal(t, int64(5), got.Count)
			assert.Greater(t, got.Timestamp, int64(5_000))
			assert.Equal(t, "Old title", got.ProductTitle)
			assert.Equal(t, "http://old/products/7", got.ProductURL)
			assert.Equal(t, 0, repo.puts)
			assert.Equal(t, 1, repo.updates)
			products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
		})
	}
}

func TestRecordView_SequentialCallsAccumulate(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			repo := newMemoryLogRepo()
			svc := newTestService(repo, catalogWith(&domain.Product{ID: 3, Title: "Jacket"}), strategy)

			require.NoError(t, svc.RecordView(context.Background(), "3"))
			require.NoError(t, svc.RecordView(context.Background(), "3"))
			require.NoError(t, svc.RecordView(context.Background(), "3"))

			assert.Equal(t, int64(3), repo.entry("3").Count)
		})
	}
}

func TestRecordView_CatalogFailureUsesPlaceholder(t *testing.T) {
	for _, catalogErr := range []error{domain.ErrUpstreamUnavailable, domain.ErrNotFound} {
		t.Run(catalogErr.Error(), func(t *testing.T) {
			repo := newMemoryLogRepo()
			products := new(MockProductGetter)
			products.On("GetProduct", mock.Anything, "42").Return(nil, catalogErr)
			svc := newTestService(repo, products, StrategyAtomic)

			err := svc.RecordView(context.Background(), "42")

			require.NoError(t, err)
			got := repo.entry("42")
			assert.Equal(t, domain.PlaceholderTitle, got.ProductTitle)
			assert.Equal(t, domain.SentinelURL, got.ProductURL)
			assert.Equal(t, int64(1), got.Count)
		})
	}
}

func TestRecordView_EmptyIDPerformsNoWrite(t *testing.T) {
	repo := new(MockLogRepository)
	products := new(MockProductGetter)
	svc := NewViewService(repo, products, "http://localhost:8080", StrategyAtomic, testLogger())

	for _, id := range []string{"", "   "} {
		err := svc.RecordView(context.Background(), id)

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
	repo.AssertNotCalled(t, "IncrementIfExists", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestRecordView_StoreFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	storeErr := fmt.Errorf("boom: %w", domain.ErrStoreFailure)

	repo := new(MockLogRepository)
	repo.On("IncrementIfExists", ctx, "1", mock.AnythingOfType("int64")).Return(nil, storeErr)
	svc := NewViewService(repo, new(MockProductGetter), "http://localhost:8080", StrategyAtomic, testLogger())

	err := svc.RecordView(ctx, "1")

	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	repo.AssertExpectations(t)
}

func TestRecordView_ReadThenWrite_ReadFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLogRepository)
	repo.On("Get", ctx, "1").Return(nil, fmt.Errorf("timeout: %w", domain.ErrStoreFailure))
	svc := NewViewService(repo, new(MockProductGetter), "http://localhost:8080", StrategyReadThenWrite, testLogger())

	err := svc.RecordView(ctx, "1")

	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRecordView_AtomicConflictCountsAsIncrement(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLogRepository)
	repo.On("IncrementIfExists", ctx, "9", mock.AnythingOfType("int64")).Return(nil, domain.ErrNotFound)
	repo.On("Upsert", ctx, mock.AnythingOfType("*domain.LogEntry")).
		Return(&domain.LogEntry{ProductID: "9", Count: 2}, nil)
	products := new(MockProductGetter)
	products.On("GetProduct", ctx, "9").Return(&domain.Product{ID: 9, Title: "Ring"}, nil)
	svc := NewViewService(repo, products, "http://localhost:8080", StrategyAtomic, testLogger())

	err := svc.RecordView(ctx, "9")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// Two visits race on an unlogged product: both read "absent" before either
// writes, so the read-then-write upsert can end with count 1.
func TestRecordView_ReadThenWrite_ConcurrentFirstVisitsMayLoseUpdate(t *testing.T) {
	repo := newMemoryLogRepo()
	svc := newTestService(repo, catalogWith(&domain.Product{ID: 5, Title: "Ring"}), StrategyReadThenWrite)

	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	repo.beforeWrite = func() {
		arrived.Done()
		<-release
	}

	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			assert.NoError(t, svc.RecordView(context.Background(), "5"))
		}()
	}

	arrived.Wait()
	close(release)
	done.Wait()

	assert.Equal(t, int64(1), repo.entry("5").Count, "lost update is a possible outcome")
}

func TestRecordView_Atomic_ConcurrentVisitsNeverLoseUpdates(t *testing.T) {
	repo := newMemoryLogRepo()
	svc := newTestService(repo, catalogWith(&domain.Product{ID: 5, Title: "Ring"}), StrategyAtomic)

	const visits = 50
	var done sync.WaitGroup
	for i := 0; i < visits; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			assert.NoError(t, svc.RecordView(context.Background(), "5"))
		}()
	}
	done.Wait()

	assert.Equal(t, int64(visits), repo.entry("5").Count)
}

func TestListLogs(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLogRepository)
	entries := []domain.LogEntry{{ProductID: "1", Count: 5}}
	repo.On("List", ctx, domain.SortAsc).Return(entries, nil)
	svc := NewViewService(repo, new(MockProductGetter), "http://localhost:8080", StrategyAtomic, testLogger())

	got, err := svc.ListLogs(ctx, domain.SortAsc)

	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestListLogs_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockLogRepository)
	repo.On("List", ctx, domain.SortDesc).Return(nil, errors.Join(domain.ErrStoreFailure, errors.New("down")))
	svc := NewViewService(repo, new(MockProductGetter), "http://localhost:8080", StrategyAtomic, testLogger())

	_, err := svc.ListLogs(ctx, domain.SortDesc)

	assert.ErrorIs(t, err, domain.ErrStoreFailure)
}

func TestParseUpsertStrategy(t *testing.T) {
	got, err := ParseUpsertStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAtomic, got)

	got, err = ParseUpsertStrategy("READ-THEN-WRITE")
	require.NoError(t, err)
	assert.Equal(t, StrategyReadThenWrite, got)

	_, err = ParseUpsertStrategy("optimistic")
	assert.Error(t, err)
}

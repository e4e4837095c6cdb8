package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"product-views/internal/domain"
	"product-views/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache keeps catalog responses in Redis using the CACHE-ASIDE PATTERN:
// 1. Check cache first
// 2. If miss, ask the catalog
// 3. Store in cache for next time
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new Redis cache
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// GetProduct retrieves a product from cache
// Returns nil if not found (cache miss)
func (c *Cache) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	ok, err := c.get(ctx, productKey(productID), &product)
	if err != nil || !ok {
		return nil, err
	}
	return &product, nil
}

// SetProduct stores a product in cache
func (c *Cache) SetProduct(ctx context.Context, product *domain.Product) error {
	return c.set(ctx, productKey(product.IDString()), product)
}

// GetProducts retrieves a cached listing. page and limit are zero for the full list.
func (c *Cache) GetProducts(ctx context.Context, page, limit int) ([]domain.Product, error) {
	var products []domain.Product
	ok, err := c.get(ctx, listKey(page, limit), &products)
	if err != nil || !ok {
		return nil, err
	}
	return products, nil
}

// SetProducts stores a listing
func (c *Cache) SetProducts(ctx context.Context, page, limit int, products []domain.Product) error {
	return c.set(ctx, listKey(page, limit), products)
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	}()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get error: %w", err)
	}

	metrics.RecordCacheHit()

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}

	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any) error {
	start := time.Now()
	defer func() {
		metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	}()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

func listKey(page, limit int) string {
	if page <= 0 || limit <= 0 {
		return "products:all"
	}
	return fmt.Sprintf("products:page:%d:%d", page, limit)
}

// InitRedis creates a new Redis client
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Ping reports whether Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

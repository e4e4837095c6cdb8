package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewGuard stores each session's last activated product id in Redis.
// SET ... GET swaps in the new id and returns the previous one in a single
// step, so two parallel renders of the same page log at most once.
type ViewGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewGuard creates a guard that forgets idle sessions after ttl
func NewViewGuard(client *redis.Client, ttl time.Duration) *ViewGuard {
	return &ViewGuard{client: client, ttl: ttl}
}

// Activate records productID as the session's current product. It reports
// true unless productID was already the current one.
func (g *ViewGuard) Activate(ctx context.Context, sessionID, productID string) (bool, error) {
	key := fmt.Sprintf("viewguard:%s", sessionID)

	prev, err := g.client.SetArgs(ctx, key, productID, redis.SetArgs{TTL: g.ttl, Get: true}).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set error: %w", err)
	}

	return prev != productID, nil
}

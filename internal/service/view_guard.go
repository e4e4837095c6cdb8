package service

import (
	"context"
	"sync"
	"time"
)

// ViewGuard decides whether a detail-page activation should be logged.
// It remembers the last product each session activated: re-renders of that
// page are not counted again, and activating a different product resets it.
type ViewGuard interface {
	Activate(ctx context.Context, sessionID, productID string) (bool, error)
}

type activation struct {
	productID string
	expires   time.Time
}

// MemoryViewGuard is an in-process ViewGuard for single-instance deployments
// and tests.
type MemoryViewGuard struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]activation
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryViewGuard creates a guard that forgets idle sessions after ttl
func NewMemoryViewGuard(ttl time.Duration) *MemoryViewGuard {
	return &MemoryViewGuard{
		ttl:      ttl,
		sessions: make(map[string]activation),
		now:      time.Now,
	}
}

// Activate records productID as the session's current product. It reports
// true unless productID was already the current one.
func (g *MemoryViewGuard) Activate(_ context.Context, sessionID, productID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)

	prev, ok := g.sessions[sessionID]
	g.sessions[sessionID] = activation{productID: productID, expires: now.Add(g.ttl)}

	if ok && now.Before(prev.expires) && prev.productID == productID {
		return false, nil
	}
	return true, nil
}

// sweep drops idle sessions at most once per TTL.
func (g *MemoryViewGuard) sweep(now time.Time) {
	if now.Sub(g.lastSweep) < g.ttl {
		return
	}
	g.lastSweep = now

	for id, a := range g.sessions {
		if !now.Before(a.expires) {
			delete(g.sessions, id)
		}
	}
}

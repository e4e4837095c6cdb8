package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"product-views/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogsChannel is the NOTIFY channel fired by the logs table trigger.
const LogsChannel = "logs_changed"

// ChangeFeed turns Postgres LISTEN/NOTIFY into change signals.
// Every Listen call holds one pooled connection until its context ends.
type ChangeFeed struct {
	pool    *pgxpool.Pool
	channel string
	logger  *slog.Logger
}

var _ repository.ChangeNotifier = (*ChangeFeed)(nil)

// NewChangeFeed creates a change feed for the logs table
func NewChangeFeed(pool *pgxpool.Pool, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{pool: pool, channel: LogsChannel, logger: logger}
}

// Listen subscribes to the channel. Signals are coalesced: a burst of writes
// may produce a single value, which is enough for a full re-query.
func (f *ChangeFeed) Listen(ctx context.Context) (<-chan struct{}, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}

	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		defer f.release(conn)

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Warn("Change feed stopped", "channel", f.channel, "error", err)
				}
				return
			}

			f.logger.Debug("Logs changed", "product_id", notification.Payload)

			select {
			case signals <- struct{}{}:
			default:
			}
		}
	}()

	return signals, nil
}

// release returns the connection to the pool. A wait interrupted by context
// cancellation leaves the connection closed, and the pool discards it.
func (f *ChangeFeed) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{f.channel}.Sanitize())
	}
	conn.Release()
}

package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"product-views/internal/domain"
	"product-views/internal/metrics"
	"product-views/internal/repository"
)

// DefaultPollInterval is the consistency window when no notifier is available.
const DefaultPollInterval = 5 * time.Second

// LogLister is the read side of the log store used by the feed.
type LogLister interface {
	List(ctx context.Context, order domain.SortOrder) ([]domain.LogEntry, error)
}

// Snapshot is the full, ordered result set at one point in time.
type Snapshot struct {
	Entries    []domain.LogEntry
	TotalCount int64
	Order      domain.SortOrder
	At         time.Time
}

// NewSnapshot builds a snapshot and computes its total.
func NewSnapshot(entries []domain.LogEntry, order domain.SortOrder, at time.Time) Snapshot {
	return Snapshot{
		Entries:    entries,
		TotalCount: domain.TotalCount(entries),
		Order:      order,
		At:         at,
	}
}

// LogFeed is the live query over the log store. Each change notification
// triggers a full re-query; subscribers always receive whole snapshots.
// Without a notifier (or when it fails) the feed polls instead.
type LogFeed struct {
	logs         LogLister
	notifier     repository.ChangeNotifier
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewLogFeed creates a feed. notifier may be nil, in which case every
// subscription polls at pollInterval.
func NewLogFeed(logs LogLister, notifier repository.ChangeNotifier, pollInterval time.Duration, logger *slog.Logger) *LogFeed {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &LogFeed{
		logs:         logs,
		notifier:     notifier,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Subscription delivers snapshots until Close is called or its context ends.
// Slow readers only ever see the latest snapshot.
type Subscription struct {
	order   domain.SortOrder
	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Updates returns the snapshot channel. It is closed after teardown.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Order is the direction this subscription was opened with.
func (s *Subscription) Order() domain.SortOrder {
	return s.order
}

// Close stops the subscription and waits for the listener to release its
// connection.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe opens a live query ordered by count. The first snapshot is
// delivered immediately. The listener is registered before that first query,
// so a write committed in between still produces a refresh.
func (f *LogFeed) Subscribe(ctx context.Context, order domain.SortOrder) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	var signals <-chan struct{}
	if f.notifier != nil {
		var err error
		signals, err = f.notifier.Listen(ctx)
		if err != nil {
			f.logger.Warn("Live notifications unavailable, polling instead", "error", err, "interval", f.pollInterval)
			signals = nil
		}
	}

	first, err := f.fetch(ctx, order)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		order:   order,
		updates: make(chan Snapshot, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sub.updates <- first

	metrics.LiveSubscribers.Inc()
	go f.run(ctx, sub, signals, first)

	return sub, nil
}

func (f *LogFeed) run(ctx context.Context, sub *Subscription, signals <-chan struct{}, last Snapshot) {
	defer func() {
		metrics.LiveSubscribers.Dec()
		close(sub.updates)
		close(sub.done)
	}()

	var (
		ticker *time.Ticker
		ticks  <-chan time.Time
	)
	startPolling := func() {
		ticker = time.NewTicker(f.pollInterval)
		ticks = ticker.C
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	if signals == nil {
		startPolling()
	}

	for {
		polled := false
		select {
		case <-ctx.Done():
			return

		case _, ok := <-signals:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				f.logger.Warn("Live notifications lost, polling instead", "interval", f.pollInterval)
				signals = nil
				startPolling()
				continue
			}

		case <-ticks:
			polled = true
		}

		snap, err := f.fetch(ctx, sub.order)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Error("Failed to refresh live logs", "error", err)
			}
			continue
		}

		// A poll with no change is not an update.
		if polled && slices.Equal(snap.Entries, last.Entries) {
			continue
		}

		last = snap
		publish(sub.updates, snap)
	}
}

func (f *LogFeed) fetch(ctx context.Context, order domain.SortOrder) (Snapshot, error) {
	entries, err := f.logs.List(ctx, order)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(entries, order, time.Now()), nil
}

// publish replaces any unread snapshot with snap. The feed goroutine is the
// only sender, so the second send always has room.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- snap
}

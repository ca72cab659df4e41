// Package refresh keeps the review collection in sync with the remote API
// by periodic re-fetching.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/models"
)

// DefaultInterval is the automatic refresh cadence.
const DefaultInterval = 5 * time.Second

// ErrStopped is returned by Refresh after Stop.
var ErrStopped = errors.New("controller stopped")

// Fetcher returns the full current review collection.
type Fetcher interface {
	ListReviews(ctx context.Context) ([]*models.Review, error)
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Reviews   []*models.Review
	Loaded    bool // at least one fetch succeeded
	Fetching  bool // a fetch is in flight
	Err       error
	UpdatedAt time.Time
}

// Loading reports whether the first fetch is still outstanding.
func (s Snapshot) Loading() bool { return !s.Loaded && s.Fetching && s.Err == nil }

// Controller owns the last successfully fetched review collection.
//
// Fetches may overlap (the ticker is free-running and Refresh can be called
// at any time). Each fetch takes a sequence number when issued and its
// response is applied only if no newer fetch has been applied already.
type Controller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	reviews   []*models.Review
	loaded    bool
	err       error
	updatedAt time.Time
	inFlight  int
	issued    uint64
	applied   uint64
	started   bool
	stopped   bool
	cancel    context.CancelFunc

	wg      sync.WaitGroup
	updates chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a stopped controller.
func NewController(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  f,
		interval: DefaultInterval,
		logger:   logging.With("component", "refresh"),
		updates:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval returns the automatic refresh cadence.
func (c *Controller) Interval() time.Duration { return c.interval }

// Start fetches immediately and then on every interval tick until ctx is
// done or Stop is called. Calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)
}

func (c *Controller) loop(ctx context.Context) {
	defer c.wg.Done()

	c.spawnFetch(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.spawnFetch(ctx)
		}
	}
}

// spawnFetch runs a fetch without blocking the ticker on a slow request.
func (c *Controller) spawnFetch(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.fetch(ctx)
	}()
}

// Refresh fetches now, independent of the interval, and returns the fetch
// error (if any). The result is applied under the same staleness rule as
// automatic fetches.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.fetch(ctx)
}

func (c *Controller) fetch(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.issued++
	seq := c.issued
	c.inFlight++
	c.mu.Unlock()
	c.notify()

	reviews, err := c.fetcher.ListReviews(ctx)

	c.mu.Lock()
	c.inFlight--
	switch {
	case c.stopped:
		c.mu.Unlock()
		return err
	case seq <= c.applied:
		c.logger.Debug("discarding stale review response", "seq", seq, "applied", c.applied)
	case err != nil:
		c.applied = seq
		c.err = err
		c.logger.Warn("review refresh failed", "seq", seq, "error", err)
	default:
		c.applied = seq
		if reviews == nil {
			reviews = []*models.Review{}
		}
		c.reviews = reviews
		c.loaded = true
		c.err = nil
		c.updatedAt = time.Now()
		c.logger.Debug("reviews refreshed", "seq", seq, "count", len(reviews))
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// Snapshot returns the current state. The slice is a copy; the records are
// shared and must not be modified.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reviews []*models.Review
	if c.reviews != nil {
		reviews = make([]*models.Review, len(c.reviews))
		copy(reviews, c.reviews)
	}
	return Snapshot{
		Reviews:   reviews,
		Loaded:    c.loaded,
		Fetching:  c.inFlight > 0,
		Err:       c.err,
		UpdatedAt: c.updatedAt,
	}
}

// Updates signals state changes. Signals coalesce: one pending signal may
// stand for several changes.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Stop cancels the refresh loop and waits for its fetches to return.
// Responses arriving afterwards (including from Refresh) are dropped.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

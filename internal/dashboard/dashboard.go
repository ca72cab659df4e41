// Package dashboard composes the session guard, the review sync controller
// and the filter state into the view-model behind the dashboard screen.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/codeassure/internal/filter"
	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/models"
	"github.com/joescharf/codeassure/internal/refresh"
	"github.com/joescharf/codeassure/internal/session"
)

// DefaultRefetchDelay is how long after a manual review request the list is
// re-fetched, giving the backend time to record it.
const DefaultRefetchDelay = 3 * time.Second

// ErrNotMounted is returned by operations that need a mounted dashboard.
var ErrNotMounted = errors.New("dashboard not mounted")

// API is the backend surface the dashboard uses.
type API interface {
	refresh.Fetcher
	session.UserFetcher
	TriggerReview(ctx context.Context, repo string, pr int) (*models.ReviewAck, error)
}

// sessionFetcher sends no request once the session is gone.
type sessionFetcher struct {
	api     refresh.Fetcher
	session *session.Session
}

func (f sessionFetcher) ListReviews(ctx context.Context) ([]*models.Review, error) {
	if !f.session.IsAuthenticated() {
		return nil, session.ErrSessionInvalid
	}
	return f.api.ListReviews(ctx)
}

// Dashboard is one viewing session of the review list.
type Dashboard struct {
	api          API
	guard        *session.Guard
	refetchDelay time.Duration
	logger       *slog.Logger
	newCtrl      func() *refresh.Controller

	mu      sync.Mutex
	ctrl    *refresh.Controller
	filter  models.FilterState
	user    *models.User
	mounted bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Dashboard.
type Option func(*dashboardConfig)

type dashboardConfig struct {
	interval     time.Duration
	refetchDelay time.Duration
	logger       *slog.Logger
}

// WithInterval sets the automatic refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(c *dashboardConfig) { c.interval = d }
}

// WithRefetchDelay sets the delay before re-fetching after TriggerReview.
func WithRefetchDelay(d time.Duration) Option {
	return func(c *dashboardConfig) { c.refetchDelay = d }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *dashboardConfig) { c.logger = l }
}

// New builds an unmounted dashboard.
func New(api API, guard *session.Guard, opts ...Option) *Dashboard {
	cfg := dashboardConfig{
		interval:     refresh.DefaultInterval,
		refetchDelay: DefaultRefetchDelay,
		logger:       logging.With("component", "dashboard"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	newCtrl := func() *refresh.Controller {
		return refresh.NewController(sessionFetcher{api: api, session: guard.Session()}, refresh.WithInterval(cfg.interval), refresh.WithLogger(cfg.logger))
	}
	return &Dashboard{
		api:          api,
		guard:        guard,
		newCtrl:      newCtrl,
		ctrl:         newCtrl(),
		refetchDelay: cfg.refetchDelay,
		logger:       cfg.logger,
		filter:       models.FilterState{Severity: models.SeverityAll},
		done:         make(chan struct{}),
	}
}

// Mount admits the dashboard route, verifies the session against the
// backend and starts automatic refresh. A redirect decision means the
// caller must send the user to the returned route; the error then explains
// why. A rejected session also unmounts an already mounted dashboard: its
// refresh stops and the loaded reviews are dropped.
func (d *Dashboard) Mount(ctx context.Context) (session.Decision, error) {
	if dec := d.guard.Admit(session.RouteDashboard); !dec.Allow {
		d.unmount()
		return dec, session.ErrSessionInvalid
	}

	user, dec, err := d.guard.Verify(ctx, d.api)
	if err != nil {
		d.unmount()
		return dec, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return session.RedirectTo(session.RouteLogin), ErrNotMounted
	}
	d.user = user
	if !d.mounted {
		var runCtx context.Context
		runCtx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
		d.ctrl.Start(runCtx)
		d.mounted = true
	}
	d.logger.Info("dashboard mounted", "user", user.Username)
	return session.Allowed, nil
}

// unmount stops refresh and swaps in a fresh controller, so no request is
// sent without a session and no stale reviews remain visible.
func (d *Dashboard) unmount() {
	d.mu.Lock()
	if !d.mounted || d.closed {
		d.mu.Unlock()
		return
	}
	old, cancel := d.ctrl, d.cancel
	d.ctrl = d.newCtrl()
	d.cancel = nil
	d.user = nil
	d.mounted = false
	d.mu.Unlock()

	cancel()
	old.Stop()
	d.logger.Info("dashboard unmounted, session rejected")
}

func (d *Dashboard) controller() *refresh.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrl
}

// Mounted reports whether automatic refresh is running.
func (d *Dashboard) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

// User is the profile verified at mount.
func (d *Dashboard) User() *models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.user
}

// Snapshot is the raw controller state.
func (d *Dashboard) Snapshot() refresh.Snapshot { return d.controller().Snapshot() }

// Updates signals new controller state.
func (d *Dashboard) Updates() <-chan struct{} { return d.controller().Updates() }

// Filter returns the current filter state.
func (d *Dashboard) Filter() models.FilterState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

// SetSearch replaces the search text.
func (d *Dashboard) SetSearch(s string) {
	d.mu.Lock()
	d.filter.Search = s
	d.mu.Unlock()
}

// SetSeverity replaces the severity selector.
func (d *Dashboard) SetSeverity(f models.SeverityFilter) {
	d.mu.Lock()
	d.filter.Severity = f
	d.mu.Unlock()
}

// ClearFilters resets search and severity.
func (d *Dashboard) ClearFilters() {
	d.mu.Lock()
	d.filter = models.FilterState{Severity: models.SeverityAll}
	d.mu.Unlock()
}

// Visible is the current collection narrowed by the filter state.
func (d *Dashboard) Visible() []*models.Review {
	return filter.Apply(d.Snapshot().Reviews, d.Filter())
}

// Stats counts over the full collection, ignoring filters.
func (d *Dashboard) Stats() filter.Stats {
	return filter.Summarize(d.Snapshot().Reviews)
}

// Refresh re-fetches now. It needs a mounted dashboard.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	mounted, ctrl := d.mounted, d.ctrl
	d.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	return ctrl.Refresh(ctx)
}

// TriggerReview asks the backend to review a pull request and schedules a
// re-fetch after the refetch delay.
func (d *Dashboard) TriggerReview(ctx context.Context, repo string, pr int) (*models.ReviewAck, error) {
	ack, err := d.api.TriggerReview(ctx, repo, pr)
	if err != nil {
		return nil, fmt.Errorf("trigger review %s#%d: %w", repo, pr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.mounted {
		return ack, nil
	}
	d.wg.Add(1)
	go d.refetchAfter(d.refetchDelay)
	return ack, nil
}

func (d *Dashboard) refetchAfter(delay time.Duration) {
	defer d.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		err := d.Refresh(context.Background())
		if err != nil && !errors.Is(err, refresh.ErrStopped) && !errors.Is(err, ErrNotMounted) {
			d.logger.Warn("post-trigger refresh failed", "error", err)
		}
	case <-d.done:
	}
}

// Close stops automatic refresh and any pending re-fetch. A closed
// dashboard cannot be mounted again.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	cancel, ctrl := d.cancel, d.ctrl
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	ctrl.Stop()
	d.wg.Wait()
}

// Package embedding tracks repository embedding jobs started from this
// process and polls the backend until each one settles.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/models"
)

var (
	ErrUnknownJob = errors.New("no embedding job for repository")
	ErrClosed     = errors.New("tracker closed")
)

// API is the slice of the backend the tracker needs.
type API interface {
	EmbedRepository(ctx context.Context, repo string) (*models.EmbeddingAck, error)
	EmbeddingStatus(ctx context.Context, repo string) (*models.EmbeddingStatus, error)
}

type entry struct {
	job models.EmbeddingJob
	gen int // bumped on every (re)start; stale pollers compare against it
}

// Tracker owns the process-lifetime list of embedding jobs, keyed by repo.
type Tracker struct {
	api    API
	policy PollPolicy
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	closed  bool
	changed chan struct{}
	updates chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy sets the poll policy.
func WithPolicy(p PollPolicy) Option {
	return func(t *Tracker) { t.policy = p.normalized() }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates an empty tracker. Close releases its pollers.
func NewTracker(api API, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		api:     api,
		policy:  DefaultPollPolicy(),
		logger:  logging.With("component", "embedding"),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
		changed: make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start asks the backend to index repo. The job is reserved as processing
// before the request is sent and polled in the background once accepted; a
// rejected request restores the previous state. If repo already has a
// processing job, Start returns it with started=false and sends nothing. A
// terminal job is re-armed in place.
func (t *Tracker) Start(ctx context.Context, repo string) (models.EmbeddingJob, bool, error) {
	if err := models.ValidateRepo(repo); err != nil {
		return models.EmbeddingJob{}, false, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return models.EmbeddingJob{}, false, ErrClosed
	}
	e, existed := t.entries[repo]
	if existed && e.job.Status == models.JobStatusProcessing {
		job := e.job
		t.mu.Unlock()
		return job, false, nil
	}
	var prev models.EmbeddingJob
	if existed {
		prev = e.job
	} else {
		e = &entry{}
		t.entries[repo] = e
		t.order = append(t.order, repo)
	}
	now := t.now()
	e.gen++
	e.job = models.EmbeddingJob{
		ID:        ulid.Make().String(),
		Repo:      repo,
		Status:    models.JobStatusProcessing,
		StartedAt: now,
		UpdatedAt: now,
	}
	job, gen := e.job, e.gen
	t.mu.Unlock()

	_, err := t.api.EmbedRepository(ctx, repo)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil && t.closed {
		err = ErrClosed
	}
	if err != nil {
		if e.gen == gen {
			t.rollbackLocked(repo, e, existed, prev)
		}
		if errors.Is(err, ErrClosed) {
			return models.EmbeddingJob{}, false, err
		}
		return models.EmbeddingJob{}, false, fmt.Errorf("start embedding %s: %w", repo, err)
	}

	t.logger.Info("embedding started", "repo", repo, "job", job.ID)
	t.signalLocked()
	t.wg.Add(1)
	go t.poll(repo, gen)

	return job, true, nil
}

// rollbackLocked undoes a reservation made by Start. t.mu must be held.
func (t *Tracker) rollbackLocked(repo string, e *entry, existed bool, prev models.EmbeddingJob) {
	if existed {
		e.gen++
		e.job = prev
	} else {
		delete(t.entries, repo)
		for i, r := range t.order {
			if r == repo {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	t.signalLocked()
}

func (t *Tracker) poll(repo string, gen int) {
	defer t.wg.Done()

	var lastErr error
	for attempt := 0; attempt < t.policy.MaxAttempts; attempt++ {
		select {
		case <-t.ctx.Done():
			return
		case <-time.After(t.policy.Delay(attempt)):
		}

		st, err := t.api.EmbeddingStatus(t.ctx, repo)
		if err != nil && t.ctx.Err() != nil {
			return
		}

		t.mu.Lock()
		e := t.entries[repo]
		if e == nil || e.gen != gen || e.job.Status.Terminal() {
			t.mu.Unlock()
			return
		}
		e.job.Attempts++
		e.job.UpdatedAt = t.now()
		switch {
		case err != nil:
			lastErr = err
			e.job.Error = err.Error()
			t.logger.Warn("embedding status check failed", "repo", repo, "attempt", e.job.Attempts, "error", err)
		case st.Embedded:
			e.job.Status = models.JobStatusCompleted
			e.job.Vectors = st.Vectors
			e.job.Error = ""
			t.logger.Info("embedding completed", "repo", repo, "attempts", e.job.Attempts)
			t.signalLocked()
			t.mu.Unlock()
			return
		default:
			lastErr = nil
			e.job.Error = ""
			t.logger.Debug("embedding still processing", "repo", repo, "attempt", e.job.Attempts, "reason", st.Reason)
		}
		t.signalLocked()
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[repo]
	if e == nil || e.gen != gen || e.job.Status.Terminal() {
		return
	}
	e.job.Status = models.JobStatusFailed
	e.job.UpdatedAt = t.now()
	msg := fmt.Sprintf("not embedded after %d checks", e.job.Attempts)
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	e.job.Error = msg
	t.logger.Warn("embedding failed", "repo", repo, "error", msg)
	t.signalLocked()
}

// Check performs one immediate status check for repo's job and applies the
// result. It works for terminal jobs too, so a failed job that has since
// finished server-side can be marked completed.
func (t *Tracker) Check(ctx context.Context, repo string) (models.EmbeddingJob, error) {
	t.mu.Lock()
	e, ok := t.entries[repo]
	if !ok {
		t.mu.Unlock()
		return models.EmbeddingJob{}, fmt.Errorf("%w: %s", ErrUnknownJob, repo)
	}
	gen := e.gen
	t.mu.Unlock()

	st, err := t.api.EmbeddingStatus(ctx, repo)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		return e.job, fmt.Errorf("check embedding %s: %w", repo, err)
	}
	if e.gen == gen && st.Embedded && e.job.Status != models.JobStatusCompleted {
		e.job.Status = models.JobStatusCompleted
		e.job.Vectors = st.Vectors
		e.job.Error = ""
		e.job.UpdatedAt = t.now()
		t.signalLocked()
	}
	return e.job, nil
}

// Jobs returns every job in first-start order.
func (t *Tracker) Jobs() []models.EmbeddingJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.EmbeddingJob, 0, len(t.order))
	for _, repo := range t.order {
		out = append(out, t.entries[repo].job)
	}
	return out
}

// Job returns the job for repo.
func (t *Tracker) Job(repo string) (models.EmbeddingJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[repo]
	if !ok {
		return models.EmbeddingJob{}, false
	}
	return e.job, true
}

// Wait blocks until no job is processing, ctx is done, or the tracker closes.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return ErrClosed
		}
		pending := false
		for _, e := range t.entries {
			if e.job.Status == models.JobStatusProcessing {
				pending = true
				break
			}
		}
		ch := t.changed
		t.mu.Unlock()

		if !pending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Updates signals job changes. Signals coalesce.
func (t *Tracker) Updates() <-chan struct{} { return t.updates }

// signalLocked wakes Wait callers and the Updates consumer. t.mu must be held.
func (t *Tracker) signalLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
	select {
	case t.updates <- struct{}{}:
	default:
	}
}

// Close stops all pollers. Processing jobs stay processing.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.signalLocked()
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}

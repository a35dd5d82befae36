// Package jobstate holds the two-tier store for render job lifecycle: a
// low-latency in-memory map in front of the durable row, reconciled with
// monotonic-progress semantics.
package jobstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/storage"
)

// ErrJobNotFound is returned when an event references a job the engine has no
// record of, in memory or durable.
var ErrJobNotFound = errors.New("jobstate: job not found")

// TimeoutError is the standard error message written on a timeout event.
const TimeoutError = "render timed out before completion"

// JobStore is the slice of durable storage the job state store needs.
type JobStore interface {
	SaveRenderJob(ctx context.Context, job *core.RenderJob) error
	GetRenderJob(ctx context.Context, id string) (*core.RenderJob, error)
}

// entry is the in-memory tier for one job. Its mutex serializes the
// read-modify-write of concurrent callbacks for the same job; cross-job
// traffic proceeds fully in parallel.
type entry struct {
	mu            sync.Mutex
	job           core.RenderJob
	lastPersisted int // progress at the last durable write
}

// Store applies render events to tracked jobs. In-memory state is always
// updated immediately; durable writes are best-effort and bounded by a short
// timeout, so a slow or unavailable database never stalls the webhook
// response.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	durable     JobStore
	loads       singleflight.Group
	logger      *slog.Logger
	syncTimeout time.Duration
	retention   time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithSyncTimeout bounds each durable write issued during Apply.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Store) { s.syncTimeout = d }
}

// WithRetention sets how long terminal jobs stay in memory before eviction.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// NewStore creates a job state store over the given durable backing.
func NewStore(durable JobStore, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		durable:     durable,
		logger:      logger,
		syncTimeout: 3 * time.Second,
		retention:   30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track registers a freshly dispatched render as queued and persists the
// initial row best-effort. Tracking an already-known job is a no-op.
func (s *Store) Track(ctx context.Context, jobID string) core.RenderJob {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	if !ok {
		e = &entry{job: core.RenderJob{
			ID:        jobID,
			Status:    core.JobQueued,
			UpdatedAt: time.Now(),
		}}
		s.entries[jobID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !ok {
		s.persist(ctx, &e.job)
	}
	return e.job
}

// Get returns the current view of a job, preferring the in-memory tier.
func (s *Store) Get(ctx context.Context, jobID string) (core.RenderJob, error) {
	e, err := s.getOrLoad(ctx, jobID)
	if err != nil {
		return core.RenderJob{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// Apply reconciles one render event into the job's state and returns the
// resulting view. Terminal states are immutable: once a writer observes one,
// late-arriving events are dropped without mutation. Progress never
// decreases. Terminal transitions persist synchronously; intermediate
// progress persists only when crossing a 10%-multiple boundary relative to
// the last persisted value. A failed durable write is logged and does not
// alter the in-memory result.
func (s *Store) Apply(ctx context.Context, jobID string, ev core.RenderEvent) (core.RenderJob, error) {
	e, err := s.getOrLoad(ctx, jobID)
	if err != nil {
		return core.RenderJob{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		s.logger.Info("dropping event for terminal job",
			"job_id", jobID, "status", e.job.Status, "event", ev.Kind)
		return e.job, nil
	}

	changed := reconcile(&e.job, ev)
	if !changed {
		return e.job, nil
	}
	e.job.UpdatedAt = time.Now()

	if e.job.Status.IsTerminal() || e.job.Progress/10 > e.lastPersisted/10 {
		if s.persist(ctx, &e.job) {
			e.lastPersisted = e.job.Progress
		}
	}
	return e.job, nil
}

// reconcile mutates job according to the event and reports whether anything
// changed. Callers hold the entry lock and have already rejected terminal
// jobs.
func reconcile(job *core.RenderJob, ev core.RenderEvent) bool {
	changed := false

	if len(ev.Warnings) > 0 {
		job.Warnings = append(job.Warnings, ev.Warnings...)
		changed = true
	}

	switch ev.Kind {
	case core.RenderProgress:
		if job.Status != core.JobRendering {
			job.Status = core.JobRendering
			changed = true
		}
		// A lower progress value than currently stored is ignored, not written.
		if ev.Progress > job.Progress {
			job.Progress = ev.Progress
			changed = true
		}
		// All rendered frames are encoded but the output is not done yet:
		// the provider is muxing. Distinct from raw frame progress.
		finalizing := ev.EncodedFrames > 0 && ev.EncodedFrames == ev.RenderedFrames && job.Progress < 100
		if finalizing != job.IsFinalizing {
			job.IsFinalizing = finalizing
			changed = true
		}

	case core.RenderSuccess:
		job.Status = core.JobCompleted
		job.Progress = 100
		job.OutputURL = ev.OutputURL
		job.Error = ""
		job.IsFinalizing = false
		if ev.SizeBytes > 0 {
			job.OutputSizeBytes = ev.SizeBytes
		}
		changed = true

	case core.RenderError:
		job.Status = core.JobFailed
		job.Error = ev.Error
		if job.Error == "" {
			job.Error = "render failed"
		}
		job.IsFinalizing = false
		changed = true

	case core.RenderTimeout:
		job.Status = core.JobTimeout
		job.Error = TimeoutError
		job.IsFinalizing = false
		changed = true
	}

	return changed
}

// getOrLoad returns the in-memory entry for jobID, loading it from durable
// storage on miss. Concurrent loads for the same job collapse into a single
// durable read.
func (s *Store) getOrLoad(ctx context.Context, jobID string) (*entry, error) {
	s.mu.Lock()
	if e, ok := s.entries[jobID]; ok {
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	v, err, _ := s.loads.Do(jobID, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
		defer cancel()

		job, err := s.durable.GetRenderJob(loadCtx, jobID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrJobNotFound
			}
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.entries[jobID]; ok {
			return e, nil
		}
		e := &entry{job: *job, lastPersisted: job.Progress}
		s.entries[jobID] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// persist writes the job to durable storage, bounded by the sync timeout.
// Failure is logged and swallowed; the in-memory view remains the source of
// truth for the current request cycle.
func (s *Store) persist(ctx context.Context, job *core.RenderJob) bool {
	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
	defer cancel()

	if err := s.durable.SaveRenderJob(syncCtx, job); err != nil {
		s.logger.Error("durable sync failed, keeping in-memory state",
			"job_id", job.ID, "status", job.Status, "error", err)
		return false
	}
	return true
}

// StartEvictor sweeps terminal entries older than the retention window out of
// the in-memory tier until ctx is cancelled. Durable rows are unaffected.
func (s *Store) StartEvictor(ctx context.Context) {
	ticker := time.NewTicker(s.retention / 4)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now)
			}
		}
	}()
}

func (s *Store) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.mu.Lock()
		expired := e.job.Status.IsTerminal() && now.Sub(e.job.UpdatedAt) > s.retention
		e.mu.Unlock()
		if expired {
			delete(s.entries, id)
		}
	}
}

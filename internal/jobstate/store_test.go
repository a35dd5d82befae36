package jobstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/storage"
)

// fakeJobStore is an in-memory stand-in for the durable tier.
type fakeJobStore struct {
	mu      sync.Mutex
	rows    map[string]core.RenderJob
	saves   int
	saveErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{rows: make(map[string]core.RenderJob)}
}

func (f *fakeJobStore) SaveRenderJob(_ context.Context, job *core.RenderJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.rows[job.ID] = *job
	return nil
}

func (f *fakeJobStore) GetRenderJob(_ context.Context, id string) (*core.RenderJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &job, nil
}

func (f *fakeJobStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *fakeJobStore) {
	t.Helper()
	durable := newFakeJobStore()
	return NewStore(durable, testLogger()), durable
}

func progress(p int) core.RenderEvent {
	return core.RenderEvent{Kind: core.RenderProgress, Progress: p}
}

func TestApply_ProgressMonotonicity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	job, err := s.Apply(ctx, "r1", progress(40))
	require.NoError(t, err)
	assert.Equal(t, core.JobRendering, job.Status)
	assert.Equal(t, 40, job.Progress)

	// Out-of-order lower value is ignored, not written.
	job, err = s.Apply(ctx, "r1", progress(25))
	require.NoError(t, err)
	assert.Equal(t, 40, job.Progress)

	job, err = s.Apply(ctx, "r1", progress(73))
	require.NoError(t, err)
	assert.Equal(t, 73, job.Progress)
}

func TestApply_TerminalImmutability(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess, OutputURL: "https://cdn.example/r1.mp4"})
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "https://cdn.example/r1.mp4", job.OutputURL)

	// Any later event leaves status, progress, and error unchanged.
	for _, ev := range []core.RenderEvent{
		progress(10),
		{Kind: core.RenderError, Error: "late failure"},
		{Kind: core.RenderTimeout},
		{Kind: core.RenderProgress, Warnings: []core.RenderWarning{{Type: "late", Message: "ignored"}}},
	} {
		job, err = s.Apply(ctx, "r1", ev)
		require.NoError(t, err)
		assert.Equal(t, core.JobCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
		assert.Empty(t, job.Error)
		assert.Empty(t, job.Warnings)
	}
}

func TestApply_TimeoutIsTerminal(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderTimeout})
	require.NoError(t, err)
	assert.Equal(t, core.JobTimeout, job.Status)
	assert.Equal(t, TimeoutError, job.Error)

	job, err = s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess, OutputURL: "https://late"})
	require.NoError(t, err)
	assert.Equal(t, core.JobTimeout, job.Status)
	assert.Empty(t, job.OutputURL)
}

func TestApply_ErrorEvent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderError, Error: "out of memory"})
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.Equal(t, "out of memory", job.Error)
}

func TestApply_FinalizingSubPhase(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	// All rendered frames encoded while progress is below 100: muxing.
	job, err := s.Apply(ctx, "r1", core.RenderEvent{
		Kind: core.RenderProgress, Progress: 96, RenderedFrames: 1800, EncodedFrames: 1800,
	})
	require.NoError(t, err)
	assert.True(t, job.IsFinalizing)
	assert.Equal(t, core.JobRendering, job.Status)

	job, err = s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess, OutputURL: "https://done"})
	require.NoError(t, err)
	assert.False(t, job.IsFinalizing)
	assert.Equal(t, core.JobCompleted, job.Status)
}

func TestApply_DegradedSuccess(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	warns := []core.RenderWarning{{Type: "font-fallback", Message: "missing glyph", SourceRef: "scene-3"}}
	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess, OutputURL: "https://done", Warnings: warns})
	require.NoError(t, err)

	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, warns, job.Warnings)
	assert.True(t, job.DegradedSuccess())
}

func TestApply_WarningsAccumulateInOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	_, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderProgress, Progress: 10,
		Warnings: []core.RenderWarning{{Type: "a", Message: "first"}}})
	require.NoError(t, err)
	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderProgress, Progress: 20,
		Warnings: []core.RenderWarning{{Type: "b", Message: "second"}}})
	require.NoError(t, err)

	require.Len(t, job.Warnings, 2)
	assert.Equal(t, "first", job.Warnings[0].Message)
	assert.Equal(t, "second", job.Warnings[1].Message)
}

func TestApply_UnknownJob(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Apply(context.Background(), "ghost", progress(10))
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestApply_LoadsFromDurableOnMiss(t *testing.T) {
	durable := newFakeJobStore()
	durable.rows["r1"] = core.RenderJob{ID: "r1", Status: core.JobRendering, Progress: 30}

	s := NewStore(durable, testLogger())
	job, err := s.Apply(context.Background(), "r1", progress(42))
	require.NoError(t, err)
	assert.Equal(t, 42, job.Progress)
}

func TestApply_PersistsOnTenPercentBoundaries(t *testing.T) {
	s, durable := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")
	base := durable.saveCount() // Track persists the queued row.

	_, _ = s.Apply(ctx, "r1", progress(4)) // 0 -> 4: same decade, no write
	assert.Equal(t, base, durable.saveCount())

	_, _ = s.Apply(ctx, "r1", progress(12)) // crosses 10
	assert.Equal(t, base+1, durable.saveCount())

	_, _ = s.Apply(ctx, "r1", progress(19)) // still in the 10s
	assert.Equal(t, base+1, durable.saveCount())

	_, _ = s.Apply(ctx, "r1", progress(47)) // crosses 40
	assert.Equal(t, base+2, durable.saveCount())

	// Terminal transitions always persist.
	_, _ = s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess})
	assert.Equal(t, base+3, durable.saveCount())
	assert.Equal(t, core.JobCompleted, durable.rows["r1"].Status)
}

func TestApply_DurableSyncFailureKeepsMemoryState(t *testing.T) {
	s, durable := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")
	durable.saveErr = errors.New("database unavailable")

	job, err := s.Apply(ctx, "r1", core.RenderEvent{Kind: core.RenderSuccess, OutputURL: "https://done"})
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)

	// The in-memory view remains the source of truth.
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, got.Status)
	assert.Equal(t, "https://done", got.OutputURL)
}

func TestApply_ConcurrentProgressEvents(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Track(ctx, "r1")

	var wg sync.WaitGroup
	for p := 1; p <= 100; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_, _ = s.Apply(ctx, "r1", progress(p))
		}(p)
	}
	wg.Wait()

	job, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	// Final stored progress equals the maximum observed.
	assert.Equal(t, 100, job.Progress)
}

func TestTrack_IsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Track(ctx, "r1")
	_, err := s.Apply(ctx, "r1", progress(50))
	require.NoError(t, err)

	// Re-tracking must not reset a live job.
	job := s.Track(ctx, "r1")
	assert.Equal(t, 50, job.Progress)
}

func TestEvict_DropsOnlyExpiredTerminalEntries(t *testing.T) {
	durable := newFakeJobStore()
	s := NewStore(durable, testLogger(), WithRetention(time.Minute))
	ctx := context.Background()

	s.Track(ctx, "done")
	s.Track(ctx, "live")
	_, err := s.Apply(ctx, "done", core.RenderEvent{Kind: core.RenderSuccess})
	require.NoError(t, err)
	_, err = s.Apply(ctx, "live", progress(10))
	require.NoError(t, err)

	s.evict(time.Now().Add(2 * time.Minute))

	s.mu.Lock()
	_, doneInMemory := s.entries["done"]
	_, liveInMemory := s.entries["live"]
	s.mu.Unlock()

	assert.False(t, doneInMemory)
	assert.True(t, liveInMemory)

	// The durable row survives eviction.
	job, err := s.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// fakeIndexer blocks each run until release is closed or the context ends
type fakeIndexer struct {
	mu      sync.Mutex
	release chan struct{}
	started chan string
	err     error
	deleted []string
	force   []bool
	// onDelete runs inside DeleteIndex
	onDelete func()
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{release: make(chan struct{}), started: make(chan string, 10)}
}

func (f *fakeIndexer) IndexProject(ctx context.Context, _, projectID string, opts *indexer.Options) (*indexer.Statistics, error) {
	f.mu.Lock()
	f.force = append(f.force, opts.Force)
	f.mu.Unlock()

	opts.OnProgress(1, 2)
	f.started <- projectID

	select {
	case <-ctx.Done():
		return &indexer.Statistics{ProjectID: projectID, TotalFiles: 2}, ctx.Err()
	case <-f.release:
	}
	opts.OnProgress(2, 2)

	if f.err != nil {
		return nil, f.err
	}
	return &indexer.Statistics{
		ProjectID:     projectID,
		TotalFiles:    2,
		IndexedFiles:  1,
		FailedFiles:   1,
		TotalEntities: 5,
		Errors:        []string{"bad.py: syntax error"},
	}, nil
}

func (f *fakeIndexer) DeleteIndex(_ context.Context, projectID string) (*indexer.DeleteResult, error) {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, projectID)
	return &indexer.DeleteResult{ProjectID: projectID, VectorsDeleted: 5}, nil
}

func newTestRunner(t *testing.T, idx Indexer) *Runner {
	t.Helper()
	r := NewRunner(idx, NewTracker(), logging.NewDiscard(), 1)
	t.Cleanup(r.Shutdown)
	return r
}

func waitStarted(t *testing.T, f *fakeIndexer) string {
	t.Helper()
	select {
	case id := <-f.started:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("indexing run did not start")
		return ""
	}
}

func TestRunnerCompletes(t *testing.T) {
	f := newFakeIndexer()
	r := newTestRunner(t, f)

	job, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: "p1", Force: true})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)

	waitStarted(t, f)
	running, err := r.Tracker().Get("p1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, running.Status)
	assert.Equal(t, 0.5, running.Progress)

	close(f.release)
	r.Wait()

	done, err := r.Tracker().Get("p1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 1.0, done.Progress)
	assert.Equal(t, 2, done.TotalFiles)
	assert.Equal(t, 2, done.ProcessedFiles)
	assert.Equal(t, 1, done.IndexedFiles)
	assert.Equal(t, 5, done.TotalEntities)
	assert.Equal(t, []string{"bad.py: syntax error"}, done.Errors)
	assert.Empty(t, done.Error)
	assert.Equal(t, []bool{true}, f.force)
}

func TestRunnerGeneratesProjectID(t *testing.T) {
	f := newFakeIndexer()
	close(f.release)
	r := newTestRunner(t, f)

	job, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir()})
	require.NoError(t, err)
	_, err = uuid.Parse(job.ProjectID)
	assert.NoError(t, err)
	r.Wait()
}

func TestRunnerRejectsBadPath(t *testing.T) {
	r := newTestRunner(t, newFakeIndexer())

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: "/definitely/not/here"})
	assert.ErrorIs(t, err, types.ErrPathNotFound)
	_, err = r.Start(context.Background(), StartRequest{})
	assert.ErrorIs(t, err, types.ErrPathNotFound)
	assert.Empty(t, r.Tracker().List())
}

func TestRunnerRunningGuard(t *testing.T) {
	f := newFakeIndexer()
	r := newTestRunner(t, f)
	dir := t.TempDir()

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: dir, ProjectID: "p1"})
	require.NoError(t, err)
	waitStarted(t, f)

	_, err = r.Start(context.Background(), StartRequest{ProjectPath: dir, ProjectID: "p1"})
	assert.ErrorIs(t, err, types.ErrJobRunning)

	_, err = r.Delete(context.Background(), "p1")
	assert.ErrorIs(t, err, types.ErrJobRunning)
	assert.Empty(t, f.deleted)

	close(f.release)
	r.Wait()

	// A finished project can be indexed again
	_, err = r.Start(context.Background(), StartRequest{ProjectPath: dir, ProjectID: "p1"})
	require.NoError(t, err)
	r.Wait()
}

func TestRunnerCancel(t *testing.T) {
	f := newFakeIndexer()
	r := newTestRunner(t, f)

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: "p1"})
	require.NoError(t, err)
	waitStarted(t, f)

	require.NoError(t, r.Cancel("p1"))
	r.Wait()

	job, err := r.Tracker().Get("p1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "context canceled", job.Error)
	assert.Equal(t, 2, job.TotalFiles)

	assert.ErrorIs(t, r.Cancel("p1"), types.ErrInvalidTransition)
	assert.ErrorIs(t, r.Cancel("unknown"), types.ErrJobNotFound)
}

func TestRunnerFailure(t *testing.T) {
	f := newFakeIndexer()
	f.err = errors.New("disk full")
	close(f.release)
	r := newTestRunner(t, f)

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: "p1"})
	require.NoError(t, err)
	r.Wait()

	job, err := r.Tracker().Get("p1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "disk full", job.Error)
}

func TestRunnerDelete(t *testing.T) {
	f := newFakeIndexer()
	close(f.release)
	r := newTestRunner(t, f)

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: "p1"})
	require.NoError(t, err)
	r.Wait()

	res, err := r.Delete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, res.VectorsDeleted)
	assert.Equal(t, []string{"p1"}, f.deleted)

	_, err = r.Tracker().Get("p1")
	assert.ErrorIs(t, err, types.ErrJobNotFound)

	// Projects without a job record can still be deleted
	_, err = r.Delete(context.Background(), "never-tracked")
	assert.NoError(t, err)
}

func TestRunnerDeleteKeepsRestartedJob(t *testing.T) {
	f := newFakeIndexer()
	close(f.release)
	r := newTestRunner(t, f)

	_, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: "p1"})
	require.NoError(t, err)
	r.Wait()

	// A new run registers while the index is being deleted
	f.onDelete = func() {
		_, err := r.Tracker().Create("p1", "/src/p1")
		require.NoError(t, err)
	}

	_, err = r.Delete(context.Background(), "p1")
	require.NoError(t, err)

	job, err := r.Tracker().Get("p1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
}

func TestRunnerShutdown(t *testing.T) {
	f := newFakeIndexer()
	r := NewRunner(f, NewTracker(), logging.NewDiscard(), 1)

	for _, id := range []string{"a", "b"} {
		_, err := r.Start(context.Background(), StartRequest{ProjectPath: t.TempDir(), ProjectID: id})
		require.NoError(t, err)
	}
	waitStarted(t, f)
	waitStarted(t, f)

	r.Shutdown()
	for _, job := range r.Tracker().List() {
		assert.Equal(t, StatusFailed, job.Status)
	}
}

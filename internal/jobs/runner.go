package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Indexer is the pipeline the runner drives.
type Indexer interface {
	IndexProject(ctx context.Context, projectPath, projectID string, opts *indexer.Options) (*indexer.Statistics, error)
	DeleteIndex(ctx context.Context, projectID string) (*indexer.DeleteResult, error)
}

// StartRequest describes an indexing run.
type StartRequest struct {
	ProjectPath string
	ProjectID   string // Generated when empty
	Force       bool
}

// Runner executes indexing runs in background goroutines.
type Runner struct {
	indexer Indexer
	tracker *Tracker
	logger  *slog.Logger
	workers int

	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

// run is the handle of one live job
type run struct {
	cancel context.CancelFunc
}

// NewRunner creates a runner. workers is passed to every run; 0 lets the
// indexer choose.
func NewRunner(idx Indexer, tracker *Tracker, logger *slog.Logger, workers int) *Runner {
	base, stop := context.WithCancel(context.Background())
	return &Runner{
		indexer: idx,
		tracker: tracker,
		logger:  logger,
		workers: workers,
		base:    base,
		stop:    stop,
		running: make(map[string]*run),
	}
}

// Tracker returns the job tracker.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// Start validates the request, registers a pending job and runs it in the
// background. The run outlives ctx; use Cancel or Shutdown to stop it.
func (r *Runner) Start(ctx context.Context, req StartRequest) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := filepath.Abs(req.ProjectPath)
	if err != nil || req.ProjectPath == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrPathNotFound, req.ProjectPath)
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrPathNotFound, req.ProjectPath)
	}

	projectID := req.ProjectID
	if projectID == "" {
		projectID = uuid.NewString()
	}

	job, err := r.tracker.Create(projectID, path)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(r.base)
	h := &run{cancel: cancel}
	r.mu.Lock()
	r.running[projectID] = h
	r.mu.Unlock()

	r.wg.Add(1)
	go r.execute(runCtx, h, projectID, path, req.Force)

	r.logger.Info("indexing job started", "project_id", projectID, "path", path, "force", req.Force)
	return job, nil
}

func (r *Runner) execute(ctx context.Context, h *run, projectID, path string, force bool) {
	defer r.wg.Done()
	defer func() {
		h.cancel()
		r.mu.Lock()
		// A newer run for the same project may already be registered
		if r.running[projectID] == h {
			delete(r.running, projectID)
		}
		r.mu.Unlock()
	}()

	if _, err := r.tracker.Transition(projectID, StatusRunning, nil); err != nil {
		r.logger.Error("failed to start job", "project_id", projectID, "error", err)
		return
	}

	stats, err := r.indexer.IndexProject(ctx, path, projectID, &indexer.Options{
		Force:   force,
		Workers: r.workers,
		OnProgress: func(processed, total int) {
			_ = r.tracker.UpdateProgress(projectID, processed, total)
		},
	})

	if err != nil {
		r.logger.Warn("indexing job failed", "project_id", projectID, "error", err)
		_, _ = r.tracker.Transition(projectID, StatusFailed, func(j *Job) {
			j.ApplyStatistics(stats)
			j.Error = err.Error()
		})
		return
	}

	job, err := r.tracker.Transition(projectID, StatusCompleted, func(j *Job) {
		j.ApplyStatistics(stats)
	})
	if err != nil {
		r.logger.Error("failed to complete job", "project_id", projectID, "error", err)
		return
	}
	r.logger.Info("indexing job completed",
		"project_id", projectID,
		"indexed_files", job.IndexedFiles,
		"failed_files", job.FailedFiles,
		"duration", job.Duration())
}

// Cancel stops a live job. The job ends failed with "context canceled".
func (r *Runner) Cancel(projectID string) error {
	r.mu.Lock()
	h, ok := r.running[projectID]
	r.mu.Unlock()

	if !ok {
		if _, err := r.tracker.Get(projectID); err != nil {
			return err
		}
		return fmt.Errorf("%w: job %s is not running", types.ErrInvalidTransition, projectID)
	}

	r.logger.Info("cancelling indexing job", "project_id", projectID)
	h.cancel()
	return nil
}

// Delete removes a project's index and its job record. Live jobs are refused.
func (r *Runner) Delete(ctx context.Context, projectID string) (*indexer.DeleteResult, error) {
	job, err := r.tracker.Get(projectID)
	if err == nil && !job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", types.ErrJobRunning, projectID)
	}

	result, err := r.indexer.DeleteIndex(ctx, projectID)
	if err != nil {
		return result, err
	}

	// A run started after the check above keeps its record
	err = r.tracker.DeleteIfTerminal(projectID)
	switch {
	case err == nil, errors.Is(err, types.ErrJobNotFound):
	case errors.Is(err, types.ErrJobRunning):
		r.logger.Warn("job restarted during delete, keeping its record", "project_id", projectID)
	default:
		return result, err
	}
	return result, nil
}

// Wait blocks until all background jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels all jobs and waits for them.
func (r *Runner) Shutdown() {
	r.stop()
	r.wg.Wait()
}

package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Tracker owns the job records. Safe for concurrent use; every returned Job
// is a copy.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Job)}
}

// Create registers a pending job. A terminal record for the same project is
// replaced; a live one makes Create fail with types.ErrJobRunning.
func (t *Tracker) Create(projectID, projectPath string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.jobs[projectID]; ok && !existing.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", types.ErrJobRunning, projectID)
	}

	job := &Job{
		ProjectID:   projectID,
		ProjectPath: projectPath,
		Status:      StatusPending,
		Errors:      []string{},
		StartedAt:   time.Now().UTC(),
	}
	t.jobs[projectID] = job
	return job.clone(), nil
}

// Transition moves a job to status and applies mutate under the lock.
// Reaching a terminal status sets CompletedAt; completion sets progress to 1.
// ProcessedFiles is left to mutate, so undecodable files never count.
func (t *Tracker) Transition(projectID string, status Status, mutate func(*Job)) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, projectID)
	}
	if !canTransition(job.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	if mutate != nil {
		mutate(job)
	}
	if status.IsTerminal() {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	switch status {
	case StatusCompleted:
		job.Progress = 1
		job.Error = ""
	case StatusFailed:
		if job.Error == "" {
			job.Error = "indexing failed"
		}
	default:
		job.Error = ""
	}
	return job.clone(), nil
}

// UpdateProgress records processed of total files for a running job.
func (t *Tracker) UpdateProgress(projectID string, processed, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[projectID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrJobNotFound, projectID)
	}
	if job.Status != StatusRunning {
		return fmt.Errorf("%w: progress on %s job", types.ErrInvalidTransition, job.Status)
	}

	job.TotalFiles = total
	job.ProcessedFiles = processed
	if total > 0 {
		job.Progress = min(float64(processed)/float64(total), 1)
	}
	return nil
}

// Get returns a copy of the project's job.
func (t *Tracker) Get(projectID string) (*Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, projectID)
	}
	return job.clone(), nil
}

// List returns copies of all jobs, oldest first.
func (t *Tracker) List() []*Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, job.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// DeleteIfTerminal forgets a project's job only if it has finished. A live
// job is kept and types.ErrJobRunning returned.
func (t *Tracker) DeleteIfTerminal(projectID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[projectID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrJobNotFound, projectID)
	}
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", types.ErrJobRunning, projectID)
	}
	delete(t.jobs, projectID)
	return nil
}

// Package jobs tracks background indexing runs, one live record per project.
package jobs

import (
	"slices"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal returns true if no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition allows only pending -> running -> completed|failed, plus
// pending -> failed for runs that never started.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job is the status record of one project's indexing run.
type Job struct {
	ProjectID      string     `json:"project_id"`
	ProjectPath    string     `json:"project_path"`
	Status         Status     `json:"status"`
	Progress       float64    `json:"progress"` // 0-1
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	IndexedFiles   int        `json:"indexed_files"`
	SkippedFiles   int        `json:"skipped_files"`
	FailedFiles    int        `json:"failed_files"`
	IgnoredFiles   int        `json:"ignored_files"`
	TotalEntities  int        `json:"total_entities"`
	Errors         []string   `json:"errors"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Duration returns how long the job took (or has been running).
func (j *Job) Duration() time.Duration {
	end := time.Now().UTC()
	if j.CompletedAt != nil {
		end = *j.CompletedAt
	}
	return end.Sub(j.StartedAt)
}

// ApplyStatistics copies the counters of a finished run into the job.
func (j *Job) ApplyStatistics(stats *indexer.Statistics) {
	if stats == nil {
		return
	}
	j.TotalFiles = stats.TotalFiles
	j.IndexedFiles = stats.IndexedFiles
	j.SkippedFiles = stats.SkippedFiles
	j.FailedFiles = stats.FailedFiles
	j.IgnoredFiles = stats.IgnoredFiles
	j.ProcessedFiles = stats.ProcessedFiles()
	j.TotalEntities = stats.TotalEntities
	j.Errors = slices.Clone(stats.Errors)
}

func (j *Job) clone() *Job {
	c := *j
	c.Errors = slices.Clone(j.Errors)
	if c.Errors == nil {
		c.Errors = []string{}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

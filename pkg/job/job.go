// Package job defines the execution model for a run: immutable Jobs
// built from validated worktrees, the Results workers emit for them,
// and the Plan that batches jobs for the scheduler.
package job

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"par/pkg/worktree"
)

// Job pairs one worktree with the instruction text to run in it. Once
// the scheduler hands a Job to a worker that worker is its sole owner;
// every field is read-only except the start and completion stamps,
// each set at most once.
type Job struct {
	ID              string
	Worktree        worktree.Worktree
	InstructionName string
	InstructionText string
	Variables       map[string]string
	Timeout         time.Duration
	CreatedAt       time.Time

	startedAt   time.Time
	completedAt time.Time
}

// New builds a Job with a fresh unique ID and CreatedAt set to now.
// The variables map is copied so later caller mutation cannot leak in.
func New(wt worktree.Worktree, instructionText, instructionName string, timeout time.Duration, variables map[string]string) *Job {
	return &Job{
		ID:              uuid.NewString(),
		Worktree:        wt,
		InstructionName: instructionName,
		InstructionText: instructionText,
		Variables:       maps.Clone(variables),
		Timeout:         timeout,
		CreatedAt:       time.Now(),
	}
}

// Start stamps the moment the owning worker began executing the job.
func (j *Job) Start() {
	j.startedAt = time.Now()
}

// Complete stamps the moment the job reached a terminal state.
func (j *Job) Complete() {
	j.completedAt = time.Now()
}

// Duration returns the completed span, the elapsed time so far for a
// started-but-unfinished job, or zero when the job never started.
func (j *Job) Duration() time.Duration {
	if j.startedAt.IsZero() {
		return 0
	}
	if j.completedAt.IsZero() {
		return time.Since(j.startedAt)
	}
	return j.completedAt.Sub(j.startedAt)
}

// StartedAt returns the start stamp, zero if the job never started.
func (j *Job) StartedAt() time.Time { return j.startedAt }

// CompletedAt returns the completion stamp, zero while running.
func (j *Job) CompletedAt() time.Time { return j.completedAt }

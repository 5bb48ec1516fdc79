package job

import "time"

// Status is a job's position in its lifecycle. Transitions are one
// way: pending, running, then exactly one of the four terminal states.
type Status string

// Job status constants.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}

// Result is the immutable record a worker emits after running one Job.
// Exactly one Result is produced per Job; nothing mutates a Result
// after the worker sends it.
type Result struct {
	JobID         string        `json:"job_id"`
	WorktreeLabel string        `json:"worktree"`
	Status        Status        `json:"status"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	Output        string        `json:"output"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	ExitCode      int           `json:"exit_code"`
}

// Failed reports whether the result is a terminal non-success. Pending
// and running results are not failures.
func (r Result) Failed() bool {
	return r.Status.Terminal() && r.Status != StatusSuccess
}

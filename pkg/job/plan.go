package job

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Plan is the batch of jobs built for one engine invocation. It is a
// read-only input to the scheduler; an empty plan is legal and yields
// an empty summary.
type Plan struct {
	ID              string
	InstructionName string
	Jobs            []*Job
	TotalJobs       int
	MaxWorkers      int
	Timeout         time.Duration
	DryRun          bool
	CreatedAt       time.Time
}

// NewPlan assembles a Plan over the given jobs with a fresh ID.
func NewPlan(jobs []*Job, instructionName string, maxWorkers int, timeout time.Duration, dryRun bool) *Plan {
	return &Plan{
		ID:              uuid.NewString(),
		InstructionName: instructionName,
		Jobs:            jobs,
		TotalJobs:       len(jobs),
		MaxWorkers:      maxWorkers,
		Timeout:         timeout,
		DryRun:          dryRun,
		CreatedAt:       time.Now(),
	}
}

// Validate checks the plan's internal consistency before scheduling.
func (p *Plan) Validate() error {
	if p.MaxWorkers < 1 {
		return fmt.Errorf("plan %s: max workers must be at least 1, got %d", p.ID, p.MaxWorkers)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("plan %s: timeout must be positive, got %s", p.ID, p.Timeout)
	}
	if p.TotalJobs != len(p.Jobs) {
		return fmt.Errorf("plan %s: total jobs %d does not match job list length %d", p.ID, p.TotalJobs, len(p.Jobs))
	}

	seen := make(map[string]struct{}, len(p.Jobs))
	for i, j := range p.Jobs {
		if j == nil {
			return fmt.Errorf("plan %s: job %d is nil", p.ID, i)
		}
		if _, dup := seen[j.ID]; dup {
			return fmt.Errorf("plan %s: duplicate job id %s", p.ID, j.ID)
		}
		seen[j.ID] = struct{}{}
	}
	return nil
}

package executor

import (
	"context"
	"sync"
	"time"

	"par/pkg/job"
)

// DefaultWorkers is the worker count used when the config leaves it
// unset.
const DefaultWorkers = 3

// Config controls pool concurrency. Zero values are filled in by
// withDefaults, so an empty Config is usable.
type Config struct {
	// Workers is the number of concurrent jobs. Defaults to
	// DefaultWorkers.
	Workers int
	// QueueDepth is the job queue buffer. Defaults to twice the
	// worker count, enough to keep workers fed without unbounded
	// submission.
	QueueDepth int
	// Sequential disables concurrency and runs jobs one at a time in
	// submission order.
	Sequential bool
	// OnResult, when set, is called from the collecting goroutine as
	// each result arrives. Used for progress reporting.
	OnResult func(job.Result)
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.QueueDepth < 1 {
		c.QueueDepth = c.Workers * 2
	}
	return c
}

// Pool executes an execution plan's jobs across a fixed set of
// workers. For a plan of N jobs it always returns exactly N results,
// one per job, in completion order. Workers drain the queue even after
// cancellation, emitting cancelled results instead of running the
// agent, so no job is ever left unaccounted for.
type Pool struct {
	cfg    Config
	runner Runner
}

// NewPool builds a Pool that executes jobs through runner.
func NewPool(runner Runner, cfg Config) *Pool {
	return &Pool{cfg: cfg.withDefaults(), runner: runner}
}

// Execute runs every job in the plan and returns one result per job.
// Result order is completion order, not submission order. Cancelling
// ctx stops new agent invocations; jobs already running are killed by
// their own invocation contexts and classified as cancelled.
func (p *Pool) Execute(ctx context.Context, plan *job.Plan) ([]job.Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.TotalJobs == 0 {
		return []job.Result{}, nil
	}
	if p.cfg.Sequential {
		return p.executeSequential(ctx, plan), nil
	}

	workers := p.cfg.Workers
	if workers > plan.TotalJobs {
		workers = plan.TotalJobs
	}

	jobQueue := make(chan *job.Job, p.cfg.QueueDepth)
	results := make(chan job.Result, p.cfg.QueueDepth)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobQueue {
				if ctx.Err() != nil {
					results <- cancelledResult(jb)
					continue
				}
				results <- p.runner.Execute(ctx, jb)
			}
		}()
	}

	// Workers drain the queue unconditionally, so the producer's
	// sends always complete and the queue always closes.
	go func() {
		defer close(jobQueue)
		for _, jb := range plan.Jobs {
			jobQueue <- jb
		}
	}()

	collected := make([]job.Result, 0, plan.TotalJobs)
	for range plan.TotalJobs {
		r := <-results
		if p.cfg.OnResult != nil {
			p.cfg.OnResult(r)
		}
		collected = append(collected, r)
	}
	wg.Wait()
	return collected, nil
}

// executeSequential runs jobs one at a time in submission order. Jobs
// after a cancellation still get results, all cancelled.
func (p *Pool) executeSequential(ctx context.Context, plan *job.Plan) []job.Result {
	collected := make([]job.Result, 0, plan.TotalJobs)
	for _, jb := range plan.Jobs {
		var r job.Result
		if ctx.Err() != nil {
			r = cancelledResult(jb)
		} else {
			r = p.runner.Execute(ctx, jb)
		}
		if p.cfg.OnResult != nil {
			p.cfg.OnResult(r)
		}
		collected = append(collected, r)
	}
	return collected
}

// cancelledResult accounts for a job the pool never started because
// the run was already cancelled.
func cancelledResult(jb *job.Job) job.Result {
	now := time.Now()
	return job.Result{
		JobID:         jb.ID,
		WorktreeLabel: jb.Worktree.Label(),
		Status:        job.StatusCancelled,
		StartTime:     now,
		EndTime:       now,
		ErrorMessage:  "cancelled before start",
		ExitCode:      SentinelExitCode,
	}
}

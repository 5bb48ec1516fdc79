// Package executor runs the external coding agent against worktrees:
// one Agent invocation per job, scheduled across a bounded worker
// pool that always yields exactly one result per submitted job.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"par/pkg/job"
)

// SentinelExitCode marks results whose process produced no meaningful
// exit status (timeout, cancellation, spawn failure).
const SentinelExitCode = -1

// Runner executes a single job and reports its terminal result. The
// pool depends on this interface; Agent is the production
// implementation and tests provide fakes.
type Runner interface {
	Execute(ctx context.Context, j *job.Job) job.Result
}

// Agent invokes the configured coding-agent executable. The agent runs
// in the job's worktree directory in non-interactive print mode, with
// the instruction text supplied on stdin.
type Agent struct {
	binaryPath  string
	defaultArgs []string
	spawner     Spawner
}

// NewAgent builds an Agent around the given binary and extra argv
// flags. A nil spawner means real subprocesses.
func NewAgent(binaryPath string, defaultArgs []string, spawner Spawner) *Agent {
	if spawner == nil {
		spawner = &ExecSpawner{}
	}
	return &Agent{binaryPath: binaryPath, defaultArgs: defaultArgs, spawner: spawner}
}

// Execute runs the agent for one job and classifies the outcome.
// Every path returns a terminal Result; errors are folded into the
// result rather than returned. Timeout wins over cancellation when the
// deadline and a parent cancel land together.
func (a *Agent) Execute(ctx context.Context, j *job.Job) job.Result {
	j.Start()

	timeoutCtx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	spec := Spec{
		Binary: a.binaryPath,
		Args:   append([]string{"--print"}, a.defaultArgs...),
		Dir:    j.Worktree.Path,
		Stdin:  j.InstructionText,
	}

	proc, err := a.spawner.Spawn(timeoutCtx, spec)
	if err != nil {
		j.Complete()
		return job.Result{
			JobID:         j.ID,
			WorktreeLabel: j.Worktree.Label(),
			Status:        job.StatusFailed,
			StartTime:     j.StartedAt(),
			EndTime:       j.CompletedAt(),
			Duration:      j.Duration(),
			ErrorMessage:  fmt.Sprintf("failed to start agent: %v", err),
			ExitCode:      SentinelExitCode,
		}
	}

	waitErr := proc.Wait()
	j.Complete()

	res := job.Result{
		JobID:         j.ID,
		WorktreeLabel: j.Worktree.Label(),
		StartTime:     j.StartedAt(),
		EndTime:       j.CompletedAt(),
		Duration:      j.Duration(),
		Output:        string(proc.Output()),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.Status = job.StatusSuccess

	case errors.Is(timeoutCtx.Err(), context.DeadlineExceeded):
		res.Status = job.StatusTimeout
		res.ExitCode = SentinelExitCode
		res.ErrorMessage = fmt.Sprintf("timed out after %s", j.Timeout)

	case ctx.Err() != nil:
		res.Status = job.StatusCancelled
		res.ExitCode = SentinelExitCode
		res.ErrorMessage = "cancelled before completion"

	case errors.As(waitErr, &exitErr):
		res.Status = job.StatusFailed
		res.ExitCode = exitErr.ExitCode()
		res.ErrorMessage = fmt.Sprintf("agent exited with code %d", exitErr.ExitCode())

	default:
		res.Status = job.StatusFailed
		res.ExitCode = SentinelExitCode
		res.ErrorMessage = waitErr.Error()
	}
	return res
}

// probeTimeout bounds the preflight version check.
const probeTimeout = 10 * time.Second

// ErrAgentUnavailable is returned by Preflight when the agent binary
// cannot be found or does not answer a version probe. Setup errors are
// fatal; no job is scheduled after one.
var ErrAgentUnavailable = errors.New("agent executable unavailable")

// Preflight verifies the agent binary exists on PATH (or at its
// configured location) and responds to --version within a short
// deadline. Run it once per run, before building the plan.
func (a *Agent) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath(a.binaryPath); err != nil {
		return fmt.Errorf("%w: %s not found: %v", ErrAgentUnavailable, a.binaryPath, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	proc, err := a.spawner.Spawn(probeCtx, Spec{Binary: a.binaryPath, Args: []string{"--version"}})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAgentUnavailable, a.binaryPath, err)
	}
	if err := proc.Wait(); err != nil {
		return fmt.Errorf("%w: %s --version failed: %v", ErrAgentUnavailable, a.binaryPath, err)
	}
	return nil
}

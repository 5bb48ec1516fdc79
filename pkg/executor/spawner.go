package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// killGrace is how long Kill waits after SIGTERM before escalating to
// SIGKILL on the process group.
const killGrace = 3 * time.Second

// Spec describes one agent invocation: the argv to run, the worktree
// to run it in, and the instruction text fed on stdin.
type Spec struct {
	Binary string
	Args   []string
	Dir    string
	Stdin  string
}

// Process abstracts a running agent invocation.
type Process interface {
	// Wait blocks until the process exits and returns its exit error,
	// nil on a zero exit. Call at most once.
	Wait() error
	// Kill terminates the whole process group: SIGTERM, a short grace
	// period, then SIGKILL.
	Kill() error
	// Output returns the combined stdout and stderr captured so far.
	// Only stable after Wait has returned.
	Output() []byte
}

// Spawner abstracts agent process creation for testing. The production
// implementation is ExecSpawner; tests provide a fake.
type Spawner interface {
	Spawn(ctx context.Context, spec Spec) (Process, error)
}

// ExecSpawner starts real subprocesses. Each child gets its own
// process group (Setpgid) so a timeout or cancellation kills the
// entire tree, not just the immediate child.
type ExecSpawner struct{}

// Spawn starts the process described by spec. A watchdog goroutine
// kills the process group when ctx is done before the process exits.
func (s *ExecSpawner) Spawn(ctx context.Context, spec Spec) (Process, error) {
	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec // argv comes from validated config
	cmd.Dir = spec.Dir
	cmd.Stdin = strings.NewReader(spec.Stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Same writer for both streams; os/exec serializes onto one pipe.
	buf := &bytes.Buffer{}
	cmd.Stdout = buf
	cmd.Stderr = buf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Binary, err)
	}

	p := &execProcess{cmd: cmd, buf: buf, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Kill()
		case <-p.done:
		}
	}()
	return p, nil
}

// execProcess wraps an exec.Cmd with process-group termination.
type execProcess struct {
	cmd  *exec.Cmd
	buf  *bytes.Buffer
	done chan struct{}

	waitOnce sync.Once
	waitErr  error
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		close(p.done)
	})
	return p.waitErr
}

// Kill sends SIGTERM to the process group, waits up to killGrace for
// the process to exit, then sends SIGKILL. Safe to call after exit.
func (p *execProcess) Kill() error {
	pgid := p.cmd.Process.Pid
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		// Process group already gone; force-kill the child as a
		// best-effort fallback.
		_ = p.cmd.Process.Kill()
		return nil //nolint:nilerr // SIGTERM failure means the process already exited
	}

	select {
	case <-p.done:
	case <-time.After(killGrace):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return nil
}

func (p *execProcess) Output() []byte {
	return p.buf.Bytes()
}

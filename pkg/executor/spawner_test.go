package executor //nolint:testpackage // shares fakes with the other test files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// TestExecSpawner_CapturesCombinedOutput verifies that stdout and
// stderr are interleaved into one captured stream.
func TestExecSpawner_CapturesCombinedOutput(t *testing.T) {
	s := &ExecSpawner{}
	proc, err := s.Spawn(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "echo to-stdout; echo to-stderr 1>&2"},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	out := string(proc.Output())
	if !strings.Contains(out, "to-stdout") || !strings.Contains(out, "to-stderr") {
		t.Errorf("combined output missing a stream: %q", out)
	}
}

// TestExecSpawner_StdinFeedsProcess verifies that the spec's Stdin
// text reaches the child's standard input.
func TestExecSpawner_StdinFeedsProcess(t *testing.T) {
	s := &ExecSpawner{}
	proc, err := s.Spawn(context.Background(), Spec{Binary: "cat", Stdin: "instruction text"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := string(proc.Output()); got != "instruction text" {
		t.Errorf("stdin roundtrip: got %q", got)
	}
}

// TestExecSpawner_RunsInDir verifies that the child runs in the spec's
// working directory.
func TestExecSpawner_RunsInDir(t *testing.T) {
	dir := t.TempDir()
	s := &ExecSpawner{}
	proc, err := s.Spawn(context.Background(), Spec{Binary: "sh", Args: []string{"-c", "pwd"}, Dir: dir})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if got := strings.TrimSpace(string(proc.Output())); got != want {
		t.Errorf("working dir: got %q, want %q", got, want)
	}
}

// TestExecSpawner_NonZeroExit verifies that Wait surfaces the child's
// exit code as an ExitError.
func TestExecSpawner_NonZeroExit(t *testing.T) {
	s := &ExecSpawner{}
	proc, err := s.Spawn(context.Background(), Spec{Binary: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	waitErr := proc.Wait()
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		t.Fatalf("expected ExitError, got %v", waitErr)
	}
	if exitErr.ExitCode() != 3 {
		t.Errorf("exit code: got %d, want 3", exitErr.ExitCode())
	}
}

// TestExecSpawner_ContextDeadlineKillsProcessGroup verifies that an
// expired context terminates the whole process tree, not just the
// shell. The shell spawns a background sleep, so without a group kill
// the sleep would outlive it.
func TestExecSpawner_ContextDeadlineKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	s := &ExecSpawner{}
	proc, err := s.Spawn(ctx, Spec{Binary: "sh", Args: []string{"-c", "sleep 30 & wait"}})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	parentPID := proc.(*execProcess).cmd.Process.Pid

	// Give the shell time to spawn its child, then find it.
	time.Sleep(200 * time.Millisecond)
	out, pgrepErr := exec.Command("pgrep", "-P", fmt.Sprintf("%d", parentPID)).Output() //nolint:gosec // PID from our own subprocess
	if pgrepErr != nil {
		t.Fatalf("pgrep failed (no child of PID %d): %v", parentPID, pgrepErr)
	}
	var childPID int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%d", &childPID); err != nil {
		t.Fatalf("parse child PID from %q: %v", out, err)
	}

	start := time.Now()
	if waitErr := proc.Wait(); waitErr == nil {
		t.Error("expected non-nil Wait error after deadline kill")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Wait took %s after deadline, kill did not land", elapsed)
	}

	// Give the group kill time to land, then probe the grandchild.
	time.Sleep(200 * time.Millisecond)
	p, _ := os.FindProcess(childPID)
	if err := p.Signal(syscall.Signal(0)); err == nil {
		t.Errorf("child %d still alive after group kill", childPID)
	}
}

// TestExecSpawner_KillAfterExitIsSafe verifies that killing an already
// exited process is a no-op.
func TestExecSpawner_KillAfterExitIsSafe(t *testing.T) {
	s := &ExecSpawner{}
	proc, err := s.Spawn(context.Background(), Spec{Binary: "true"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := proc.Kill(); err != nil {
		t.Errorf("Kill after exit: %v", err)
	}
}

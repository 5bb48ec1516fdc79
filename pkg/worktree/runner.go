package worktree

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts git command execution for testability.
// Production implementation uses os/exec; tests provide a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner implements CommandRunner using os/exec.
type ExecCommandRunner struct{}

// Run executes a command and returns its stdout as bytes.
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// gitStatus runs `git status --porcelain` in dir and returns the raw
// porcelain lines.
func gitStatus(ctx context.Context, runner CommandRunner, dir string) ([]string, error) {
	out, err := runner.Run(ctx, "git", "-C", dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status in %s: %w", dir, err)
	}
	trimmed := strings.TrimRight(string(out), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// gitRemoteURL returns the origin remote URL for dir, or "" when the
// repository has no origin remote or git fails.
func gitRemoteURL(ctx context.Context, runner CommandRunner, dir string) string {
	out, err := runner.Run(ctx, "git", "-C", dir, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

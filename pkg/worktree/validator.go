package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// minDiskSpace is the free-space threshold below which validation
// attaches a warning.
const minDiskSpace = 1 << 30 // 1 GiB

// ValidationResult is the outcome of validating one worktree. Errors
// invalidate; warnings are advisory and leave the worktree usable.
type ValidationResult struct {
	Worktree *Worktree
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Validator inspects discovered worktrees before jobs are built from
// them. In strict mode uncommitted changes are a hard failure instead
// of a warning.
type Validator struct {
	runner CommandRunner
	strict bool

	// diskFree is injectable for testing; defaults to statfs.
	diskFree func(path string) (uint64, error)
}

// NewValidator creates a Validator backed by the given CommandRunner.
func NewValidator(runner CommandRunner, strict bool) *Validator {
	return &Validator{
		runner:   runner,
		strict:   strict,
		diskFree: diskFreeBytes,
	}
}

// Validate checks a single worktree and refines its IsDirty, IsValid,
// and ProjectName fields. Validation of multiple worktrees is
// independent; no call mutates any other worktree's state.
func (v *Validator) Validate(ctx context.Context, wt *Worktree) ValidationResult {
	res := ValidationResult{Worktree: wt, IsValid: true}

	if _, err := os.Stat(wt.Path); err != nil {
		res.fail("path does not exist")
		wt.IsValid = false
		return res
	}

	gitDir := resolveGitDir(wt.Path)
	if gitDir == "" {
		res.fail("not a git repository")
	} else if _, err := os.Stat(filepath.Join(gitDir, "HEAD")); err != nil {
		res.fail("not a valid git repository: HEAD unreadable")
	}

	lines, statusErr := gitStatus(ctx, v.runner, wt.Path)
	if statusErr != nil {
		res.fail(fmt.Sprintf("working directory check failed: %v", statusErr))
	}

	if hasMergeConflicts(gitDir, lines) {
		res.fail("has unresolved merge conflicts")
	}

	wt.IsDirty = len(lines) > 0
	if wt.IsDirty {
		if v.strict {
			res.fail("has uncommitted changes")
		} else {
			res.warn("has uncommitted changes")
		}
	}

	v.checkManifests(wt, &res)
	v.checkDiskSpace(wt.Path, &res)

	wt.IsValid = res.IsValid
	return res
}

// FilterValid validates every worktree and returns the valid subset
// plus the full result map keyed by worktree path.
func (v *Validator) FilterValid(ctx context.Context, worktrees []Worktree) ([]Worktree, map[string]ValidationResult) {
	results := make(map[string]ValidationResult, len(worktrees))
	var valid []Worktree

	for i := range worktrees {
		wt := &worktrees[i]
		res := v.Validate(ctx, wt)
		results[wt.Path] = res
		if res.IsValid {
			valid = append(valid, *wt)
		}
	}
	return valid, results
}

// checkManifests records informational warnings for recognized
// dependency manifests and lock files, and refines the project name
// when a manifest declares one.
func (v *Validator) checkManifests(wt *Worktree, res *ValidationResult) {
	manifests := DetectManifests(wt.Path)
	for _, m := range manifests {
		res.warn(fmt.Sprintf("found %s manifest (%s)", m.Kind, m.File))
		if m.ProjectName != "" && wt.ProjectName == filepath.Base(wt.Path) {
			wt.ProjectName = m.ProjectName
		}
	}

	if locks := DetectLockFiles(wt.Path); len(locks) > 0 {
		res.warn(fmt.Sprintf("lock files present, dependencies may need install: %s", strings.Join(locks, ", ")))
	}
}

// checkDiskSpace warns when the filesystem holding the worktree is
// nearly full.
func (v *Validator) checkDiskSpace(path string, res *ValidationResult) {
	free, err := v.diskFree(path)
	if err != nil {
		return
	}
	if free < minDiskSpace {
		res.warn(fmt.Sprintf("low disk space: %d MB available", free/(1<<20)))
	}
}

// hasMergeConflicts applies the conflict heuristic: a MERGE_HEAD file,
// or porcelain status entries with an unmerged code (U in either
// column, AA, DD). Advisory, not a full conflict parser.
func hasMergeConflicts(gitDir string, statusLines []string) bool {
	if gitDir != "" {
		if _, err := os.Stat(filepath.Join(gitDir, "MERGE_HEAD")); err == nil {
			return true
		}
	}
	for _, line := range statusLines {
		if len(line) < 2 {
			continue
		}
		if line[0] == 'U' || line[1] == 'U' ||
			strings.HasPrefix(line, "AA") || strings.HasPrefix(line, "DD") {
			return true
		}
	}
	return false
}

func (r *ValidationResult) fail(msg string) {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
}

func (r *ValidationResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// diskFreeBytes returns the bytes available to unprivileged users on
// the filesystem containing path.
func diskFreeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil //nolint:gosec // Bsize is a positive block size
}

package worktree //nolint:testpackage // white-box tests inject the disk-space probe

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// newTestValidator builds a Validator whose git status output is fixed
// and whose disk probe reports plenty of space.
func newTestValidator(porcelain string, strict bool) *Validator {
	v := NewValidator(&mockGitRunner{output: []byte(porcelain)}, strict)
	v.diskFree = func(string) (uint64, error) { return 100 << 30, nil }
	return v
}

// TestValidator_Validate_CleanWorktree verifies that a clean repository
// passes with no errors.
func TestValidator_Validate_CleanWorktree(t *testing.T) {
	dir := t.TempDir()
	mkRepo(t, filepath.Join(dir, "repo"), "main")
	wt := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}

	res := newTestValidator("", false).Validate(context.Background(), &wt)

	if !res.IsValid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if !wt.IsValid {
		t.Error("worktree IsValid not refined to true")
	}
	if wt.IsDirty {
		t.Error("clean worktree marked dirty")
	}
}

// TestValidator_Validate_MissingPath verifies the hard failure for a
// nonexistent path, with no further checks attempted.
func TestValidator_Validate_MissingPath(t *testing.T) {
	wt := Worktree{Path: filepath.Join(t.TempDir(), "gone"), Name: "gone"}

	res := newTestValidator("", false).Validate(context.Background(), &wt)

	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "path does not exist" {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if wt.IsValid {
		t.Error("worktree IsValid not refined to false")
	}
}

// TestValidator_Validate_NotGitRepository verifies the hard failure for
// a directory without a .git entry.
func TestValidator_Validate_NotGitRepository(t *testing.T) {
	wt := Worktree{Path: t.TempDir(), Name: "plain"}

	res := newTestValidator("", false).Validate(context.Background(), &wt)

	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if !hasEntry(res.Errors, "not a git repository") {
		t.Fatalf("missing git-repo error: %v", res.Errors)
	}
}

// TestValidator_Validate_UnreadableHead verifies that a .git directory
// without a readable HEAD invalidates the worktree.
func TestValidator_Validate_UnreadableHead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "repo", ".git", "config"), "")
	wt := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}

	res := newTestValidator("", false).Validate(context.Background(), &wt)

	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if !hasEntry(res.Errors, "HEAD unreadable") {
		t.Fatalf("missing HEAD error: %v", res.Errors)
	}
}

// TestValidator_Validate_DirtyStrictVsRelaxed verifies the strict-mode
// contract: uncommitted changes are an error in strict mode and a
// warning otherwise, and IsDirty is refined either way.
func TestValidator_Validate_DirtyStrictVsRelaxed(t *testing.T) {
	dir := t.TempDir()
	mkRepo(t, filepath.Join(dir, "repo"), "main")
	porcelain := " M main.go\n?? scratch.txt"

	strict := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}
	res := newTestValidator(porcelain, true).Validate(context.Background(), &strict)
	if res.IsValid {
		t.Fatal("strict mode: expected invalid")
	}
	if !hasEntry(res.Errors, "uncommitted changes") {
		t.Fatalf("strict mode: missing error, got %v", res.Errors)
	}

	relaxed := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}
	res = newTestValidator(porcelain, false).Validate(context.Background(), &relaxed)
	if !res.IsValid {
		t.Fatalf("relaxed mode: expected valid, got errors %v", res.Errors)
	}
	if !hasEntry(res.Warnings, "uncommitted changes") {
		t.Fatalf("relaxed mode: missing warning, got %v", res.Warnings)
	}
	if !relaxed.IsDirty {
		t.Error("IsDirty not refined")
	}
}

// TestValidator_Validate_MergeConflicts verifies both halves of the
// conflict heuristic: unmerged porcelain codes and a MERGE_HEAD file.
func TestValidator_Validate_MergeConflicts(t *testing.T) {
	t.Run("porcelain codes", func(t *testing.T) {
		for _, line := range []string{"UU conflict.go", "AA both.go", "DD gone.go", "U  ours.go", " U theirs.go"} {
			dir := t.TempDir()
			mkRepo(t, filepath.Join(dir, "repo"), "main")
			wt := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}

			res := newTestValidator(line, false).Validate(context.Background(), &wt)
			if res.IsValid {
				t.Errorf("porcelain %q: expected invalid", line)
			}
			if !hasEntry(res.Errors, "merge conflicts") {
				t.Errorf("porcelain %q: missing conflict error: %v", line, res.Errors)
			}
		}
	})

	t.Run("merge head file", func(t *testing.T) {
		dir := t.TempDir()
		repo := filepath.Join(dir, "repo")
		mkRepo(t, repo, "main")
		writeFile(t, filepath.Join(repo, ".git", "MERGE_HEAD"), "a1b2c3d4\n")
		wt := Worktree{Path: repo, Name: "repo"}

		res := newTestValidator("", false).Validate(context.Background(), &wt)
		if res.IsValid {
			t.Fatal("expected invalid with MERGE_HEAD present")
		}
	})
}

// TestValidator_Validate_StatusFailure verifies that a git status
// failure invalidates the worktree with a wrapped message.
func TestValidator_Validate_StatusFailure(t *testing.T) {
	dir := t.TempDir()
	mkRepo(t, filepath.Join(dir, "repo"), "main")
	wt := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}

	v := NewValidator(&mockGitRunner{err: errors.New("no git binary")}, false)
	v.diskFree = func(string) (uint64, error) { return 100 << 30, nil }

	res := v.Validate(context.Background(), &wt)
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	if !hasEntry(res.Errors, "working directory check failed") {
		t.Fatalf("missing status error: %v", res.Errors)
	}
}

// TestValidator_Validate_LowDiskSpace verifies the advisory warning
// when free space sits under the threshold.
func TestValidator_Validate_LowDiskSpace(t *testing.T) {
	dir := t.TempDir()
	mkRepo(t, filepath.Join(dir, "repo"), "main")
	wt := Worktree{Path: filepath.Join(dir, "repo"), Name: "repo"}

	v := newTestValidator("", false)
	v.diskFree = func(string) (uint64, error) { return 256 << 20, nil }

	res := v.Validate(context.Background(), &wt)
	if !res.IsValid {
		t.Fatalf("low disk space must not invalidate: %v", res.Errors)
	}
	if !hasEntry(res.Warnings, "low disk space") {
		t.Fatalf("missing disk warning: %v", res.Warnings)
	}
}

// TestValidator_Validate_ManifestWarnings verifies the informational
// warnings for manifests and lock files, and the project-name
// refinement from a manifest.
func TestValidator_Validate_ManifestWarnings(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	mkRepo(t, repo, "main")
	writeFile(t, filepath.Join(repo, "package.json"), `{"name": "widget-ui"}`)
	writeFile(t, filepath.Join(repo, "package-lock.json"), "{}")
	wt := Worktree{Path: repo, Name: "repo", ProjectName: "repo"}

	res := newTestValidator("", false).Validate(context.Background(), &wt)

	if !res.IsValid {
		t.Fatalf("manifests must not invalidate: %v", res.Errors)
	}
	if !hasEntry(res.Warnings, "node manifest") {
		t.Fatalf("missing manifest warning: %v", res.Warnings)
	}
	if !hasEntry(res.Warnings, "may need install") {
		t.Fatalf("missing lock file warning: %v", res.Warnings)
	}
	if wt.ProjectName != "widget-ui" {
		t.Errorf("project name not refined: got %q", wt.ProjectName)
	}
}

// TestValidator_FilterValid_ReturnsSubsetAndFullMap verifies that
// filtering keeps valid worktrees, reports every result, and that one
// worktree's failure does not affect another's outcome.
func TestValidator_FilterValid_ReturnsSubsetAndFullMap(t *testing.T) {
	dir := t.TempDir()
	mkRepo(t, filepath.Join(dir, "good-a"), "main")
	mkRepo(t, filepath.Join(dir, "good-b"), "main")

	worktrees := []Worktree{
		{Path: filepath.Join(dir, "good-a"), Name: "good-a"},
		{Path: filepath.Join(dir, "missing"), Name: "missing"},
		{Path: filepath.Join(dir, "good-b"), Name: "good-b"},
	}

	valid, results := newTestValidator("", false).FilterValid(context.Background(), worktrees)

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid, got %d", len(valid))
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[filepath.Join(dir, "missing")].IsValid {
		t.Error("missing worktree reported valid")
	}
	for _, wt := range valid {
		if wt.Name == "missing" {
			t.Error("invalid worktree leaked into valid subset")
		}
	}
}

// hasEntry reports whether any string in list contains substr.
func hasEntry(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

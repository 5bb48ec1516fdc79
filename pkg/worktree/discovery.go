package worktree

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Discoverer finds git worktrees under a set of search roots. Roots
// that do not exist are skipped; directories matching an exclusion
// pattern are pruned together with their entire subtree.
type Discoverer struct {
	searchPaths     []string
	excludePatterns []string
	runner          CommandRunner
}

// NewDiscoverer creates a Discoverer. The runner is used for remote-URL
// lookups only; a nil runner disables them (branch detection reads the
// repository files directly and needs no git binary).
func NewDiscoverer(searchPaths, excludePatterns []string, runner CommandRunner) *Discoverer {
	return &Discoverer{
		searchPaths:     searchPaths,
		excludePatterns: excludePatterns,
		runner:          runner,
	}
}

// Discover walks every search root and returns the worktrees found.
// The result contains no duplicate paths: a linked worktree reachable
// both by path walking and through its primary repository's
// registration directory appears once.
func (d *Discoverer) Discover(ctx context.Context) ([]Worktree, error) {
	seen := make(map[string]bool)
	var found []Worktree

	for _, root := range d.searchPaths {
		expanded := expandHome(root)
		info, err := os.Stat(expanded)
		if err != nil || !info.IsDir() {
			continue
		}
		d.scanDir(ctx, expanded, seen, &found)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

// FromDirs builds worktree records for explicitly named directories,
// bypassing the search-root walk. Paths are deduplicated; exclusion
// patterns do not apply to paths the caller named directly.
func (d *Discoverer) FromDirs(ctx context.Context, dirs []string) []Worktree {
	seen := make(map[string]bool)
	var found []Worktree
	for _, dir := range dirs {
		d.record(ctx, expandHome(dir), seen, &found)
	}
	return found
}

// scanDir recursively visits dir. A directory containing a .git entry
// is recorded as a worktree and not descended into; everything else is
// walked, skipping hidden directories and excluded subtrees.
func (d *Discoverer) scanDir(ctx context.Context, dir string, seen map[string]bool, found *[]Worktree) {
	if ctx.Err() != nil {
		return
	}
	if d.excluded(dir) {
		return
	}

	gitPath := filepath.Join(dir, ".git")
	if fi, err := os.Stat(gitPath); err == nil {
		d.record(ctx, dir, seen, found)
		if fi.IsDir() {
			d.recordRegistered(ctx, dir, seen, found)
		}
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directory contributes nothing; the walk continues.
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		d.scanDir(ctx, filepath.Join(dir, entry.Name()), seen, found)
	}
}

// record appends one worktree for path unless it was already seen.
func (d *Discoverer) record(ctx context.Context, path string, seen map[string]bool, found *[]Worktree) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if seen[abs] {
		return
	}
	seen[abs] = true

	remote := ""
	if d.runner != nil {
		remote = gitRemoteURL(ctx, d.runner, abs)
	}

	*found = append(*found, Worktree{
		ID:          uuid.NewString(),
		Name:        filepath.Base(abs),
		Path:        abs,
		Branch:      readBranch(abs),
		RemoteURL:   remote,
		ProjectName: projectNameFrom(remote, abs),
	})
}

// recordRegistered enumerates a primary repository's
// .git/worktrees/<name>/gitdir registrations to pick up linked
// worktrees the path walk cannot reach (hidden directories, paths
// outside the search roots).
func (d *Discoverer) recordRegistered(ctx context.Context, repo string, seen map[string]bool, found *[]Worktree) {
	regDir := filepath.Join(repo, ".git", "worktrees")
	entries, err := os.ReadDir(regDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(regDir, entry.Name(), "gitdir")) //nolint:gosec // path is built from the repo's own registration dir
		if err != nil {
			continue
		}
		// The gitdir file holds the path of the worktree's .git pointer
		// file; its parent is the working directory.
		target := strings.TrimSpace(string(data))
		wtPath := target
		if filepath.Base(target) == ".git" {
			wtPath = filepath.Dir(target)
		}
		if info, err := os.Stat(wtPath); err != nil || !info.IsDir() {
			// Stale registration left by a removed worktree.
			continue
		}
		if d.excluded(wtPath) {
			continue
		}
		d.record(ctx, wtPath, seen, found)
	}
}

// excluded reports whether path matches any exclusion pattern.
func (d *Discoverer) excluded(path string) bool {
	for _, pattern := range d.excludePatterns {
		if matchesPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesPattern checks a path against a glob-like exclusion pattern.
// Patterns of the form */segment/* exclude any path containing that
// segment; other patterns fall back to filepath.Match on the full path
// and on the base name.
func matchesPattern(path, pattern string) bool {
	stripped := strings.ReplaceAll(pattern, "*", "")
	if strings.Contains(stripped, "/") {
		// Segment containment: compare with trailing separators so the
		// excluded directory itself matches, not only its children.
		return strings.Contains(filepath.ToSlash(path)+"/", stripped)
	}
	if ok, err := filepath.Match(pattern, path); err == nil && ok {
		return true
	}
	ok, err := filepath.Match(pattern, filepath.Base(path))
	return err == nil && ok
}

// resolveGitDir returns the git directory for a worktree: .git itself
// for a primary checkout, or the target of the `gitdir: ` pointer for
// a linked one. Empty string when the path is not a git worktree.
func resolveGitDir(path string) string {
	gitPath := filepath.Join(path, ".git")
	fi, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}
	if fi.IsDir() {
		return gitPath
	}
	data, err := os.ReadFile(gitPath) //nolint:gosec // path was produced by discovery, not user input
	if err != nil {
		return ""
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir: ")
	if !ok {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(path, target)
	}
	return target
}

// readBranch derives the branch name from the worktree's HEAD
// reference. A detached HEAD yields a short commit hash when the hash
// is resolvable, otherwise "unknown".
func readBranch(path string) string {
	gitDir := resolveGitDir(path)
	if gitDir == "" {
		return "unknown"
	}
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD")) //nolint:gosec // gitDir comes from the worktree's own .git entry
	if err != nil {
		return "unknown"
	}
	head := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(head, "ref: "); ok {
		if branch, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
			return branch
		}
		return ref
	}
	if isHexHash(head) {
		return head[:7]
	}
	return "unknown"
}

// isHexHash reports whether s looks like a commit hash.
func isHexHash(s string) bool {
	if len(s) < 7 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Package worktree discovers and validates the git working directories
// that jobs run against. Discovery walks configured search roots and
// recognizes both primary checkouts and linked worktrees; validation
// filters the discovered set down to directories an agent can safely
// modify.
package worktree

import (
	"path/filepath"
	"strings"
)

// Worktree is one independent working directory backed by a git
// repository. Discovery creates it; the Validator refines IsDirty,
// IsValid, and ProjectName. Once a job is built from it the record is
// treated as immutable.
type Worktree struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Branch      string `json:"branch"`
	IsDirty     bool   `json:"is_dirty"`
	IsValid     bool   `json:"is_valid"`
	RemoteURL   string `json:"remote_url,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// Label returns the short human-readable identifier used in reports.
func (w *Worktree) Label() string {
	if w.Name != "" {
		return w.Name
	}
	return filepath.Base(w.Path)
}

// projectNameFrom derives a project name from the origin remote URL,
// falling back to the directory name. Handles both SSH
// (git@host:org/repo.git) and HTTPS (https://host/org/repo.git) forms.
func projectNameFrom(remoteURL, path string) string {
	if remoteURL == "" {
		return filepath.Base(path)
	}
	name := remoteURL
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		return filepath.Base(path)
	}
	return name
}

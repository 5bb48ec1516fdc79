package worktree

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Manifest describes a dependency manifest found in a worktree root.
type Manifest struct {
	Kind        string // go, node, rust, python
	File        string // manifest file name
	ProjectName string // name declared by the manifest, if any
}

// lockFiles are the dependency lock files the validator reports as
// "may need install".
var lockFiles = []string{
	"go.sum",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"poetry.lock",
	"uv.lock",
}

// DetectManifests scans a worktree root for recognized dependency
// manifests. Parse failures are ignored; the manifest is still
// reported, just without a project name.
func DetectManifests(dir string) []Manifest {
	var found []Manifest

	if name, ok := goModuleName(filepath.Join(dir, "go.mod")); ok {
		found = append(found, Manifest{Kind: "go", File: "go.mod", ProjectName: filepath.Base(name)})
	}
	if name, ok := packageJSONName(filepath.Join(dir, "package.json")); ok {
		found = append(found, Manifest{Kind: "node", File: "package.json", ProjectName: name})
	}
	if name, ok := cargoPackageName(filepath.Join(dir, "Cargo.toml")); ok {
		found = append(found, Manifest{Kind: "rust", File: "Cargo.toml", ProjectName: name})
	}
	if name, ok := pyprojectName(filepath.Join(dir, "pyproject.toml")); ok {
		found = append(found, Manifest{Kind: "python", File: "pyproject.toml", ProjectName: name})
	}

	return found
}

// DetectLockFiles returns the recognized lock files present in dir.
func DetectLockFiles(dir string) []string {
	var found []string
	for _, name := range lockFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			found = append(found, name)
		}
	}
	return found
}

// goModuleName reads the module path from a go.mod file. The second
// return is false when the file does not exist.
func goModuleName(path string) (string, bool) {
	f, err := os.Open(path) //nolint:gosec // path is built from a discovered worktree root
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(name), true
		}
	}
	return "", true
}

// packageJSONName reads the name field from package.json.
func packageJSONName(path string) (string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a discovered worktree root
	if err != nil {
		return "", false
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", true
	}
	return pkg.Name, true
}

// cargoPackageName reads [package].name from Cargo.toml.
func cargoPackageName(path string) (string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a discovered worktree root
	if err != nil {
		return "", false
	}
	var cargo struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return "", true
	}
	return cargo.Package.Name, true
}

// pyprojectName reads [project].name from pyproject.toml, falling back
// to [tool.poetry].name for poetry layouts.
func pyprojectName(path string) (string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a discovered worktree root
	if err != nil {
		return "", false
	}
	var py struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &py); err != nil {
		return "", true
	}
	if py.Project.Name != "" {
		return py.Project.Name, true
	}
	return py.Tool.Poetry.Name, true
}

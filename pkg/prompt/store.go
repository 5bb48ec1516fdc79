package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a prompt name with no file behind it.
var ErrNotFound = errors.New("prompt not found")

// Store is the on-disk instruction library, one YAML file per prompt.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created
// lazily on the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the prompt to <dir>/<name>.yaml.
func (s *Store) Save(p *Prompt) error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create prompts directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prompt %s: %w", p.Name, err)
	}
	if err := os.WriteFile(s.path(p.Name), data, 0o644); err != nil { //nolint:gosec // prompts are user documents
		return fmt.Errorf("write prompt %s: %w", p.Name, err)
	}
	return nil
}

// Load reads a prompt by name.
func (s *Store) Load(name string) (*Prompt, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	//nolint:gosec // path is confined to the store dir by validateName
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("prompt %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read prompt %s: %w", name, err)
	}
	var p Prompt
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return &p, nil
}

// List returns every readable prompt, sorted by name. Files that fail
// to parse are skipped rather than failing the listing.
func (s *Store) List() ([]*Prompt, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read prompts directory: %w", err)
	}

	var prompts []*Prompt
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		p, err := s.Load(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			continue
		}
		prompts = append(prompts, p)
	}

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].Name < prompts[j].Name
	})
	return prompts, nil
}

// Delete removes a prompt by name.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("prompt %q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("delete prompt %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a prompt file is present.
func (s *Store) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}

// validateName keeps prompt names inside the storage directory.
func validateName(name string) error {
	if name == "" {
		return errors.New("prompt name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid prompt name %q", name)
	}
	return nil
}

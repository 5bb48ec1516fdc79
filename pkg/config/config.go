// Package config loads, validates, and persists the par configuration
// file. Every field has a working default so par runs without any
// config file present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultJobs is the worker count used when the config and flags
	// are silent.
	DefaultJobs = 3

	// DefaultTimeout is the per-job deadline used when the configured
	// timeout string cannot be parsed.
	DefaultTimeout = 60 * time.Minute

	// DefaultAgentBinary is the coding agent executable par invokes.
	DefaultAgentBinary = "claude-code"
)

// Config is the on-disk configuration, one YAML file.
type Config struct {
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Agent     AgentConfig     `yaml:"agent"`
	Worktrees WorktreesConfig `yaml:"worktrees"`
	Prompts   PromptsConfig   `yaml:"prompts"`
}

// DefaultsConfig holds run-level settings.
type DefaultsConfig struct {
	Jobs      int    `yaml:"jobs"`
	Timeout   string `yaml:"timeout"`
	OutputDir string `yaml:"output_dir"`
}

// AgentConfig holds the coding agent invocation settings.
type AgentConfig struct {
	BinaryPath  string   `yaml:"binary_path"`
	DefaultArgs []string `yaml:"default_args"`
}

// WorktreesConfig holds worktree discovery settings.
type WorktreesConfig struct {
	SearchPaths     []string `yaml:"search_paths"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// PromptsConfig holds instruction library settings.
type PromptsConfig struct {
	StorageDir string `yaml:"storage_dir"`
}

// DataHome returns the base directory for par state files, from
// PAR_HOME or ~/.local/share/par.
func DataHome() (string, error) {
	if v := os.Getenv("PAR_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "par"), nil
}

// DefaultPath returns the config file location, from PAR_CONFIG or
// the user config directory.
func DefaultPath() (string, error) {
	if v := os.Getenv("PAR_CONFIG"); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return filepath.Join(base, "par", "config.yaml"), nil
}

// HistoryPath returns the run-history database location under DataHome.
func HistoryPath() (string, error) {
	dataHome, err := DataHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataHome, "history.db"), nil
}

// Default returns the built-in configuration. Data paths land under
// DataHome so PAR_HOME relocates all state together.
func Default() Config {
	dataHome, err := DataHome()
	if err != nil {
		dataHome = filepath.Join("~", ".local", "share", "par")
	}
	return Config{
		Defaults: DefaultsConfig{
			Jobs:      DefaultJobs,
			Timeout:   "60m",
			OutputDir: filepath.Join(dataHome, "results"),
		},
		Agent: AgentConfig{
			BinaryPath:  DefaultAgentBinary,
			DefaultArgs: []string{"--dangerously-skip-permissions"},
		},
		Worktrees: WorktreesConfig{
			SearchPaths: []string{"~/projects", "~/work"},
			ExcludePatterns: []string{
				"*/node_modules/*",
				"*/.git/*",
				"*/target/*",
			},
		},
		Prompts: PromptsConfig{
			StorageDir: filepath.Join(dataHome, "prompts"),
		},
	}
}

// Load reads the config file at path, layering it over the defaults.
// A missing file yields the pure defaults. The result has home paths
// expanded and is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	//nolint:gosec // path comes from the user's own config resolution
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file: defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the fields a run depends on.
func (c *Config) Validate() error {
	if c.Defaults.Jobs < 1 {
		return fmt.Errorf("defaults.jobs must be at least 1, got %d", c.Defaults.Jobs)
	}
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil {
		return fmt.Errorf("invalid defaults.timeout %q: %w", c.Defaults.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("defaults.timeout must be positive, got %s", c.Defaults.Timeout)
	}
	if c.Agent.BinaryPath == "" {
		return fmt.Errorf("agent.binary_path cannot be empty")
	}
	if len(c.Worktrees.SearchPaths) == 0 {
		return fmt.Errorf("worktrees.search_paths cannot be empty")
	}
	return nil
}

// Timeout returns the parsed per-job deadline.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // config file is not a secret
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates the output and prompt storage directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Defaults.OutputDir, c.Prompts.StorageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// expandPaths rewrites ~-prefixed paths against the home directory.
func (c *Config) expandPaths() {
	c.Defaults.OutputDir = expandHome(c.Defaults.OutputDir)
	c.Prompts.StorageDir = expandHome(c.Prompts.StorageDir)
	for i, p := range c.Worktrees.SearchPaths {
		c.Worktrees.SearchPaths[i] = expandHome(p)
	}
}

// expandHome expands a leading ~ to the current user's home directory.
// Paths it cannot expand come back unchanged.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

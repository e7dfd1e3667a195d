package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagegrep/pagegrep/internal/fileutil"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDir      = "pagegrep"
	ConfigFileName = "config.yaml"

	DefaultWorkerReserve    = 2
	DefaultRefreshMs        = 200
	DefaultFollowDebounceMs = 500
	DefaultLogLevel         = "info"
)

type Config struct {
	Version int `yaml:"version"`

	// Workers fixes the worker count. Zero derives it from the CPU count.
	Workers int `yaml:"workers"`

	// WorkerReserve is the number of CPUs left free when Workers is zero.
	WorkerReserve *int `yaml:"worker_reserve,omitempty"`

	RefreshMs        int      `yaml:"refresh_ms"`
	Extensions       []string `yaml:"extensions"`
	Ignore           []string `yaml:"ignore"`
	UseGitignore     *bool    `yaml:"use_gitignore,omitempty"`
	AbortKeys        []string `yaml:"abort_keys"`
	FollowDebounceMs int      `yaml:"follow_debounce_ms"`
	LogFile          string   `yaml:"log_file,omitempty"`
	LogLevel         string   `yaml:"log_level"`
}

func DefaultConfig() *Config {
	reserve := DefaultWorkerReserve
	useGitignore := true
	return &Config{
		Version:          1,
		WorkerReserve:    &reserve,
		RefreshMs:        DefaultRefreshMs,
		Extensions:       []string{".pdf", ".txt"},
		Ignore:           []string{".git", "node_modules", "vendor"},
		UseGitignore:     &useGitignore,
		AbortKeys:        []string{"q"},
		FollowDebounceMs: DefaultFollowDebounceMs,
		LogLevel:         DefaultLogLevel,
	}
}

// DefaultPath returns the per-user config location, honouring
// XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, ConfigDir, ConfigFileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, ConfigDir, ConfigFileName), nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Resolve loads the config at path when one is given. Without a path it
// loads the per-user config if present and falls back to defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(fileutil.ExpandTilde(path))
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	if !Exists(defaultPath) {
		return DefaultConfig(), nil
	}
	return Load(defaultPath)
}

// applyDefaults fills in values missing from older or partial config files.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.WorkerReserve == nil {
		c.WorkerReserve = defaults.WorkerReserve
	}
	if c.RefreshMs <= 0 {
		c.RefreshMs = defaults.RefreshMs
	}
	if len(c.Extensions) == 0 {
		c.Extensions = defaults.Extensions
	}
	if c.Ignore == nil {
		c.Ignore = defaults.Ignore
	}
	if c.UseGitignore == nil {
		c.UseGitignore = defaults.UseGitignore
	}
	// An explicit empty list means any line aborts.
	if c.AbortKeys == nil {
		c.AbortKeys = defaults.AbortKeys
	}
	if c.FollowDebounceMs <= 0 {
		c.FollowDebounceMs = defaults.FollowDebounceMs
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
}

func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.WorkerReserve != nil && *c.WorkerReserve < 0 {
		return fmt.Errorf("worker_reserve must not be negative, got %d", *c.WorkerReserve)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// WorkerCount returns the number of scanner workers for a machine with
// numCPU logical CPUs. It is never below one.
func (c *Config) WorkerCount(numCPU int) int {
	if c.Workers > 0 {
		return c.Workers
	}
	reserve := DefaultWorkerReserve
	if c.WorkerReserve != nil {
		reserve = *c.WorkerReserve
	}
	return max(1, numCPU-reserve)
}

func (c *Config) GitignoreEnabled() bool {
	return c.UseGitignore == nil || *c.UseGitignore
}

// Save writes the config to path, replacing any existing file atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.WriteFileAtomically(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

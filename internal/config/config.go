// Package config handles loading and validating git-garden configuration
// from the config file, environment variables, and CLI flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config holds the durable git-garden settings. Per-run action switches
// (fetch, prune, fast-forward, delete) come from CLI flags only.
type Config struct {
	RootDir        string   `yaml:"root_dir"`        // directory tree to scan
	Depth          int      `yaml:"depth"`           // directory levels to descend
	Include        []string `yaml:"include"`         // path substrings to keep
	Exclude        []string `yaml:"exclude"`         // path substrings to drop
	DefaultBranch  string   `yaml:"default_branch"`  // overrides main/master detection
	CountUntracked bool     `yaml:"count_untracked"` // untracked files make the tree dirty
	TimeoutSeconds int      `yaml:"timeout_seconds"` // per-git-command timeout
}

// Defaults returns a Config with default values.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		RootDir:        home,
		Depth:          3,
		CountUntracked: true,
		TimeoutSeconds: 30,
	}
}

// Load reads configuration from the config file and environment variables.
// Values are layered: defaults < config file < environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks constraints that would make a run meaningless.
func (c Config) Validate() error {
	if c.Depth < 1 {
		return fmt.Errorf("depth must be at least 1, got %d", c.Depth)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.TimeoutSeconds)
	}
	return nil
}

// configPath returns the path to the config file.
func configPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git-garden", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "git-garden", "config.yaml")
}

func loadFile(cfg *Config) error {
	path := filepath.Clean(configPath())
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // no config file is fine
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.RootDir = ExpandHome(cfg.RootDir)
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GIT_GARDEN_ROOT_DIR"); v != "" {
		cfg.RootDir = ExpandHome(v)
	}
	if v := os.Getenv("GIT_GARDEN_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil && depth > 0 {
			cfg.Depth = depth
		}
	}
	if v := os.Getenv("GIT_GARDEN_DEFAULT_BRANCH"); v != "" {
		cfg.DefaultBranch = v
	}
	if v := os.Getenv("GIT_GARDEN_COUNT_UNTRACKED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CountUntracked = b
		}
	}
	if v := os.Getenv("GIT_GARDEN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
}

// ExpandHome replaces a leading ~/ in path with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

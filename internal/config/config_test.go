package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME and XDG_CONFIG_HOME at temp directories so tests never
// see the developer's real config, and returns the config directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	xdg := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, v := range []string{
		"GIT_GARDEN_ROOT_DIR", "GIT_GARDEN_DEPTH", "GIT_GARDEN_DEFAULT_BRANCH",
		"GIT_GARDEN_COUNT_UNTRACKED", "GIT_GARDEN_TIMEOUT_SECONDS",
	} {
		t.Setenv(v, "")
	}

	dir := filepath.Join(xdg, "git-garden")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if cfg.RootDir != home {
		t.Errorf("RootDir = %q, want home %q", cfg.RootDir, home)
	}
	if cfg.Depth != 3 {
		t.Errorf("Depth = %d, want 3", cfg.Depth)
	}
	if !cfg.CountUntracked {
		t.Error("CountUntracked should default to true")
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want 30", cfg.TimeoutSeconds)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
root_dir: /repos
depth: 5
include:
  - work
exclude:
  - archive
default_branch: trunk
count_untracked: false
timeout_seconds: 60
`)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootDir != "/repos" || cfg.Depth != 5 || cfg.DefaultBranch != "trunk" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "work" {
		t.Errorf("Include = %v", cfg.Include)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "archive" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.CountUntracked {
		t.Error("CountUntracked should be false")
	}
	if cfg.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want 60", cfg.TimeoutSeconds)
	}
}

func TestLoadFileExpandsHome(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "root_dir: ~/src\n")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if cfg.RootDir != filepath.Join(home, "src") {
		t.Errorf("RootDir = %q", cfg.RootDir)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "depth: 5\ndefault_branch: trunk\n")
	t.Setenv("GIT_GARDEN_DEPTH", "2")
	t.Setenv("GIT_GARDEN_DEFAULT_BRANCH", "develop")
	t.Setenv("GIT_GARDEN_ROOT_DIR", "/env/repos")
	t.Setenv("GIT_GARDEN_COUNT_UNTRACKED", "false")
	t.Setenv("GIT_GARDEN_TIMEOUT_SECONDS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Depth != 2 || cfg.DefaultBranch != "develop" || cfg.RootDir != "/env/repos" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.CountUntracked || cfg.TimeoutSeconds != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadIgnoresInvalidEnvNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("GIT_GARDEN_DEPTH", "banana")
	t.Setenv("GIT_GARDEN_TIMEOUT_SECONDS", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Depth != 3 || cfg.TimeoutSeconds != 30 {
		t.Errorf("invalid env values must keep defaults, got %+v", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "   \n")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Depth != 3 {
		t.Errorf("Depth = %d, want default 3", cfg.Depth)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "depth: [not a number\n")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Depth: 1, TimeoutSeconds: 1}, false},
		{"zero depth", Config{Depth: 0, TimeoutSeconds: 30}, true},
		{"negative depth", Config{Depth: -1, TimeoutSeconds: 30}, true},
		{"zero timeout", Config{Depth: 3, TimeoutSeconds: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/src", filepath.Join(home, "src")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
		{"~user/src", "~user/src"}, // other users' homes are not expanded
	}

	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Package discover walks a directory tree and finds git repositories,
// honoring a depth limit and include/exclude substring filters.
package discover

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options controls discovery behavior.
type Options struct {
	// Depth limits how many directory levels are visited; the root itself
	// counts as level one.
	Depth int
	// Include keeps only candidate paths containing at least one of these
	// substrings. Empty means keep everything.
	Include []string
	// Exclude drops any path containing one of these substrings and prunes
	// descent into it. Exclude wins over Include.
	Exclude []string
}

// Repos returns the repository paths found under root, in lexical order.
// A directory containing a .git entry is a repository root and is not
// descended into, so nested checkouts are never reported twice.
// Unreadable directories and symlink cycles are skipped with a warning.
func Repos(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	depth := opts.Depth
	if depth < 1 {
		depth = 1
	}

	w := &walker{root: root, opts: opts, visited: make(map[string]bool)}
	w.walk(root, depth)
	return w.repos, nil
}

type walker struct {
	root    string
	opts    Options
	visited map[string]bool
	repos   []string
}

func (w *walker) walk(dir string, depth int) {
	if depth == 0 {
		return
	}
	// Filters match against the path below the root so the name of the root
	// itself never triggers them.
	rel := strings.TrimPrefix(dir, w.root)
	if excluded(rel, w.opts.Exclude) {
		return
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		slog.Warn("skipping directory: could not resolve path", "dir", dir, "error", err)
		return
	}
	if w.visited[resolved] {
		return // symlink cycle
	}
	w.visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("skipping unreadable directory", "dir", dir, "error", err)
		return
	}

	if isRepoRoot(entries) {
		if included(rel, w.opts.Include) {
			w.repos = append(w.repos, dir)
		}
		return // never descend into a repository
	}

	// os.ReadDir returns entries in lexical order, which keeps the output
	// stable across runs.
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.IsDir() {
			continue
		}
		w.walk(filepath.Join(dir, name), depth-1)
	}
}

// isRepoRoot reports whether a directory listing contains a git metadata
// marker. Both directories (working copies) and files (worktrees) count.
func isRepoRoot(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if entry.Name() == ".git" {
			return true
		}
	}
	return false
}

func included(path string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	for _, substr := range include {
		if strings.Contains(path, substr) {
			return true
		}
	}
	return false
}

func excluded(path string, exclude []string) bool {
	for _, substr := range exclude {
		if strings.Contains(path, substr) {
			return true
		}
	}
	return false
}

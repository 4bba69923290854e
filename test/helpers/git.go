// Package helpers provides test utilities for building git repositories and
// branch scenarios.
package helpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestRepo represents a test git repository
type TestRepo struct {
	Path string
	t    *testing.T
}

// NewTestRepo creates a new test repository with one commit on main.
func NewTestRepo(t *testing.T, name string) *TestRepo {
	t.Helper()

	tmpDir := t.TempDir()
	repoPath := filepath.Join(tmpDir, name)

	if err := os.MkdirAll(repoPath, 0750); err != nil {
		t.Fatalf("Failed to create test repo directory: %v", err)
	}

	repo := &TestRepo{
		Path: repoPath,
		t:    t,
	}

	repo.Git("init", "--initial-branch=main")
	repo.Git("config", "user.name", "Test User")
	repo.Git("config", "user.email", "test@example.com")

	repo.WriteFile("README.md", "# Test Repository\n")
	repo.Git("add", "README.md")
	repo.Commit("Initial commit")

	return repo
}

// NewClonePair creates a bare "remote" repository and a working clone that
// uses it as origin. The clone's main branch tracks origin/main.
func NewClonePair(t *testing.T, name string) (clone *TestRepo, barePath string) {
	t.Helper()

	origin := NewTestRepo(t, name+"-origin")

	tmpDir := t.TempDir()
	barePath = filepath.Join(tmpDir, name+"-bare.git")
	gitIn(t, "", "clone", "--bare", origin.Path, barePath)

	clonePath := filepath.Join(tmpDir, name+"-clone")
	gitIn(t, "", "clone", barePath, clonePath)

	clone = &TestRepo{Path: clonePath, t: t}
	clone.Git("config", "user.name", "Test User")
	clone.Git("config", "user.email", "test@example.com")
	return clone, barePath
}

// WriteFile writes a file to the repository
func (r *TestRepo) WriteFile(filename, content string) {
	r.t.Helper()
	path := filepath.Join(r.Path, filename)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		r.t.Fatalf("Failed to write file %s: %v", filename, err)
	}
}

// AddFile stages a file for commit
func (r *TestRepo) AddFile(filename string) {
	r.t.Helper()
	r.Git("add", filename)
}

// Commit creates a commit
func (r *TestRepo) Commit(message string) {
	r.t.Helper()
	r.Git("commit", "-m", message)
}

// CommitEmpty creates a commit with no changes
func (r *TestRepo) CommitEmpty(message string) {
	r.t.Helper()
	r.Git("commit", "--allow-empty", "-m", message)
}

// CreateBranch creates and checks out a new branch
func (r *TestRepo) CreateBranch(name string) {
	r.t.Helper()
	r.Git("checkout", "-b", name)
}

// Checkout switches to a branch
func (r *TestRepo) Checkout(branch string) {
	r.t.Helper()
	r.Git("checkout", branch)
}

// PushUpstream pushes a branch and sets it as the upstream
func (r *TestRepo) PushUpstream(remote, branch string) {
	r.t.Helper()
	r.Git("push", "-u", remote, branch)
}

// DeleteRemoteBranch deletes a branch on the remote without touching the
// local remote-tracking ref, mimicking a deletion done elsewhere.
func (r *TestRepo) DeleteRemoteBranch(remote, branch string) {
	r.t.Helper()
	r.Git("push", remote, "--delete", branch)
}

// ResetHard moves the current branch to the given ref
func (r *TestRepo) ResetHard(ref string) {
	r.t.Helper()
	r.Git("reset", "--hard", ref)
}

// Fetch fetches from origin, optionally pruning
func (r *TestRepo) Fetch(prune bool) {
	r.t.Helper()
	args := []string{"fetch"}
	if prune {
		args = append(args, "--prune")
	}
	r.Git(args...)
}

// Branches returns a list of all local branch names
func (r *TestRepo) Branches() []string {
	r.t.Helper()
	out := r.GitOutput("branch", "--format=%(refname:short)")

	var branches []string
	for _, line := range splitLines(out) {
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches
}

// HasBranch reports whether a local branch exists
func (r *TestRepo) HasBranch(name string) bool {
	r.t.Helper()
	for _, b := range r.Branches() {
		if b == name {
			return true
		}
	}
	return false
}

// RevParse resolves a ref to its commit hash
func (r *TestRepo) RevParse(ref string) string {
	r.t.Helper()
	return r.GitOutput("rev-parse", ref)
}

// Git runs a git command in the repository, failing the test on error.
func (r *TestRepo) Git(args ...string) {
	r.t.Helper()
	gitIn(r.t, r.Path, args...)
}

// GitOutput runs a git command and returns its trimmed stdout.
func (r *TestRepo) GitOutput(args ...string) string {
	r.t.Helper()
	// #nosec G204 - git command with controlled inputs in test code
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	out, err := cmd.Output()
	if err != nil {
		r.t.Fatalf("Git command failed: git %v: %v", args, err)
	}
	s := string(out)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// gitIn runs a git command in dir (or the process cwd when dir is empty).
func gitIn(t *testing.T, dir string, args ...string) {
	t.Helper()
	// #nosec G204 - git command with controlled inputs in test code
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Git command failed: git %v\n%s", args, output)
	}
}

// splitLines splits a string by newlines
func splitLines(s string) []string {
	var lines []string
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] != '\n' {
			j++
		}
		lines = append(lines, s[i:j])
		i = j + 1
	}
	return lines
}

// Package git provides the porcelain git operations git-garden needs,
// built on a timeout-enforcing command runner.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcpd/git-garden/internal/gitcmd"
)

// ErrTimeout marks a git invocation that exceeded the configured timeout.
// It is distinct from a non-zero exit so callers can report it separately.
var ErrTimeout = errors.New("git: command timed out")

// CommandError is returned when git exits non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: exit %d: %s",
		strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Branch is one local branch as reported by for-each-ref, with its raw
// upstream tracking token (e.g. "[ahead 1, behind 2]" or "[gone]").
type Branch struct {
	Name     string
	Upstream string
	Track    string
}

// Client runs git commands in repository working directories.
type Client struct {
	runner gitcmd.Runner
}

// NewClient returns a Client backed by the given runner.
func NewClient(runner gitcmd.Runner) *Client {
	return &Client{runner: runner}
}

// run executes git and returns trimmed stdout. Timeouts and non-zero exits
// become errors here; most callers only need success/failure plus output.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := c.runner.Run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	if res.TimedOut {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), ErrTimeout)
	}
	if res.ExitCode != 0 {
		return "", &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CurrentBranch returns the checked-out branch name, or "" for a detached
// or unborn HEAD.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return c.run(ctx, dir, "branch", "--show-current")
}

// LocalBranches lists local branches with their upstream and tracking state.
func (c *Client) LocalBranches(ctx context.Context, dir string) ([]Branch, error) {
	out, err := c.run(ctx, dir, "for-each-ref", "refs/heads",
		"--format=%(refname:short)|%(upstream:short)|%(upstream:track)")
	if err != nil {
		return nil, err
	}

	var branches []Branch
	for _, line := range splitNonEmpty(out) {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected for-each-ref line %q", line)
		}
		branches = append(branches, Branch{
			Name:     parts[0],
			Upstream: parts[1],
			Track:    strings.TrimSpace(parts[2]),
		})
	}
	return branches, nil
}

// RemoteBranches lists remote-tracking branch names, including the
// "origin/HEAD" symref entry when present.
func (c *Client) RemoteBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := c.run(ctx, dir, "branch", "--remote", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// DefaultBranch determines the repository's default branch: the origin HEAD
// symref when set, otherwise main/master among remote-tracking branches,
// otherwise main/master among local branches.
func (c *Client) DefaultBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
	if err == nil {
		if _, name, ok := strings.Cut(out, "/"); ok {
			return name, nil
		}
		return out, nil
	}

	remotes, err := c.RemoteBranches(ctx, dir)
	if err == nil {
		for _, want := range []string{"origin/main", "origin/master"} {
			for _, b := range remotes {
				if b == want {
					return strings.TrimPrefix(want, "origin/"), nil
				}
			}
		}
	}

	locals, err := c.LocalBranches(ctx, dir)
	if err != nil {
		return "", err
	}
	for _, want := range []string{"main", "master"} {
		for _, b := range locals {
			if b.Name == want {
				return want, nil
			}
		}
	}
	return "", fmt.Errorf("could not determine default branch for %s", dir)
}

// HasRemote reports whether the given remote is configured.
func (c *Client) HasRemote(ctx context.Context, dir, remote string) bool {
	_, err := c.run(ctx, dir, "remote", "get-url", remote)
	return err == nil
}

// Fetch fetches all remotes, optionally pruning stale remote-tracking refs.
func (c *Client) Fetch(ctx context.Context, dir string, prune bool) error {
	args := []string{"fetch"}
	if prune {
		args = append(args, "--prune")
	}
	_, err := c.run(ctx, dir, args...)
	return err
}

// RemotePrune removes remote-tracking refs whose remote branch is gone,
// without fetching.
func (c *Client) RemotePrune(ctx context.Context, dir, remote string) error {
	_, err := c.run(ctx, dir, "remote", "prune", remote)
	return err
}

// PullFFOnly fast-forwards the current branch, failing if the merge would
// not be a fast-forward.
func (c *Client) PullFFOnly(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "pull", "--ff-only")
	return err
}

// FetchIntoBranch fast-forwards a branch that is not checked out by
// fetching the remote ref directly into it.
func (c *Client) FetchIntoBranch(ctx context.Context, dir, remote, branch string) error {
	_, err := c.run(ctx, dir, "fetch", remote, branch+":"+branch)
	return err
}

// DeleteLocalBranch deletes a local branch. The non-forced form refuses to
// delete a branch with unmerged commits.
func (c *Client) DeleteLocalBranch(ctx context.Context, dir, branch string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := c.run(ctx, dir, "branch", flag, branch)
	return err
}

// DeleteRemoteTracking deletes a single remote-tracking branch ref.
func (c *Client) DeleteRemoteTracking(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "branch", "-r", "-D", branch)
	return err
}

// Switch checks out the given branch.
func (c *Client) Switch(ctx context.Context, dir, branch string) error {
	_, err := c.run(ctx, dir, "switch", branch)
	return err
}

// IsClean reports whether the working tree has no modifications. When
// countUntracked is false, untracked files do not count as dirty.
func (c *Client) IsClean(ctx context.Context, dir string, countUntracked bool) (bool, error) {
	out, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	for _, line := range splitNonEmpty(out) {
		if !countUntracked && strings.HasPrefix(line, "??") {
			continue
		}
		return false, nil
	}
	return true, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

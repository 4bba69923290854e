// Package actions sequences the side-effecting git operations per
// repository (fetch, prune, fast-forward, orphan deletion, purge) and
// records an outcome for each attempt. Nothing is ever retried.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rcpd/git-garden/internal/classify"
	"github.com/rcpd/git-garden/pkg/git"
)

// Status is the result of one attempted action.
type Status int

const (
	// Success means the action completed.
	Success Status = iota
	// Skipped means a precondition was not met; Reason says which.
	Skipped
	// Failed means the action was attempted and did not complete.
	Failed
)

// String returns the human-readable name of a Status value.
func (s Status) String() string {
	switch s {
	case Success:
		return "ok"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Action names used in outcomes.
const (
	ActionFetch       = "fetch"
	ActionPrune       = "prune"
	ActionFastForward = "fast-forward"
	ActionDelete      = "delete"
	ActionPurge       = "purge"
)

// Outcome records one attempted action for reporting.
type Outcome struct {
	Action string
	Branch string // set for branch-scoped actions
	Status Status
	Reason string // populated for Skipped and Failed
}

// Options selects which actions run and how.
type Options struct {
	Fetch          bool
	Prune          bool
	FastForward    bool
	Delete         bool
	Purge          bool
	DefaultBranch  string // overrides detection when set
	CountUntracked bool
}

// GitOps is the git surface the action sequencer needs, satisfied by
// *git.Client and by mocks in tests.
type GitOps interface {
	HasRemote(ctx context.Context, dir, remote string) bool
	Fetch(ctx context.Context, dir string, prune bool) error
	RemotePrune(ctx context.Context, dir, remote string) error
	RemoteBranches(ctx context.Context, dir string) ([]string, error)
	DeleteRemoteTracking(ctx context.Context, dir, branch string) error
	DefaultBranch(ctx context.Context, dir string) (string, error)
	PullFFOnly(ctx context.Context, dir string) error
	FetchIntoBranch(ctx context.Context, dir, remote, branch string) error
	DeleteLocalBranch(ctx context.Context, dir, branch string, force bool) error
}

// Prepare runs the pre-classification actions: purge, then fetch/prune.
// fetchOK reports whether the fast-forward precondition holds afterwards;
// it stays true when fetching was disabled on purpose, because
// classification then works from existing local state.
func Prepare(ctx context.Context, g GitOps, dir string, opts Options) (outcomes []Outcome, fetchOK bool) {
	repoName := filepath.Base(dir)
	fetchOK = true

	if opts.Purge {
		outcomes = append(outcomes, purge(ctx, g, dir)...)
	}

	switch {
	case opts.Fetch:
		if !g.HasRemote(ctx, dir, "origin") {
			outcomes = append(outcomes, Outcome{Action: ActionFetch, Status: Skipped, Reason: "no origin remote"})
			return outcomes, fetchOK
		}
		slog.Debug("fetching", "repo", repoName, "prune", opts.Prune)
		err := g.Fetch(ctx, dir, opts.Prune)
		if err != nil {
			fetchOK = false
			outcomes = append(outcomes, Outcome{Action: ActionFetch, Status: Failed, Reason: reasonFor(err)})
			if opts.Prune {
				outcomes = append(outcomes, Outcome{Action: ActionPrune, Status: Skipped, Reason: "fetch failed"})
			}
			return outcomes, fetchOK
		}
		outcomes = append(outcomes, Outcome{Action: ActionFetch, Status: Success})
		if opts.Prune {
			outcomes = append(outcomes, Outcome{Action: ActionPrune, Status: Success})
		}

	case opts.Prune:
		// Fetch disabled but pruning still requested: prune directly.
		if !g.HasRemote(ctx, dir, "origin") {
			outcomes = append(outcomes, Outcome{Action: ActionPrune, Status: Skipped, Reason: "no origin remote"})
			return outcomes, fetchOK
		}
		slog.Debug("pruning", "repo", repoName)
		if err := g.RemotePrune(ctx, dir, "origin"); err != nil {
			outcomes = append(outcomes, Outcome{Action: ActionPrune, Status: Failed, Reason: reasonFor(err)})
		} else {
			outcomes = append(outcomes, Outcome{Action: ActionPrune, Status: Success})
		}
	}

	return outcomes, fetchOK
}

// Finish runs the post-classification actions: fast-forward of the default
// branch and deletion of orphaned branches.
func Finish(ctx context.Context, g GitOps, dir string, statuses []classify.BranchStatus, opts Options, fetchOK bool) []Outcome {
	var outcomes []Outcome

	if opts.FastForward {
		if o, ok := fastForward(ctx, g, dir, statuses, opts, fetchOK); ok {
			outcomes = append(outcomes, o)
		}
	}

	if opts.Delete {
		outcomes = append(outcomes, deleteOrphans(ctx, g, dir, statuses)...)
	}

	return outcomes
}

// fastForward advances the default branch when it is strictly behind its
// upstream. It returns ok=false when the branch is not behind at all, in
// which case no outcome is reported (the state is informational).
func fastForward(ctx context.Context, g GitOps, dir string, statuses []classify.BranchStatus, opts Options, fetchOK bool) (Outcome, bool) {
	def := opts.DefaultBranch
	if def == "" {
		detected, err := g.DefaultBranch(ctx, dir)
		if err != nil {
			return Outcome{Action: ActionFastForward, Status: Skipped, Reason: "could not determine default branch"}, true
		}
		def = detected
	}

	var status *classify.BranchStatus
	for i := range statuses {
		if statuses[i].Name == def {
			status = &statuses[i]
			break
		}
	}
	if status == nil || status.Relation != classify.Behind {
		// Ahead, diverged, in sync, gone, or no such branch: never attempted.
		return Outcome{}, false
	}

	o := Outcome{Action: ActionFastForward, Branch: def}

	if !fetchOK {
		o.Status = Skipped
		o.Reason = "fetch failed"
		return o, true
	}

	if status.Current {
		if !status.Clean {
			o.Status = Skipped
			o.Reason = "uncommitted changes"
			return o, true
		}
		slog.Debug("fast-forwarding current branch", "repo", filepath.Base(dir), "branch", def)
		if err := g.PullFFOnly(ctx, dir); err != nil {
			o.Status = Failed
			o.Reason = reasonFor(err)
			return o, true
		}
		o.Status = Success
		return o, true
	}

	// A branch that is not checked out can be fast-forwarded by fetching
	// the remote ref into it.
	slog.Debug("fast-forwarding branch", "repo", filepath.Base(dir), "branch", def)
	if err := g.FetchIntoBranch(ctx, dir, "origin", def); err != nil {
		o.Status = Failed
		o.Reason = reasonFor(err)
		return o, true
	}
	o.Status = Success
	return o, true
}

// deleteOrphans removes local branches whose upstream is gone, using the
// safe delete so unmerged work is never silently destroyed. The checked-out
// branch is reported but never deleted.
func deleteOrphans(ctx context.Context, g GitOps, dir string, statuses []classify.BranchStatus) []Outcome {
	var outcomes []Outcome
	for _, s := range statuses {
		if s.Relation != classify.Gone {
			continue
		}

		o := Outcome{Action: ActionDelete, Branch: s.Name}
		if s.Current {
			o.Status = Skipped
			o.Reason = "cannot delete the checked-out branch"
			outcomes = append(outcomes, o)
			continue
		}

		slog.Debug("deleting orphaned branch", "repo", filepath.Base(dir), "branch", s.Name)
		if err := g.DeleteLocalBranch(ctx, dir, s.Name, false); err != nil {
			o.Status = Failed
			o.Reason = deleteReason(err)
			outcomes = append(outcomes, o)
			continue
		}
		o.Status = Success
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// purge deletes every remote-tracking branch ref, one at a time. The
// "origin" HEAD symref entry is skipped.
func purge(ctx context.Context, g GitOps, dir string) []Outcome {
	branches, err := g.RemoteBranches(ctx, dir)
	if err != nil {
		return []Outcome{{Action: ActionPurge, Status: Failed, Reason: reasonFor(err)}}
	}

	var outcomes []Outcome
	for _, b := range branches {
		if b == "origin" || strings.HasSuffix(b, "/HEAD") {
			continue
		}
		o := Outcome{Action: ActionPurge, Branch: b}
		if err := g.DeleteRemoteTracking(ctx, dir, b); err != nil {
			o.Status = Failed
			o.Reason = reasonFor(err)
		} else {
			o.Status = Success
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// reasonFor condenses a git error into a report line, keeping timeouts
// distinguishable from ordinary command failures.
func reasonFor(err error) string {
	if errors.Is(err, git.ErrTimeout) {
		return "timed out"
	}
	var cmdErr *git.CommandError
	if errors.As(err, &cmdErr) {
		if msg := strings.TrimSpace(cmdErr.Stderr); msg != "" {
			return firstLine(msg)
		}
		return fmt.Sprintf("exit %d", cmdErr.ExitCode)
	}
	return err.Error()
}

func deleteReason(err error) string {
	var cmdErr *git.CommandError
	if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "not fully merged") {
		return "unmerged changes"
	}
	return reasonFor(err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

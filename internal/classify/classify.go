// Package classify computes the relationship of each local branch to its
// upstream after fetch/prune have run.
package classify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcpd/git-garden/pkg/git"
)

// Relation describes how a branch relates to its configured upstream.
type Relation int

const (
	// None means no upstream is configured.
	None Relation = iota
	// InSync means the branch and its upstream point at the same commit.
	InSync
	// Ahead means the branch has commits its upstream lacks.
	Ahead
	// Behind means the upstream has commits the branch lacks.
	Behind
	// Diverged means both sides have commits the other lacks.
	Diverged
	// Gone means an upstream is configured but its ref no longer exists.
	Gone
)

// String returns the human-readable name of a Relation value.
func (r Relation) String() string {
	switch r {
	case None:
		return "local only"
	case InSync:
		return "up to date"
	case Ahead:
		return "ahead"
	case Behind:
		return "behind"
	case Diverged:
		return "diverged"
	case Gone:
		return "remote deleted"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// BranchStatus is the classification record for one local branch.
type BranchStatus struct {
	Name     string
	Upstream string // empty when no upstream is configured
	Relation Relation
	Current  bool
	Clean    bool // meaningful only when Current is true
	Ahead    int
	Behind   int
}

// GitOps is the narrow git surface the classifier needs, satisfied by
// *git.Client and by fakes in tests.
type GitOps interface {
	LocalBranches(ctx context.Context, dir string) ([]git.Branch, error)
	CurrentBranch(ctx context.Context, dir string) (string, error)
	IsClean(ctx context.Context, dir string, countUntracked bool) (bool, error)
}

// Repo classifies every local branch of the repository at dir. A freshly
// initialized repository with an unborn HEAD yields an empty slice.
func Repo(ctx context.Context, g GitOps, dir string, countUntracked bool) ([]BranchStatus, error) {
	branches, err := g.LocalBranches(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	if len(branches) == 0 {
		return nil, nil
	}

	current, err := g.CurrentBranch(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("determining current branch: %w", err)
	}

	statuses := make([]BranchStatus, 0, len(branches))
	for _, b := range branches {
		ahead, behind, gone, err := ParseTrack(b.Track)
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", b.Name, err)
		}

		s := BranchStatus{
			Name:     b.Name,
			Upstream: b.Upstream,
			Relation: Classify(b.Upstream, ahead, behind, gone),
			Current:  b.Name == current && current != "",
			Ahead:    ahead,
			Behind:   behind,
		}

		if s.Current {
			clean, err := g.IsClean(ctx, dir, countUntracked)
			if err != nil {
				return nil, fmt.Errorf("checking working tree: %w", err)
			}
			s.Clean = clean
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// Classify derives the relation from upstream presence, the ahead/behind
// counts, and the gone marker. It is a pure function so the mapping can be
// tested exhaustively.
func Classify(upstream string, ahead, behind int, gone bool) Relation {
	switch {
	case upstream == "":
		return None
	case gone:
		return Gone
	case ahead > 0 && behind > 0:
		return Diverged
	case ahead > 0:
		return Ahead
	case behind > 0:
		return Behind
	default:
		return InSync
	}
}

// ParseTrack parses an %(upstream:track) token such as "[ahead 1, behind 2]"
// or "[gone]". An empty token means the branch is in sync (or has no
// upstream, which the caller distinguishes by the upstream field).
func ParseTrack(track string) (ahead, behind int, gone bool, err error) {
	if track == "" {
		return 0, 0, false, nil
	}
	if track == "[gone]" {
		return 0, 0, true, nil
	}
	if !strings.HasPrefix(track, "[") || !strings.HasSuffix(track, "]") {
		return 0, 0, false, fmt.Errorf("unexpected tracking token %q", track)
	}

	for _, part := range strings.Split(track[1:len(track)-1], ",") {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			return 0, 0, false, fmt.Errorf("unexpected tracking token %q", track)
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil || n < 0 {
			return 0, 0, false, fmt.Errorf("unexpected tracking token %q", track)
		}
		switch fields[0] {
		case "ahead":
			ahead = n
		case "behind":
			behind = n
		default:
			return 0, 0, false, fmt.Errorf("unexpected tracking token %q", track)
		}
	}
	return ahead, behind, false, nil
}

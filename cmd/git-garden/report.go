package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/rcpd/git-garden/internal/actions"
	"github.com/rcpd/git-garden/internal/classify"
)

// reporter renders per-repository results and accumulates the counters
// that drive the final summary and exit code.
type reporter struct {
	quiet bool

	ok       int
	skipped  int
	failed   int
	repoErrs int

	bold   *color.Color
	dim    *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
}

func newReporter(quiet bool) *reporter {
	return &reporter{
		quiet:  quiet,
		bold:   color.New(color.Bold),
		dim:    color.New(color.FgHiBlack),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
	}
}

// repo prints one repository's classification and action outcomes. In quiet
// mode only noteworthy lines are shown; a repository with nothing
// noteworthy prints nothing at all.
func (r *reporter) repo(path string, statuses []classify.BranchStatus, outcomes []actions.Outcome, remoteOnly []string) {
	r.count(outcomes)

	var lines []string
	for _, s := range statuses {
		line, routine := r.branchLine(s)
		if r.quiet && routine {
			continue
		}
		lines = append(lines, line)
	}
	for _, o := range outcomes {
		line, routine := r.outcomeLine(o)
		if r.quiet && routine {
			continue
		}
		lines = append(lines, line)
	}
	for _, name := range remoteOnly {
		lines = append(lines, r.yellow.Sprintf("%s [remote only]", name))
	}

	if len(lines) == 0 {
		return
	}
	fmt.Printf("%s\n", r.bold.Sprint(path))
	for _, line := range lines {
		fmt.Printf("  %s\n", line)
	}
}

// repoError reports a repository whose branches could not be classified.
// Outcomes from the preparation phase still count.
func (r *reporter) repoError(path string, outcomes []actions.Outcome, err error) {
	r.count(outcomes)
	r.repoErrs++

	fmt.Printf("%s\n", r.bold.Sprint(path))
	for _, o := range outcomes {
		line, routine := r.outcomeLine(o)
		if r.quiet && routine {
			continue
		}
		fmt.Printf("  %s\n", line)
	}
	fmt.Printf("  %s\n", r.red.Sprintf("[fail] classification: %v", err))
}

func (r *reporter) count(outcomes []actions.Outcome) {
	for _, o := range outcomes {
		switch o.Status {
		case actions.Success:
			r.ok++
		case actions.Skipped:
			r.skipped++
		case actions.Failed:
			r.failed++
		}
	}
}

// branchLine renders one branch status. Routine lines (everything except
// local-only and gone branches) are suppressed in quiet mode.
func (r *reporter) branchLine(s classify.BranchStatus) (line string, routine bool) {
	marker := ""
	if s.Current {
		marker = "* "
	}
	dirty := ""
	if s.Current && !s.Clean {
		dirty = r.dim.Sprint(" (dirty)")
	}

	switch s.Relation {
	case classify.None:
		return r.yellow.Sprintf("%s%s [local only]", marker, s.Name) + dirty, false
	case classify.Gone:
		return r.red.Sprintf("%s%s [remote deleted]", marker, s.Name) + dirty, false
	case classify.Ahead:
		return r.yellow.Sprintf("%s%s [ahead %d]", marker, s.Name, s.Ahead) + dirty, true
	case classify.Behind:
		return r.yellow.Sprintf("%s%s [behind %d]", marker, s.Name, s.Behind) + dirty, true
	case classify.Diverged:
		return r.yellow.Sprintf("%s%s [ahead %d, behind %d]", marker, s.Name, s.Ahead, s.Behind) + dirty, true
	default:
		return r.green.Sprintf("%s%s [up to date]", marker, s.Name) + dirty, true
	}
}

// outcomeLine renders one action outcome. Successful fetch/prune are
// routine; anything actionable or surprising always shows.
func (r *reporter) outcomeLine(o actions.Outcome) (line string, routine bool) {
	subject := o.Action
	if o.Branch != "" {
		subject += " " + o.Branch
	}

	switch o.Status {
	case actions.Success:
		routine = o.Action == actions.ActionFetch || o.Action == actions.ActionPrune
		return r.green.Sprintf("[ok] %s", subject), routine
	case actions.Skipped:
		return r.yellow.Sprintf("[skip] %s: %s", subject, o.Reason), false
	default:
		return r.red.Sprintf("[fail] %s: %s", subject, o.Reason), false
	}
}

// summary prints the final counters.
func (r *reporter) summary(repos int, interrupted bool) {
	fmt.Println()
	line := fmt.Sprintf("%d repositories: %d actions ok, %d skipped, %d failed",
		repos, r.ok, r.skipped, r.failed)
	if r.repoErrs > 0 {
		line += fmt.Sprintf(", %d could not be classified", r.repoErrs)
	}
	if interrupted {
		line += " (interrupted)"
	}
	fmt.Println(r.bold.Sprint(line))
}

package main

import (
	"strings"
	"testing"

	"github.com/rcpd/git-garden/internal/actions"
	"github.com/rcpd/git-garden/internal/classify"
	"github.com/rcpd/git-garden/internal/config"
)

func TestApplyToFlagsWin(t *testing.T) {
	cfg := config.Config{
		RootDir:        "/config/repos",
		Depth:          3,
		Include:        []string{"from-config"},
		DefaultBranch:  "trunk",
		TimeoutSeconds: 30,
	}
	cli := CLI{
		Directory:     "/flag/repos",
		Depth:         5,
		Include:       []string{"from-flag"},
		Exclude:       []string{"archive"},
		DefaultBranch: "develop",
		Timeout:       10,
	}

	cli.applyTo(&cfg)

	if cfg.RootDir != "/flag/repos" || cfg.Depth != 5 || cfg.DefaultBranch != "develop" || cfg.TimeoutSeconds != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.Include) != 2 {
		t.Errorf("Include = %v, flag values should append", cfg.Include)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "archive" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
}

func TestApplyToUnsetFlagsKeepConfig(t *testing.T) {
	cfg := config.Config{RootDir: "/config/repos", Depth: 3, TimeoutSeconds: 30}
	cli := CLI{}

	cli.applyTo(&cfg)

	if cfg.RootDir != "/config/repos" || cfg.Depth != 3 || cfg.TimeoutSeconds != 30 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestReporterCountsOutcomes(t *testing.T) {
	r := newReporter(true)
	r.repo("/repos/a", nil, []actions.Outcome{
		{Action: actions.ActionFetch, Status: actions.Success},
		{Action: actions.ActionPrune, Status: actions.Success},
		{Action: actions.ActionDelete, Branch: "temp2", Status: actions.Skipped, Reason: "cannot delete the checked-out branch"},
		{Action: actions.ActionFastForward, Branch: "main", Status: actions.Failed, Reason: "timed out"},
	}, nil)

	if r.ok != 2 || r.skipped != 1 || r.failed != 1 {
		t.Errorf("counters: ok=%d skipped=%d failed=%d", r.ok, r.skipped, r.failed)
	}
}

func TestReporterQuietFiltering(t *testing.T) {
	r := newReporter(true)

	routineStatuses := []classify.BranchStatus{
		{Name: "main", Relation: classify.InSync, Current: true, Clean: true},
		{Name: "feature", Relation: classify.Ahead, Ahead: 1},
	}
	for _, s := range routineStatuses {
		if _, routine := r.branchLine(s); !routine {
			t.Errorf("%s should be routine", s.Name)
		}
	}

	noteworthy := []classify.BranchStatus{
		{Name: "temp", Relation: classify.None},
		{Name: "temp2", Relation: classify.Gone},
	}
	for _, s := range noteworthy {
		if _, routine := r.branchLine(s); routine {
			t.Errorf("%s should always be shown", s.Name)
		}
	}
}

func TestReporterOutcomeRoutineness(t *testing.T) {
	r := newReporter(true)

	if _, routine := r.outcomeLine(actions.Outcome{Action: actions.ActionFetch, Status: actions.Success}); !routine {
		t.Error("a successful fetch is routine")
	}
	if _, routine := r.outcomeLine(actions.Outcome{Action: actions.ActionDelete, Branch: "temp2", Status: actions.Success}); routine {
		t.Error("a deletion is always shown")
	}
	if _, routine := r.outcomeLine(actions.Outcome{Action: actions.ActionFetch, Status: actions.Failed, Reason: "timed out"}); routine {
		t.Error("failures are always shown")
	}
}

func TestReporterBranchLineContent(t *testing.T) {
	r := newReporter(false)

	line, _ := r.branchLine(classify.BranchStatus{Name: "main", Relation: classify.Behind, Behind: 2, Current: true, Clean: false})
	for _, want := range []string{"* main", "[behind 2]", "(dirty)"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}

	line, _ = r.branchLine(classify.BranchStatus{Name: "temp2", Relation: classify.Gone})
	if !strings.Contains(line, "temp2 [remote deleted]") {
		t.Errorf("line %q", line)
	}
	if strings.Contains(line, "*") {
		t.Errorf("non-current branch must not carry a marker: %q", line)
	}
}

func TestFlagList(t *testing.T) {
	cli := CLI{FF: true, Delete: true, Quiet: true}
	flags := cli.flagList()

	want := []string{"--ff", "--delete", "--quiet"}
	if len(flags) != len(want) {
		t.Fatalf("flags = %v, want %v", flags, want)
	}
	for i := range want {
		if flags[i] != want[i] {
			t.Errorf("flags[%d] = %q, want %q", i, flags[i], want[i])
		}
	}
}

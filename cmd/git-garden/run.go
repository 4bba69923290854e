package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/rcpd/git-garden/internal/actions"
	"github.com/rcpd/git-garden/internal/classify"
	"github.com/rcpd/git-garden/internal/config"
	"github.com/rcpd/git-garden/internal/discover"
	"github.com/rcpd/git-garden/internal/gitcmd"
	"github.com/rcpd/git-garden/internal/metrics"
	"github.com/rcpd/git-garden/pkg/git"
)

var (
	// errActionsFailed maps to exit code 1: at least one requested action
	// (fetch, prune, fast-forward, delete, purge) did not complete.
	errActionsFailed = errors.New("one or more actions failed")
	// errInterrupted maps to exit code 130.
	errInterrupted = errors.New("interrupted")
)

// Run executes a full garden pass: discover repositories, run the requested
// actions on each, classify branches, and report.
func (c *CLI) Run(ctx context.Context) error {
	if c.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Metrics are best-effort local telemetry; logging errors are discarded
	// because metrics must never interrupt a run.
	ml := metrics.NewOrNil()
	defer func() { _ = ml.Close() }()
	_ = ml.LogCommand(c.flagList())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.applyTo(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := actions.Options{
		Fetch:          !c.NoFetch,
		Prune:          !c.NoPrune,
		FastForward:    c.FF,
		Delete:         c.Delete,
		Purge:          c.Purge,
		DefaultBranch:  cfg.DefaultBranch,
		CountUntracked: cfg.CountUntracked,
	}
	if err := c.confirmDestructive(&opts, cfg.RootDir, ml); err != nil {
		return err
	}

	repos, err := discover.Repos(cfg.RootDir, discover.Options{
		Depth:   cfg.Depth,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		fmt.Println("No repositories found.")
		return nil
	}
	slog.Debug("found repositories", "count", len(repos), "root", cfg.RootDir)

	runner := gitcmd.New(time.Duration(cfg.TimeoutSeconds) * time.Second)
	gitc := git.NewClient(runner)

	// In-flight commands are never abandoned on interrupt: each command gets
	// only its own timeout, and the interrupt is honored between repositories.
	cmdCtx := context.WithoutCancel(ctx)

	rep := newReporter(c.Quiet)
	start := time.Now()
	interrupted := false

	for _, repoPath := range repos {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		c.processRepo(cmdCtx, gitc, repoPath, opts, rep)
	}

	_ = ml.LogRun(len(repos), rep.failed, int(time.Since(start).Milliseconds()))
	rep.summary(len(repos), interrupted)

	if interrupted {
		return errInterrupted
	}
	if rep.failed > 0 {
		return errActionsFailed
	}
	return nil
}

// processRepo runs the full per-repository sequence. All errors are
// recovered here; a broken repository never aborts the run.
func (c *CLI) processRepo(ctx context.Context, gitc *git.Client, repoPath string, opts actions.Options, rep *reporter) {
	slog.Debug("processing", "repo", repoPath)

	prepared, fetchOK := actions.Prepare(ctx, gitc, repoPath, opts)

	statuses, err := classify.Repo(ctx, gitc, repoPath, opts.CountUntracked)
	if err != nil {
		rep.repoError(repoPath, prepared, err)
		return
	}

	finished := actions.Finish(ctx, gitc, repoPath, statuses, opts, fetchOK)

	var remoteOnly []string
	if c.Remote {
		remoteOnly = remoteOnlyBranches(ctx, gitc, repoPath, statuses)
	}

	rep.repo(repoPath, statuses, append(prepared, finished...), remoteOnly)
}

// remoteOnlyBranches returns remote-tracking branch names that have no
// local branch of the same name. The origin/HEAD symref is skipped.
func remoteOnlyBranches(ctx context.Context, gitc *git.Client, repoPath string, statuses []classify.BranchStatus) []string {
	remotes, err := gitc.RemoteBranches(ctx, repoPath)
	if err != nil {
		slog.Warn("could not list remote branches", "repo", repoPath, "error", err)
		return nil
	}

	local := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		local[s.Name] = true
	}

	var only []string
	for _, r := range remotes {
		if strings.HasSuffix(r, "/HEAD") {
			continue
		}
		name := strings.TrimPrefix(r, "origin/")
		if !local[name] {
			only = append(only, name)
		}
	}
	return only
}

// confirmDestructive asks once, up front, before running in a destructive
// mode. Declining downgrades the run to report-only for that action.
func (c *CLI) confirmDestructive(opts *actions.Options, root string, ml *metrics.Logger) error {
	if c.Yes {
		return nil
	}

	if opts.Delete {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Delete orphaned local branches when found?").
					Description("Branches whose remote counterpart is gone are deleted with a safe (non-forced) delete.").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		_ = ml.LogAction("delete_orphans", metrics.Fingerprint(root), confirmed)
		opts.Delete = confirmed
	}

	if opts.Purge {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Delete ALL remote-tracking branches in every repository?").
					Description("They are restored on the next fetch, but this cannot be selectively undone.").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		_ = ml.LogAction("purge_remote_tracking", metrics.Fingerprint(root), confirmed)
		opts.Purge = confirmed
	}

	return nil
}

// applyTo layers CLI flags over the loaded configuration; flags win.
func (c *CLI) applyTo(cfg *config.Config) {
	if c.Directory != "" {
		cfg.RootDir = config.ExpandHome(c.Directory)
	}
	if c.Depth > 0 {
		cfg.Depth = c.Depth
	}
	if len(c.Include) > 0 {
		cfg.Include = append(cfg.Include, c.Include...)
	}
	if len(c.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, c.Exclude...)
	}
	if c.DefaultBranch != "" {
		cfg.DefaultBranch = c.DefaultBranch
	}
	if c.Timeout > 0 {
		cfg.TimeoutSeconds = c.Timeout
	}
}

// flagList renders the set flags for the metrics log.
func (c *CLI) flagList() []string {
	var flags []string
	if c.NoFetch {
		flags = append(flags, "--no-fetch")
	}
	if c.NoPrune {
		flags = append(flags, "--no-prune")
	}
	if c.FF {
		flags = append(flags, "--ff")
	}
	if c.Delete {
		flags = append(flags, "--delete")
	}
	if c.Remote {
		flags = append(flags, "--remote")
	}
	if c.Purge {
		flags = append(flags, "--purge")
	}
	if c.Quiet {
		flags = append(flags, "--quiet")
	}
	if c.Verbose {
		flags = append(flags, "--verbose")
	}
	return flags
}

// Package main provides the git-garden CLI tool for tending local git
// repositories: fetching, pruning, fast-forwarding, and weeding out
// orphaned branches across a directory tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI defines the command-line surface of git-garden. Action switches are
// per-run only; durable settings also live in the config file.
type CLI struct {
	Directory     string   `name:"directory" short:"d" help:"Root directory to scan." placeholder:"PATH"`
	Depth         int      `name:"depth" help:"Directory levels to search for repositories." placeholder:"N"`
	Include       []string `name:"include" help:"Only process paths containing this substring (repeatable)." placeholder:"SUBSTR"`
	Exclude       []string `name:"exclude" help:"Skip paths containing this substring (repeatable, wins over --include)." placeholder:"SUBSTR"`
	NoFetch       bool     `name:"no-fetch" help:"Skip fetching from remotes."`
	NoPrune       bool     `name:"no-prune" help:"Skip pruning of stale remote-tracking branches."`
	FF            bool     `name:"ff" help:"Fast-forward the default branch when it is behind its upstream."`
	Delete        bool     `name:"delete" help:"Delete orphaned local branches (safe delete, never the checked-out branch)."`
	Remote        bool     `name:"remote" help:"Also report remote-only branches."`
	Purge         bool     `name:"purge" help:"Delete ALL remote-tracking branches before fetching."`
	Quiet         bool     `name:"quiet" short:"q" help:"Suppress routine up-to-date and ahead/behind lines."`
	Yes           bool     `name:"yes" short:"y" help:"Skip confirmation prompts for destructive actions."`
	DefaultBranch string   `name:"default-branch" help:"Default branch to fast-forward (overrides main/master detection)." placeholder:"NAME"`
	Timeout       int      `name:"timeout" help:"Per-git-command timeout in seconds." placeholder:"SECONDS"`
	Verbose       bool     `name:"verbose" short:"v" help:"Verbose output."`

	Version kong.VersionFlag `name:"version" help:"Show version information and exit."`
}

// Exit codes beyond the usual 0/1: interrupted runs mirror the shell
// convention for SIGINT.
const exitInterrupted = 130

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("git-garden"),
		kong.Description(`git-garden - tend your local git repositories

Recursively scans a directory tree for git repositories and reports each
branch's state against its remote tracking branch, optionally fetching,
pruning, fast-forwarding the default branch, and deleting orphaned local
branches whose remote counterpart is gone.`),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("git-garden %s (commit: %s, built: %s)", version, commit, date)},
	)

	// A single interrupt finishes the in-flight git command and stops before
	// the next repository; a second interrupt kills the process outright.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Run(ctx)
	switch {
	case errors.Is(err, errInterrupted):
		fmt.Fprintln(os.Stderr, "git-garden: interrupted")
		os.Exit(exitInterrupted)
	case errors.Is(err, errActionsFailed):
		os.Exit(1)
	default:
		kctx.FatalIfErrorf(err)
	}
	os.Exit(0)
}

// Package gitcmd executes external commands with an enforced per-invocation
// timeout. A non-zero exit is a normal outcome reported in the Result, not an
// error; the error return is reserved for spawn failures such as a missing
// binary.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single command invocation so a hung network
// operation cannot stall the whole run.
const DefaultTimeout = 30 * time.Second

// Result holds the observable outcome of one command invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Runner runs an external command in a working directory. Implementations
// must not return an error for a non-zero exit code.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// GitRunner is a Runner that invokes the git binary.
type GitRunner struct {
	// Bin is the executable to invoke. Defaults to "git".
	Bin string
	// Timeout is the per-invocation limit. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// New returns a GitRunner with the given per-invocation timeout.
// A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *GitRunner {
	return &GitRunner{Timeout: timeout}
}

// Run executes the command in dir, capturing stdout and stderr. When the
// timeout elapses the Result has TimedOut set and ExitCode -1.
func (r *GitRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	bin := r.Bin
	if bin == "" {
		bin = "git"
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - args are assembled by this program, not user shell input
	cmd := exec.CommandContext(cctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if cctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s %s: %w", bin, strings.Join(args, " "), err)
	}
	return res, nil
}

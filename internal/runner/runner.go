// Package runner launches the external agent CLI and supervises its
// lifecycle: wrapper-script redirection on Windows, optional stdin payload,
// output capture, and timeout enforcement. It performs exactly one execution
// attempt per request, never retries, and never logs; reporting is the
// caller's concern.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/slipwaylabs/slipway/internal/consts"
)

// RunRequest holds parameters for one agent CLI invocation.
type RunRequest struct {
	Command string
	Args    []string
	// Dir is the child's working directory; empty means the caller's.
	Dir string
	// Timeout force-kills the child when positive; zero or negative disables.
	Timeout time.Duration
	// Input, when non-empty, is written to the child's stdin in full and the
	// stream is closed. Empty leaves stdin unattached.
	Input string
	// ExtraEnv entries (KEY=VALUE) are appended to the inherited environment.
	// The child always inherits the full ambient environment.
	ExtraEnv []string
}

// RunResult holds the outcome of a terminated invocation. A timed-out child
// still produces a RunResult: the forced kill surfaces through ExitCode
// (negative on signal-style termination) and whatever partial output was
// captured, never as an error.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes the agent CLI. Invocations share no state: each owns its
// process, buffers, and timer, so a single Runner is safe for concurrent use.
type Runner struct{}

func New() *Runner {
	return &Runner{}
}

// Run executes the request's command exactly once and blocks until the child
// terminates. It returns an error only when the child could not be started;
// once started, every termination (including a timeout kill) yields a
// RunResult.
func (r *Runner) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	inv := resolveInvocation(req.Command, req.Args)
	cmd := exec.CommandContext(ctx, inv.program, inv.argv...)
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	if len(req.ExtraEnv) > 0 {
		cmd.Env = append(os.Environ(), req.ExtraEnv...)
	}
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}

	if err := cmd.Start(); err != nil {
		return nil, startError(req.Command, err)
	}

	var timer *time.Timer
	if req.Timeout > 0 {
		timer = time.AfterFunc(req.Timeout, func() { killProcessGroup(cmd) })
	}
	waitErr := cmd.Wait()
	if timer != nil {
		timer.Stop()
	}

	res := &RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("wait %s: %w", req.Command, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

// startError distinguishes a missing executable, which gets a remediation
// hint naming the override environment variables, from every other start
// failure, which passes through unchanged.
func startError(command string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("executable %q not found: install the agent CLI or set %s or %s to its location: %w",
			command, consts.EnvAgentPath, consts.EnvAgentHome, err)
	}
	return err
}

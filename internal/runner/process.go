package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// maxSupervisedBytes caps each output stream of a supervised process.
// Supervised children may run for minutes, so unlike Run their accumulators
// are bounded.
const maxSupervisedBytes = 1 << 20 // 1 MiB

// Process represents a supervised invocation started without waiting.
type Process struct {
	cmd    *exec.Cmd
	stdout *boundedBuffer
	stderr *boundedBuffer
	done   chan struct{}

	mu       sync.RWMutex
	exitCode int
	waitErr  string
	finished bool
}

// Start launches the request's command and returns without waiting. The
// same start-error split as Run applies; timeout handling is identical.
func (r *Runner) Start(ctx context.Context, req *RunRequest) (*Process, error) {
	inv := resolveInvocation(req.Command, req.Args)
	cmd := exec.CommandContext(ctx, inv.program, inv.argv...)
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	if len(req.ExtraEnv) > 0 {
		cmd.Env = append(os.Environ(), req.ExtraEnv...)
	}
	setProcessGroup(cmd)

	stdout := newBoundedBuffer(maxSupervisedBytes)
	stderr := newBoundedBuffer(maxSupervisedBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if req.Input != "" {
		cmd.Stdin = strings.NewReader(req.Input)
	}

	if err := cmd.Start(); err != nil {
		return nil, startError(req.Command, err)
	}

	p := &Process{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}

	var timer *time.Timer
	if req.Timeout > 0 {
		timer = time.AfterFunc(req.Timeout, func() { killProcessGroup(cmd) })
	}

	go func() {
		defer close(p.done)
		waitErr := cmd.Wait()
		if timer != nil {
			timer.Stop()
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.finished = true
		if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				p.exitCode = exitErr.ExitCode()
			}
			p.waitErr = waitErr.Error()
		}
	}()

	return p, nil
}

// Done returns a channel that closes when the process exits. It is nil on
// a zero-value Process.
func (p *Process) Done() <-chan struct{} { return p.done }

// Result snapshots the captured output. The boolean reports whether the
// process has finished; before then the buffers hold whatever has arrived
// so far. Safe to call on a zero-value Process.
func (p *Process) Result() (*RunResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res := &RunResult{ExitCode: p.exitCode}
	if p.stdout != nil {
		res.Stdout = p.stdout.String()
	}
	if p.stderr != nil {
		res.Stderr = p.stderr.String()
	}
	return res, p.finished
}

// WaitErr returns the wait error message, if any, once the process finished.
func (p *Process) WaitErr() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waitErr
}

// Kill force-terminates the process and anything in its process group.
// Safe to call when cmd or cmd.Process is nil.
func (p *Process) Kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		killProcessGroup(p.cmd)
	}
}

// boundedBuffer keeps only the first N bytes, then discards. Writes and
// reads may come from different goroutines while the child runs.
type boundedBuffer struct {
	mu        sync.RWMutex
	max       int
	data      []byte
	truncated bool
}

func newBoundedBuffer(max int) *boundedBuffer {
	return &boundedBuffer{max: max, data: make([]byte, 0, min(max, 64*1024))}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return len(p), nil
	}
	remaining := b.max - len(b.data)
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.data = append(b.data, p[:remaining]...)
		b.truncated = true
	} else {
		b.data = append(b.data, p...)
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.data)
}

func (b *boundedBuffer) Truncated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.truncated
}

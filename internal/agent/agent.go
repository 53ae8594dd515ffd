// Package agent holds everything slipway knows about the wrapped CLI:
// argument building, output parsing, version probing, availability, and
// session bookkeeping. Spawning and supervising the process itself is
// internal/runner's job.
package agent

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/slipwaylabs/slipway/internal/consts"
	prom "github.com/slipwaylabs/slipway/internal/pkg/prometheus"
	"github.com/slipwaylabs/slipway/internal/runner"
)

// Executor abstracts the process runner so tests can substitute a fake.
type Executor interface {
	Run(ctx context.Context, req *runner.RunRequest) (*runner.RunResult, error)
	Start(ctx context.Context, req *runner.RunRequest) (Handle, error)
}

// Handle is the supervised-process surface the agent needs.
type Handle interface {
	Done() <-chan struct{}
	Result() (*runner.RunResult, bool)
	Kill()
}

type execRunner struct {
	r *runner.Runner
}

// NewExecutor returns the real runner-backed Executor.
func NewExecutor() Executor {
	return &execRunner{r: runner.New()}
}

func (e *execRunner) Run(ctx context.Context, req *runner.RunRequest) (*runner.RunResult, error) {
	return e.r.Run(ctx, req)
}

func (e *execRunner) Start(ctx context.Context, req *runner.RunRequest) (Handle, error) {
	p, err := e.r.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options configures the wrapped CLI.
type Options struct {
	// Binary is the executable name or explicit path. Empty falls back to
	// the default agent binary.
	Binary string
	// Model is the default --model value; empty lets the CLI choose.
	Model string
	// WorkDir is the default working directory for runs.
	WorkDir string
	// Timeout bounds each run; zero disables.
	Timeout time.Duration
	// ExtraArgs are appended to every invocation.
	ExtraArgs []string
	// MaxSessions caps concurrently tracked background sessions (0 = unlimited).
	MaxSessions int
}

// Agent drives one configured CLI installation.
type Agent struct {
	opts     Options
	exec     Executor
	sessions *SessionManager

	mu        sync.RWMutex
	available bool
	version   string

	closeCh   chan struct{}
	closeOnce sync.Once
}

func New(opts Options, exec Executor) *Agent {
	if exec == nil {
		exec = NewExecutor()
	}
	return &Agent{
		opts:     opts,
		exec:     exec,
		sessions: NewSessionManager(opts.MaxSessions),
		closeCh:  make(chan struct{}),
	}
}

// Binary resolves the executable to invoke: the path override environment
// variable wins, then the configured binary, then the default name.
func (a *Agent) Binary() string {
	if p := os.Getenv(consts.EnvAgentPath); p != "" {
		return p
	}
	if a.opts.Binary != "" {
		return a.opts.Binary
	}
	return consts.DefaultAgentBinary
}

// DefaultModel returns the configured default model, if any.
func (a *Agent) DefaultModel() string {
	return a.opts.Model
}

// Sessions exposes the background-session registry.
func (a *Agent) Sessions() *SessionManager {
	return a.sessions
}

// Close stops the heartbeat, if running.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() { close(a.closeCh) })
	return nil
}

// Request describes one prompt for the CLI.
type Request struct {
	Prompt   string
	Model    string // overrides Options.Model when set
	WorkDir  string // overrides Options.WorkDir when set
	ResumeID string // CLI-native session ID for --resume
	Timeout  time.Duration
}

// Result is the parsed outcome of one CLI run.
type Result struct {
	Text         string
	CLISessionID string
	ExitCode     int
	Stderr       string
	Duration     time.Duration
}

func (a *Agent) buildArgs(req *Request) []string {
	args := []string{"-p", req.Prompt, "--output-format", "json"}
	if model := a.modelFor(req); model != "" {
		args = append(args, "--model", model)
	}
	if req.ResumeID != "" {
		args = append(args, "--resume", req.ResumeID)
	}
	args = append(args, a.opts.ExtraArgs...)
	return args
}

func (a *Agent) modelFor(req *Request) string {
	if req.Model != "" {
		return req.Model
	}
	return a.opts.Model
}

func (a *Agent) workDirFor(req *Request) string {
	if req.WorkDir != "" {
		return req.WorkDir
	}
	return a.opts.WorkDir
}

func (a *Agent) timeoutFor(req *Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return a.opts.Timeout
}

// Run executes one prompt to completion and parses the CLI's output. A
// non-zero exit still returns a Result; the caller decides whether that is
// an error for its surface.
func (a *Agent) Run(ctx context.Context, req *Request) (*Result, error) {
	started := time.Now()
	rr, err := a.exec.Run(ctx, &runner.RunRequest{
		Command: a.Binary(),
		Args:    a.buildArgs(req),
		Dir:     a.workDirFor(req),
		Timeout: a.timeoutFor(req),
	})
	elapsed := time.Since(started)
	prom.AgentRunDuration.Observe(elapsed.Seconds())
	if err != nil {
		prom.AgentRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "ok"
	if rr.ExitCode != 0 {
		outcome = "nonzero_exit"
	}
	prom.AgentRunsTotal.WithLabelValues(outcome).Inc()

	res := parseOutput(rr.Stdout, rr.ExitCode)
	res.Stderr = rr.Stderr
	res.Duration = elapsed
	return res, nil
}

// StartSession launches a prompt in the background and tracks it in the
// session registry. The session's result fields fill in once the CLI exits.
func (a *Agent) StartSession(ctx context.Context, req *Request) (*Session, error) {
	s, err := a.sessions.CreateWithLimit(a.workDirFor(req))
	if err != nil {
		return nil, err
	}

	proc, err := a.exec.Start(ctx, &runner.RunRequest{
		Command: a.Binary(),
		Args:    a.buildArgs(req),
		Dir:     a.workDirFor(req),
		Timeout: a.timeoutFor(req),
	})
	if err != nil {
		a.sessions.Destroy(s.ID)
		return nil, err
	}
	s.attach(proc)

	go func() {
		<-proc.Done()
		rr, _ := proc.Result()
		parsed := parseOutput(rr.Stdout, rr.ExitCode)
		status := StatusCompleted
		if rr.ExitCode != 0 {
			status = StatusFailed
		}
		s.SetResult(parsed.CLISessionID, parsed.Text, status)
	}()

	return s, nil
}

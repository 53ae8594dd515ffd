package mcpserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/runner"
)

type fakeExecutor struct {
	mu       sync.Mutex
	reqs     []*runner.RunRequest
	runRes   *runner.RunResult
	runErr   error
	handle   *fakeHandle
	startErr error
}

var _ agent.Executor = (*fakeExecutor)(nil)

func (f *fakeExecutor) Run(_ context.Context, req *runner.RunRequest) (*runner.RunResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	res := *f.runRes
	return &res, nil
}

func (f *fakeExecutor) Start(_ context.Context, req *runner.RunRequest) (agent.Handle, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.handle, nil
}

func (f *fakeExecutor) last() *runner.RunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		return nil
	}
	return f.reqs[len(f.reqs)-1]
}

type fakeHandle struct {
	mu   sync.Mutex
	done chan struct{}
	res  *runner.RunResult
}

var _ agent.Handle = (*fakeHandle)(nil)

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (f *fakeHandle) Done() <-chan struct{} { return f.done }

func (f *fakeHandle) Result() (*runner.RunResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.res == nil {
		return nil, false
	}
	return f.res, true
}

func (f *fakeHandle) Kill() {}

func (f *fakeHandle) finish(res *runner.RunResult) {
	f.mu.Lock()
	f.res = res
	f.mu.Unlock()
	close(f.done)
}

// setup wires an agent backed by exec to a server + client over in-memory
// transports.
func setup(t *testing.T, exec agent.Executor, opts agent.Options) (*agent.Agent, *mcp.ClientSession) {
	t.Helper()
	ctx := context.Background()

	a := agent.New(opts, exec)
	server := NewServer(a)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
		_ = a.Close()
	})
	return a, cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestRunAgent(t *testing.T) {
	exec := &fakeExecutor{
		runRes: &runner.RunResult{
			Stdout: `{"type":"result","result":"the answer","session_id":"cli-7"}`,
		},
	}
	_, cs := setup(t, exec, agent.Options{Binary: "cursor-agent"})

	res := callTool(t, cs, "run_agent", map[string]any{"prompt": "hi there"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "the answer") {
		t.Errorf("expected answer text, got:\n%s", text)
	}
	if !strings.Contains(text, "cli-7") {
		t.Errorf("expected session id in output, got:\n%s", text)
	}

	req := exec.last()
	if req == nil {
		t.Fatal("executor never called")
	}
	if req.Args[1] != "hi there" {
		t.Errorf("prompt arg = %q, want %q", req.Args[1], "hi there")
	}
}

func TestRunAgentMissingPrompt(t *testing.T) {
	exec := &fakeExecutor{runRes: &runner.RunResult{}}
	_, cs := setup(t, exec, agent.Options{})

	res := callTool(t, cs, "run_agent", map[string]any{"prompt": "  "})
	if !res.IsError {
		t.Fatal("expected error result for blank prompt")
	}
	if text := resultText(res); !strings.Contains(text, "prompt is required") {
		t.Errorf("unexpected error text: %s", text)
	}
}

func TestRunAgentNonZeroExit(t *testing.T) {
	exec := &fakeExecutor{
		runRes: &runner.RunResult{
			Stdout:   "partial",
			Stderr:   "no api key\n",
			ExitCode: 2,
		},
	}
	_, cs := setup(t, exec, agent.Options{})

	res := callTool(t, cs, "run_agent", map[string]any{"prompt": "hi"})
	if !res.IsError {
		t.Fatal("expected error result for non-zero exit")
	}
	text := resultText(res)
	if !strings.Contains(text, "exited with code 2") {
		t.Errorf("expected exit code in output, got:\n%s", text)
	}
	if !strings.Contains(text, "no api key") {
		t.Errorf("expected stderr in output, got:\n%s", text)
	}
}

func TestRunAgentExecError(t *testing.T) {
	exec := &fakeExecutor{runErr: errors.New("spawn failed")}
	_, cs := setup(t, exec, agent.Options{})

	res := callTool(t, cs, "run_agent", map[string]any{"prompt": "hi"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if text := resultText(res); !strings.Contains(text, "spawn failed") {
		t.Errorf("expected underlying error in output, got: %s", text)
	}
}

func TestStartSessionAndList(t *testing.T) {
	handle := newFakeHandle()
	exec := &fakeExecutor{handle: handle}
	_, cs := setup(t, exec, agent.Options{})

	res := callTool(t, cs, "start_session", map[string]any{"prompt": "long task"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "sw-") {
		t.Fatalf("expected session id in output, got:\n%s", text)
	}

	listing := resultText(callTool(t, cs, "list_sessions", nil))
	if !strings.Contains(listing, "running") {
		t.Errorf("expected running session, got:\n%s", listing)
	}

	handle.finish(&runner.RunResult{
		Stdout: `{"type":"result","result":"task done","session_id":"cli-9"}`,
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		listing = resultText(callTool(t, cs, "list_sessions", nil))
		if strings.Contains(listing, "completed") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never completed:\n%s", listing)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(listing, "task done") {
		t.Errorf("expected output in listing, got:\n%s", listing)
	}
	if !strings.Contains(listing, "cli-9") {
		t.Errorf("expected resume id in listing, got:\n%s", listing)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	exec := &fakeExecutor{runRes: &runner.RunResult{}}
	_, cs := setup(t, exec, agent.Options{})

	if text := resultText(callTool(t, cs, "list_sessions", nil)); text != "No sessions." {
		t.Errorf("listing = %q, want %q", text, "No sessions.")
	}
}

func TestAgentStatusUnavailable(t *testing.T) {
	exec := &fakeExecutor{runRes: &runner.RunResult{}}
	_, cs := setup(t, exec, agent.Options{Binary: "cursor-agent"})

	text := resultText(callTool(t, cs, "agent_status", nil))
	if !strings.Contains(text, "Binary: cursor-agent") {
		t.Errorf("expected binary name, got:\n%s", text)
	}
	if !strings.Contains(text, "Available: no") {
		t.Errorf("expected unavailable before any probe, got:\n%s", text)
	}
}

func TestAgentStatusAvailable(t *testing.T) {
	exec := &fakeExecutor{runRes: &runner.RunResult{Stdout: "2025.1.30-bb2222\n"}}
	a, cs := setup(t, exec, agent.Options{Binary: "cursor-agent"})

	a.StartHeartbeat(context.Background())

	text := resultText(callTool(t, cs, "agent_status", nil))
	if !strings.Contains(text, "Available: yes") {
		t.Errorf("expected available after probe, got:\n%s", text)
	}
	if !strings.Contains(text, "2025.1.30-bb2222") {
		t.Errorf("expected version in output, got:\n%s", text)
	}
}

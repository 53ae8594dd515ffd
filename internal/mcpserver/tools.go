package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/pkg/utils"
)

// maxToolStderr caps how much stderr rides along in a failure result.
const maxToolStderr = 2000

type runAgentParams struct {
	Prompt         string `json:"prompt" jsonschema:"the prompt to send to the agent"`
	Model          string `json:"model,omitempty" jsonschema:"model name passed through to the CLI; empty uses the configured default"`
	WorkDir        string `json:"workdir,omitempty" jsonschema:"absolute directory to run in; empty uses the configured default"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"kill the run after this many seconds; zero uses the configured timeout"`
	Resume         string `json:"resume,omitempty" jsonschema:"session id from an earlier answer, to continue that conversation"`
}

func (h *handler) runAgentHandler(ctx context.Context, req *mcp.CallToolRequest, params runAgentParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Prompt) == "" {
		return errorResult("prompt is required")
	}

	res, err := h.agent.Run(ctx, &agent.Request{
		Prompt:   params.Prompt,
		Model:    params.Model,
		WorkDir:  params.WorkDir,
		ResumeID: params.Resume,
		Timeout:  time.Duration(params.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("agent run failed: %v", err))
	}
	if res.ExitCode != 0 {
		return errorResult(formatRunFailure(res))
	}

	var b strings.Builder
	b.WriteString(res.Text)
	if res.CLISessionID != "" {
		fmt.Fprintf(&b, "\n\n(session %s, pass as resume to continue)", res.CLISessionID)
	}
	return textResult(b.String())
}

func formatRunFailure(res *agent.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "agent exited with code %d", res.ExitCode)
	if res.Text != "" {
		fmt.Fprintf(&b, "\n%s", res.Text)
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", utils.Truncate(s, maxToolStderr))
	}
	return b.String()
}

type startSessionParams struct {
	Prompt         string `json:"prompt" jsonschema:"the prompt to run in the background"`
	Model          string `json:"model,omitempty" jsonschema:"model name passed through to the CLI; empty uses the configured default"`
	WorkDir        string `json:"workdir,omitempty" jsonschema:"absolute directory to run in; empty uses the configured default"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"kill the run after this many seconds; zero uses the configured timeout"`
}

func (h *handler) startSessionHandler(ctx context.Context, req *mcp.CallToolRequest, params startSessionParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Prompt) == "" {
		return errorResult("prompt is required")
	}

	s, err := h.agent.StartSession(ctx, &agent.Request{
		Prompt:  params.Prompt,
		Model:   params.Model,
		WorkDir: params.WorkDir,
		Timeout: time.Duration(params.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("failed to start session: %v", err))
	}
	return textResult(fmt.Sprintf("Started session %s. Poll list_sessions for its status.", s.ID))
}

type statusParams struct{}

func (h *handler) statusHandler(_ context.Context, req *mcp.CallToolRequest, _ statusParams) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Binary: %s\n", h.agent.Binary())
	if h.agent.Available() {
		b.WriteString("Available: yes\n")
		if v := h.agent.CachedVersion(); v != "" {
			fmt.Fprintf(&b, "Version: %s\n", v)
		}
	} else {
		b.WriteString("Available: no (binary missing or not responding)\n")
	}
	fmt.Fprintf(&b, "Sessions: %d tracked", len(h.agent.Sessions().List()))
	return textResult(b.String())
}

type listSessionsParams struct{}

func (h *handler) listSessionsHandler(_ context.Context, req *mcp.CallToolRequest, _ listSessionsParams) (*mcp.CallToolResult, any, error) {
	snaps := h.agent.Sessions().List()
	if len(snaps) == 0 {
		return textResult("No sessions.")
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d):\n", len(snaps))
	for _, s := range snaps {
		fmt.Fprintf(&b, "\n%s  %s  started %s\n", s.ID, s.Status, s.CreatedAt.Format(time.RFC3339))
		if s.WorkDir != "" {
			fmt.Fprintf(&b, "  workdir: %s\n", s.WorkDir)
		}
		if s.CLISessionID != "" {
			fmt.Fprintf(&b, "  resume id: %s\n", s.CLISessionID)
		}
		if s.Status != agent.StatusRunning && s.LastOutput != "" {
			fmt.Fprintf(&b, "  output: %s\n", s.LastOutput)
		}
	}
	return textResult(strings.TrimRight(b.String(), "\n"))
}

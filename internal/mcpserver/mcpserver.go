// Package mcpserver exposes the agent as MCP tools over stdio, so MCP
// hosts (editors, chat apps) can drive the wrapped CLI without shelling
// out themselves.
package mcpserver

import (
	_ "embed"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/slipwaylabs/slipway"
	"github.com/slipwaylabs/slipway/internal/agent"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	agent *agent.Agent
}

// ServerOption configures the slipway MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	version string
}

// WithVersion overrides the version reported in the server metadata.
func WithVersion(v string) ServerOption {
	return func(o *serverOptions) {
		o.version = v
	}
}

// NewServer creates an MCP server with the slipway tools registered. Run it
// with a stdio transport; log output must stay off stdout while it serves.
func NewServer(a *agent.Agent, opts ...ServerOption) *mcp.Server {
	h := &handler{agent: a}

	so := serverOptions{version: slipway.VERSION}
	for _, o := range opts {
		o(&so)
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "slipway", Version: so.version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name: "run_agent",
		Description: `Send one prompt to the coding agent CLI and wait for its answer.

The answer ends with a session id; pass it back as resume to continue the
same conversation. Long tasks are better started with start_session.`,
	}, h.runAgentHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "start_session",
		Description: `Start a prompt in the background and return immediately with a session id.

Use list_sessions to watch for completion and read the output.`,
	}, h.startSessionHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "agent_status",
		Description: "Report whether the agent CLI is installed and responding, and which version.",
	}, h.statusHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List tracked background sessions with status and, once finished, their output.",
	}, h.listSessionsHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}

package main

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/mcpserver"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
)

var mcpHwd = &MCPRunner{}

type MCPRunner struct{}

func (r *MCPRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve agent tools to an MCP host over stdio",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "instructions",
				Usage: "Print the server instructions and exit",
			},
		},
		Action: r.run,
	}
}

func (r *MCPRunner) run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("instructions") {
		fmt.Print(mcpserver.Instructions)
		return nil
	}

	cfg, err := config.LoadOrDefault(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}

	// stdout belongs to the MCP transport; logs must stay off it.
	logCfg := cfg.Logging
	if logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	if err = initLogs(logCfg, cmd.String("log-level")); err != nil {
		return fmt.Errorf("init logger error: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ag := agent.New(agentOptions(cfg.Agent), nil)
	defer ag.Close()
	ag.StartHeartbeat(ctx)

	logs.CtxInfo(ctx, "mcp server on stdio, agent: %s", ag.Binary())

	server := mcpserver.NewServer(ag)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

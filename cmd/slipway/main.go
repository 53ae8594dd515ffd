package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway"
	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/consts"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
)

func main() {
	cmd := &cli.Command{
		Name:    "slipway",
		Usage:   "Serve a local coding agent CLI over an OpenAI-compatible API and MCP",
		Version: slipway.VERSION,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the config file (default ~/.slipway/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serveHwd.cmd(),
			runHwd.cmd(),
			mcpHwd.cmd(),
			jobHwd.cmd(),
			initHwd.cmd(),
			updateHwd.cmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logs.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

// configPath returns the --config override or the default location.
func configPath(cmd *cli.Command) string {
	if p := cmd.String("config"); p != "" {
		return p
	}
	return consts.DefaultConfigPath()
}

// initLogs configures the global logger from config, honoring a --log-level
// override.
func initLogs(cfg config.LoggingConfig, levelOverride string) error {
	level := cfg.Level
	if levelOverride != "" {
		level = levelOverride
	}
	return logs.Init(logs.Options{
		Level:      level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		File:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}

func agentOptions(cfg config.AgentConfig) agent.Options {
	return agent.Options{
		Binary:      cfg.Executable(),
		Model:       cfg.Model,
		WorkDir:     cfg.WorkDir,
		Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		ExtraArgs:   cfg.ExtraArgs,
		MaxSessions: cfg.MaxSessions,
	}
}

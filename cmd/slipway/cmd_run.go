package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
)

var runHwd = &RunRunner{}

type RunRunner struct{}

func (r *RunRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Send one prompt to the agent and print its answer",
		ArgsUsage: "[prompt]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model passed through to the agent CLI",
			},
			&cli.StringFlag{
				Name:    "workdir",
				Aliases: []string{"C"},
				Usage:   "Directory to run in",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "Session id from an earlier run to continue",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Seconds before the run is killed (0 = configured default)",
			},
		},
		Action: r.run,
	}
}

func (r *RunRunner) run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadOrDefault(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}

	// stdout carries the answer, so logs go to stderr.
	logCfg := cfg.Logging
	if logCfg.Output == "stdout" || logCfg.Output == "" {
		logCfg.Output = "stderr"
	}
	if err = initLogs(logCfg, cmd.String("log-level")); err != nil {
		return fmt.Errorf("init logger error: %w", err)
	}

	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		data, rerr := io.ReadAll(os.Stdin)
		if rerr != nil {
			return fmt.Errorf("read prompt from stdin: %w", rerr)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return fmt.Errorf("no prompt given (pass it as arguments or on stdin)")
	}

	ag := agent.New(agentOptions(cfg.Agent), nil)
	defer ag.Close()

	res, err := ag.Run(ctx, &agent.Request{
		Prompt:   prompt,
		Model:    cmd.String("model"),
		WorkDir:  cmd.String("workdir"),
		ResumeID: cmd.String("resume"),
		Timeout:  time.Duration(cmd.Int("timeout")) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("run agent: %w", err)
	}

	if res.Text != "" {
		fmt.Println(res.Text)
	}
	if res.ExitCode != 0 {
		if s := strings.TrimSpace(res.Stderr); s != "" {
			fmt.Fprintln(os.Stderr, s)
		}
		return cli.Exit("", res.ExitCode)
	}
	return nil
}

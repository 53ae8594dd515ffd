package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/bridge"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
	"github.com/slipwaylabs/slipway/internal/pkg/updater"
	"github.com/slipwaylabs/slipway/internal/sched"
)

var serveHwd = &ServeRunner{}

type ServeRunner struct{}

func (r *ServeRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the API bridge, scheduler, and agent heartbeat",
		Action: r.run,
	}
}

func (r *ServeRunner) run(ctx context.Context, cmd *cli.Command) error {
	cfgPath := configPath(cmd)

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		fmt.Println("slipway is not configured yet. Run \"slipway init\" to get started.")
		return nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config error: %w", err)
	}

	if err = initLogs(cfg.Logging, cmd.String("log-level")); err != nil {
		return fmt.Errorf("init logger error: %w", err)
	}

	logs.CtxInfo(ctx, "booting slipway, using config file: %s", cfgPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ag := agent.New(agentOptions(cfg.Agent), nil)
	ag.StartHeartbeat(ctx)
	if !ag.Available() {
		logs.CtxWarn(ctx, "agent binary %q is not responding, runs will fail until it works", ag.Binary())
	}

	br := bridge.New(cfg.Gateway, ag)
	if err = br.Start(ctx); err != nil {
		cancel()
		_ = br.Stop(context.Background())
		return fmt.Errorf("start bridge: %w", err)
	}

	var sc *sched.Scheduler
	if cfg.Sched.Enabled != nil && *cfg.Sched.Enabled {
		sc = sched.NewScheduler(cfg.Sched, ag)
		if err = sc.Start(ctx); err != nil {
			logs.CtxError(ctx, "start scheduler: %v", err)
			sc = nil
		}
	}

	if cfg.Update.Check != nil && *cfg.Update.Check {
		go updater.StartCheckLoop(ctx, updater.New(), 0)
	}

	logs.CtxInfo(ctx, "slipway is up. Press Ctrl+C to stop.")

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case sig := <-signalCh:
		logs.CtxInfo(ctx, "received shutdown signal (%s), stopping...", sig.String())
	case <-ctx.Done():
		logs.CtxInfo(ctx, "context canceled, stopping...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if sc != nil {
		sc.Stop(stopCtx)
	}
	if err = br.Stop(stopCtx); err != nil {
		logs.CtxError(ctx, "stop bridge error: %v", err)
	}
	_ = ag.Close()

	logs.CtxInfo(ctx, "everything stopped cleanly, see you")
	return nil
}

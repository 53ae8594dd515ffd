package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/consts"
	"github.com/slipwaylabs/slipway/internal/pkg/updater"
)

var updateHwd = &UpdateRunner{}

type UpdateRunner struct{}

func (r *UpdateRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Update slipway to the latest GitHub release",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "install without asking",
			},
		},
		Action: r.run,
	}
}

func (r *UpdateRunner) run(ctx context.Context, cmd *cli.Command) error {
	fmt.Printf("slipway %s\n", slipway.VERSION)

	u := updater.New()
	release, err := u.Check(ctx)
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}
	if release == nil {
		cSuccess.Println("Already up to date.")
		return nil
	}

	cStep.Printf("New version available: %s\n", release.TagName)
	if !cmd.Bool("yes") && !askYes("Download and install?") {
		fmt.Println("Update cancelled.")
		return nil
	}

	if err := r.install(ctx, u, release); err != nil {
		return err
	}

	cSuccess.Printf("Updated to %s.\n", release.TagName)
	if serveIsUp() {
		cWarn.Println("slipway serve is still running the old build; restart it to pick up the update.")
	}
	return nil
}

func (r *UpdateRunner) install(ctx context.Context, u *updater.Updater, release *updater.Release) error {
	stage, err := os.MkdirTemp("", "slipway-update-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	fmt.Println("Downloading...")
	binary, err := u.Download(ctx, release, stage)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	fmt.Println("Installing...")
	if err := u.Apply(binary); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

// askYes reads one line from stdin; only y/Y accepts.
func askYes(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y"
}

// serveIsUp probes the configured gateway's health endpoint.
func serveIsUp() bool {
	cfg, err := config.Load(consts.DefaultConfigPath())
	if err != nil || cfg.Gateway.Bind == "" {
		return false
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + cfg.Gateway.Bind + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

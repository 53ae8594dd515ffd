package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/pkg/utils"
	"github.com/slipwaylabs/slipway/internal/sched"
)

var jobHwd = &JobRunner{}

type JobRunner struct{}

func (r *JobRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:  "job",
		Usage: "Manage scheduled agent prompts",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a job (exactly one of --every, --cron, --at)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Job name shown in listings",
					},
					&cli.StringFlag{
						Name:     "prompt",
						Usage:    "Prompt to run",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model passed through to the agent CLI",
					},
					&cli.StringFlag{
						Name:  "workdir",
						Usage: "Directory to run in",
					},
					&cli.StringFlag{
						Name:  "every",
						Usage: "Run at a fixed interval (Go duration, e.g. 30m)",
					},
					&cli.StringFlag{
						Name:  "cron",
						Usage: "Run on a 5-field cron expression (e.g. \"0 9 * * 1-5\")",
					},
					&cli.StringFlag{
						Name:  "at",
						Usage: "Run once at an RFC 3339 time",
					},
				},
				Action: r.add,
			},
			{
				Name:   "list",
				Usage:  "List persisted jobs",
				Action: r.list,
			},
			{
				Name:      "rm",
				Usage:     "Remove a job",
				ArgsUsage: "<job-id>",
				Action:    r.remove,
			},
			{
				Name:      "run",
				Usage:     "Run a job now, regardless of its schedule",
				ArgsUsage: "<job-id>",
				Action:    r.runNow,
			},
		},
	}
}

func (r *JobRunner) scheduler(cmd *cli.Command) (*sched.Scheduler, error) {
	cfg, err := config.LoadOrDefault(configPath(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config error: %w", err)
	}
	sc := sched.NewScheduler(cfg.Sched, agent.New(agentOptions(cfg.Agent), nil))
	if err := sc.Load(); err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	return sc, nil
}

func (r *JobRunner) add(_ context.Context, cmd *cli.Command) error {
	schedType, schedule, err := scheduleFromFlags(cmd)
	if err != nil {
		return err
	}

	sc, err := r.scheduler(cmd)
	if err != nil {
		return err
	}

	job, err := sc.AddJob(sched.Job{
		Name:         cmd.String("name"),
		Prompt:       cmd.String("prompt"),
		Model:        cmd.String("model"),
		WorkDir:      cmd.String("workdir"),
		ScheduleType: schedType,
		Schedule:     schedule,
		Enabled:      true,
	})
	if err != nil {
		return fmt.Errorf("add job: %w", err)
	}

	fmt.Printf("Added job %s", job.ID)
	if job.NextRunAt != nil {
		fmt.Printf(", next run %s", job.NextRunAt.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func scheduleFromFlags(cmd *cli.Command) (sched.ScheduleType, string, error) {
	set := 0
	var schedType sched.ScheduleType
	var schedule string
	if v := cmd.String("every"); v != "" {
		set++
		schedType, schedule = sched.ScheduleEvery, v
	}
	if v := cmd.String("cron"); v != "" {
		set++
		schedType, schedule = sched.ScheduleCron, v
	}
	if v := cmd.String("at"); v != "" {
		set++
		schedType, schedule = sched.ScheduleAt, v
	}
	if set != 1 {
		return "", "", fmt.Errorf("exactly one of --every, --cron, --at is required")
	}
	return schedType, schedule, nil
}

func (r *JobRunner) list(_ context.Context, cmd *cli.Command) error {
	sc, err := r.scheduler(cmd)
	if err != nil {
		return err
	}

	jobs := sc.ListJobs()
	if len(jobs) == 0 {
		fmt.Println("No jobs. Add one with \"slipway job add\".")
		return nil
	}

	for _, j := range jobs {
		state := "enabled"
		if !j.Enabled {
			state = "disabled"
		}
		name := j.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s  [%s %s]  %s\n", j.ID, name, j.ScheduleType, j.Schedule, state)
		fmt.Printf("    prompt: %s\n", utils.Truncate80(j.Prompt))
		if j.NextRunAt != nil {
			fmt.Printf("    next run: %s\n", j.NextRunAt.Format(time.RFC3339))
		}
		if j.LastRunAt != nil {
			fmt.Printf("    last run: %s (exit %d)\n", j.LastRunAt.Format(time.RFC3339), j.LastExitCode)
		}
		if j.ConsecutiveErr > 0 {
			fmt.Printf("    consecutive errors: %d\n", j.ConsecutiveErr)
		}
	}
	return nil
}

func (r *JobRunner) remove(_ context.Context, cmd *cli.Command) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}

	sc, err := r.scheduler(cmd)
	if err != nil {
		return err
	}
	if err := sc.RemoveJob(jobID); err != nil {
		return err
	}
	fmt.Printf("Removed job %s\n", jobID)
	return nil
}

func (r *JobRunner) runNow(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}

	sc, err := r.scheduler(cmd)
	if err != nil {
		return err
	}

	job, err := sc.RunJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.LastExitCode != 0 {
		fmt.Printf("Job %s finished with exit code %d\n", job.ID, job.LastExitCode)
	} else {
		fmt.Printf("Job %s finished\n", job.ID)
	}
	if job.LastOutput != "" {
		fmt.Println(job.LastOutput)
	}
	return nil
}

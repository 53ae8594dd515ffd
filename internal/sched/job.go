package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleType defines how a job's execution time is determined.
type ScheduleType string

const (
	// ScheduleEvery runs at a fixed interval (Go duration string, e.g. "5m", "1h30m").
	ScheduleEvery ScheduleType = "every"
	// ScheduleCron uses a standard 5-field cron expression.
	ScheduleCron ScheduleType = "cron"
	// ScheduleAt fires once at a specific RFC 3339 timestamp.
	ScheduleAt ScheduleType = "at"
)

// Job is one scheduled prompt for the agent.
type Job struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Prompt       string       `json:"prompt"`
	Model        string       `json:"model,omitempty"`
	WorkDir      string       `json:"workdir,omitempty"`
	ScheduleType ScheduleType `json:"schedule_type"`
	Schedule     string       `json:"schedule"` // "5m" | "0 9 * * *" | "2026-03-01T09:00:00Z"
	Enabled      bool         `json:"enabled"`

	// --- runtime state ---
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastExitCode   int        `json:"last_exit_code,omitempty"`
	LastOutput     string     `json:"last_output,omitempty"`
	ConsecutiveErr int        `json:"consecutive_err,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// 5-field expressions, minute through day-of-week.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextRun computes when the job should fire next, relative to from. The zero
// time with a nil error means a one-shot whose moment has already passed.
func (j *Job) nextRun(from time.Time) (time.Time, error) {
	switch j.ScheduleType {
	case ScheduleEvery:
		return nextEvery(j.Schedule, from)
	case ScheduleCron:
		return nextCron(j.Schedule, from)
	case ScheduleAt:
		return nextAt(j.Schedule, from)
	default:
		return time.Time{}, fmt.Errorf("unknown schedule type: %s", j.ScheduleType)
	}
}

func nextEvery(expr string, from time.Time) (time.Time, error) {
	d, err := time.ParseDuration(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse every duration %q: %w", expr, err)
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("every duration %q is not positive", expr)
	}
	return from.Add(d), nil
}

func nextCron(expr string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

func nextAt(expr string, from time.Time) (time.Time, error) {
	at, err := time.Parse(time.RFC3339, expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse at timestamp %q: %w", expr, err)
	}
	if !at.After(from) {
		return time.Time{}, nil
	}
	return at, nil
}

// Failure backoff climbs 30s, 1m, 5m, 15m and stays at an hour.
var backoffSteps = [...]time.Duration{
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	time.Hour,
}

func backoffDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > len(backoffSteps) {
		failures = len(backoffSteps)
	}
	return backoffSteps[failures-1]
}

// Package sched fires persisted jobs through the agent on a fixed tick.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
	prom "github.com/slipwaylabs/slipway/internal/pkg/prometheus"
	"github.com/slipwaylabs/slipway/internal/pkg/utils"
)

const (
	tickInterval  = 30 * time.Second
	maxKeptOutput = 2000 // bytes of job output retained in the store
)

// AgentRunner is the slice of the agent the scheduler needs.
type AgentRunner interface {
	Run(ctx context.Context, req *agent.Request) (*agent.Result, error)
}

// Scheduler persists jobs and runs the due ones through the agent. Jobs run
// one at a time; a long agent run delays later jobs instead of stacking CLI
// processes.
type Scheduler struct {
	store  *Store
	runner AgentRunner
	cfg    config.SchedConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler backed by the store path in cfg.
func NewScheduler(cfg config.SchedConfig, runner AgentRunner) *Scheduler {
	return &Scheduler{
		store:  NewStore(cfg.Store),
		runner: runner,
		cfg:    cfg,
	}
}

// Load reads the persisted jobs without starting the loop. One-shot CLI
// commands use this; Start calls it itself.
func (s *Scheduler) Load() error {
	return s.store.Open()
}

// Start loads persisted jobs and begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.store.Open(); err != nil {
		return fmt.Errorf("open job store: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)

	logs.CtxInfo(ctx, "[sched] scheduler started, %d jobs", len(s.store.All()))
	return nil
}

// Stop cancels the tick loop and waits for an in-flight job to finish, up
// to ctx's deadline. The store needs no final save, every mutation already
// hit disk.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cancel == nil {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logs.CtxInfo(ctx, "[sched] scheduler stopped")
	case <-ctx.Done():
		logs.CtxWarn(ctx, "[sched] stop timed out waiting for a running job")
	}
}

// AddJob validates the schedule, assigns an ID when missing, computes the
// first run time, and persists the job.
func (s *Scheduler) AddJob(job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	next, err := job.nextRun(time.Now())
	if err != nil {
		return Job{}, fmt.Errorf("calc initial next run: %w", err)
	}
	if next.IsZero() {
		return Job{}, fmt.Errorf("one-shot schedule %q is already in the past", job.Schedule)
	}
	job.NextRunAt = &next

	if err := s.store.Insert(job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// RemoveJob removes a job by ID and persists the change.
func (s *Scheduler) RemoveJob(jobID string) error {
	found, err := s.store.Delete(jobID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

// ListJobs returns all registered jobs, oldest first.
func (s *Scheduler) ListJobs() []Job {
	return s.store.All()
}

// RunJob fires a job immediately, regardless of its schedule, and returns
// the job with updated bookkeeping.
func (s *Scheduler) RunJob(ctx context.Context, jobID string) (Job, error) {
	job, ok := s.store.Get(jobID)
	if !ok {
		return Job{}, fmt.Errorf("job not found: %s", jobID)
	}

	s.executeJob(ctx, job, time.Now())

	job, _ = s.store.Get(jobID)
	return job, nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, job := range s.store.Due(now) {
				if ctx.Err() != nil {
					return
				}
				s.executeJob(ctx, job, now)
			}
		}
	}
}

func (s *Scheduler) executeJob(ctx context.Context, job Job, now time.Time) {
	res, err := s.runner.Run(ctx, &agent.Request{
		Prompt:  job.Prompt,
		Model:   job.Model,
		WorkDir: job.WorkDir,
		Timeout: s.jobTimeout(),
	})

	job.LastRunAt = &now

	switch {
	case err != nil:
		prom.SchedJobRunsTotal.WithLabelValues("error").Inc()
		logs.CtxWarn(ctx, "[sched] job %s (%s) failed: %v", job.Name, job.ID, err)
		job.ConsecutiveErr++
		s.rescheduleWithBackoff(&job, now)

	case res.ExitCode != 0:
		prom.SchedJobRunsTotal.WithLabelValues("nonzero_exit").Inc()
		logs.CtxWarn(ctx, "[sched] job %s (%s) exited %d", job.Name, job.ID, res.ExitCode)
		job.LastExitCode = res.ExitCode
		job.LastOutput = utils.Truncate(res.Text, maxKeptOutput)
		job.ConsecutiveErr++
		s.rescheduleWithBackoff(&job, now)

	default:
		prom.SchedJobRunsTotal.WithLabelValues("ok").Inc()
		logs.CtxInfo(ctx, "[sched] job %s (%s) done in %s", job.Name, job.ID, res.Duration)
		job.LastExitCode = 0
		job.LastOutput = utils.Truncate(res.Text, maxKeptOutput)
		job.ConsecutiveErr = 0
		s.reschedule(&job, now)
	}
}

func (s *Scheduler) jobTimeout() time.Duration {
	timeout := time.Duration(s.cfg.JobTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return timeout
}

func (s *Scheduler) reschedule(job *Job, from time.Time) {
	next, err := job.nextRun(from)
	switch {
	case err != nil:
		logs.Warn("[sched] reschedule %s failed: %v, disabling", job.ID, err)
		job.Enabled = false
		job.NextRunAt = nil
	case next.IsZero():
		// One-shot (ScheduleAt) that has now run.
		job.Enabled = false
		job.NextRunAt = nil
	default:
		job.NextRunAt = &next
	}
	s.persist(job)
}

func (s *Scheduler) rescheduleWithBackoff(job *Job, from time.Time) {
	delay := backoffDelay(job.ConsecutiveErr)
	next := from.Add(delay)
	job.NextRunAt = &next
	logs.Warn("[sched] job %s backoff %v (errors=%d)", job.ID, delay, job.ConsecutiveErr)
	s.persist(job)
}

func (s *Scheduler) persist(job *Job) {
	if err := s.store.Put(*job); err != nil {
		logs.Warn("[sched] persist job %s: %v", job.ID, err)
	}
}

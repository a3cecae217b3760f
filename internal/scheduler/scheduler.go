// Package scheduler implements the cron-driven job runner of spec §4.5:
// jobs are registered with a timezone-fixed robfig/cron/v3 scheduler,
// their factories are fired directly (not through the task engine), and
// last_run/next_run are recorded on both success and error.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

// JobFunc is a scheduled job body; it receives a progress callback the
// same shape as the task engine's, even though the scheduler never
// routes it through internal/taskqueue.
type JobFunc func(ctx context.Context, progress domain.ProgressCallback) error

type registeredJob struct {
	id       int64
	name     string
	jobType  string
	cronExpr string
	schedule cron.Schedule
	fn       JobFunc
	entryID  cron.EntryID
}

// Scheduler owns the cron runner and the registered job table.
type Scheduler struct {
	db       *storage.DB
	cron     *cron.Cron
	location *time.Location
	ctx      context.Context

	jobs map[string]*registeredJob
}

// New builds a Scheduler fixed to the named IANA timezone (spec §4.5:
// "timezone fixed per config, default Asia/Shanghai").
func New(db *storage.DB, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		db:       db,
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
		jobs:     make(map[string]*registeredJob),
	}, nil
}

// Register persists the job row (creating or updating it) and adds it
// to the cron runner. Disabled jobs are registered but paused: their
// cron.Schedule still computes next_run, but the entry is never added
// to the runner so it never fires (spec §4.5 "disabled rows are
// registered but paused").
func (s *Scheduler) Register(name, jobType, cronExpr string, enabled bool, fn JobFunc) error {
	id, err := s.db.UpsertScheduledTask(name, jobType, cronExpr, enabled)
	if err != nil {
		return fmt.Errorf("scheduler: upsert scheduled task %q: %w", name, err)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("scheduler: parse cron expression %q: %w", cronExpr, err)
	}

	job := &registeredJob{id: id, name: name, jobType: jobType, cronExpr: cronExpr, schedule: schedule, fn: fn}
	s.jobs[name] = job

	if err := s.db.SetScheduledTaskNextRun(id, schedule.Next(time.Now().In(s.location))); err != nil {
		return fmt.Errorf("scheduler: record initial next_run for %q: %w", name, err)
	}

	if enabled {
		entryID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(job) }))
		job.entryID = entryID
	}

	return nil
}

// Start begins firing registered jobs. ctx bounds every job invocation.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow advances name's next fire time to now and runs it immediately,
// bypassing the cron trigger (spec §4.5 "RunNow(task_id): advance the
// job's next fire time to now").
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	if err := s.db.SetScheduledTaskNextRun(job.id, time.Now().In(s.location)); err != nil {
		return err
	}
	go s.run(job)
	return nil
}

func (s *Scheduler) run(job *registeredJob) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().In(s.location)
	next := job.schedule.Next(now)

	err := job.fn(ctx, func(progress int, description string) {
		logger.Infof("scheduler: job %q progress %d%%: %s", job.name, progress, description)
	})

	if err != nil {
		logger.Errorf("scheduler: job %q failed: %v", job.name, err)
	}

	if recErr := s.db.RecordScheduledTaskRun(job.id, now, next); recErr != nil {
		logger.Warnf("scheduler: record run for job %q: %v", job.name, recErr)
	}
}

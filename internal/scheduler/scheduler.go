package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spreadinsight/newsbot/internal/logger"
)

// Job is one pipeline run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron expression in a fixed time zone.
// Overlapping triggers are skipped while a run is still in progress.
type Scheduler struct {
	cron *cron.Cron
	spec string
	loc  *time.Location
}

func New(spec, timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	return &Scheduler{cron: c, spec: spec, loc: loc}, nil
}

// Start registers job and starts the scheduler. It returns when ctx is done,
// after the running job (if any) has finished.
func (s *Scheduler) Start(ctx context.Context, job Job) error {
	if job == nil {
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := job(ctx); err != nil {
			logger.Error("Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Scheduler started", "schedule", s.spec, "timezone", s.loc.String(), "next", s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
	return nil
}

// Next returns the first trigger time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, err := cron.ParseStandard(s.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.In(s.loc))
}

// cronLogger adapts the package logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Package scheduler runs maintenance jobs, such as cache warming, on a
// cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dwizi/playbot/internal/heartbeat"
)

const componentName = "scheduler"

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Job struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Service struct {
	schedule cron.Schedule
	expr     string
	jobs     []Job
	logger   *slog.Logger
	reporter heartbeat.Reporter
	now      func() time.Time
}

// ParseSchedule accepts five field cron expressions and descriptors such
// as "@hourly" or "@every 6h".
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.Join(strings.Fields(expr), " ")
	if expr == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return schedule, nil
}

func New(expr string, jobs []Job, logger *slog.Logger) (*Service, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	return &Service{
		schedule: schedule,
		expr:     expr,
		jobs:     jobs,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *Service) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	s.reporter = reporter
}

// Start runs every job once, then again at each scheduled time until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if len(s.jobs) == 0 {
		if s.reporter != nil {
			s.reporter.Disabled(componentName, "no jobs")
		}
		<-ctx.Done()
		return nil
	}
	s.logger.Info("scheduler started", "schedule", s.expr, "jobs", len(s.jobs))
	for {
		s.RunOnce(ctx)
		wait := s.schedule.Next(s.now()).Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce runs every job in order. A failing job does not stop the rest.
func (s *Service) RunOnce(ctx context.Context) {
	failed := 0
	var lastErr error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		if err := s.runJob(ctx, job); err != nil {
			failed++
			lastErr = err
			s.logger.Error("scheduled job failed", "job", job.Name, "error", err)
		}
	}
	if s.reporter == nil {
		return
	}
	if failed > 0 {
		s.reporter.Degrade(componentName, fmt.Sprintf("%d of %d jobs failed", failed, len(s.jobs)), lastErr)
		return
	}
	s.reporter.Beat(componentName, "jobs completed")
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	if job.Run == nil {
		return nil
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	startedAt := s.now()
	if err := job.Run(ctx); err != nil {
		return err
	}
	s.logger.Debug("scheduled job completed", "job", job.Name, "duration", s.now().Sub(startedAt).String())
	return nil
}

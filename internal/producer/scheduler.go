package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jpdna/utils/internal/logfields"
)

// Scheduler wraps gocron scheduler for periodic flushes.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running tasks.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. A run still in progress when the
// next one is due causes that run to be skipped.
// Returns the job ID for later management.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// FlushEvery schedules p.Flush every interval. Each flush is bounded by
// timeout, or by interval when timeout is not positive, and is skipped once
// ctx is done.
func (s *Scheduler) FlushEvery(ctx context.Context, p *Producer, interval, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = interval
	}
	return s.ScheduleEvery(fmt.Sprintf("flush-%s", p.ID()), interval, func() {
		if ctx.Err() != nil {
			return
		}
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := p.Flush(fctx); err != nil {
			slog.Error("Scheduled flush failed",
				logfields.Producer(p.ID()),
				logfields.Interval(interval),
				logfields.Error(err))
		}
	})
}

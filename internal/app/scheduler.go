package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bobmcallan/folio/internal/common"
)

// TaskFunc is a scheduled unit of work
type TaskFunc func(ctx context.Context) error

// Scheduler runs background jobs. Each job runs in singleton mode, so a
// slow run delays the next one instead of overlapping it.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *common.Logger
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *common.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduler shutdown")
	}
}

// Every registers fn to run every interval
func (s *Scheduler) Every(name string, interval time.Duration, startImmediately bool, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}

	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.withRecover(name, fn)),
		opts...,
	); err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) withRecover(name string, fn TaskFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("job", name).
					Str("panic", fmt.Sprint(r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered in scheduled job")
			}
		}()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Warn().Str("job", name).Err(err).Msg("Scheduled job failed")
			return
		}
		s.logger.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("Scheduled job completed")
	}
}

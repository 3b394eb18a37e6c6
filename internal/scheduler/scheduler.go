package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules, in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// AddJob registers fn under spec (standard five-field cron or a descriptor
// such as "@every 5m"). An empty spec disables the job.
func (s *Scheduler) AddJob(spec, name string, fn Job) error {
	if spec == "" {
		s.logger.Info("job disabled", "job", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("job triggered", "job", name)
		if err := fn(s.ctx); err != nil {
			s.logger.Error("job failed", "job", name, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
}

// IsRunning reports whether any job is registered.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

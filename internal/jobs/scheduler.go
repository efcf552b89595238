package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"rimagic/api/internal/repository"
)

// Scheduler runs the periodic maintenance sweeps: expired rate-limit windows
// every minute, usage-log retention once a day.
type Scheduler struct {
	cron          *cron.Cron
	windows       *repository.RateLimitRepository
	usage         *repository.UsageRepository
	retentionDays int
	log           zerolog.Logger
}

func NewScheduler(windows *repository.RateLimitRepository, usage *repository.UsageRepository, retentionDays int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		windows:       windows,
		usage:         usage,
		retentionDays: retentionDays,
		log:           log,
	}
}

func (s *Scheduler) Start() error {
	if s.windows != nil {
		if _, err := s.cron.AddFunc("0 * * * * *", s.sweepRateWindows); err != nil {
			return err
		}
	}
	if s.usage != nil && s.retentionDays > 0 {
		if _, err := s.cron.AddFunc("0 0 3 * * *", s.sweepUsageLogs); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs, bounded by a timeout.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepRateWindows() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Only the current and previous minute matter to the limiter.
	deleted, err := s.windows.Cleanup(ctx, 2*time.Minute)
	if err != nil {
		s.log.Error().Err(err).Msg("rate window sweep failed")
		return
	}
	if deleted > 0 {
		s.log.Debug().Int64("deleted", deleted).Msg("rate windows swept")
	}
}

func (s *Scheduler) sweepUsageLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := s.usage.CleanupLogs(ctx, s.retentionDays)
	if err != nil {
		s.log.Error().Err(err).Msg("usage log sweep failed")
		return
	}
	s.log.Info().
		Int64("deleted", deleted).
		Int("retention_days", s.retentionDays).
		Msg("usage logs swept")
}

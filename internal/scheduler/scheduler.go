package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/channelpartner/position-backend/internal/logging"
	"github.com/channelpartner/position-backend/internal/otp"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Sweeper is implemented by OTP stores that need explicit expiry. Redis
// expires keys itself and does not implement it.
type Sweeper interface {
	Sweep() int
}

// Scheduler owns the periodic maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	db        *gorm.DB
	sweeper   Sweeper
	throttle  *otp.Throttle
	retention time.Duration
}

func New(db *gorm.DB, store otp.Store, throttle *otp.Throttle) *Scheduler {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		db:        db,
		throttle:  throttle,
		retention: logging.LogRetention,
	}
	if sw, ok := store.(Sweeper); ok {
		s.sweeper = sw
	}
	return s
}

// Register adds the OTP sweep at sweepEvery and the daily log cleanup.
func (s *Scheduler) Register(sweepEvery time.Duration) error {
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	if _, err := s.cron.AddFunc("@every "+sweepEvery.String(), s.SweepOTPs); err != nil {
		return fmt.Errorf("failed to schedule otp sweep: %w", err)
	}
	if _, err := s.cron.AddFunc("@daily", s.CleanupLogs); err != nil {
		return fmt.Errorf("failed to schedule log cleanup: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

// SweepOTPs evicts expired one-time codes and idle throttle entries.
func (s *Scheduler) SweepOTPs() {
	codes := 0
	if s.sweeper != nil {
		codes = s.sweeper.Sweep()
	}
	limiters := 0
	if s.throttle != nil {
		limiters = s.throttle.Prune()
	}
	if codes > 0 || limiters > 0 {
		slog.Info("otp sweep completed", "codes", codes, "limiters", limiters)
	}
}

func (s *Scheduler) CleanupLogs() {
	n, err := logging.CleanupOldLogs(s.db, s.retention)
	if err != nil {
		slog.Error("log cleanup failed", "action", "cleanup_logs", "error", err)
		return
	}
	if n > 0 {
		slog.Info("log cleanup completed", "deleted", n)
	}
}

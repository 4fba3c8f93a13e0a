// Package retention prunes aged log files on a schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultMaxAge = 31 * 24 * time.Hour

type Scheduler struct {
	dir      string
	maxAge   time.Duration
	schedule Schedule
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(dir string, maxAge time.Duration, schedule Schedule, logger *zap.Logger) *Scheduler {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if schedule == nil {
		schedule = Monthly{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		dir:      dir,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger.With(zap.String("component", "retention")),
		now:      time.Now,
	}
}

// Run sleeps until each scheduled time and cleans up, until ctx is done.
// Cancellation during the sleep returns without cleaning up.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting log retention loop", zap.String("dir", s.dir), zap.Duration("max_age", s.maxAge))
	for {
		now := s.now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			s.logger.Error("retention schedule has no next run, stopping loop")
			return nil
		}
		wait := next.Sub(now)
		s.logger.Info("retention sleeping until next run",
			zap.Time("next_run", next),
			zap.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("retention loop cancelled")
			return nil
		case <-timer.C:
		}

		if _, err := s.Cleanup(s.now()); err != nil {
			s.logger.Error("log cleanup failed", zap.Error(err))
		}
	}
}

// Cleanup removes log files last modified before now minus the max age and
// returns the removed paths. Per-file failures are logged and joined.
func (s *Scheduler) Cleanup(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	cutoff := now.Add(-s.maxAge)
	var (
		removed []string
		errs    []error
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isLogFile(name) {
			continue
		}
		path := filepath.Join(s.dir, name)
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Error("failed to remove log file", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		removed = append(removed, path)
	}

	if len(removed) > 0 {
		s.logger.Info("removed old log files", zap.Int("count", len(removed)), zap.Strings("paths", removed))
	} else {
		s.logger.Info("no old log files to remove")
	}
	return removed, errors.Join(errs...)
}

func isLogFile(name string) bool {
	return strings.HasPrefix(name, "bot.log") || strings.HasSuffix(name, ".log")
}

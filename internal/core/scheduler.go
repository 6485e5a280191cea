package core

// scheduler.go keeps the catalog from going stale while the server runs.
//
// Every CheckInterval the scheduler asks the Service to refetch if its view is
// older than the TTL. Failed checks are logged and retried on the next tick;
// they never stop the scheduler.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCheckInterval is how often the scheduler checks catalog age.
const DefaultCheckInterval = 5 * time.Minute

// RefreshConfig holds configuration for the refresh scheduler.
type RefreshConfig struct {
	CheckInterval time.Duration // How often to check (default: 5m)
}

// StartRefreshScheduler blocks, checking catalog freshness every
// CheckInterval until ctx is cancelled.
func (s *Service) StartRefreshScheduler(ctx context.Context, cfg RefreshConfig) {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	slog.Info("refresh scheduler started",
		"check_interval", interval.String(),
		"ttl", s.opts.TTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefreshCheck(ctx)
		}
	}
}

// runRefreshCheck performs one freshness check.
func (s *Service) runRefreshCheck(ctx context.Context) {
	start := time.Now()
	if err := s.EnsureFresh(ctx); err != nil {
		slog.Error("scheduled refresh failed", "error", err, "code", MapError(err).Code)
		return
	}
	slog.Debug("refresh check completed", "duration_ms", time.Since(start).Milliseconds())
}

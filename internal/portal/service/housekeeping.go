package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kampunglabs/siskamling/internal/portal/store"
)

// attemptRetention is how long ledger rows are kept past any plausible
// lockout window before housekeeping prunes them.
const attemptRetention = 30 * 24 * time.Hour

// HousekeepingService periodically sweeps expired sessions and prunes old
// login attempts so neither table grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs the actual cleanup. Each deletion is independent; a failure
// in one does not stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	sessions, err := s.Store.Sessions().DeleteExpiredSessions(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	}

	attempts, err := s.Store.LoginAttempts().PruneAttemptsBefore(ctx, time.Now().Add(-attemptRetention))
	if err != nil {
		s.Logger.Error("failed to prune login attempts", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed",
		"expired_sessions", sessions, "pruned_attempts", attempts)
}

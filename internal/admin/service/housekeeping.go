package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/wardenhq/warden/internal/admin/store"
)

const housekeepingInterval = time.Hour

// HousekeepingService purges expired sessions and password resets in the
// background. Expired rows are already unusable; this just keeps the
// tables from growing without bound.
type HousekeepingService struct {
	store store.Store
	log   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(st store.Store, log *slog.Logger) *HousekeepingService {
	return &HousekeepingService{
		store:  st,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the periodic purge, running one pass immediately.
func (s *HousekeepingService) Start() {
	go func() {
		defer close(s.doneCh)

		s.runOnce()

		ticker := time.NewTicker(housekeepingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop shuts the worker down, blocking until it exits.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()

	sessions, err := s.store.Sessions().DeleteExpiredBefore(ctx, now)
	if err != nil {
		s.log.Warn("session purge failed", "err", err)
	}

	resets, err := s.store.PasswordResets().DeleteExpiredBefore(ctx, now)
	if err != nil {
		s.log.Warn("password reset purge failed", "err", err)
	}

	if sessions > 0 || resets > 0 {
		s.log.Info("housekeeping pass complete",
			"sessions_purged", sessions, "resets_purged", resets)
	}
}

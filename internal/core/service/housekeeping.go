package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/antistereov/singularity-core/internal/core/store"
)

// HousekeepingService periodically deletes records whose usefulness has
// lapsed: expired invitations, idle sessions and aged-out signing
// secrets. Growth control only; correctness never depends on a sweep
// having run.
type HousekeepingService struct {
	Store    store.Store
	Rotation *SecretRotationService
	Logger   *slog.Logger
	Interval time.Duration

	// SessionIdleAfter is how long a session may sit inactive before its
	// refresh token must have expired anyway.
	SessionIdleAfter time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds a housekeeping worker. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, rotation *SecretRotationService, logger *slog.Logger, interval, sessionIdleAfter time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:            st,
		Rotation:         rotation,
		Logger:           logger,
		Interval:         interval,
		SessionIdleAfter: sessionIdleAfter,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", slog.Duration("interval", s.Interval))
}

// Stop shuts the worker down, blocking until an in-progress sweep
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass. Each deletion is independent; one
// failure does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	if err := s.Store.Invitations().DeleteExpiredInvitations(ctx, now); err != nil {
		s.Logger.Error("delete expired invitations failed", slog.String("error", err.Error()))
	}

	if s.SessionIdleAfter > 0 {
		if err := s.Store.Sessions().DeleteIdleSessions(ctx, now.Add(-s.SessionIdleAfter)); err != nil {
			s.Logger.Error("delete idle sessions failed", slog.String("error", err.Error()))
		}
	}

	if s.Rotation != nil {
		if err := s.Rotation.DeleteExpired(ctx); err != nil {
			s.Logger.Error("delete aged signing secrets failed", slog.String("error", err.Error()))
		}
	}
}

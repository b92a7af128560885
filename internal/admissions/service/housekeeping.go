package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
)

// HousekeepingService periodically prunes finalization reports older than
// Retention.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Non-positive
// interval defaults to 1 hour and non-positive retention to 90 days.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes reports past retention and returns how many were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-s.Retention)

	n, err := s.Store.Reports().DeleteReportsBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to prune finalization reports", "error", err)
		return 0
	}

	s.Logger.Info("housekeeping cleanup completed", "reports_deleted", n, "cutoff", cutoff)
	return n
}

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// ServiceLister provides the services eligible for periodic refresh.
type ServiceLister interface {
	ListServices(ctx context.Context) ([]storage.Service, error)
}

// Scheduler re-runs collection discovery for every known service on a fixed
// interval. Services already refreshing are skipped by the refresher's
// admission rule.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
	services  ServiceLister
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler; interval must be positive.
func NewScheduler(refresher *Refresher, services ServiceLister, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		services:  services,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins periodic refreshing.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s", s.interval)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.refreshAll); err != nil {
		return fmt.Errorf("scheduling refresh job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "interval", s.interval)
	return nil
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("refresh scheduler stopped")
}

func (s *Scheduler) refreshAll() {
	services, err := s.services.ListServices(context.Background())
	if err != nil {
		s.logger.Error("listing services for scheduled refresh", "error", err)
		return
	}
	for _, svc := range services {
		s.refresher.StartRefresh(svc.ID)
	}
}

package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"warranty-tracker/internal/services"
)

// pendingMaxAge is how long an unanswered reconciliation prompt is kept
const pendingMaxAge = 24 * time.Hour

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron            *cron.Cron
	monitorService  *services.MonitorService
	warrantyService *services.WarrantyService
}

// NewScheduler creates a new scheduler
func NewScheduler(monitorService *services.MonitorService, warrantyService *services.WarrantyService) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		monitorService:  monitorService,
		warrantyService: warrantyService,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start(checkInterval string) error {
	// Add scheduled job to send expiry reminders
	if _, err := s.cron.AddFunc(checkInterval, s.runReminders); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@hourly", s.purgePending); err != nil {
		return err
	}

	s.cron.Start()
	log.Info().Str("interval", checkInterval).Msg("scheduler started")
	return nil
}

func (s *Scheduler) runReminders() {
	log.Info().Msg("starting scheduled warranty check")
	sent, err := s.monitorService.CheckAllWarranties()
	if err != nil {
		log.Error().Err(err).Msg("scheduled check failed")
		return
	}
	log.Info().Int("reminders_sent", sent).Msg("scheduled warranty check completed")
}

func (s *Scheduler) purgePending() {
	n, err := s.warrantyService.PurgePending(pendingMaxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to purge pending submissions")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("purged stale pending submissions")
	}
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

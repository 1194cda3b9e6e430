package cronjob

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/service"
)

// Scheduler runs the nightly data refresh in-process.
type Scheduler struct {
	refresh *service.RefreshService
	spec    string
	cron    *cron.Cron
}

func NewScheduler(refresh *service.RefreshService, spec string) *Scheduler {
	return &Scheduler{refresh: refresh, spec: spec}
}

// Start registers the nightly refresh job and starts the cron loop.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.spec, func() {
		s.runNightlyRefresh()
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	s.cron = c
	log.Printf("Cron scheduler started (refresh spec %q)", s.spec)
	c.Start()
}

// Stop halts the cron loop. Jobs already running keep going.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) runNightlyRefresh() {
	log.Println("Nightly refresh started...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	run, err := s.refresh.Trigger(ctx, runstateTriggerSchedule)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshInProgress) {
			log.Println("Nightly refresh skipped: another refresh is already running")
			return
		}
		log.Printf("Nightly refresh failed: %v", err)
		return
	}

	log.Printf("Nightly refresh completed successfully at: %s (run %s)",
		time.Now().Format(time.RFC1123), run.RunID)
}

const runstateTriggerSchedule = "schedule"

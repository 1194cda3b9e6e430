package service

import (
	"context"
	"log"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/runstate"
)

// Runner is the pipeline surface the refresh service drives.
type Runner interface {
	Run(ctx context.Context) error
}

// DocumentSyncer refreshes the Lucernex document mirror after a
// successful pipeline run. Optional.
type DocumentSyncer interface {
	SyncAll(ctx context.Context) error
}

// RefreshService serializes pipeline runs behind the runstate lock and
// records run outcomes. One refresh at a time, whoever triggered it.
type RefreshService struct {
	pipeline Runner
	docs     DocumentSyncer
	runs     *runstate.Repository
}

func NewRefreshService(pipeline Runner, docs DocumentSyncer, runs *runstate.Repository) *RefreshService {
	return &RefreshService{pipeline: pipeline, docs: docs, runs: runs}
}

// Trigger runs a full refresh synchronously. Returns
// domain.ErrRefreshInProgress when another run holds the lock.
func (s *RefreshService) Trigger(ctx context.Context, trigger string) (*runstate.RefreshRun, error) {
	run, err := s.runs.Begin(ctx, trigger)
	if err != nil {
		return nil, err
	}

	log.Printf("[refresh] run %s started (trigger=%s)", run.RunID, trigger)
	runErr := s.pipeline.Run(ctx)

	if runErr == nil && s.docs != nil {
		// Document sync is best-effort; a failure doesn't fail the run.
		if err := s.docs.SyncAll(ctx); err != nil {
			log.Printf("[refresh] document sync failed: %v", err)
		}
	}

	if err := s.runs.Finish(ctx, run, runErr); err != nil {
		log.Printf("[refresh] failed to record run %s outcome: %v", run.RunID, err)
	}

	if runErr != nil {
		log.Printf("[refresh] run %s failed: %v", run.RunID, runErr)
		return run, runErr
	}
	log.Printf("[refresh] run %s completed", run.RunID)
	return run, nil
}

// Status returns the most recent run, running or finished.
func (s *RefreshService) Status(ctx context.Context) (*runstate.RefreshRun, error) {
	return s.runs.Latest(ctx)
}

// Run looks up a specific run by id.
func (s *RefreshService) Run(ctx context.Context, runID string) (*runstate.RefreshRun, error) {
	return s.runs.Get(ctx, runID)
}

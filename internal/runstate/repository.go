// Package runstate tracks refresh runs in Redis and enforces the
// at-most-one-refresh-at-a-time guard.
package runstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix = "etl:run:"          // run record: etl:run:{run_id}
	latestRunKey = "etl:run:latest"    // run id of the most recent run
	refreshLock  = "etl:refresh:lock"  // held while a refresh is running
	runTTL       = 7 * 24 * time.Hour  // run records kept for a week
	lockTTL      = 3 * time.Hour       // stale-lock ceiling if a process dies mid-run; must outlast the scheduler's 2h run budget
)

// releaseLockScript deletes the refresh lock only while it still holds
// this run's id, so a run that outlived lockTTL cannot release a lock a
// later run has since acquired.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RefreshRun is one pipeline execution record.
type RefreshRun struct {
	RunID       string     `json:"run_id"`
	Trigger     string     `json:"trigger"` // "api" or "schedule"
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Repository handles Redis operations for refresh runs.
type Repository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *Repository {
	return &Repository{client: client}
}

// Begin acquires the refresh lock and records a new running run. A
// concurrent refresh is rejected with domain.ErrRefreshInProgress, never
// queued.
func (r *Repository) Begin(ctx context.Context, trigger string) (*RefreshRun, error) {
	run := &RefreshRun{
		RunID:     uuid.New().String(),
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	acquired, err := r.client.SetNX(ctx, refreshLock, run.RunID, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrRefreshInProgress
	}

	if err := r.save(ctx, run); err != nil {
		// Give the lock back so the failed bookkeeping doesn't wedge
		// future refreshes.
		r.releaseLock(ctx, run.RunID)
		return nil, err
	}
	return run, nil
}

// Finish records the run outcome and releases the refresh lock.
func (r *Repository) Finish(ctx context.Context, run *RefreshRun, runErr error) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if runErr != nil {
		run.Status = StatusFailed
		run.Message = runErr.Error()
	} else {
		run.Status = StatusCompleted
		run.Message = "Refresh complete."
	}

	saveErr := r.save(ctx, run)
	if err := r.releaseLock(ctx, run.RunID); err != nil && saveErr == nil {
		saveErr = fmt.Errorf("release refresh lock: %w", err)
	}
	return saveErr
}

func (r *Repository) releaseLock(ctx context.Context, runID string) error {
	return releaseLockScript.Run(ctx, r.client, []string{refreshLock}, runID).Err()
}

// Get retrieves a run record by id.
func (r *Repository) Get(ctx context.Context, runID string) (*RefreshRun, error) {
	data, err := r.client.Get(ctx, runKeyPrefix+runID).Result()
	if err == redis.Nil {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run RefreshRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

// Latest returns the most recently started run.
func (r *Repository) Latest(ctx context.Context) (*RefreshRun, error) {
	runID, err := r.client.Get(ctx, latestRunKey).Result()
	if err == redis.Nil {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run id: %w", err)
	}
	return r.Get(ctx, runID)
}

// InProgress reports whether the refresh lock is currently held.
func (r *Repository) InProgress(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, refreshLock).Result()
	if err != nil {
		return false, fmt.Errorf("check refresh lock: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) save(ctx context.Context, run *RefreshRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, runKeyPrefix+run.RunID, data, runTTL)
	pipe.Set(ctx, latestRunKey, run.RunID, runTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

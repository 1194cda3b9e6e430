package runstate

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
)

func setupRepo(t *testing.T) (*Repository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRepository(client), mr
}

func TestRepository_Begin(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	t.Run("first refresh acquires the lock", func(t *testing.T) {
		run, err := repo.Begin(ctx, "api")
		require.NoError(t, err)
		assert.NotEmpty(t, run.RunID)
		assert.Equal(t, StatusRunning, run.Status)
		assert.Equal(t, "api", run.Trigger)
		assert.False(t, run.StartedAt.IsZero())

		inProgress, err := repo.InProgress(ctx)
		require.NoError(t, err)
		assert.True(t, inProgress)
	})

	t.Run("concurrent refresh is rejected, not queued", func(t *testing.T) {
		_, err := repo.Begin(ctx, "schedule")
		assert.True(t, errors.Is(err, domain.ErrRefreshInProgress))
	})
}

func TestRepository_FinishReleasesLock(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	run, err := repo.Begin(ctx, "api")
	require.NoError(t, err)

	require.NoError(t, repo.Finish(ctx, run, nil))

	inProgress, err := repo.InProgress(ctx)
	require.NoError(t, err)
	assert.False(t, inProgress)

	got, err := repo.Get(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Refresh complete.", got.Message)
	require.NotNil(t, got.CompletedAt)

	// lock free again
	_, err = repo.Begin(ctx, "api")
	require.NoError(t, err)
}

func TestRepository_FinishRecordsFailure(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	run, err := repo.Begin(ctx, "schedule")
	require.NoError(t, err)

	require.NoError(t, repo.Finish(ctx, run, errors.New("warehouse unreachable")))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Message, "warehouse unreachable")
}

func TestRepository_LatestAndGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	t.Run("no runs yet", func(t *testing.T) {
		_, err := repo.Latest(ctx)
		assert.True(t, errors.Is(err, domain.ErrRunNotFound))

		_, err = repo.Get(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, domain.ErrRunNotFound))
	})

	t.Run("latest follows the newest run", func(t *testing.T) {
		first, err := repo.Begin(ctx, "api")
		require.NoError(t, err)
		require.NoError(t, repo.Finish(ctx, first, nil))

		second, err := repo.Begin(ctx, "schedule")
		require.NoError(t, err)

		got, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.RunID, got.RunID)
		assert.Equal(t, StatusRunning, got.Status)
	})
}

func TestRepository_StaleLockExpires(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Begin(ctx, "api")
	require.NoError(t, err)

	// Simulate a crashed process: the lock TTL elapses without Finish.
	mr.FastForward(lockTTL)

	_, err = repo.Begin(ctx, "api")
	require.NoError(t, err)
}

func TestRepository_OverdueRunCannotReleaseSuccessorLock(t *testing.T) {
	repo, mr := setupRepo(t)
	ctx := context.Background()

	overdue, err := repo.Begin(ctx, "schedule")
	require.NoError(t, err)

	// The first run outlives its lock and a second refresh takes over.
	mr.FastForward(lockTTL)
	_, err = repo.Begin(ctx, "api")
	require.NoError(t, err)

	// The overdue run finishing must not free the second run's lock.
	require.NoError(t, repo.Finish(ctx, overdue, nil))

	inProgress, err := repo.InProgress(ctx)
	require.NoError(t, err)
	assert.True(t, inProgress)

	_, err = repo.Begin(ctx, "api")
	assert.True(t, errors.Is(err, domain.ErrRefreshInProgress))
}

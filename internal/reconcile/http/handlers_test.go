package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/service"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/runstate"
)

type stubRunner struct{ err error }

func (s stubRunner) Run(ctx context.Context) error { return s.err }

func setupRouter(t *testing.T, runner service.Runner) (*gin.Engine, *runstate.Repository) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	runs := runstate.NewRepository(client)
	refresh := service.NewRefreshService(runner, nil, runs)

	r := gin.New()
	Register(r.Group("/api/v1/refresh"), refresh, nil)
	return r, runs
}

func TestTrigger(t *testing.T) {
	t.Run("returns completed run", func(t *testing.T) {
		r, _ := setupRouter(t, stubRunner{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			OK  bool               `json:"ok"`
			Run runstate.RefreshRun `json:"run"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "api", resp.Run.Trigger)
		assert.Equal(t, runstate.StatusCompleted, resp.Run.Status)
	})

	t.Run("conflict while a refresh is running", func(t *testing.T) {
		r, runs := setupRouter(t, stubRunner{})

		_, err := runs.Begin(context.Background(), "schedule")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("pipeline failure surfaces as 500 with run record", func(t *testing.T) {
		r, _ := setupRouter(t, stubRunner{err: errors.New("warehouse down")})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var resp struct {
			OK  bool                `json:"ok"`
			Run *runstate.RefreshRun `json:"run"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
		require.NotNil(t, resp.Run)
		assert.Equal(t, runstate.StatusFailed, resp.Run.Status)
	})
}

func TestStatus(t *testing.T) {
	t.Run("null run before first refresh", func(t *testing.T) {
		r, _ := setupRouter(t, stubRunner{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/refresh/status", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"run":null`)
	})

	t.Run("reports the latest run", func(t *testing.T) {
		r, runs := setupRouter(t, stubRunner{})

		run, err := runs.Begin(context.Background(), "schedule")
		require.NoError(t, err)
		require.NoError(t, runs.Finish(context.Background(), run, nil))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/refresh/status", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), run.RunID)
	})
}

func TestGetRun(t *testing.T) {
	r, runs := setupRouter(t, stubRunner{})

	run, err := runs.Begin(context.Background(), "api")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/refresh/runs/"+run.RunID, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/refresh/runs/nope", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

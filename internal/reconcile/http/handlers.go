package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/service"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/storage/postgres"
)

type Handler struct {
	refresh *service.RefreshService
	reports *postgres.ReportingRepo
}

// Register attaches refresh routes to the given router group.
func Register(rg *gin.RouterGroup, refresh *service.RefreshService, reports *postgres.ReportingRepo) {
	h := &Handler{refresh: refresh, reports: reports}

	rg.POST("", h.trigger)
	rg.GET("/status", h.status)
	rg.GET("/runs/:run_id", h.run)
	rg.GET("/metadata", h.metadata)
}

func (h *Handler) trigger(c *gin.Context) {
	run, err := h.refresh.Trigger(c.Request.Context(), "api")
	if err != nil {
		if errors.Is(err, domain.ErrRefreshInProgress) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "a refresh is already in progress"})
			return
		}
		// Run may exist even when the pipeline failed.
		resp := gin.H{"ok": false, "error": err.Error()}
		if run != nil {
			resp["run"] = run
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "run": run})
}

func (h *Handler) status(c *gin.Context) {
	run, err := h.refresh.Status(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusOK, gin.H{"ok": true, "run": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": run})
}

func (h *Handler) run(c *gin.Context) {
	run, err := h.refresh.Run(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": run})
}

func (h *Handler) metadata(c *gin.Context) {
	meta, err := h.reports.RefreshMetadata(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sources": meta})
}

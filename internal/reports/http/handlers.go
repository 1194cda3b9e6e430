// Package http serves the dashboard read API over the reconciled
// reporting tables.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fm-reporting/plumbing-dashboard-backend/internal/documents"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/domain"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/storage/postgres"
)

type Handler struct {
	reports *postgres.ReportingRepo
	docs    *documents.SyncService
}

// Register attaches the read-side routes to the given router group.
func Register(rg *gin.RouterGroup, reports *postgres.ReportingRepo, docs *documents.SyncService) {
	h := &Handler{reports: reports, docs: docs}

	rg.GET("/projects", h.listProjects)
	rg.GET("/projects/:project_id", h.getProject)
	rg.GET("/projects/:project_id/documents", h.listDocuments)
	rg.POST("/projects/:project_id/documents/sync", h.syncDocuments)
	rg.GET("/pos", h.listPOs)
	rg.GET("/wbs-nodes", h.listWBSNodes)
}

func (h *Handler) listProjects(c *gin.Context) {
	status := c.Query("status")
	banner := c.Query("banner")

	items, err := h.reports.ListProjects(c.Request.Context(), status, banner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(items), "projects": items})
}

func (h *Handler) getProject(c *gin.Context) {
	project, pos, budget, err := h.reports.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"project":         project,
		"purchase_orders": pos,
		"budget":          budget,
	})
}

func (h *Handler) listDocuments(c *gin.Context) {
	if h.docs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "document sync is not configured"})
		return
	}

	items, err := h.docs.ListProjectDocuments(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(items), "documents": items})
}

func (h *Handler) syncDocuments(c *gin.Context) {
	if h.docs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "document sync is not configured"})
		return
	}

	count, err := h.docs.SyncProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": count})
}

func (h *Handler) listPOs(c *gin.Context) {
	vendor := c.Query("vendor")
	sapDef := c.Query("project")

	items, err := h.reports.ListPOs(c.Request.Context(), vendor, sapDef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(items), "purchase_orders": items})
}

// yearFilter parses the optional year query param. Absent means no
// filter (all approval years), reported as 0.
func yearFilter(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) listWBSNodes(c *gin.Context) {
	year, err := yearFilter(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid year"})
		return
	}

	items, err := h.reports.WBSNodes(c.Request.Context(), year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "year": year, "wbs_nodes": items})
}

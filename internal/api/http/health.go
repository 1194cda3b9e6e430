package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Warehouse string    `json:"warehouse,omitempty"`
	Redis     string    `json:"redis,omitempty"`
}

// HealthHandler pings every backing store of the dashboard: the
// reporting database it serves from, the warehouse it refreshes from,
// and the Redis instance holding run state.
type HealthHandler struct {
	serviceName string
	version     string
	db          *pgxpool.Pool
	warehouse   *sql.DB
	rdb         *redis.Client
}

func NewHealthHandler(serviceName, version string, db *pgxpool.Pool, warehouse *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		warehouse:   warehouse,
		rdb:         rdb,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = pingStatus(h.db.Ping(pingCtx))
	}

	warehouseStatus := "disabled"
	if h.warehouse != nil {
		warehouseStatus = pingStatus(h.warehouse.PingContext(pingCtx))
	}

	redisStatus := "disabled"
	if h.rdb != nil {
		redisStatus = pingStatus(h.rdb.Ping(pingCtx).Err())
	}

	status := "healthy"
	if dbStatus == "down" || warehouseStatus == "down" || redisStatus == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		Warehouse: warehouseStatus,
		Redis:     redisStatus,
	})
}

func pingStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

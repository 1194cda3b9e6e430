package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/fm-reporting/plumbing-dashboard-backend/internal/api/http"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/api/http/middleware"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/documents"
	reconcilehttp "github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/http"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/service"
	reportshttp "github.com/fm-reporting/plumbing-dashboard-backend/internal/reports/http"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/storage/postgres"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	DB          *pgxpool.Pool
	Warehouse   *sql.DB
	Redis       *redis.Client
	Refresh     *service.RefreshService
	Reports     *postgres.ReportingRepo
	Documents   *documents.SyncService
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(dep.CORSOrigins) == 1 && dep.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = dep.CORSOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Warehouse, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	reconcilehttp.Register(api.Group("/refresh"), dep.Refresh, dep.Reports)
	reportshttp.Register(api, dep.Reports, dep.Documents)

	return r
}

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fm-reporting/plumbing-dashboard-backend/config"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/bootstrap"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/documents"
	cronjob "github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/cron"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/service"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/reconcile/source"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/runstate"
	"github.com/fm-reporting/plumbing-dashboard-backend/internal/storage/postgres"
)

const serviceName = "plumbing-dashboard-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportingDB, err := bootstrap.OpenReportingDB(ctx, bootstrap.DBOptions{DSN: cfg.Reporting.DSN})
	if err != nil {
		log.Fatalf("reporting db: %v", err)
	}
	defer reportingDB.Close()

	warehouseDB, err := bootstrap.OpenWarehouseDB(ctx, bootstrap.DBOptions{DSN: cfg.Warehouse.DSN})
	if err != nil {
		log.Fatalf("warehouse db: %v", err)
	}
	defer warehouseDB.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	extractor := source.NewWarehouseExtractor(warehouseDB)
	loader := postgres.NewLoader(reportingDB)
	reports := postgres.NewReportingRepo(reportingDB)
	runs := runstate.NewRepository(redisClient)
	pipeline := service.NewPipeline(extractor, loader)

	var docSync *documents.SyncService
	if cfg.Lucernex.Username != "" {
		lxClient := documents.NewClient(cfg.Lucernex.BaseURL, cfg.Lucernex.Username,
			cfg.Lucernex.Password, cfg.Lucernex.Timeout)
		docSync = documents.NewSyncService(lxClient, reportingDB)
	} else {
		log.Println("Lucernex credentials not set, document sync disabled")
	}

	var docSyncer service.DocumentSyncer
	if docSync != nil {
		docSyncer = docSync
	}
	refresh := service.NewRefreshService(pipeline, docSyncer, runs)

	if cfg.Refresh.CronSpec != "" {
		scheduler := cronjob.NewScheduler(refresh, cfg.Refresh.CronSpec)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		DB:          reportingDB,
		Warehouse:   warehouseDB,
		Redis:       redisClient,
		Refresh:     refresh,
		Reports:     reports,
		Documents:   docSync,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("%s listening on :%s", serviceName, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-report-api/api/swagger"
	"github.com/noah-isme/attendance-report-api/internal/handler"
	"github.com/noah-isme/attendance-report-api/internal/repository"
	"github.com/noah-isme/attendance-report-api/internal/service"
	"github.com/noah-isme/attendance-report-api/pkg/cache"
	"github.com/noah-isme/attendance-report-api/pkg/config"
	"github.com/noah-isme/attendance-report-api/pkg/database"
	"github.com/noah-isme/attendance-report-api/pkg/export"
	"github.com/noah-isme/attendance-report-api/pkg/graph"
	"github.com/noah-isme/attendance-report-api/pkg/jobs"
	"github.com/noah-isme/attendance-report-api/pkg/logger"
	"github.com/noah-isme/attendance-report-api/pkg/search"
)

// @title Attendance Report API
// @version 1.0.0
// @description Cross-store attendance reports over PostgreSQL, Neo4j, Redis and Elasticsearch
// @BasePath /
// @schemes http

func main() {
	os.Exit(serve(run))
}

type runFunc func(ctx context.Context, cfg *config.Config, logr *zap.Logger) error

// serve returns the process exit code so deferred cleanup runs before exit.
func serve(runServer runFunc) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runServer(ctx, cfg, logr); err != nil {
		logr.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	timeout := cfg.Reports.StoreTimeout

	db, err := database.NewPostgres(ctx, cfg.Database, timeout)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, timeout)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr, timeout)
	defer cacheRepo.Close()

	driver, err := graph.NewNeo4j(ctx, cfg.Neo4j, timeout)
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	defer driver.Close(context.WithoutCancel(ctx))

	esClient, err := search.NewElasticsearch(ctx, cfg.Elasticsearch, timeout)
	if err != nil {
		return fmt.Errorf("elasticsearch: %w", err)
	}

	metrics := service.NewMetricsService()

	universityRepo := repository.NewUniversityRepository(db, timeout)
	graphRepo := repository.NewGraphRepository(driver, cfg.Neo4j.Database, timeout)
	searchRepo := repository.NewSearchRepository(esClient, cfg.Elasticsearch.Index, cfg.Elasticsearch.Field, timeout)

	resolver := service.NewFactResolver(cacheRepo, universityRepo, metrics, logr, cfg.Reports.AdmissionCacheTTL, cfg.Reports.ResolverConcurrency)
	planner := service.NewReportPlanner(validator.New(), cfg.Reports.TopK, cfg.Reports.SearchLimit)
	reports := service.NewReportService(planner, universityRepo, graphRepo, searchRepo, resolver, metrics, logr)

	studentSync := service.NewStudentCacheSync(cacheRepo, metrics, logr)
	if cfg.CDC.Enabled {
		queue := jobs.NewQueue("student-cache-sync", studentSync.Handle, jobs.QueueConfig{
			Workers:    cfg.CDC.Workers,
			MaxRetries: cfg.CDC.MaxRetries,
			RetryDelay: cfg.CDC.RetryDelay,
			JobTimeout: timeout,
			Observer:   metrics,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		studentSync.AttachQueue(queue)
	}

	readiness := service.NewReadinessService(map[string]service.Pinger{
		repository.StorePostgres:      universityRepo,
		repository.StoreNeo4j:         graphRepo,
		repository.StoreRedis:         cacheRepo,
		repository.StoreElasticsearch: searchRepo,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(cfg, logr, routeHandlers{
		reports: handler.NewReportHandler(reports,
			export.NewCSVExporter(cfg.Export.CSVBOM),
			export.NewPDFExporter(cfg.Export.PDFFontPath)),
		changes: handler.NewStudentChangeHandler(studentSync),
		metrics: handler.NewMetricsHandler(metrics, readiness, timeout),
	}, metrics)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))

	select {
	case <-ctx.Done():
		logr.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-report-api/internal/handler"
	internalmiddleware "github.com/noah-isme/attendance-report-api/internal/middleware"
	"github.com/noah-isme/attendance-report-api/internal/service"
	"github.com/noah-isme/attendance-report-api/pkg/config"
	"github.com/noah-isme/attendance-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-report-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	reports *handler.ReportHandler
	changes *handler.StudentChangeHandler
	metrics *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routeHandlers, metrics *service.MetricsService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	reports := api.Group("/reports")
	reports.GET("/visits", h.reports.Visits)
	reports.GET("/course-requirements", h.reports.CourseRequirements)
	reports.GET("/group", h.reports.Group)

	api.POST("/internal/cdc/students", h.changes.Submit)

	return r
}

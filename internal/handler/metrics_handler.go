package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-report-api/internal/service"
)

type readinessChecker interface {
	Check(ctx context.Context) ([]service.StoreStatus, bool)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics      *service.MetricsService
	readiness    readinessChecker
	probeTimeout time.Duration
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, readiness readinessChecker, probeTimeout time.Duration) *MetricsHandler {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &MetricsHandler{metrics: metrics, readiness: readiness, probeTimeout: probeTimeout}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "metrics": h.metrics.Snapshot()})
}

// Ready godoc
// @Summary Readiness probe pinging every store
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "stores": []service.StoreStatus{}})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
	defer cancel()

	stores, ready := h.readiness.Check(ctx)
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "stores": stores})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "stores": stores})
}

package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hivecast/ingestd/internal/metrics"
)

// MetricsHandler serves the Prometheus registry.
type MetricsHandler struct {
	metrics *metrics.Metrics
}

// NewMetricsHandler creates the metrics handler.
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

func (h *MetricsHandler) Register(e *echo.Echo) {
	reg := h.metrics.Registry()
	if reg == nil {
		return
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
}

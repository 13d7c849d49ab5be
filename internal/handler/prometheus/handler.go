package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

// Handler exposes a registry over HTTP and records request metrics into it.
type Handler struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// New creates a registry with the Go and process collectors and the
// application metrics registered under namespace.
func New(namespace string) *Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Handler{
		registry: registry,
		metrics:  metrics.NewMetrics(registry, namespace),
	}
}

func (h *Handler) Metrics() *metrics.Metrics {
	return h.metrics
}

func (h *Handler) Registry() *prometheus.Registry {
	return h.registry
}

// Middleware records duration, count and errors per route template.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		statusLabel := strconv.Itoa(status)

		h.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, statusLabel).Observe(time.Since(start).Seconds())
		h.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, statusLabel).Inc()

		switch {
		case status >= 500:
			h.metrics.ErrorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case status >= 400:
			h.metrics.ErrorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}

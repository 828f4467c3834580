package web

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runcept_runtime_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runcept_runtime_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runcept_runtime_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by route",
		},
		[]string{"route"},
	)

	toolActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runcept_runtime_tool_actions_total",
			Help: "Tool actions forwarded, by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// NewMetricsMiddleware records request counts and latency per route.
func NewMetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		route := c.Route().Path
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(route, strconv.Itoa(c.Response().StatusCode())).Inc()

		return err
	}
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

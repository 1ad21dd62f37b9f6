package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Console HTTP requests by method, route template and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP latency. Guarded views include the upstream round trip.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"method", "route", "status"},
	)

	// guardDecisionsTotal shows how often operators hit the loading placeholder or the login redirect
	guardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_route_guard_decisions_total",
			Help: "Route guard outcomes by decision",
		},
		[]string{"decision"},
	)
)

func recordGuardDecision(d GuardDecision) {
	guardDecisionsTotal.WithLabelValues(d.String()).Inc()
}

// Metrics records request count and latency per route template.
// Unmatched paths collapse into a single "unmatched" route so scanners cannot blow up cardinality.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		if status == fiber.StatusNotFound && route == "/" && c.Path() != "/" {
			// the catch-all handler answered
			route = "unmatched"
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

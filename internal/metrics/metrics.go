// Package metrics provides Prometheus instrumentation for the poller and API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts quotes served, partitioned by kind (swap, add_liquidity, ...).
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_quotes_total",
		Help: "Total number of quotes served",
	}, []string{"kind"})

	// QuoteErrors counts rejected quote requests by kind and reason.
	QuoteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_quote_errors_total",
		Help: "Quote requests that failed",
	}, []string{"kind", "reason"})

	// PollsTotal counts pool refreshes by result.
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_pool_polls_total",
		Help: "Pool snapshot refreshes by result",
	}, []string{"pool", "result"})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "amm_poll_duration_seconds",
		Help:    "Time to refresh every registered pool",
		Buckets: prometheus.DefBuckets,
	})

	// WebSocketClients tracks connected snapshot feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amm_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amm_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics labelled by route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before we read it
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

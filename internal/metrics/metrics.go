// Package metrics exposes Prometheus collectors for the HTTP layer and the
// domain operations worth watching.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers don't clash.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	bookmarks *prometheus.CounterVec
	mails     *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		bookmarks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evently_bookmark_toggles_total",
				Help: "Bookmark toggles by resulting action",
			},
			[]string{"action"},
		),
		mails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evently_mail_deliveries_total",
				Help: "Outbound mail by final delivery result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.inFlight,
		m.bookmarks,
		m.mails,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			// Let the error handler write the response so the real status is seen.
			if err := next(c); err != nil {
				c.Error(err)
			}

			// Route pattern, not raw path, to keep label cardinality bounded.
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			req := c.Request()
			status := strconv.Itoa(c.Response().Status)

			m.requests.WithLabelValues(req.Method, path, status).Inc()
			m.duration.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// BookmarkToggled counts one toggle.
func (m *Metrics) BookmarkToggled(added bool) {
	if m == nil {
		return
	}
	action := "removed"
	if added {
		action = "added"
	}
	m.bookmarks.WithLabelValues(action).Inc()
}

// MailDelivered counts the final outcome of one outbound message.
func (m *Metrics) MailDelivered(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "sent"
	}
	m.mails.WithLabelValues(result).Inc()
}

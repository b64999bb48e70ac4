// Package telemetry exposes Prometheus metrics for the portal's HTTP
// surface and the report analysis pipeline.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's registered collectors. All handlers share one
// instance created at startup.
type Metrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportsUploaded *prometheus.CounterVec
	analysisOutcome *prometheus.CounterVec
	ordersCreated   *prometheus.CounterVec
	registry        *prometheus.Registry
}

// New creates and registers the portal's collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		reportsUploaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lab_reports_uploaded_total",
				Help: "Total number of lab report uploads accepted",
			},
			[]string{"clinic"},
		),
		analysisOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_analysis_total",
				Help: "Report analysis attempts by outcome",
			},
			[]string{"outcome"},
		),
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_orders_total",
				Help: "Panel orders created by status transition",
			},
			[]string{"status"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.reportsUploaded,
		m.analysisOutcome,
		m.ordersCreated,
	)
	return m
}

// Middleware records request count and duration for every route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// On error the response has not been written yet, so
			// c.Response().Status still reads 200. Take the code from the
			// error echo's error handler will render.
			code := c.Response().Status
			if err != nil {
				code = http.StatusInternalServerError
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					code = httpErr.Code
				}
			}
			status := strconv.Itoa(code)
			method := c.Request().Method
			// c.Path() is the route pattern, not the raw URL, which keeps
			// label cardinality bounded.
			path := c.Path()

			m.requestCounter.WithLabelValues(method, path, status).Inc()
			m.requestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReportUploaded(clinicSlug string) {
	if clinicSlug == "" {
		clinicSlug = "public"
	}
	m.reportsUploaded.WithLabelValues(clinicSlug).Inc()
}

func (m *Metrics) AnalysisCompleted() {
	m.analysisOutcome.WithLabelValues("completed").Inc()
}

func (m *Metrics) AnalysisFailed() {
	m.analysisOutcome.WithLabelValues("failed").Inc()
}

func (m *Metrics) OrderCreated() {
	m.ordersCreated.WithLabelValues("pending").Inc()
}

func (m *Metrics) OrderPaid() {
	m.ordersCreated.WithLabelValues("paid").Inc()
}

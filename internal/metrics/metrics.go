// Package metrics exposes Prometheus metrics for scans and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "huginn"

// Metrics holds the service's collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	SessionsRunning  prometheus.Gauge

	PagesScanned    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ViolationsFound *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all collectors with reg. A nil reg gets a fresh registry
// that also carries the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.SessionsStarted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "sessions_started_total",
		Help:      "Scan sessions started, by trigger",
	}, []string{"trigger"})

	m.SessionsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "sessions_finished_total",
		Help:      "Scan sessions finalized, by terminal status",
	}, []string{"status"})

	m.SessionDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "session_duration_seconds",
		Help:      "Wall time of finalized scan sessions",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	m.SessionsRunning = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "sessions_running",
		Help:      "Scan sessions currently running in this process",
	})

	m.PagesScanned = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "pages_scanned_total",
		Help:      "Pages recorded, by page status",
	}, []string{"status"})

	m.FetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "fetch_duration_seconds",
		Help:      "Page fetch response time",
		Buckets:   prometheus.DefBuckets,
	})

	m.ViolationsFound = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "violations_found_total",
		Help:      "Violations recorded, by severity",
	}, []string{"severity"})

	m.HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by method, route and status",
	}, []string{"method", "route", "status"})

	m.HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return m
}

// SessionStarted counts a new session.
func (m *Metrics) SessionStarted(trigger string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(trigger).Inc()
	m.SessionsRunning.Inc()
}

// SessionFinished counts a finalized session.
func (m *Metrics) SessionFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SessionsFinished.WithLabelValues(status).Inc()
	m.SessionDuration.Observe(elapsed.Seconds())
	m.SessionsRunning.Dec()
}

// PageRecorded counts a stored page and its violations by severity.
func (m *Metrics) PageRecorded(status string, responseTime float64, severities []string) {
	if m == nil {
		return
	}
	m.PagesScanned.WithLabelValues(status).Inc()
	if responseTime > 0 {
		m.FetchDuration.Observe(responseTime)
	}
	for _, s := range severities {
		m.ViolationsFound.WithLabelValues(s).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

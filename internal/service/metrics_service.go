package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workflow labels for transition metrics.
const (
	WorkflowRegistration = "registration"
	WorkflowGrading      = "grading"
	WorkflowDrop         = "drop"
	WorkflowAttendance   = "attendance"
	WorkflowFeedback     = "feedback"
)

// Cache operation labels.
const (
	cacheOpGet    = "get"
	cacheOpSet    = "set"
	cacheOpDelete = "delete"
)

// MetricsService owns a private Prometheus registry for HTTP traffic,
// workflow transitions and the statistics cache.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheDuration   *prometheus.HistogramVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Workflow state transitions by outcome",
		}, []string{"workflow", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stats_cache_lookups_total",
			Help: "Statistics cache lookups by result",
		}, []string{"result"}),
		cacheDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stats_cache_operation_seconds",
			Help:    "Latency of statistics cache operations",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	m.registry.MustRegister(m.requestDuration, m.requestTotal, m.transitions, m.cacheLookups, m.cacheDuration, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordTransition counts a workflow outcome such as approved or rejected.
func (m *MetricsService) RecordTransition(workflow, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(workflow, outcome).Inc()
}

// ObserveCacheLookup counts a lookup as hit, miss or error and records its latency.
func (m *MetricsService) ObserveCacheLookup(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheDuration.WithLabelValues(cacheOpGet).Observe(duration.Seconds())
}

// ObserveCacheOp records the latency of a cache write or delete.
func (m *MetricsService) ObserveCacheOp(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheDuration.WithLabelValues(op).Observe(duration.Seconds())
}

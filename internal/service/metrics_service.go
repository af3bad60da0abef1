package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for outbound API calls,
// the week cache and the stub server, and provides lightweight snapshots.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	apiRequestDuration *prometheus.HistogramVec
	apiRequestTotal    *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	cacheLatency       prometheus.Observer
	cacheWrite         prometheus.Observer
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	dbQueryDuration    *prometheus.HistogramVec

	apiCallCount         uint64
	apiFailureCount      uint64
	apiDurationTotal     uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	apiRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_api_request_duration_seconds",
		Help:    "Duration of calls made to the scheduling API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "intent", "status"})

	apiRequestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_api_requests_total",
		Help: "Total number of calls made to the scheduling API",
	}, []string{"method", "intent", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests served by the stub API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "week_cache_latency_seconds",
		Help:    "Latency for week cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "week_cache_write_seconds",
		Help:    "Latency for week cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "week_cache_hits_total",
		Help: "Total week cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "week_cache_misses_total",
		Help: "Total week cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of stub store queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(apiRequestDuration, apiRequestTotal, requestDuration, cacheLatency, cacheWrite, cacheHits, cacheMisses, dbQueryDuration, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		apiRequestDuration: apiRequestDuration,
		apiRequestTotal:    apiRequestTotal,
		requestDuration:    requestDuration,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
	}
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

// ObserveAPIRequest records one dispatched intent. A status of 0 marks a
// call that never produced a response.
func (m *MetricsService) ObserveAPIRequest(method, intent string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.apiRequestDuration.WithLabelValues(method, intent, labelStatus).Observe(duration.Seconds())
	m.apiRequestTotal.WithLabelValues(method, intent, labelStatus).Inc()
	atomic.AddUint64(&m.apiCallCount, 1)
	atomic.AddUint64(&m.apiDurationTotal, uint64(duration.Nanoseconds()))
	if status < 200 || status > 299 {
		atomic.AddUint64(&m.apiFailureCount, 1)
	}
}

// ObserveHTTPRequest records a request served by the stub API.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// RecordCacheOperation records week cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records stub store query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// Snapshot returns aggregated counters for a quick summary.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	calls := atomic.LoadUint64(&m.apiCallCount)
	duration := atomic.LoadUint64(&m.apiDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var avgMs float64
	if calls > 0 {
		avgMs = float64(duration) / float64(calls) / float64(time.Millisecond)
	}
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return models.MetricsSnapshot{
		APICalls:             calls,
		APIFailures:          atomic.LoadUint64(&m.apiFailureCount),
		AverageAPIDurationMs: avgMs,
		CacheHits:            hits,
		CacheMisses:          misses,
		CacheHitRatio:        ratio,
		DBQueries:            atomic.LoadUint64(&m.dbQueryCount),
		GeneratedAt:          time.Now().UTC(),
	}
}

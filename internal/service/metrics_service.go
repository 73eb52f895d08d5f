package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and booking activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	bookingsAdmitted   prometheus.Counter
	bookingRejections  *prometheus.CounterVec
	bookingsCancelled  prometheus.Counter
	schedulesCreated   prometheus.Counter
	schedulesExpired   prometheus.Counter
	admissionLatencies prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	bookingsAdmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_admitted_total",
		Help: "Bookings admitted by the admission engine",
	})

	bookingRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_rejections_total",
		Help: "Booking requests rejected, labelled by the first violated rule",
	}, []string{"code"})

	bookingsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Bookings cancelled by their owner",
	})

	schedulesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedules_created_total",
		Help: "Schedules opened for booking",
	})

	schedulesExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedules_expired_total",
		Help: "Schedules moved to expired, explicitly or by the sweep",
	})

	admissionLatencies := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_admission_duration_seconds",
		Help:    "Time spent evaluating and persisting a booking request",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dbQueryDuration,
		bookingsAdmitted, bookingRejections, bookingsCancelled,
		schedulesCreated, schedulesExpired, admissionLatencies,
		goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		bookingsAdmitted:   bookingsAdmitted,
		bookingRejections:  bookingRejections,
		bookingsCancelled:  bookingsCancelled,
		schedulesCreated:   schedulesCreated,
		schedulesExpired:   schedulesExpired,
		admissionLatencies: admissionLatencies,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordAdmission counts an admission outcome. code is empty when admitted.
func (m *MetricsService) RecordAdmission(code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.admissionLatencies.Observe(duration.Seconds())
	if code == "" {
		m.bookingsAdmitted.Inc()
		return
	}
	m.bookingRejections.WithLabelValues(code).Inc()
}

// RecordCancellation counts a cancelled booking.
func (m *MetricsService) RecordCancellation() {
	if m == nil {
		return
	}
	m.bookingsCancelled.Inc()
}

// RecordScheduleCreated counts an opened schedule.
func (m *MetricsService) RecordScheduleCreated() {
	if m == nil {
		return
	}
	m.schedulesCreated.Inc()
}

// RecordSchedulesExpired adds n expired schedules.
func (m *MetricsService) RecordSchedulesExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.schedulesExpired.Add(float64(n))
}

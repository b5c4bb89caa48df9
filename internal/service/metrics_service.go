package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

// Scheduling operation outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeDeleted   = "deleted"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
	OutcomeLockBusy  = "lock_busy"
	OutcomeSuggested = "suggested"
)

// MetricsSnapshot is a JSON-friendly summary of the counters kept in process.
type MetricsSnapshot struct {
	RequestsTotal            uint64                         `json:"requestsTotal"`
	AverageRequestDurationMs float64                        `json:"averageRequestDurationMs"`
	SchedulesCreated         uint64                         `json:"schedulesCreated"`
	ConflictResults          uint64                         `json:"conflictResults"`
	ConflictsByType          map[models.ConflictType]uint64 `json:"conflictsByType"`
	Goroutines               int                            `json:"goroutines"`
	GeneratedAt              time.Time                      `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	operations      *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	lockWait        prometheus.Histogram

	requestCount         uint64
	requestDurationTotal uint64
	createdCount         uint64
	conflictResultCount  uint64
	teacherConflicts     uint64
	roomConflicts        uint64
	classConflicts       uint64
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

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_operations_total",
		Help: "Scheduling operations by outcome",
	}, []string{"operation", "outcome"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_total",
		Help: "Conflicts reported to callers by resource type",
	}, []string{"type"})

	searchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_search_duration_seconds",
		Help:    "Duration of available slot searches",
		Buckets: prometheus.DefBuckets,
	})

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lock_wait_seconds",
		Help:    "Time spent acquiring resource locks",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, operations, conflicts, searchDuration, lockWait, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		operations:      operations,
		conflicts:       conflicts,
		searchDuration:  searchDuration,
		lockWait:        lockWait,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordOperation counts a scheduling operation outcome.
func (m *MetricsService) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	switch outcome {
	case OutcomeCreated:
		atomic.AddUint64(&m.createdCount, 1)
	case OutcomeConflict:
		atomic.AddUint64(&m.conflictResultCount, 1)
	}
}

// RecordConflicts counts each reported conflict by type.
func (m *MetricsService) RecordConflicts(conflicts []models.ScheduleConflict) {
	if m == nil {
		return
	}
	for _, c := range conflicts {
		m.conflicts.WithLabelValues(string(c.Type)).Inc()
		switch c.Type {
		case models.ConflictTeacher:
			atomic.AddUint64(&m.teacherConflicts, 1)
		case models.ConflictRoom:
			atomic.AddUint64(&m.roomConflicts, 1)
		case models.ConflictClass:
			atomic.AddUint64(&m.classConflicts, 1)
		}
	}
}

// ObserveSlotSearch records the duration of a suggestion search.
func (m *MetricsService) ObserveSlotSearch(duration time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(duration.Seconds())
}

// ObserveLockWait records how long a booking waited for its locks.
func (m *MetricsService) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{GeneratedAt: time.Now().UTC()}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		SchedulesCreated:         atomic.LoadUint64(&m.createdCount),
		ConflictResults:          atomic.LoadUint64(&m.conflictResultCount),
		ConflictsByType: map[models.ConflictType]uint64{
			models.ConflictTeacher: atomic.LoadUint64(&m.teacherConflicts),
			models.ConflictRoom:    atomic.LoadUint64(&m.roomConflicts),
			models.ConflictClass:   atomic.LoadUint64(&m.classConflicts),
		},
		Goroutines:  runtime.NumGoroutine(),
		GeneratedAt: time.Now().UTC(),
	}
}

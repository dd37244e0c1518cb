package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Sandbox metrics
	RunsTotal         prometheus.Counter
	ContextsActive    prometheus.Gauge
	ContextsDiscarded *prometheus.CounterVec
	ContextLifetime   prometheus.Histogram
	FramesTotal       *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON summary.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	Runs              int64   `json:"runs"`
	ActiveContexts    int64   `json:"active_contexts"`
	StaleMessages     int64   `json:"stale_messages"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics registers the collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playground_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.RequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playground_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
	m.ResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playground_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	m.RunsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "playground_sandbox_runs_total",
			Help: "Total number of execution contexts started",
		},
	)
	m.ContextsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "playground_sandbox_contexts_active",
			Help: "Number of execution contexts attached to the host",
		},
	)
	m.ContextsDiscarded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_sandbox_contexts_discarded_total",
			Help: "Execution contexts torn down, by reason",
		},
		[]string{"reason"},
	)
	m.ContextLifetime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playground_sandbox_context_lifetime_seconds",
			Help:    "Time from context start to teardown",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)
	m.FramesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_sandbox_frames_total",
			Help: "Context messages received, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	m.WSConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "playground_ws_connections",
			Help: "Number of active WebSocket connections",
		},
	)
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_ws_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "playground_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RunStarted records a new execution context.
func (m *Metrics) RunStarted(uint64) {
	m.RunsTotal.Inc()
	m.ContextsActive.Inc()

	m.mu.Lock()
	m.snapshot.Runs++
	m.snapshot.ActiveContexts++
	m.mu.Unlock()
}

// ContextDiscarded records a context teardown.
func (m *Metrics) ContextDiscarded(_ uint64, reason string, lifetime time.Duration) {
	m.ContextsActive.Dec()
	m.ContextsDiscarded.WithLabelValues(reason).Inc()
	m.ContextLifetime.Observe(lifetime.Seconds())

	m.mu.Lock()
	m.snapshot.ActiveContexts--
	m.mu.Unlock()
}

// FrameDelivered records the outcome of one context message.
func (m *Metrics) FrameDelivered(kind, outcome string) {
	m.FramesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == "stale" {
		m.mu.Lock()
		m.snapshot.StaleMessages++
		m.mu.Unlock()
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// GetSnapshot returns the current summary values.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()

	if snap.TotalRequests > 0 {
		snap.AverageLatencyMs = snap.totalDuration / float64(snap.TotalRequests) * 1000
	}
	snap.UptimeSeconds = m.Uptime().Seconds()
	return snap
}

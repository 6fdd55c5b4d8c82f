// Package metrics exposes the dashboard's Prometheus collectors. A nil
// *Metrics is valid and records nothing, which keeps tests free of setup.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexustrade"

// Metrics holds every collector, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Ticks           prometheus.Counter
	Trades          *prometheus.CounterVec
	LogEntries      *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	PublishFailures prometheus.Counter
	Narratives      prometheus.Gauge
	WSClients       prometheus.Gauge
	WSDropped       prometheus.Counter
	LoginAttempts   *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "simulator",
			Name: "ticks_total", Help: "Simulation ticks executed.",
		}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "simulator",
			Name: "trades_total", Help: "Synthetic trades executed.",
		}, []string{"symbol", "side"}),
		LogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "journal",
			Name: "entries_total", Help: "Dashboard log entries emitted.",
		}, []string{"level"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store",
			Name: "write_failures_total", Help: "Best-effort writes that failed.",
		}, []string{"table"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus",
			Name: "publish_failures_total", Help: "Events that could not be published.",
		}),
		Narratives: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "simulator",
			Name: "narratives_in_flight", Help: "Staged narratives currently running.",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ws",
			Name: "clients", Help: "Connected WebSocket viewers.",
		}),
		WSDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ws",
			Name: "dropped_frames_total", Help: "Frames dropped for slow viewers.",
		}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "broker",
			Name: "login_attempts_total", Help: "Simulated broker logins by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http",
			Name: "request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Ticks, m.Trades, m.LogEntries, m.PersistFailures, m.PublishFailures,
		m.Narratives, m.WSClients, m.WSDropped, m.LoginAttempts, m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Tick() {
	if m != nil {
		m.Ticks.Inc()
	}
}

func (m *Metrics) Trade(symbol, side string) {
	if m != nil {
		m.Trades.WithLabelValues(symbol, side).Inc()
	}
}

func (m *Metrics) LogEntry(level string) {
	if m != nil {
		m.LogEntries.WithLabelValues(level).Inc()
	}
}

func (m *Metrics) PersistFailure(table string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(table).Inc()
	}
}

func (m *Metrics) PublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) NarrativeStarted() {
	if m != nil {
		m.Narratives.Inc()
	}
}

func (m *Metrics) NarrativeDone() {
	if m != nil {
		m.Narratives.Dec()
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.WSClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.WSClients.Dec()
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.WSDropped.Inc()
	}
}

func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

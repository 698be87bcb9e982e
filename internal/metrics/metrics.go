package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	MetricsNamespace       = "nerve"
	MetricsSubsystemHTTP   = "http"
	MetricsSubsystemEmbed  = "embed"
	MetricsSubsystemCache  = "cache"
	MetricsSubsystemSystem = "system"
)

// Metrics is the instrumentation surface used by the service.
type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveHTTPRequest(route, method, status string, elapsed float64)

	ObserveEmbedDuration(model string, elapsed float64)
	IncrementEmbedInflight()
	DecrementEmbedInflight()
	ObserveEmbedError(model string)

	ObserveCacheResult(hit bool)
}

type metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	embedDuration *prometheus.HistogramVec
	embedInflight prometheus.Gauge
	embedErrors   *prometheus.CounterVec

	cacheRequests *prometheus.CounterVec
}

// NewMetrics builds a fresh registry with Go and process collectors attached.
func NewMetrics() Metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the service started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemHTTP,
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})
	m.registry.MustRegister(m.httpRequests)

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemHTTP,
		Name:      "request_duration_seconds",
		Help:      "Time to serve an HTTP request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	m.registry.MustRegister(m.httpDuration)

	m.embedDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemEmbed,
		Name:      "duration_seconds",
		Help:      "Time spent inside the model computing one embedding.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"model"})
	m.registry.MustRegister(m.embedDuration)

	m.embedInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemEmbed,
		Name:      "inflight",
		Help:      "Embeddings currently being computed.",
	})
	m.registry.MustRegister(m.embedInflight)

	m.embedErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemEmbed,
		Name:      "errors_total",
		Help:      "Failed embedding computations.",
	}, []string{"model"})
	m.registry.MustRegister(m.embedErrors)

	m.cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "requests_total",
		Help:      "Embedding cache lookups by result.",
	}, []string{"result"})
	m.registry.MustRegister(m.cacheRequests)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveHTTPRequest(route, method, status string, elapsed float64) {
	m.httpRequests.With(prometheus.Labels{"route": route, "method": method, "status": status}).Inc()
	m.httpDuration.With(prometheus.Labels{"route": route, "method": method}).Observe(elapsed)
}

func (m *metrics) ObserveEmbedDuration(model string, elapsed float64) {
	m.embedDuration.With(prometheus.Labels{"model": model}).Observe(elapsed)
}

func (m *metrics) IncrementEmbedInflight() { m.embedInflight.Inc() }
func (m *metrics) DecrementEmbedInflight() { m.embedInflight.Dec() }

func (m *metrics) ObserveEmbedError(model string) {
	m.embedErrors.With(prometheus.Labels{"model": model}).Inc()
}

func (m *metrics) ObserveCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.With(prometheus.Labels{"result": result}).Inc()
}
